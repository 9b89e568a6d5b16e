package model

import "time"

// ProcessingLog records one attempt at processing an inbound message.
// Rows are never deleted; the table doubles as the idempotency guard.
type ProcessingLog struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID       string    `json:"message_id" gorm:"type:varchar(512);not null;index"`
	FromAddress     string    `json:"from_address" gorm:"type:varchar(255)"`
	ToAddress       string    `json:"to_address" gorm:"type:varchar(255)"`
	Subject         string    `json:"subject" gorm:"type:varchar(998)"`
	AttachmentCount int       `json:"attachment_count"`
	ProcessedCount  int       `json:"processed_count"`
	Status          LogStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	FailureReason   *string   `json:"failure_reason,omitempty" gorm:"type:text"`
	MatchedJobID    *string   `json:"matched_job_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for ProcessingLog
func (ProcessingLog) TableName() string {
	return "processing_logs"
}
