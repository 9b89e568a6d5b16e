package model

import "time"

// ProcessedMessage marks a message id as completed. The unique index keeps
// two triggers from completing the same message.
type ProcessedMessage struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID       string    `json:"message_id" gorm:"type:varchar(512);not null;uniqueIndex"`
	ProcessingLogID uint      `json:"processing_log_id" gorm:"not null"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// TableName specifies the table name for ProcessedMessage
func (ProcessedMessage) TableName() string {
	return "processed_messages"
}
