package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PendingDocument is one extracted attachment awaiting human review
type PendingDocument struct {
	ID              string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProcessingLogID *uint  `json:"processing_log_id,omitempty" gorm:"index"`
	MessageID       string `json:"message_id" gorm:"type:varchar(512);index"`

	Filename           string          `json:"filename" gorm:"type:varchar(255)"`
	Vendor             string          `json:"vendor" gorm:"type:varchar(255)"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Category           Category        `json:"category" gorm:"type:varchar(20);not null"`
	Description        string          `json:"description" gorm:"type:text"`
	OccurredOn         *time.Time      `json:"occurred_on,omitempty" gorm:"type:date"`
	Confidence         float64         `json:"confidence"`
	SourceSubject      string          `json:"source_subject" gorm:"type:varchar(998)"`
	SourceFromAddress  string          `json:"source_from_address" gorm:"type:varchar(255)"`
	RawExtractedFields datatypes.JSON  `json:"raw_extracted_fields"`
	RawAttachment      []byte          `json:"-"`
	MIMEType           string          `json:"mime_type" gorm:"type:varchar(100)"`

	Status                DocumentStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	SuggestedJobID        *string        `json:"suggested_job_id,omitempty" gorm:"type:varchar(64)"`
	SuggestionScore       *int           `json:"suggestion_score,omitempty"`
	SubmittedByEmployeeID *string        `json:"submitted_by_employee_id,omitempty" gorm:"type:varchar(64)"`

	ResolvedJobID     *string    `json:"resolved_job_id,omitempty" gorm:"type:varchar(64)"`
	ResolvedCategory  *Category  `json:"resolved_category,omitempty" gorm:"type:varchar(20)"`
	CommittedRecordID *string    `json:"committed_record_id,omitempty" gorm:"type:varchar(36)"`
	ArchiveURI        *string    `json:"archive_uri,omitempty" gorm:"type:varchar(1024)"`
	DecidedAt         *time.Time `json:"decided_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for PendingDocument
func (PendingDocument) TableName() string {
	return "pending_documents"
}
