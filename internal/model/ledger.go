package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a materials cost row on a job
type Material struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	JobID       string          `json:"job_id" gorm:"type:varchar(64);not null;index"`
	Description string          `json:"description" gorm:"type:text"`
	Supplier    string          `json:"supplier" gorm:"type:varchar(255)"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	InvoiceDate *time.Time      `json:"invoice_date,omitempty" gorm:"type:date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for Material
func (Material) TableName() string { return "job_materials" }

// Subtrade is a sub-contractor cost row on a job
type Subtrade struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	JobID       string          `json:"job_id" gorm:"type:varchar(64);not null;index"`
	Trade       string          `json:"trade" gorm:"type:varchar(255)"`
	Contractor  string          `json:"contractor" gorm:"type:varchar(255)"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	InvoiceDate *time.Time      `json:"invoice_date,omitempty" gorm:"type:date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for Subtrade
func (Subtrade) TableName() string { return "job_subtrades" }

// OtherCost is a miscellaneous cost row on a job
type OtherCost struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	JobID       string          `json:"job_id" gorm:"type:varchar(64);not null;index"`
	Description string          `json:"description" gorm:"type:text"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for OtherCost
func (OtherCost) TableName() string { return "job_other_costs" }

// TipFee is a tip/dump fee row on a job. Cartage surcharges are the
// ledger's concern and are not computed here.
type TipFee struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	JobID       string          `json:"job_id" gorm:"type:varchar(64);not null;index"`
	Description string          `json:"description" gorm:"type:text"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for TipFee
func (TipFee) TableName() string { return "job_tip_fees" }

// All returns every model managed by migrations
func All() []interface{} {
	return []interface{}{
		&ProcessingLog{},
		&ProcessedMessage{},
		&PendingDocument{},
		&Job{},
		&Employee{},
		&Material{},
		&Subtrade{},
		&OtherCost{},
		&TipFee{},
	}
}
