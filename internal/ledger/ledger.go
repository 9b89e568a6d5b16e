// Package ledger writes approved expenses into a job's cost ledger.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mail-expense-intake/internal/model"
)

// Fields is what a committed row is built from
type Fields struct {
	Vendor      string
	Amount      decimal.Decimal
	Description string
	OccurredOn  *time.Time
}

// Committer inserts exactly one ledger row per call. It is not idempotent;
// callers guard against repeats.
type Committer interface {
	Commit(ctx context.Context, tx *gorm.DB, jobID string, category model.Category, f Fields) (string, error)
}

// GormCommitter writes into the default job_* tables
type GormCommitter struct{}

// NewGormCommitter creates a GormCommitter
func NewGormCommitter() *GormCommitter {
	return &GormCommitter{}
}

// Commit inserts the row for category inside tx and returns its record id
func (GormCommitter) Commit(ctx context.Context, tx *gorm.DB, jobID string, category model.Category, f Fields) (string, error) {
	id := uuid.NewString()
	description := f.Description
	if description == "" {
		description = f.Vendor
	}

	var row interface{}
	switch category {
	case model.CategoryMaterials:
		row = &model.Material{
			ID:          id,
			JobID:       jobID,
			Description: description,
			Supplier:    f.Vendor,
			Amount:      f.Amount,
			InvoiceDate: f.OccurredOn,
		}
	case model.CategorySubtrades:
		row = &model.Subtrade{
			ID:          id,
			JobID:       jobID,
			Trade:       f.Vendor,
			Contractor:  f.Vendor,
			Amount:      f.Amount,
			InvoiceDate: f.OccurredOn,
		}
	case model.CategoryOtherCosts:
		row = &model.OtherCost{ID: id, JobID: jobID, Description: description, Amount: f.Amount}
	case model.CategoryTipFees:
		row = &model.TipFee{ID: id, JobID: jobID, Description: description, Amount: f.Amount}
	default:
		return "", fmt.Errorf("unsupported ledger category %q", category)
	}

	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return "", fmt.Errorf("failed to commit %s row for job %s: %w", category, jobID, err)
	}
	return id, nil
}
