package repository

import (
	"context"
	"fmt"
	"time"

	"mail-expense-intake/internal/model"
)

// CreateDocument stages a document in the review queue
func (r *Repository) CreateDocument(ctx context.Context, doc *model.PendingDocument) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create pending document: %w", err)
	}
	return nil
}

// GetDocument returns a document in any state
func (r *Repository) GetDocument(ctx context.Context, id string) (*model.PendingDocument, error) {
	var doc model.PendingDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

// ListPendingDocuments returns documents awaiting review, oldest first,
// without their attachment bytes.
func (r *Repository) ListPendingDocuments(ctx context.Context) ([]model.PendingDocument, error) {
	var docs []model.PendingDocument
	err := r.db.WithContext(ctx).
		Omit("raw_attachment").
		Where("status = ?", model.StatusPending).
		Order("created_at ASC, id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending documents: %w", err)
	}
	return docs, nil
}

// Decision is the resolution metadata written when a document leaves pending
type Decision struct {
	Status            model.DocumentStatus
	ResolvedJobID     *string
	ResolvedCategory  *model.Category
	CommittedRecordID *string
	DecidedAt         time.Time
}

// MarkDecided moves a pending document to a terminal status. It reports
// false when the document was no longer pending.
func (r *Repository) MarkDecided(ctx context.Context, id string, d Decision) (bool, error) {
	if err := model.StatusPending.Transition(d.Status); err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Model(&model.PendingDocument{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":              d.Status,
			"resolved_job_id":     d.ResolvedJobID,
			"resolved_category":   d.ResolvedCategory,
			"committed_record_id": d.CommittedRecordID,
			"decided_at":          d.DecidedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update document %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// SetCommittedRecord records the ledger row id on an approved document
func (r *Repository) SetCommittedRecord(ctx context.Context, id, recordID string) error {
	return r.db.WithContext(ctx).Model(&model.PendingDocument{}).
		Where("id = ?", id).
		Update("committed_record_id", recordID).Error
}

// SetArchiveURI records where a document's attachment was archived
func (r *Repository) SetArchiveURI(ctx context.Context, id, uri string) error {
	err := r.db.WithContext(ctx).Model(&model.PendingDocument{}).
		Where("id = ?", id).
		Update("archive_uri", uri).Error
	if err != nil {
		return fmt.Errorf("failed to record archive uri: %w", err)
	}
	return nil
}
