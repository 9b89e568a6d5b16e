package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mail-expense-intake/internal/model"
)

// StaleReason is recorded on processing entries abandoned past the sanity window
const StaleReason = "stale: abandoned while processing"

// ErrAlreadyCompleted is returned when another attempt completed the same
// message first
var ErrAlreadyCompleted = errors.New("message already completed")

// BeginOutcome says whether the caller now owns a fresh attempt
type BeginOutcome int

const (
	// Started means a new processing entry was opened for the caller
	Started BeginOutcome = iota
	// AlreadyCompleted means the message has a completed entry and must be skipped
	AlreadyCompleted
	// InFlight means another trigger holds a recent processing entry
	InFlight
)

func (o BeginOutcome) String() string {
	switch o {
	case Started:
		return "started"
	case AlreadyCompleted:
		return "already_completed"
	case InFlight:
		return "in_flight"
	}
	return "unknown"
}

// IsCompleted reports whether messageID has a completed processing entry
func (r *Repository) IsCompleted(ctx context.Context, messageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProcessingLog{}).
		Where("message_id = ? AND status = ?", messageID, model.LogCompleted).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("database error checking processed message: %w", err)
	}
	return count > 0, nil
}

// BeginAttempt opens a processing entry for entry.MessageID unless the message
// is already completed or owned by a processing entry younger than staleAfter.
// Older processing entries are closed failed before the new one is opened.
func (r *Repository) BeginAttempt(ctx context.Context, entry *model.ProcessingLog, staleAfter time.Duration) (BeginOutcome, error) {
	outcome := Started
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []model.ProcessingLog
		if err := tx.Where("message_id = ? AND status IN ?", entry.MessageID,
			[]model.LogStatus{model.LogCompleted, model.LogProcessing}).
			Find(&existing).Error; err != nil {
			return err
		}

		cutoff := time.Now().Add(-staleAfter)
		var stale []uint
		for _, e := range existing {
			switch {
			case e.Status == model.LogCompleted:
				outcome = AlreadyCompleted
				return nil
			case e.CreatedAt.After(cutoff):
				outcome = InFlight
			default:
				stale = append(stale, e.ID)
			}
		}
		if outcome == InFlight {
			return nil
		}

		if len(stale) > 0 {
			if err := tx.Model(&model.ProcessingLog{}).
				Where("id IN ? AND status = ?", stale, model.LogProcessing).
				Updates(map[string]interface{}{
					"status":         model.LogFailed,
					"failure_reason": StaleReason,
				}).Error; err != nil {
				return err
			}
		}

		entry.ID = 0
		entry.Status = model.LogProcessing
		entry.FailureReason = nil
		return tx.Create(entry).Error
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to open processing entry: %w", err)
	}
	return outcome, nil
}

// CompleteAttempt closes a processing entry as completed and claims its
// message id. A message claimed by another entry yields ErrAlreadyCompleted
// and leaves the entry open.
func (r *Repository) CompleteAttempt(ctx context.Context, id uint, attachmentCount, processedCount int, matchedJobID *string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.ProcessingLog
		if err := tx.Select("id", "message_id").First(&entry, id).Error; err != nil {
			return fmt.Errorf("failed to load processing entry %d: %w", id, notFound(err))
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.ProcessedMessage{
			MessageID:       entry.MessageID,
			ProcessingLogID: entry.ID,
			ProcessedAt:     time.Now(),
		})
		if result.Error != nil {
			return fmt.Errorf("failed to record processed message: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyCompleted, entry.MessageID)
		}

		return closeAttempt(tx, id, map[string]interface{}{
			"status":           model.LogCompleted,
			"attachment_count": attachmentCount,
			"processed_count":  processedCount,
			"matched_job_id":   matchedJobID,
		})
	})
}

// FailAttempt closes a processing entry as failed with a reason
func (r *Repository) FailAttempt(ctx context.Context, id uint, reason string) error {
	return closeAttempt(r.db.WithContext(ctx), id, map[string]interface{}{
		"status":         model.LogFailed,
		"failure_reason": reason,
	})
}

func closeAttempt(db *gorm.DB, id uint, fields map[string]interface{}) error {
	result := db.Model(&model.ProcessingLog{}).
		Where("id = ? AND status = ?", id, model.LogProcessing).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to close processing entry %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("processing entry %d is not open: %w", id, ErrNotFound)
	}
	return nil
}

// GetProcessingLog returns one entry by id
func (r *Repository) GetProcessingLog(ctx context.Context, id uint) (*model.ProcessingLog, error) {
	var entry model.ProcessingLog
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// LogFilter selects a page of processing entries
type LogFilter struct {
	Status model.LogStatus
	Limit  int
	Offset int
}

// ListProcessingLogs returns the most recent entries matching filter and the
// total number of matches.
func (r *Repository) ListProcessingLogs(ctx context.Context, filter LogFilter) ([]model.ProcessingLog, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	scope := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&model.ProcessingLog{})
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		return query
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count processing logs: %w", err)
	}

	var logs []model.ProcessingLog
	err := scope().Order("created_at DESC, id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get processing logs: %w", err)
	}
	return logs, total, nil
}
