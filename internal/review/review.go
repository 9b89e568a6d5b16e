// Package review implements the human approval step for staged documents.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mail-expense-intake/internal/archive"
	"mail-expense-intake/internal/ledger"
	"mail-expense-intake/internal/metrics"
	"mail-expense-intake/internal/model"
	"mail-expense-intake/internal/repository"
)

// Action is a reviewer's decision
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decision is a reviewer request. JobID and Category override the
// suggestion and the extracted category when set.
type Decision struct {
	Action   Action  `json:"action" binding:"required"`
	JobID    *string `json:"job_id,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Service moves documents out of the review queue
type Service struct {
	repo      *repository.Repository
	committer ledger.Committer
	archiver  archive.Archiver
	metrics   *metrics.Metrics
	locks     keyedMutex
	now       func() time.Time
}

// NewService creates a review Service
func NewService(repo *repository.Repository, committer ledger.Committer, archiver archive.Archiver, m *metrics.Metrics) *Service {
	if archiver == nil {
		archiver = archive.Noop{}
	}
	return &Service{
		repo:      repo,
		committer: committer,
		archiver:  archiver,
		metrics:   m,
		now:       time.Now,
	}
}

// ListPending returns documents awaiting review, oldest first
func (s *Service) ListPending(ctx context.Context) ([]model.PendingDocument, error) {
	return s.repo.ListPendingDocuments(ctx)
}

// Get returns a document in any state
func (s *Service) Get(ctx context.Context, id string) (*model.PendingDocument, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return doc, err
}

// Decide dispatches a reviewer decision
func (s *Service) Decide(ctx context.Context, id string, d Decision) (*model.PendingDocument, error) {
	switch Action(strings.ToLower(string(d.Action))) {
	case ActionApprove:
		return s.Approve(ctx, id, d.JobID, d.Category)
	case ActionReject:
		return s.Reject(ctx, id)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidAction, d.Action)
}

// Approve commits the document into the ledger of the chosen job. The
// explicit job wins over the suggestion and the override category over the
// extracted one. The status change and the ledger row are written in one
// transaction; archival afterwards is best effort.
func (s *Service) Approve(ctx context.Context, id string, jobID, category *string) (*model.PendingDocument, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: document %s is %s", ErrAlreadyResolved, id, doc.Status)
	}

	job, err := s.effectiveJob(ctx, doc, jobID)
	if err != nil {
		return nil, err
	}
	cat, err := effectiveCategory(doc, category)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"document_id": id,
		"job_id":      job.ID,
		"category":    cat,
	})

	decidedAt := s.now().UTC()
	err = s.repo.Transaction(ctx, func(tx *gorm.DB, repo *repository.Repository) error {
		updated, err := repo.MarkDecided(ctx, id, repository.Decision{
			Status:           model.StatusApproved,
			ResolvedJobID:    &job.ID,
			ResolvedCategory: &cat,
			DecidedAt:        decidedAt,
		})
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: document %s", ErrAlreadyResolved, id)
		}

		recordID, err := s.committer.Commit(ctx, tx, job.ID, cat, ledger.Fields{
			Vendor:      doc.Vendor,
			Amount:      doc.Amount,
			Description: doc.Description,
			OccurredOn:  doc.OccurredOn,
		})
		if err != nil {
			s.metrics.CommitFailures.Inc()
			return fmt.Errorf("failed to commit expense: %w", err)
		}
		return repo.SetCommittedRecord(ctx, id, recordID)
	})
	if err != nil {
		log.WithError(err).Warn("Approval rolled back")
		return nil, err
	}

	s.metrics.Approvals.Inc()
	log.Info("Document approved")

	s.archive(ctx, doc, job, decidedAt)
	return s.Get(ctx, id)
}

// Reject closes the document without touching any ledger
func (s *Service) Reject(ctx context.Context, id string) (*model.PendingDocument, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: document %s is %s", ErrAlreadyResolved, id, doc.Status)
	}

	updated, err := s.repo.MarkDecided(ctx, id, repository.Decision{
		Status:    model.StatusRejected,
		DecidedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, fmt.Errorf("%w: document %s", ErrAlreadyResolved, id)
	}

	s.metrics.Rejections.Inc()
	logrus.WithField("document_id", id).Info("Document rejected")
	return s.Get(ctx, id)
}

func (s *Service) effectiveJob(ctx context.Context, doc *model.PendingDocument, explicit *string) (*model.Job, error) {
	var id string
	switch {
	case explicit != nil && strings.TrimSpace(*explicit) != "":
		id = strings.TrimSpace(*explicit)
	case doc.SuggestedJobID != nil && *doc.SuggestedJobID != "":
		id = *doc.SuggestedJobID
	default:
		return nil, ErrNoJobSelected
	}

	job, err := s.repo.GetJob(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func effectiveCategory(doc *model.PendingDocument, override *string) (model.Category, error) {
	if override != nil && strings.TrimSpace(*override) != "" {
		c, ok := model.ParseCategory(*override)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidCategory, *override)
		}
		return c, nil
	}
	if doc.Category.Valid() {
		return doc.Category, nil
	}
	return model.CategoryOtherCosts, nil
}

func (s *Service) archive(ctx context.Context, doc *model.PendingDocument, job *model.Job, decidedAt time.Time) {
	date := decidedAt
	if doc.OccurredOn != nil {
		date = *doc.OccurredOn
	}
	log := logrus.WithFields(logrus.Fields{"document_id": doc.ID, "job_id": job.ID})

	uri, err := s.archiver.Archive(ctx, archive.Object{
		JobFolder:   job.Folder(),
		Date:        date,
		DocumentID:  doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.MIMEType,
		Data:        doc.RawAttachment,
	})
	if err != nil {
		s.metrics.ArchiveFailures.Inc()
		log.WithError(err).Warn("Failed to archive approved document")
		return
	}
	if uri == "" {
		return
	}
	if err := s.repo.SetArchiveURI(ctx, doc.ID, uri); err != nil {
		log.WithError(err).Warn("Failed to record archive location")
	}
}
