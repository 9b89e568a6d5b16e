// Package pipeline drives one intake pass: list messages, extract their
// attachments, suggest a job and stage the results for review.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mail-expense-intake/internal/extraction"
	"mail-expense-intake/internal/mailbox"
	"mail-expense-intake/internal/metrics"
	"mail-expense-intake/internal/model"
	"mail-expense-intake/internal/notify"
	"mail-expense-intake/internal/repository"
	"mail-expense-intake/internal/resolver"
)

// AbortedReason is recorded when a run is canceled mid-message
const AbortedReason = "aborted: context canceled"

// DuplicateReason is recorded when another trigger completed the message first
const DuplicateReason = "duplicate: completed by another run"

const closeTimeout = 5 * time.Second

// Source lists candidate messages
type Source interface {
	FetchCandidateMessages(ctx context.Context, window time.Duration) iter.Seq2[mailbox.RawMessage, error]
}

// Options tunes a Pipeline
type Options struct {
	Window            time.Duration
	StaleAfter        time.Duration
	JobThreshold      int
	EmployeeThreshold int
}

// RunStats summarizes one Run
type RunStats struct {
	Seen      int `json:"seen"`
	Skipped   int `json:"skipped"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Staged    int `json:"staged"`
}

// Pipeline stages inbound expense documents. It never commits to a ledger.
type Pipeline struct {
	source   Source
	gateway  extraction.Gateway
	repo     *repository.Repository
	notifier notify.Notifier
	metrics  *metrics.Metrics
	opts     Options
}

// New creates a Pipeline
func New(source Source, gateway extraction.Gateway, repo *repository.Repository, notifier notify.Notifier, m *metrics.Metrics, opts Options) *Pipeline {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if opts.JobThreshold == 0 {
		opts.JobThreshold = resolver.JobThreshold
	}
	if opts.EmployeeThreshold == 0 {
		opts.EmployeeThreshold = resolver.EmployeeThreshold
	}
	if opts.StaleAfter == 0 {
		opts.StaleAfter = 30 * time.Minute
	}
	if opts.Window == 0 {
		opts.Window = 7 * 24 * time.Hour
	}
	return &Pipeline{
		source:   source,
		gateway:  gateway,
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
	}
}

type candidates struct {
	jobs      []resolver.Candidate
	employees []resolver.Candidate
}

// Run performs one pass over the mailbox. Transport errors abort the pass
// and are returned; per-message failures are recorded on the processing log.
func (p *Pipeline) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats
	start := time.Now()
	p.metrics.Runs.Inc()
	defer func() { p.metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	cands, err := p.loadCandidates(ctx)
	if err != nil {
		p.metrics.RunFailures.Inc()
		return stats, err
	}

	for msg, err := range p.source.FetchCandidateMessages(ctx, p.opts.Window) {
		if err != nil {
			p.metrics.RunFailures.Inc()
			return stats, fmt.Errorf("failed to list candidate messages: %w", err)
		}

		stats.Seen++
		p.metrics.MessagesSeen.Inc()

		outcome, staged, err := p.processMessage(ctx, msg, cands)
		switch outcome {
		case outcomeSkipped:
			stats.Skipped++
			p.metrics.MessagesSkipped.Inc()
		case outcomeCompleted:
			stats.Completed++
			stats.Staged += staged
		case outcomeFailed:
			stats.Failed++
			p.metrics.MessagesFailed.Inc()
		}
		if err != nil {
			if ctx.Err() != nil {
				return stats, err
			}
			logrus.WithError(err).WithField("message_id", msg.ID).Error("Failed to process message")
		}
	}

	logrus.WithFields(logrus.Fields{
		"seen":      stats.Seen,
		"skipped":   stats.Skipped,
		"completed": stats.Completed,
		"failed":    stats.Failed,
		"staged":    stats.Staged,
		"duration":  time.Since(start).String(),
	}).Info("Intake run finished")
	return stats, nil
}

func (p *Pipeline) loadCandidates(ctx context.Context) (candidates, error) {
	jobs, err := p.repo.ListJobs(ctx, true)
	if err != nil {
		return candidates{}, err
	}
	employees, err := p.repo.ListEmployees(ctx)
	if err != nil {
		return candidates{}, err
	}
	return candidates{
		jobs:      resolver.JobCandidates(jobs),
		employees: resolver.EmployeeCandidates(employees),
	}, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCompleted
	outcomeFailed
)

func (p *Pipeline) processMessage(ctx context.Context, msg mailbox.RawMessage, cands candidates) (outcome, int, error) {
	log := logrus.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"subject":    msg.Subject,
	})

	entry := &model.ProcessingLog{
		MessageID:       msg.ID,
		FromAddress:     msg.From,
		ToAddress:       msg.To,
		Subject:         msg.Subject,
		AttachmentCount: len(msg.Attachments),
	}
	begin, err := p.repo.BeginAttempt(ctx, entry, p.opts.StaleAfter)
	if err != nil {
		return outcomeSkipped, 0, err
	}
	if begin != repository.Started {
		log.WithField("reason", begin.String()).Debug("Skipping message")
		return outcomeSkipped, 0, nil
	}

	if msg.ParseErr != nil {
		reason := "mime parse error: " + msg.ParseErr.Error()
		if err := p.repo.FailAttempt(ctx, entry.ID, reason); err != nil {
			return outcomeFailed, 0, err
		}
		log.WithError(msg.ParseErr).Warn("Message could not be parsed")
		return outcomeFailed, 0, nil
	}

	suggestion, _ := resolver.Resolve(resolver.ExtractJobReference(msg.Subject), cands.jobs, p.opts.JobThreshold)
	submitter, _ := resolver.Resolve(resolver.SenderName(msg.From), cands.employees, p.opts.EmployeeThreshold)

	var docs []*model.PendingDocument
	var skipped []string
	for _, att := range msg.Attachments {
		if ctx.Err() != nil {
			return outcomeFailed, 0, p.abort(ctx, entry.ID)
		}

		mimeType, ok := mailbox.CanonicalType(att.MIMEType, att.Filename)
		if !ok {
			log.WithFields(logrus.Fields{"filename": att.Filename, "mime_type": att.MIMEType}).
				Debug("Attachment not on allow-list")
			continue
		}

		res, err := p.gateway.Extract(ctx, att.Data, mimeType, extraction.Hint{
			Subject:  msg.Subject,
			From:     msg.From,
			Filename: att.Filename,
		})
		if err != nil {
			if ctx.Err() != nil {
				return outcomeFailed, 0, p.abort(ctx, entry.ID)
			}
			p.metrics.AttachmentsFailed.Inc()
			skipped = append(skipped, att.Filename)
			log.WithError(err).WithField("filename", att.Filename).Warn("Extraction failed, skipping attachment")
			continue
		}
		p.metrics.AttachmentsExtracted.Inc()

		docs = append(docs, newDocument(entry, msg, att, mimeType, res, suggestion, submitter))
	}

	if ctx.Err() != nil {
		return outcomeFailed, 0, p.abort(ctx, entry.ID)
	}

	var matchedJobID *string
	jobID := ""
	if suggestion != nil {
		jobID = suggestion.CandidateID
		matchedJobID = &jobID
	}
	err = p.repo.Transaction(ctx, func(_ *gorm.DB, repo *repository.Repository) error {
		for _, doc := range docs {
			if err := repo.CreateDocument(ctx, doc); err != nil {
				return err
			}
		}
		return repo.CompleteAttempt(ctx, entry.ID, len(msg.Attachments), len(docs), matchedJobID)
	})
	if err != nil {
		if ctx.Err() != nil {
			return outcomeFailed, 0, p.abort(ctx, entry.ID)
		}
		if errors.Is(err, repository.ErrAlreadyCompleted) {
			log.Info("Message completed by another run, discarding this attempt")
			if ferr := p.repo.FailAttempt(ctx, entry.ID, DuplicateReason); ferr != nil {
				log.WithError(ferr).Error("Failed to close processing entry")
			}
			return outcomeSkipped, 0, nil
		}
		if ferr := p.repo.FailAttempt(ctx, entry.ID, "failed to stage documents: "+err.Error()); ferr != nil {
			log.WithError(ferr).Error("Failed to close processing entry")
		}
		return outcomeFailed, 0, err
	}

	p.metrics.DocumentsStaged.Add(float64(len(docs)))
	log.WithFields(logrus.Fields{
		"attachments": len(msg.Attachments),
		"staged":      len(docs),
		"job_id":      jobID,
	}).Info("Message processed")

	if len(docs) > 0 {
		p.notifySender(ctx, msg, docs, suggestion, skipped)
	}
	return outcomeCompleted, len(docs), nil
}

// abort closes the entry failed on a context detached from the canceled one
func (p *Pipeline) abort(ctx context.Context, entryID uint) error {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := p.repo.FailAttempt(closeCtx, entryID, AbortedReason); err != nil {
		logrus.WithError(err).WithField("entry_id", entryID).Error("Failed to close aborted processing entry")
	}
	return ctx.Err()
}

func newDocument(entry *model.ProcessingLog, msg mailbox.RawMessage, att mailbox.Attachment, mimeType string,
	res extraction.Result, suggestion, submitter *resolver.ResolutionCandidate) *model.PendingDocument {
	logID := entry.ID
	doc := &model.PendingDocument{
		ID:                 uuid.NewString(),
		ProcessingLogID:    &logID,
		MessageID:          msg.ID,
		Filename:           att.Filename,
		Vendor:             res.Fields.Vendor,
		Amount:             res.Fields.Amount,
		Category:           res.Fields.Category,
		Description:        res.Fields.Description,
		OccurredOn:         res.Fields.OccurredOn,
		Confidence:         res.Fields.Confidence,
		SourceSubject:      msg.Subject,
		SourceFromAddress:  msg.From,
		RawExtractedFields: datatypes.JSON(res.Raw),
		RawAttachment:      att.Data,
		MIMEType:           mimeType,
		Status:             model.StatusPending,
	}
	if suggestion != nil {
		id, score := suggestion.CandidateID, suggestion.Score
		doc.SuggestedJobID = &id
		doc.SuggestionScore = &score
	}
	if submitter != nil {
		id := submitter.CandidateID
		doc.SubmittedByEmployeeID = &id
	}
	return doc
}

func (p *Pipeline) notifySender(ctx context.Context, msg mailbox.RawMessage, docs []*model.PendingDocument,
	suggestion *resolver.ResolutionCandidate, skipped []string) {
	summary := notify.Summary{
		To:        msg.From,
		Subject:   msg.Subject,
		MessageID: msg.ID,
		Skipped:   skipped,
	}
	for _, d := range docs {
		line := notify.StagedDocument{Filename: d.Filename, Vendor: d.Vendor, Amount: d.Amount}
		if suggestion != nil {
			line.SuggestedJob = suggestion.CandidateLabel
		}
		summary.Documents = append(summary.Documents, line)
	}
	if err := p.notifier.NotifyStaged(ctx, summary); err != nil {
		logrus.WithError(err).WithField("message_id", msg.ID).Warn("Failed to notify sender")
	}
}

// IsCanceled reports whether err came from a canceled or expired run
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
