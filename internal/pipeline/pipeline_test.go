package pipeline

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-expense-intake/internal/extraction"
	"mail-expense-intake/internal/ledger"
	"mail-expense-intake/internal/mailbox"
	"mail-expense-intake/internal/metrics"
	"mail-expense-intake/internal/model"
	"mail-expense-intake/internal/notify"
	"mail-expense-intake/internal/repository"
	"mail-expense-intake/internal/review"
	"mail-expense-intake/internal/testutil"
)

type sliceSource struct {
	messages []mailbox.RawMessage
	err      error
}

func (s sliceSource) FetchCandidateMessages(context.Context, time.Duration) iter.Seq2[mailbox.RawMessage, error] {
	return func(yield func(mailbox.RawMessage, error) bool) {
		for _, m := range s.messages {
			if !yield(m, nil) {
				return
			}
		}
		if s.err != nil {
			yield(mailbox.RawMessage{}, s.err)
		}
	}
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []string
	results map[string]extraction.Result
	errs    map[string]error
	hook    func()
}

func (g *fakeGateway) Extract(ctx context.Context, _ []byte, mimeType string, hint extraction.Hint) (extraction.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, hint.Filename)
	g.mu.Unlock()
	if g.hook != nil {
		g.hook()
		if ctx.Err() != nil {
			return extraction.Result{}, ctx.Err()
		}
	}
	if err := g.errs[hint.Filename]; err != nil {
		return extraction.Result{}, err
	}
	return g.results[hint.Filename], nil
}

type recordingNotifier struct {
	summaries []notify.Summary
}

func (n *recordingNotifier) NotifyStaged(_ context.Context, s notify.Summary) error {
	n.summaries = append(n.summaries, s)
	return nil
}

func acmeResult(t *testing.T) extraction.Result {
	t.Helper()
	res, err := extraction.NewResult([]byte(`{"vendor":"Acme Hardware","amount":"245.50","description":"timber","date":"2024-03-01","category":"materials","confidence":0.92}`))
	require.NoError(t, err)
	return res
}

func invoiceMessage(id string, atts ...mailbox.Attachment) mailbox.RawMessage {
	if len(atts) == 0 {
		atts = []mailbox.Attachment{{Filename: "inv.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-1.4"), Size: 8}}
	}
	return mailbox.RawMessage{
		ID:          id,
		From:        "Dave Smith <dave@example.com>",
		To:          "receipts@example.com",
		Subject:     "Invoice for 12 Spud St",
		Date:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Attachments: atts,
	}
}

type fixture struct {
	repo     *repository.Repository
	gateway  *fakeGateway
	notifier *recordingNotifier
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.New(testutil.NewDB(t))
	ctx := context.Background()
	require.NoError(t, repo.CreateJob(ctx, &model.Job{ID: "J9", Address: "12 Spud Street", Active: true}))
	require.NoError(t, repo.CreateJob(ctx, &model.Job{ID: "J1", Address: "21 Greenhill Drive", Active: true}))
	require.NoError(t, repo.CreateEmployee(ctx, &model.Employee{ID: "E1", FirstName: "Dave", LastName: "Smith"}))

	return &fixture{
		repo:     repo,
		gateway:  &fakeGateway{results: map[string]extraction.Result{"inv.pdf": acmeResult(t)}},
		notifier: &recordingNotifier{},
		metrics:  metrics.NewMetrics(prometheus.NewRegistry()),
	}
}

func (f *fixture) pipeline(src Source) *Pipeline {
	return New(src, f.gateway, f.repo, f.notifier, f.metrics, Options{
		Window:       7 * 24 * time.Hour,
		StaleAfter:   30 * time.Minute,
		JobThreshold: 90,
	})
}

func (f *fixture) logs(t *testing.T) []model.ProcessingLog {
	t.Helper()
	logs, _, err := f.repo.ListProcessingLogs(context.Background(), repository.LogFilter{})
	require.NoError(t, err)
	return logs
}

func TestRunStagesDocumentForReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stats, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{invoiceMessage("<inv-1@example.com>")}}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunStats{Seen: 1, Completed: 1, Staged: 1}, stats)

	docs, err := f.repo.ListPendingDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, "Acme Hardware", doc.Vendor)
	assert.True(t, decimal.RequireFromString("245.50").Equal(doc.Amount))
	assert.Equal(t, model.CategoryMaterials, doc.Category)
	require.NotNil(t, doc.OccurredOn)
	assert.Equal(t, "2024-03-01", doc.OccurredOn.Format("2006-01-02"))
	require.NotNil(t, doc.SuggestedJobID)
	assert.Equal(t, "J9", *doc.SuggestedJobID)
	require.NotNil(t, doc.SuggestionScore)
	assert.GreaterOrEqual(t, *doc.SuggestionScore, 90)
	require.NotNil(t, doc.SubmittedByEmployeeID)
	assert.Equal(t, "E1", *doc.SubmittedByEmployeeID)
	assert.Equal(t, model.StatusPending, doc.Status)
	assert.JSONEq(t, `{"vendor":"Acme Hardware","amount":"245.50","description":"timber","date":"2024-03-01","category":"materials","confidence":0.92}`, string(doc.RawExtractedFields))

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, model.LogCompleted, logs[0].Status)
	assert.Equal(t, 1, logs[0].AttachmentCount)
	assert.Equal(t, 1, logs[0].ProcessedCount)
	require.NotNil(t, logs[0].MatchedJobID)
	assert.Equal(t, "J9", *logs[0].MatchedJobID)

	require.Len(t, f.notifier.summaries, 1)
	assert.Equal(t, "12 Spud Street", f.notifier.summaries[0].Documents[0].SuggestedJob)

	// Nothing reaches the ledger until a reviewer approves
	svc := review.NewService(f.repo, ledger.NewGormCommitter(), nil, f.metrics)
	approved, err := svc.Approve(ctx, doc.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	var count int64
	require.NoError(t, f.repo.DB().Model(&model.Material{}).Where("job_id = ?", "J9").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	src := sliceSource{messages: []mailbox.RawMessage{invoiceMessage("<inv-1@example.com>")}}

	_, err := f.pipeline(src).Run(context.Background())
	require.NoError(t, err)
	stats, err := f.pipeline(src).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Seen: 1, Skipped: 1}, stats)

	assert.Len(t, f.gateway.calls, 1)
	assert.Len(t, f.logs(t), 1)
	docs, err := f.repo.ListPendingDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDisallowedAttachmentIsNotExtracted(t *testing.T) {
	f := newFixture(t)
	msg := invoiceMessage("<doc-1@example.com>", mailbox.Attachment{Filename: "quote.doc", MIMEType: "application/msword", Data: []byte("word")})

	stats, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{msg}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Staged)
	assert.Empty(t, f.gateway.calls)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, model.LogCompleted, logs[0].Status)
	assert.Equal(t, 1, logs[0].AttachmentCount)
	assert.Equal(t, 0, logs[0].ProcessedCount)
	assert.Empty(t, f.notifier.summaries)
}

func TestExtractionFailureSkipsOnlyThatAttachment(t *testing.T) {
	f := newFixture(t)
	f.gateway.errs = map[string]error{"blurry.jpg": errors.New("timeout")}
	msg := invoiceMessage("<inv-2@example.com>",
		mailbox.Attachment{Filename: "blurry.jpg", MIMEType: "image/jpeg", Data: []byte("jpg")},
		mailbox.Attachment{Filename: "inv.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")},
	)

	stats, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{msg}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Staged)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, model.LogCompleted, logs[0].Status)
	assert.Equal(t, 2, logs[0].AttachmentCount)
	assert.Equal(t, 1, logs[0].ProcessedCount)

	require.Len(t, f.notifier.summaries, 1)
	assert.Equal(t, []string{"blurry.jpg"}, f.notifier.summaries[0].Skipped)
}

func TestAllExtractionsFailingStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.gateway.errs = map[string]error{"inv.pdf": errors.New("bad response")}

	_, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{invoiceMessage("<inv-3@example.com>")}}).Run(context.Background())
	require.NoError(t, err)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, model.LogCompleted, logs[0].Status)
	assert.Equal(t, 0, logs[0].ProcessedCount)
}

func TestParseErrorFailsEntryAndContinues(t *testing.T) {
	f := newFixture(t)
	broken := mailbox.RawMessage{ID: "<broken@example.com>", Subject: "?", ParseErr: errors.New("multipart: NextPart: EOF")}

	stats, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{broken, invoiceMessage("<inv-4@example.com>")}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Seen: 2, Completed: 1, Failed: 1, Staged: 1}, stats)

	failed, _, err := f.repo.ListProcessingLogs(context.Background(), repository.LogFilter{Status: model.LogFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].FailureReason)
	assert.Contains(t, *failed[0].FailureReason, "mime parse error")

	// A failed entry does not block a later attempt
	done, err := f.repo.IsCompleted(context.Background(), "<broken@example.com>")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestTransportErrorAbortsRun(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	src := sliceSource{messages: []mailbox.RawMessage{invoiceMessage("<inv-5@example.com>")}, err: boom}

	stats, err := f.pipeline(src).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, stats.Completed)
}

func TestStaleEntryIsReprocessed(t *testing.T) {
	f := newFixture(t)
	old := &model.ProcessingLog{
		MessageID: "<inv-6@example.com>",
		Status:    model.LogProcessing,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, f.repo.DB().Create(old).Error)

	stats, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{invoiceMessage("<inv-6@example.com>")}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)

	got, err := f.repo.GetProcessingLog(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LogFailed, got.Status)
	assert.Equal(t, repository.StaleReason, *got.FailureReason)
}

func TestInFlightEntryIsSkipped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.DB().Create(&model.ProcessingLog{
		MessageID: "<inv-7@example.com>",
		Status:    model.LogProcessing,
	}).Error)

	stats, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{invoiceMessage("<inv-7@example.com>")}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, f.gateway.calls)
}

func TestConcurrentCompletionDiscardsLosingAttempt(t *testing.T) {
	f := newFixture(t)
	const id = "<inv-race@example.com>"

	// Another process completes the message while this run is extracting
	f.gateway.hook = func() {
		other := &model.ProcessingLog{MessageID: id, Status: model.LogProcessing}
		require.NoError(t, f.repo.DB().Create(other).Error)
		require.NoError(t, f.repo.CompleteAttempt(context.Background(), other.ID, 1, 0, nil))
	}

	stats, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{invoiceMessage(id)}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Completed)
	assert.Zero(t, stats.Staged)

	docs, err := f.repo.ListPendingDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)

	var failed int
	for _, l := range f.logs(t) {
		if l.Status == model.LogFailed {
			failed++
			assert.Equal(t, DuplicateReason, *l.FailureReason)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Empty(t, f.notifier.summaries)
}

func TestCancellationClosesEntryFailed(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.gateway.hook = cancel

	msg := invoiceMessage("<inv-8@example.com>",
		mailbox.Attachment{Filename: "inv.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")},
		mailbox.Attachment{Filename: "second.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")},
	)
	_, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{msg, invoiceMessage("<inv-9@example.com>")}}).Run(ctx)
	assert.True(t, IsCanceled(err))
	assert.Equal(t, []string{"inv.pdf"}, f.gateway.calls)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, model.LogFailed, logs[0].Status)
	assert.Equal(t, AbortedReason, *logs[0].FailureReason)

	docs, err := f.repo.ListPendingDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUnmatchedSubjectLeavesSuggestionEmpty(t *testing.T) {
	f := newFixture(t)
	msg := invoiceMessage("<inv-10@example.com>")
	msg.Subject = "Invoice for 99 Unknown Road"
	msg.From = "accounts@supplier.example"

	_, err := f.pipeline(sliceSource{messages: []mailbox.RawMessage{msg}}).Run(context.Background())
	require.NoError(t, err)

	docs, err := f.repo.ListPendingDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Nil(t, docs[0].SuggestedJobID)
	assert.Nil(t, docs[0].SubmittedByEmployeeID)

	logs := f.logs(t)
	assert.Nil(t, logs[0].MatchedJobID)
}
