package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Runs                 prometheus.Counter
	RunFailures          prometheus.Counter
	RunDuration          prometheus.Histogram
	MessagesSeen         prometheus.Counter
	MessagesSkipped      prometheus.Counter
	MessagesFailed       prometheus.Counter
	AttachmentsExtracted prometheus.Counter
	AttachmentsFailed    prometheus.Counter
	DocumentsStaged      prometheus.Counter
	Approvals            prometheus.Counter
	Rejections           prometheus.Counter
	CommitFailures       prometheus.Counter
	ArchiveFailures      prometheus.Counter
}

// NewMetrics creates the intake metrics on reg. Pass
// prometheus.DefaultRegisterer to expose them on /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_runs_total",
			Help: "Total number of mailbox intake runs",
		}),
		RunFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_run_failures_total",
			Help: "Total number of intake runs aborted by transport errors",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "expense_intake_run_duration_seconds",
			Help:    "Time spent in one intake run",
			Buckets: prometheus.DefBuckets,
		}),
		MessagesSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_messages_seen_total",
			Help: "Total number of candidate messages listed from the mailbox",
		}),
		MessagesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_messages_skipped_total",
			Help: "Total number of messages skipped as already completed or in flight",
		}),
		MessagesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_messages_failed_total",
			Help: "Total number of messages whose processing entry closed failed",
		}),
		AttachmentsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_attachments_extracted_total",
			Help: "Total number of attachments extracted successfully",
		}),
		AttachmentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_attachments_failed_total",
			Help: "Total number of attachments skipped after an extraction error",
		}),
		DocumentsStaged: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_documents_staged_total",
			Help: "Total number of documents placed in the review queue",
		}),
		Approvals: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_approvals_total",
			Help: "Total number of approved documents",
		}),
		Rejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_rejections_total",
			Help: "Total number of rejected documents",
		}),
		CommitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_commit_failures_total",
			Help: "Total number of approvals rolled back by a ledger commit error",
		}),
		ArchiveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "expense_intake_archive_failures_total",
			Help: "Total number of approved documents that could not be archived",
		}),
	}
}
