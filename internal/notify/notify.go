// Package notify tells senders what was staged from their email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/shopspring/decimal"
)

// StagedDocument is one line of a summary
type StagedDocument struct {
	Filename     string
	Vendor       string
	Amount       decimal.Decimal
	SuggestedJob string
}

// Summary describes the outcome of processing one inbound message
type Summary struct {
	To        string
	Subject   string
	MessageID string
	Documents []StagedDocument
	Skipped   []string
}

// Notifier sends a summary back to the sender. Failures are never fatal to
// the caller.
type Notifier interface {
	NotifyStaged(ctx context.Context, s Summary) error
}

// Noop is used when notifications are disabled
type Noop struct{}

// NotifyStaged does nothing
func (Noop) NotifyStaged(context.Context, Summary) error { return nil }

// ComposeSummary renders s as a plain-text RFC 5322 message from the given address
func ComposeSummary(from string, s Summary, now time.Time) ([]byte, error) {
	to, err := mail.ParseAddress(s.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", s.To, err)
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject("Received: " + s.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if id := strings.Trim(s.MessageID, "<> "); id != "" && !strings.HasPrefix(id, "uid:") {
		h.SetMsgIDList("In-Reply-To", []string{id})
		h.SetMsgIDList("References", []string{id})
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := w.Write([]byte(summaryText(s))); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func summaryText(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "We received %d document(s) from your email %q.\r\n\r\n", len(s.Documents), s.Subject)
	for _, d := range s.Documents {
		fmt.Fprintf(&b, "- %s: %s $%s", d.Filename, d.Vendor, d.Amount.StringFixed(2))
		if d.SuggestedJob != "" {
			fmt.Fprintf(&b, " (suggested job: %s)", d.SuggestedJob)
		}
		b.WriteString("\r\n")
	}
	if len(s.Skipped) > 0 {
		b.WriteString("\r\nThese attachments could not be read and were skipped:\r\n")
		for _, name := range s.Skipped {
			fmt.Fprintf(&b, "- %s\r\n", name)
		}
	}
	b.WriteString("\r\nEach document is waiting for review before it is added to a job.\r\n")
	return b.String()
}
