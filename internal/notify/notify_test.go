package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func summary() Summary {
	return Summary{
		To:        "Dave Smith <dave@example.com>",
		Subject:   "Invoice for 12 Spud St",
		MessageID: "<inv-1@example.com>",
		Documents: []StagedDocument{{
			Filename:     "inv.pdf",
			Vendor:       "Acme Hardware",
			Amount:       decimal.RequireFromString("245.5"),
			SuggestedJob: "12 Spud Street",
		}},
		Skipped: []string{"blurry.jpg"},
	}
}

func TestComposeSummary(t *testing.T) {
	raw, err := ComposeSummary("receipts@example.com", summary(), time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Received: Invoice for 12 Spud St", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "dave@example.com", to[0].Address)

	ids, err := mr.Header.MsgIDList("In-Reply-To")
	require.NoError(t, err)
	assert.Equal(t, []string{"inv-1@example.com"}, ids)

	p, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(p.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "inv.pdf: Acme Hardware $245.50 (suggested job: 12 Spud Street)")
	assert.Contains(t, string(body), "blurry.jpg")
}

func TestComposeSummaryRejectsBadRecipient(t *testing.T) {
	s := summary()
	s.To = "not an address"
	_, err := ComposeSummary("receipts@example.com", s, time.Now())
	assert.Error(t, err)
}

func newTestGmail(send func(context.Context, *gmail.Message) error) (*Gmail, *[]time.Duration) {
	var waits []time.Duration
	return &Gmail{
		userEmail: "receipts@example.com",
		send:      send,
		sleep:     func(d time.Duration) { waits = append(waits, d) },
		now:       time.Now,
	}, &waits
}

func TestGmailRetriesOnQuota(t *testing.T) {
	calls := 0
	g, waits := newTestGmail(func(_ context.Context, msg *gmail.Message) error {
		calls++
		_, err := base64.URLEncoding.DecodeString(msg.Raw)
		require.NoError(t, err)
		if calls < 3 {
			return errors.New("googleapi: Error 429: User-rate limit exceeded")
		}
		return nil
	})

	require.NoError(t, g.NotifyStaged(context.Background(), summary()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 4 * time.Second}, *waits)
}

func TestGmailDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	g, waits := newTestGmail(func(context.Context, *gmail.Message) error {
		calls++
		return errors.New("invalid_grant")
	})

	err := g.NotifyStaged(context.Background(), summary())
	assert.ErrorContains(t, err, "invalid_grant")
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.NotifyStaged(context.Background(), summary()))
}
