// Package mailbox lists candidate expense messages from an IMAP folder.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"mail-expense-intake/internal/config"
)

// ErrSequenceConsumed is yielded when a message sequence is ranged twice
var ErrSequenceConsumed = errors.New("message sequence already consumed")

// Attachment is one file carried by a message
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
	Size     int
}

// RawMessage is a candidate message. ParseErr is set when the body could not
// be parsed; Attachments is then empty.
type RawMessage struct {
	ID          string
	UID         uint32
	From        string
	To          string
	Subject     string
	Date        time.Time
	Attachments []Attachment
	ParseErr    error
}

// Client fetches messages over a single IMAP connection per call
type Client struct {
	cfg  config.MailboxConfig
	dial func() (*client.Client, error)
	now  func() time.Time
}

// New creates a Client for the configured server
func New(cfg config.MailboxConfig) *Client {
	c := &Client{cfg: cfg, now: time.Now}
	c.dial = c.connect
	return c
}

func (c *Client) connect() (*client.Client, error) {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	if c.cfg.TLS {
		return client.DialTLS(addr, nil)
	}
	return client.Dial(addr)
}

// FetchCandidateMessages returns a lazy, single-use sequence over messages
// received within window that carry at least one allowed attachment. Any
// connection, login, select, search or fetch failure is yielded once as an
// error and ends the sequence. Bodies are fetched with BODY.PEEK[] so flags
// are never changed.
func (c *Client) FetchCandidateMessages(ctx context.Context, window time.Duration) iter.Seq2[RawMessage, error] {
	var consumed atomic.Bool
	return func(yield func(RawMessage, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield(RawMessage{}, ErrSequenceConsumed)
			return
		}
		if err := c.fetch(ctx, window, yield); err != nil {
			yield(RawMessage{}, err)
		}
	}
}

// fetch returns nil when the consumer stopped early
func (c *Client) fetch(ctx context.Context, window time.Duration, yield func(RawMessage, error) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cl, err := c.dial()
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = cl.Terminate()
		case <-stop:
		}
	}()
	defer func() {
		if err := cl.Logout(); err != nil {
			logrus.WithError(err).Debug("IMAP logout failed")
		}
	}()

	if err := cl.Login(c.cfg.Username, c.cfg.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	folder := c.cfg.Folder
	if folder == "" {
		folder = "INBOX"
	}
	status, err := cl.Select(folder, true)
	if err != nil {
		return fmt.Errorf("failed to select %s: %w", folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = c.now().Add(-window)
	uids, err := cl.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"folder":  folder,
		"matches": len(uids),
		"since":   criteria.Since.Format(time.RFC3339),
	}).Info("Searched mailbox")

	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := c.fetchOne(cl, uid, status.UidValidity)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if msg == nil {
			continue
		}
		if msg.ParseErr == nil && !msg.HasAllowedAttachment() {
			logrus.WithFields(logrus.Fields{
				"message_id":  msg.ID,
				"attachments": len(msg.Attachments),
			}).Debug("Skipping message without allowed attachments")
			continue
		}
		if !yield(*msg, nil) {
			return nil
		}
	}
	return nil
}

func (c *Client) fetchOne(cl *client.Client, uid, uidValidity uint32) (*RawMessage, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- cl.UidFetch(seqset, items, messages)
	}()

	var fetched *imap.Message
	for m := range messages {
		fetched = m
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message uid %d: %w", uid, err)
	}
	if fetched == nil {
		return nil, nil
	}

	raw := &RawMessage{
		ID:   fmt.Sprintf("uid:%d:%d", uidValidity, uid),
		UID:  uid,
		Date: fetched.InternalDate,
	}
	if env := fetched.Envelope; env != nil {
		if env.MessageId != "" {
			raw.ID = env.MessageId
		}
		raw.Subject = env.Subject
		raw.From = joinAddresses(env.From)
		raw.To = joinAddresses(env.To)
		if !env.Date.IsZero() {
			raw.Date = env.Date
		}
	}

	body := fetched.GetBody(section)
	if body == nil {
		raw.ParseErr = errors.New("message body not returned by server")
		return raw, nil
	}
	raw.Attachments, raw.ParseErr = ParseAttachments(body, c.cfg.MaxAttachmentBytes)
	return raw, nil
}

func joinAddresses(addrs []*imap.Address) string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := a.MailboxName + "@" + a.HostName
		if a.PersonalName != "" {
			out = append(out, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			out = append(out, email)
		}
	}
	return strings.Join(out, ", ")
}
