package mailbox

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
)

// ParseAttachments reads a full RFC 5322 message and returns its attachment
// parts. Inline parts are included when they carry a filename. Parts larger
// than maxBytes are dropped; maxBytes <= 0 disables the limit.
func ParseAttachments(r io.Reader, maxBytes int64) ([]Attachment, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	var attachments []Attachment
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("failed to read message part: %w", err)
		}

		var filename, contentType string
		switch h := p.Header.(type) {
		case *mail.AttachmentHeader:
			filename, _ = h.Filename()
			contentType, _, _ = h.ContentType()
		case *mail.InlineHeader:
			_, params, derr := h.ContentDisposition()
			if derr != nil || params["filename"] == "" {
				continue
			}
			filename = params["filename"]
			contentType, _, _ = h.ContentType()
		default:
			continue
		}

		data, err := readLimited(p.Body, maxBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %q: %w", filename, err)
		}
		if data == nil {
			logrus.WithFields(logrus.Fields{
				"filename":  filename,
				"max_bytes": maxBytes,
			}).Warn("Dropping oversized attachment")
			continue
		}

		attachments = append(attachments, Attachment{
			Filename: filename,
			MIMEType: strings.ToLower(contentType),
			Data:     data,
			Size:     len(data),
		})
	}
	return attachments, nil
}

// readLimited returns nil data without error when r exceeds maxBytes
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, nil
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}
