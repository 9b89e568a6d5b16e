// Package archive stores approved attachments in long-term object storage.
package archive

import (
	"context"
	"strings"
	"time"
)

// Object is one approved attachment to archive
type Object struct {
	JobFolder   string
	Date        time.Time
	DocumentID  string
	Filename    string
	ContentType string
	Data        []byte
}

// Archiver uploads an object and returns a URI for it. Callers treat
// failures as best effort.
type Archiver interface {
	Archive(ctx context.Context, obj Object) (string, error)
}

// Noop is used when archival is disabled
type Noop struct{}

// Archive does nothing
func (Noop) Archive(context.Context, Object) (string, error) { return "", nil }

var unsafeNameChars = strings.NewReplacer("/", "-", "\\", "-", "\r", "", "\n", "")

// ObjectName returns <job folder>/<yyyy-mm-dd>_<document id>_<filename>
func ObjectName(obj Object) string {
	folder := strings.TrimSpace(unsafeNameChars.Replace(obj.JobFolder))
	if folder == "" {
		folder = "unassigned"
	}
	filename := strings.TrimSpace(unsafeNameChars.Replace(obj.Filename))
	if filename == "" {
		filename = "attachment"
	}
	return folder + "/" + obj.Date.Format("2006-01-02") + "_" + obj.DocumentID + "_" + filename
}
