package mailbox

import (
	"path/filepath"
	"strings"
)

// allowed maps accepted content types, including common aliases, onto the
// type sent to extraction.
var allowed = map[string]string{
	"application/pdf": "application/pdf",
	"image/jpeg":      "image/jpeg",
	"image/jpg":       "image/jpeg",
	"image/pjpeg":     "image/jpeg",
	"image/png":       "image/png",
	"image/gif":       "image/gif",
}

var byExtension = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// CanonicalType reports whether an attachment passes the allow-list and the
// content type extraction should be told. Generic binary types are sniffed
// by filename extension.
func CanonicalType(mimeType, filename string) (string, bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if canonical, ok := allowed[mt]; ok {
		return canonical, true
	}
	if mt == "" || mt == "application/octet-stream" || mt == "binary/octet-stream" {
		canonical, ok := byExtension[strings.ToLower(filepath.Ext(filename))]
		return canonical, ok
	}
	return "", false
}

// Allowed reports whether a passes the allow-list
func (a Attachment) Allowed() bool {
	_, ok := CanonicalType(a.MIMEType, a.Filename)
	return ok
}

// HasAllowedAttachment reports whether any attachment passes the allow-list
func (m RawMessage) HasAllowedAttachment() bool {
	for _, a := range m.Attachments {
		if a.Allowed() {
			return true
		}
	}
	return false
}
