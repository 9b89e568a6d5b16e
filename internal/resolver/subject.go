package resolver

import (
	"regexp"
	"strings"
)

var (
	replyPrefix = regexp.MustCompile(`(?i)^\s*(re|fw|fwd|aw)\s*:\s*`)

	streetAddress = regexp.MustCompile(`(?i)\b\d+[a-z]?(?:[/-]\d+[a-z]?)?\s+(?:[a-z'.-]+\s+){0,4}?` +
		`(?:street|st|road|rd|drive|dr|avenue|ave|place|pl|court|ct|crescent|cres|lane|ln|way|` +
		`parade|pde|terrace|tce|boulevard|blvd|highway|hwy|close|cl|grove|gr)\b\.?`)

	noiseWords = map[string]bool{
		"invoice": true, "invoices": true, "receipt": true, "receipts": true, "bill": true,
		"for": true, "job": true, "re": true, "order": true, "quote": true, "tax": true,
		"attached": true, "from": true, "the": true, "no": true, "number": true,
	}
)

// ExtractJobReference pulls the job token out of an email subject, e.g.
// "Invoice for 12 Spud St" -> "12 Spud St". A street address is preferred;
// otherwise leading noise words and separators are dropped.
func ExtractJobReference(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		stripped := replyPrefix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	if m := streetAddress.FindString(s); m != "" {
		return strings.TrimRight(strings.TrimSpace(m), ".")
	}

	words := strings.Fields(s)
	for len(words) > 0 {
		w := strings.ToLower(strings.Trim(words[0], ":-#,.|"))
		if w != "" && !noiseWords[w] {
			break
		}
		words = words[1:]
	}
	return strings.Trim(strings.Join(words, " "), " :-#,.|")
}

// SenderName returns the display name portion of an address such as
// `"Dave Smith" <dave@example.com>`, or "" when there is none.
func SenderName(from string) string {
	i := strings.Index(from, "<")
	if i <= 0 {
		return ""
	}
	return strings.Trim(strings.TrimSpace(from[:i]), `"'`)
}
