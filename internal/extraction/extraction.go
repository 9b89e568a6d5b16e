// Package extraction turns an attachment into structured expense fields via
// an external document-understanding service.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mail-expense-intake/internal/model"
)

// ErrEmptyResponse is returned when the service answers without a document
var ErrEmptyResponse = errors.New("extraction service returned no content")

// Hint carries message context that may help the service
type Hint struct {
	Subject  string
	From     string
	Filename string
}

// Gateway extracts expense fields from one attachment
type Gateway interface {
	Extract(ctx context.Context, data []byte, mimeType string, hint Hint) (Result, error)
}

// RawFields is the loose document an adapter receives. Amount and confidence
// arrive as numbers or strings depending on the service.
type RawFields struct {
	Vendor      string      `json:"vendor"`
	Amount      interface{} `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Confidence  interface{} `json:"confidence"`
}

// ExtractedFields is the normalized record staged for review
type ExtractedFields struct {
	Vendor      string          `json:"vendor"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	OccurredOn  *time.Time      `json:"occurred_on,omitempty"`
	Category    model.Category  `json:"category"`
	Confidence  float64         `json:"confidence"`
}

// Result pairs normalized fields with the service's verbatim payload
type Result struct {
	Fields ExtractedFields
	Raw    json.RawMessage
}

// NewResult decodes a service payload and normalizes it
func NewResult(payload []byte) (Result, error) {
	if len(payload) == 0 {
		return Result{}, ErrEmptyResponse
	}
	var raw RawFields
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Result{}, fmt.Errorf("failed to decode extraction payload: %w", err)
	}
	return Result{Fields: Normalize(raw), Raw: json.RawMessage(payload)}, nil
}

// Normalize coerces loose fields into their typed form. It never fails:
// unusable amounts become zero, unknown categories other_costs, and
// unparseable dates nil.
func Normalize(raw RawFields) ExtractedFields {
	return ExtractedFields{
		Vendor:      raw.Vendor,
		Amount:      ParseAmount(raw.Amount),
		Description: raw.Description,
		OccurredOn:  ParseDate(raw.Date),
		Category:    model.NormalizeCategory(raw.Category),
		Confidence:  ClampConfidence(toFloat(raw.Confidence)),
	}
}
