package extraction

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"2006/01/02",
	"2 Jan 2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseAmount coerces a monetary value to a non-negative decimal with two
// places. Negative, unparseable or ambiguous input yields zero, as does text
// with more than one number in it or a value too large to store.
func ParseAmount(v interface{}) decimal.Decimal {
	var d decimal.Decimal
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case json.Number:
		return ParseAmount(t.String())
	case decimal.Decimal:
		d = t
	case string:
		parsed, ok := parseAmountString(t)
		if !ok {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() || d.GreaterThan(maxAmount) {
		return decimal.Zero
	}
	return d.Round(2)
}

// amountRun matches one numeric token with its separators and an optional
// leading minus sign.
var amountRun = regexp.MustCompile(`-?\d[\d.,]*`)

// maxAmount is the largest value a decimal(12,2) column holds
var maxAmount = decimal.RequireFromString("9999999999.99")

func parseAmountString(s string) (decimal.Decimal, bool) {
	runs := amountRun.FindAllString(s, -1)
	if len(runs) != 1 {
		return decimal.Zero, false
	}
	clean := strings.TrimRight(runs[0], ".,")

	negative := strings.HasPrefix(clean, "-")
	clean = strings.TrimPrefix(clean, "-")

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")
	var ok bool
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			clean, ok = splitDecimal(clean, ".", ",")
		} else {
			clean, ok = splitDecimal(clean, ",", ".")
		}
	case lastComma >= 0:
		if strings.Count(clean, ",") == 1 && len(clean)-lastComma-1 != 3 {
			clean, ok = strings.Replace(clean, ",", ".", 1), true
		} else {
			clean, ok = stripThousands(clean, ",")
		}
	case strings.Count(clean, ".") > 1:
		clean, ok = stripThousands(clean, ".")
	case lastDot >= 0:
		// "1.234" reads as either a decimal or a dotted thousand
		ok = len(clean)-lastDot-1 != 3 || strings.HasPrefix(clean, "0.")
	default:
		ok = true
	}
	if !ok {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// splitDecimal treats the last occurrence of point as the decimal mark and
// every sep before it as a thousands separator.
func splitDecimal(s, sep, point string) (string, bool) {
	i := strings.LastIndex(s, point)
	intPart, frac := s[:i], s[i+1:]
	if strings.Contains(intPart, point) || strings.Contains(frac, sep) {
		return "", false
	}
	intPart, ok := stripThousands(intPart, sep)
	if !ok {
		return "", false
	}
	return intPart + "." + frac, true
}

// stripThousands removes sep when every group after the first has exactly
// three digits.
func stripThousands(s, sep string) (string, bool) {
	groups := strings.Split(s, sep)
	if groups[0] == "" || len(groups[0]) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

// ParseDate accepts the common invoice date layouts and returns nil for
// anything else.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// ClampConfidence bounds c to [0,1]; NaN becomes 0
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
