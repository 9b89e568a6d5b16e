package extraction

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-expense-intake/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"plain", "245.50", "245.5"},
		{"symbol", "$245.50", "245.5"},
		{"currency code", "AUD 1,234.56", "1234.56"},
		{"thousands comma", "1,234", "1234"},
		{"decimal comma", "12,50", "12.5"},
		{"european", "1.234,56 EUR", "1234.56"},
		{"dotted thousands", "1.234.567", "1234567"},
		{"whitespace", " 99.00 ", "99"},
		{"split by space", " 99 .00 ", "0"},
		{"two numbers", "245.50 incl GST 22.32", "0"},
		{"two numbers with symbols", "$245.50 (GST $22.32)", "0"},
		{"ambiguous dot group", "1.234", "0"},
		{"leading zero three decimals", "0.125", "0.13"},
		{"bad thousands group", "1,23,45", "0"},
		{"mixed bad groups", "12,34.56", "0"},
		{"trailing dot", "245.", "245"},
		{"too large for column", "12345678901.00", "0"},
		{"too large number", 1e12, "0"},
		{"negative", "-5.00", "0"},
		{"garbage", "n/a", "0"},
		{"number", 245.5, "245.5"},
		{"negative number", -3.0, "0"},
		{"nan", math.NaN(), "0"},
		{"nil", nil, "0"},
		{"rounding", "10.0051", "10.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.in)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-01", "01/03/2024", "1 Mar 2024", "March 1, 2024", "2024-03-01T10:00:00Z"} {
		got := ParseDate(in)
		require.NotNil(t, got, in)
		assert.True(t, want.Equal(*got), in)
	}
	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("last tuesday"))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(math.NaN()))
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
}

func TestNewResult(t *testing.T) {
	payload := []byte(`{"vendor":"Acme Hardware","amount":"245.50","description":"timber","date":"2024-03-01","category":"Hardware","confidence":"0.93"}`)
	res, err := NewResult(payload)
	require.NoError(t, err)

	assert.Equal(t, "Acme Hardware", res.Fields.Vendor)
	assert.True(t, decimal.RequireFromString("245.50").Equal(res.Fields.Amount))
	assert.Equal(t, model.CategoryMaterials, res.Fields.Category)
	assert.Equal(t, 0.93, res.Fields.Confidence)
	require.NotNil(t, res.Fields.OccurredOn)
	assert.Equal(t, "2024-03-01", res.Fields.OccurredOn.Format("2006-01-02"))
	assert.JSONEq(t, string(payload), string(res.Raw))
}

func TestNewResultFallbacks(t *testing.T) {
	res, err := NewResult([]byte(`{"vendor":"X","amount":-4,"category":"stationery","date":"soon","confidence":3}`))
	require.NoError(t, err)
	assert.True(t, res.Fields.Amount.IsZero())
	assert.Equal(t, model.CategoryOtherCosts, res.Fields.Category)
	assert.Nil(t, res.Fields.OccurredOn)
	assert.Equal(t, 1.0, res.Fields.Confidence)

	_, err = NewResult(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = NewResult([]byte(`not json`))
	assert.Error(t, err)
}

type gatewayFunc func(ctx context.Context, data []byte, mimeType string, hint Hint) (Result, error)

func (f gatewayFunc) Extract(ctx context.Context, data []byte, mimeType string, hint Hint) (Result, error) {
	return f(ctx, data, mimeType, hint)
}

func TestLimitedAppliesTimeout(t *testing.T) {
	inner := gatewayFunc(func(ctx context.Context, _ []byte, _ string, _ Hint) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	})

	_, err := NewLimited(inner, 0, 20*time.Millisecond).Extract(context.Background(), nil, "application/pdf", Hint{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLimitedPassesThrough(t *testing.T) {
	var calls int32
	inner := gatewayFunc(func(ctx context.Context, data []byte, mimeType string, hint Hint) (Result, error) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "image/png", mimeType)
		assert.Equal(t, "r.png", hint.Filename)
		return Result{Fields: ExtractedFields{Vendor: "V"}}, nil
	})

	gw := NewLimited(inner, 6000, time.Second)
	for i := 0; i < 3; i++ {
		res, err := gw.Extract(context.Background(), []byte("x"), "image/png", Hint{Filename: "r.png"})
		require.NoError(t, err)
		assert.Equal(t, "V", res.Fields.Vendor)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLimitedHonoursCanceledContext(t *testing.T) {
	inner := gatewayFunc(func(context.Context, []byte, string, Hint) (Result, error) {
		t.Fatal("should not be called")
		return Result{}, nil
	})
	gw := NewLimited(inner, 1, 0)
	// drain the single burst token
	gw.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gw.Extract(ctx, nil, "application/pdf", Hint{})
	assert.Error(t, err)
}
