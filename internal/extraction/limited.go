package extraction

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limited paces calls to another Gateway and bounds each with a timeout
type Limited struct {
	next    Gateway
	limiter *rate.Limiter
	timeout time.Duration
}

// NewLimited wraps next. perMinute <= 0 disables pacing and timeout <= 0
// disables the per-call deadline.
func NewLimited(next Gateway, perMinute int, timeout time.Duration) *Limited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, 1), timeout: timeout}
}

// Extract waits for a token then delegates
func (l *Limited) Extract(ctx context.Context, data []byte, mimeType string, hint Hint) (Result, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("extraction rate limit: %w", err)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.next.Extract(ctx, data, mimeType, hint)
}
