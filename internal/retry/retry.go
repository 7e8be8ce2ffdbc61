package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/amishk599/jobmarket/internal/model"
)

// MaxDelay caps a single wait, including one requested by Retry-After.
const MaxDelay = 2 * time.Minute

// RetryFetcher is a decorator that retries transient page failures with
// exponential backoff and jitter before giving up on the page.
type RetryFetcher struct {
	inner      model.PageFetcher
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryFetcher wraps a PageFetcher with retry logic. maxRetries counts the
// attempts after the first one; baseDelay doubles on each retry.
func NewRetryFetcher(inner model.PageFetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryFetcher{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// FetchPage fetches one page. Errors that IsRetryable rejects are returned
// unchanged; a page that keeps failing returns the last error.
func (f *RetryFetcher) FetchPage(ctx context.Context, token string, q model.Query, r model.PageRange) ([]model.RawOffer, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := f.backoffDelay(attempt, lastErr)
			f.logger.Warn("retrying page after transient error",
				"range", r.String(),
				"attempt", attempt,
				"max_retries", f.maxRetries,
				"delay", delay,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry of range %s cancelled: %w", r, ctx.Err())
			case <-time.After(delay):
			}
		}

		offers, err := f.inner.FetchPage(ctx, token, q, r)
		if err == nil {
			return offers, nil
		}
		if !IsRetryable(err) || attempt == f.maxRetries {
			return nil, err
		}
		lastErr = err
	}
}

// backoffDelay computes the delay before retry number attempt (1-based) with
// ±30% jitter. A Retry-After from the server takes precedence.
func (f *RetryFetcher) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return min(httpErr.RetryAfter, MaxDelay)
	}

	delay := f.baseDelay
	for i := 1; i < attempt && delay < MaxDelay; i++ {
		delay *= 2
	}
	if delay >= MaxDelay {
		return MaxDelay
	}
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return min(delay, MaxDelay)
}

// IsRetryable reports whether err is a transient failure worth retrying:
// 429, 5xx and network errors. Cancellation and other 4xx are not.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return true
}
