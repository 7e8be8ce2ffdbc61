package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobmarket/internal/model"
)

// Limiter spaces out requests sharing a key by at least minDelay. Each
// caller reserves the next free slot, so concurrent callers queue up instead
// of firing together.
type Limiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // earliest start of the next request per key
	minDelay time.Duration
}

func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until the caller's slot for key comes up, or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	now := time.Now()
	slot := now
	if n, ok := l.next[key]; ok && n.After(now) {
		slot = n
	}
	l.next[key] = slot.Add(l.minDelay)
	l.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-t.C:
		return nil
	}
}

// RateLimitedFetcher is a decorator that waits on the limiter before every
// page request.
type RateLimitedFetcher struct {
	inner   model.PageFetcher
	limiter *Limiter
	key     string
}

// NewRateLimitedFetcher wraps a PageFetcher. Fetchers hitting the same API
// should share one limiter and key.
func NewRateLimitedFetcher(inner model.PageFetcher, limiter *Limiter, key string) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
		key:     key,
	}
}

// FetchPage waits for the limiter, then delegates to the wrapped fetcher.
func (f *RateLimitedFetcher) FetchPage(ctx context.Context, token string, q model.Query, r model.PageRange) ([]model.RawOffer, error) {
	if err := f.limiter.Wait(ctx, f.key); err != nil {
		return nil, err
	}
	return f.inner.FetchPage(ctx, token, q, r)
}
