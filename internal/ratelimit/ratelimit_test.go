package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobmarket/internal/model"
)

func TestWait_SameKey_EnforcesMinDelay(t *testing.T) {
	limiter := NewLimiter(100 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "search"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "search"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow 20ms of timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentKeys_NoCrossBlocking(t *testing.T) {
	limiter := NewLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "search"); err != nil {
		t.Fatalf("search wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "token"); err != nil {
		t.Fatalf("token wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected token wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(5 * time.Second)

	if err := limiter.Wait(context.Background(), "search"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "search"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestWait_ConcurrentCallersAreSpaced(t *testing.T) {
	limiter := NewLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx, "search"); err != nil {
				t.Errorf("wait: %v", err)
			}
		}()
	}
	wg.Wait()

	// Slots at 0, 50ms and 100ms.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected three callers to span >= 90ms, got %v", elapsed)
	}
}

type recordingFetcher struct {
	called bool
	ranges []string
}

func (f *recordingFetcher) FetchPage(_ context.Context, _ string, _ model.Query, r model.PageRange) ([]model.RawOffer, error) {
	f.called = true
	f.ranges = append(f.ranges, r.String())
	return nil, nil
}

func TestRateLimitedFetcher_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewLimiter(100 * time.Millisecond)
	inner := &recordingFetcher{}
	fetcher := NewRateLimitedFetcher(inner, limiter, "search")
	ctx := context.Background()

	if _, err := fetcher.FetchPage(ctx, "tok", model.Query{}, model.PageRange{Start: 0, End: 49}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if !inner.called {
		t.Fatal("inner fetcher was not called on first fetch")
	}

	inner.called = false

	start := time.Now()
	if _, err := fetcher.FetchPage(ctx, "tok", model.Query{}, model.PageRange{Start: 50, End: 99}); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	elapsed := time.Since(start)

	if !inner.called {
		t.Fatal("inner fetcher was not called on second fetch")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
	if len(inner.ranges) != 2 || inner.ranges[1] != "50-99" {
		t.Errorf("unexpected ranges forwarded: %v", inner.ranges)
	}
}
