package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobmarket/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var firstPage = model.PageRange{Start: 0, End: 49}

// mockFetcher calls a function on each invocation, tracking call count.
type mockFetcher struct {
	calls int
	fn    func(attempt int) ([]model.RawOffer, error)
}

func (m *mockFetcher) FetchPage(_ context.Context, _ string, _ model.Query, _ model.PageRange) ([]model.RawOffer, error) {
	m.calls++
	return m.fn(m.calls)
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	offers := []model.RawOffer{{ID: "1", Title: "Data Engineer"}}
	mock := &mockFetcher{fn: func(_ int) ([]model.RawOffer, error) {
		return offers, nil
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rf.FetchPage(context.Background(), "tok", model.Query{}, firstPage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("unexpected offers: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	offers := []model.RawOffer{{ID: "1"}}
	mock := &mockFetcher{fn: func(attempt int) ([]model.RawOffer, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return offers, nil
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rf.FetchPage(context.Background(), "tok", model.Query{}, firstPage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(got))
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_HonoursRetryAfter(t *testing.T) {
	mock := &mockFetcher{fn: func(attempt int) ([]model.RawOffer, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 429, RetryAfter: 20 * time.Millisecond}
		}
		return nil, nil
	}}

	rf := NewRetryFetcher(mock, 1, time.Hour, discardLogger())
	start := time.Now()
	if _, err := rf.FetchPage(context.Background(), "tok", model.Query{}, firstPage); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected Retry-After delay to override base delay, waited %v", elapsed)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) ([]model.RawOffer, error) {
		return nil, &model.HTTPError{StatusCode: 400, Err: errors.New("bad range")}
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rf.FetchPage(context.Background(), "tok", model.Query{}, firstPage)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 400 {
		t.Fatalf("expected HTTPError with status 400, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) ([]model.RawOffer, error) {
		return nil, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rf.FetchPage(context.Background(), "tok", model.Query{}, firstPage)
	if err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) ([]model.RawOffer, error) {
		return nil, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rf := NewRetryFetcher(mock, 2, time.Second, discardLogger())
	_, err := rf.FetchPage(ctx, "tok", model.Query{}, firstPage)
	if err == nil {
		t.Fatal("expected error from context cancellation, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &model.HTTPError{StatusCode: 429}, true},
		{"502", &model.HTTPError{StatusCode: 502}, true},
		{"401", &model.HTTPError{StatusCode: 401}, false},
		{"network", errors.New("connection reset"), true},
		{"cancelled", context.Canceled, false},
	}
	for _, tc := range tests {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetry_ZeroRetriesMakesOneAttempt(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) ([]model.RawOffer, error) {
		return nil, &model.HTTPError{StatusCode: 503}
	}}

	rf := NewRetryFetcher(mock, 0, time.Hour, discardLogger())
	if _, err := rf.FetchPage(context.Background(), "tok", model.Query{}, firstPage); err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestBackoffDelay(t *testing.T) {
	rf := NewRetryFetcher(nil, 5, time.Second, discardLogger())

	for attempt, base := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second} {
		d := rf.backoffDelay(attempt, errors.New("reset"))
		lo, hi := time.Duration(float64(base)*0.7), time.Duration(float64(base)*1.3)
		if d < lo || d > hi {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", attempt, d, lo, hi)
		}
	}

	for _, attempt := range []int{8, 20, 64, 100} {
		if d := rf.backoffDelay(attempt, errors.New("reset")); d != MaxDelay {
			t.Errorf("attempt %d: expected delay capped at %v, got %v", attempt, MaxDelay, d)
		}
	}
	if d := rf.backoffDelay(1, &model.HTTPError{StatusCode: 429, RetryAfter: time.Hour}); d != MaxDelay {
		t.Errorf("expected Retry-After capped at %v, got %v", MaxDelay, d)
	}
}
