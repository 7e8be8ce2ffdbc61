package pipeline

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// DefaultBackfillStart is the lower bound of a full backfill.
var DefaultBackfillStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

// Window bounds the creation date of requested offers. Both bounds are
// midnight UTC and From is never after To. A zero Window is unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether the window is unbounded.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

func (w Window) String() string {
	if w.IsZero() {
		return "unbounded"
	}
	return w.From.Format(dayLayout) + ".." + w.To.Format(dayLayout)
}

// NewWindow orders two dates into a window, truncating both to midnight UTC.
func NewWindow(a, b time.Time) Window {
	a, b = midnight(a), midnight(b)
	if b.Before(a) {
		a, b = b, a
	}
	return Window{From: a, To: b}
}

// ExplicitWindow parses two YYYY-MM-DD dates in either order.
func ExplicitWindow(a, b string) (Window, error) {
	from, err := time.Parse(dayLayout, a)
	if err != nil {
		return Window{}, fmt.Errorf("parsing date %q: %w", a, err)
	}
	to, err := time.Parse(dayLayout, b)
	if err != nil {
		return Window{}, fmt.Errorf("parsing date %q: %w", b, err)
	}
	return NewWindow(from, to), nil
}

// FullWindow covers start through now.
func FullWindow(start, now time.Time) Window {
	return NewWindow(start, now)
}

// CurrentMonthWindow covers the first day of now's month through now.
func CurrentMonthWindow(now time.Time) Window {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return NewWindow(first, now)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
