package pipeline

import (
	"testing"
	"time"
)

func TestExplicitWindow_OrdersBounds(t *testing.T) {
	w, err := ExplicitWindow("2024-12-31", "2024-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.String() != "2024-01-01..2024-12-31" {
		t.Errorf("unexpected window %s", w)
	}
}

func TestExplicitWindow_InvalidDate(t *testing.T) {
	if _, err := ExplicitWindow("2024-13-01", "2024-01-01"); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func TestCurrentMonthWindow(t *testing.T) {
	now := time.Date(2025, 3, 15, 17, 45, 0, 0, time.UTC)
	w := CurrentMonthWindow(now)
	if w.String() != "2025-03-01..2025-03-15" {
		t.Errorf("unexpected window %s", w)
	}
	if w.To.Hour() != 0 {
		t.Errorf("expected bounds at midnight, got %v", w.To)
	}
}

func TestFullWindow(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	w := FullWindow(DefaultBackfillStart, now)
	if w.String() != "2022-01-01..2025-03-15" {
		t.Errorf("unexpected window %s", w)
	}
}

func TestWindow_ZeroIsUnbounded(t *testing.T) {
	var w Window
	if !w.IsZero() || w.String() != "unbounded" {
		t.Errorf("expected unbounded zero window, got %s", w)
	}
}
