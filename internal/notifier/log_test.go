package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobmarket/internal/model"
)

func TestLogNotifier_LevelsFollowStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{model.RunSuccess, "level=INFO"},
		{model.RunPartial, "level=WARN"},
		{model.RunFailed, "level=ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			var buf bytes.Buffer
			n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

			if err := n.Notify(context.Background(), sampleReport(tc.status)); err != nil {
				t.Fatalf("Notify = %v, want nil", err)
			}
			out := buf.String()
			if !strings.Contains(out, tc.want) {
				t.Errorf("expected %s in %q", tc.want, out)
			}
			if !strings.Contains(out, "run_id=run-42") {
				t.Errorf("expected run_id in %q", out)
			}
		})
	}
}

func sampleReport(status string) model.RunReport {
	start := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	r := model.RunReport{
		RunID:          "run-42",
		Keyword:        "data",
		From:           "2025-03-01",
		To:             "2025-03-15",
		StartedAt:      start,
		FinishedAt:     start.Add(90 * time.Second),
		PagesRequested: 60,
		Fetched:        2950,
		Dropped:        120,
		Duplicates:     2700,
		Inserted:       130,
		SnapshotKey:    "jobdata_2025-03-15.parquet",
		Status:         status,
	}
	if status == model.RunPartial {
		r.PagesSkipped = 1
		r.SkippedRanges = []string{"50-99"}
	}
	if status == model.RunFailed {
		r.Error = "authentication failed: HTTP 401"
	}
	return r
}
