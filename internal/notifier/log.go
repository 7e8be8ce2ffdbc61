package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobmarket/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes the run summary to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each run via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the report counters. Failed runs are logged at ERROR, runs
// with skipped pages at WARN. Returns nil.
func (n *LogNotifier) Notify(_ context.Context, r model.RunReport) error {
	args := []any{
		"run_id", r.RunID,
		"keyword", r.Keyword,
		"from", r.From,
		"to", r.To,
		"pages", r.PagesRequested,
		"skipped", r.PagesSkipped,
		"fetched", r.Fetched,
		"dropped", r.Dropped,
		"duplicates", r.Duplicates,
		"new", r.Inserted,
		"snapshot", r.SnapshotKey,
		"duration", r.FinishedAt.Sub(r.StartedAt),
	}
	switch r.Status {
	case model.RunFailed:
		n.logger.Error("ingestion run failed", append(args, "error", r.Error)...)
	case model.RunPartial:
		n.logger.Warn("ingestion run partial", append(args, "skipped_ranges", r.SkippedRanges)...)
	default:
		n.logger.Info("ingestion run complete", args...)
	}
	return nil
}
