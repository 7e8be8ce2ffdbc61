package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobmarket/internal/dedup"
	"github.com/amishk599/jobmarket/internal/model"
	"github.com/amishk599/jobmarket/internal/publish"
)

// Publisher persists the new rows of a run and snapshots a dataset.
type Publisher interface {
	Publish(ctx context.Context, rows []model.EnrichedRow, runDate time.Time) (*publish.Report, error)
	Export(ctx context.Context, rows []model.EnrichedRow, runDate time.Time) (*publish.Report, error)
}

// RunRecorder keeps a history of finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, report model.RunReport) error
}

// RowReader reads back the whole stored dataset.
type RowReader interface {
	All(ctx context.Context) ([]model.EnrichedRow, error)
}

// Observer receives every finished run, e.g. for metrics.
type Observer interface {
	Observe(report model.RunReport)
}

// Runner drives one ingestion run end to end: fetch and enrich, dedup
// against the store, publish, then record and announce the outcome.
type Runner struct {
	pipeline  *Pipeline
	dedup     *dedup.Deduplicator
	publisher Publisher
	runs      RunRecorder
	notifier  model.Notifier
	observer  Observer
	logger    *slog.Logger
}

// NewRunner wires a runner. A nil observer is allowed.
func NewRunner(
	p *Pipeline,
	d *dedup.Deduplicator,
	pub Publisher,
	runs RunRecorder,
	n model.Notifier,
	obs Observer,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		pipeline:  p,
		dedup:     d,
		publisher: pub,
		runs:      runs,
		notifier:  n,
		observer:  obs,
		logger:    logger,
	}
}

// Execute performs one run and always returns its report. The error is
// non-nil when the run failed or its snapshot could not be uploaded.
// Skipped pages only downgrade the status to partial.
func (r *Runner) Execute(ctx context.Context, req Request) (*model.RunReport, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.Keyword == "" {
		req.Keyword = DefaultKeyword
	}

	runDate := r.pipeline.now()
	rep := model.RunReport{
		RunID:     req.RunID,
		Keyword:   req.Keyword,
		StartedAt: runDate,
	}
	if !req.Window.IsZero() {
		rep.From = req.Window.From.Format(dayLayout)
		rep.To = req.Window.To.Format(dayLayout)
	}

	r.logger.Info("starting ingestion run",
		"run_id", req.RunID,
		"keyword", req.Keyword,
		"window", req.Window.String(),
	)

	res, err := r.pipeline.Run(ctx, req)
	if res != nil {
		rep.PagesRequested = res.PagesRequested
		rep.PagesSkipped = res.PagesSkipped
		rep.SkippedRanges = res.SkippedRanges
		rep.Fetched = res.Fetched
		rep.Dropped = res.Dropped
		rep.Duplicates = res.Repeated
	}
	if err != nil {
		return r.finish(ctx, &rep, fmt.Errorf("fetching offers: %w", err))
	}

	fresh, dupes, err := r.dedup.NewRows(ctx, res.Rows)
	rep.Duplicates += dupes
	if err != nil {
		return r.finish(ctx, &rep, err)
	}
	r.logger.Debug("deduplicated batch", "run_id", req.RunID, "new", len(fresh), "duplicates", dupes)

	pr, err := r.publisher.Publish(ctx, fresh, runDate)
	if pr != nil {
		rep.Inserted = pr.Inserted
		rep.SnapshotKey = pr.SnapshotKey
		rep.NothingToInsert = pr.NothingToInsert
	}
	return r.finish(ctx, &rep, err)
}

// finish settles the status, then records, announces and observes the run.
// Bookkeeping failures are logged and never replace runErr.
func (r *Runner) finish(ctx context.Context, rep *model.RunReport, runErr error) (*model.RunReport, error) {
	rep.FinishedAt = r.pipeline.now()

	switch {
	case runErr != nil && !errors.Is(runErr, publish.ErrSnapshotUpload):
		rep.Status = model.RunFailed
	case runErr != nil || rep.PagesSkipped > 0:
		rep.Status = model.RunPartial
	default:
		rep.Status = model.RunSuccess
	}
	if runErr != nil {
		rep.Error = runErr.Error()
	}

	// A cancelled run is still recorded and announced.
	bg := context.WithoutCancel(ctx)

	if err := r.runs.RecordRun(bg, *rep); err != nil {
		r.logger.Error("recording run", "run_id", rep.RunID, "error", err)
	}
	if err := r.notifier.Notify(bg, *rep); err != nil {
		r.logger.Error("notifying run", "run_id", rep.RunID, "error", err)
	}
	if r.observer != nil {
		r.observer.Observe(*rep)
	}

	if runErr != nil {
		return rep, fmt.Errorf("run %s: %w", rep.RunID, runErr)
	}
	return rep, nil
}

// Export reads every stored row and uploads it as one dated snapshot.
func (r *Runner) Export(ctx context.Context, rows RowReader) (*publish.Report, error) {
	all, err := rows.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stored rows: %w", err)
	}
	if len(all) == 0 {
		r.logger.Info("nothing to export")
		return &publish.Report{NothingToInsert: true}, nil
	}
	return r.publisher.Export(ctx, all, r.pipeline.now())
}
