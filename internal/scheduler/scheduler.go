package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work, typically a current-month ingestion run.
type Job func(ctx context.Context) error

// Scheduler triggers a job on a cron spec. Overlapping triggers are skipped
// while a run is still in progress.
type Scheduler struct {
	spec       string
	job        Job
	runOnStart bool
	location   *time.Location
	logger     *slog.Logger
}

// NewScheduler creates a scheduler. spec accepts the standard five-field
// syntax and descriptors such as "@daily" or "@every 6h". A nil location
// uses the local time zone.
func NewScheduler(spec string, job Job, runOnStart bool, location *time.Location, logger *slog.Logger) *Scheduler {
	if location == nil {
		location = time.Local
	}
	return &Scheduler{
		spec:       spec,
		job:        job,
		runOnStart: runOnStart,
		location:   location,
		logger:     logger,
	}
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// a run in progress to finish. It returns nil on graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	id, err := c.AddFunc(s.spec, func() { s.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	c.Start()
	s.logger.Info("starting scheduler", "spec", s.spec, "next", c.Entry(id).Next)

	var startRun sync.WaitGroup
	if s.runOnStart {
		// WrappedJob carries the chain, so this run also blocks overlapping ticks.
		wrapped := c.Entry(id).WrappedJob
		startRun.Add(1)
		go func() {
			defer startRun.Done()
			wrapped.Run()
		}()
	}

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	startRun.Wait()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled run complete", "duration", time.Since(start))
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
