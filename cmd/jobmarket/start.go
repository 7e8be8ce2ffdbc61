package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmarket/internal/metrics"
	"github.com/amishk599/jobmarket/internal/pipeline"
	"github.com/amishk599/jobmarket/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingestion daemon",
	Long:  "Runs the current-month ingestion on schedule.cron and serves Prometheus metrics; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireCredentials(); err != nil {
		logger.Error("missing API credentials", "error", err)
		os.Exit(1)
	}
	logConfig(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	a, err := buildApp(ctx, cfg, m, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	job := func(ctx context.Context) error {
		req := ingestRequest(cfg, pipeline.CurrentMonthWindow(time.Now().In(cfg.Schedule.Location)))
		_, err := a.runner.Execute(ctx, req)
		return err
	}

	sched := scheduler.NewScheduler(cfg.Schedule.Cron, job, cfg.Schedule.RunOnStart, cfg.Schedule.Location, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
