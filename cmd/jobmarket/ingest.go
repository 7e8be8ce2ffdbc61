package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmarket/internal/config"
	"github.com/amishk599/jobmarket/internal/pipeline"
)

var (
	keyword    string
	maxResults int
	rangeFrom  string
	rangeTo    string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Ingest every offer created since the backfill start date",
	Long:  "Runs one ingestion over ingest.backfill_start (default 2022-01-01) through today.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(func(cfg *config.Config, now time.Time) (pipeline.Window, error) {
			return pipeline.FullWindow(cfg.Ingest.BackfillStart, now), nil
		})
	},
}

var monthCmd = &cobra.Command{
	Use:   "month",
	Short: "Ingest offers created since the first of the current month",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(func(_ *config.Config, now time.Time) (pipeline.Window, error) {
			return pipeline.CurrentMonthWindow(now), nil
		})
	},
}

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Ingest offers created between two dates",
	Long:  "Runs one ingestion over --from and --to (YYYY-MM-DD, either order).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(func(_ *config.Config, _ time.Time) (pipeline.Window, error) {
			return pipeline.ExplicitWindow(rangeFrom, rangeTo)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{backfillCmd, monthCmd, rangeCmd} {
		c.Flags().StringVarP(&keyword, "keyword", "k", "", "search keyword (default: ingest.keyword)")
		c.Flags().IntVar(&maxResults, "max-results", 0, "maximum offers to request (default: ingest.max_results)")
		rootCmd.AddCommand(c)
	}
	rangeCmd.Flags().StringVar(&rangeFrom, "from", "", "first creation date, YYYY-MM-DD")
	rangeCmd.Flags().StringVar(&rangeTo, "to", "", "last creation date, YYYY-MM-DD")
	rangeCmd.MarkFlagRequired("from")
	rangeCmd.MarkFlagRequired("to")
}

// runIngest performs one run over the window chosen by pick and prints its
// report. It exits non-zero when the run fails.
func runIngest(pick func(cfg *config.Config, now time.Time) (pipeline.Window, error)) error {
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

	window, err := pick(cfg, time.Now())
	if err != nil {
		logger.Error("invalid date range", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	rep, err := a.runner.Execute(ctx, ingestRequest(cfg, window))
	if rep != nil {
		renderReport(os.Stdout, *rep)
	}
	if err != nil {
		logger.Error("ingestion failed", "error", err)
		a.close()
		os.Exit(1)
	}
	return nil
}

func ingestRequest(cfg *config.Config, window pipeline.Window) pipeline.Request {
	req := pipeline.Request{
		Keyword:    cfg.Ingest.Keyword,
		Window:     window,
		MaxResults: cfg.Ingest.MaxResults,
	}
	if keyword != "" {
		req.Keyword = keyword
	}
	if maxResults > 0 {
		req.MaxResults = maxResults
	}
	return req
}

// logConfig summarizes the effective configuration at startup.
func logConfig(logger *slog.Logger, cfg *config.Config) {
	logger.Info("config loaded",
		"keyword", cfg.Ingest.Keyword,
		"max_results", cfg.Ingest.MaxResults,
		"store", cfg.Store.Driver,
		"blob", cfg.Blob.Kind,
		"token_cache", cfg.Auth.Cache,
		"schedule", cfg.Schedule.Cron,
	)
}
