package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmarket/internal/adapter"
	"github.com/amishk599/jobmarket/internal/auth"
	"github.com/amishk599/jobmarket/internal/blob"
	"github.com/amishk599/jobmarket/internal/config"
	"github.com/amishk599/jobmarket/internal/dedup"
	"github.com/amishk599/jobmarket/internal/filter"
	"github.com/amishk599/jobmarket/internal/model"
	"github.com/amishk599/jobmarket/internal/notifier"
	"github.com/amishk599/jobmarket/internal/pipeline"
	"github.com/amishk599/jobmarket/internal/publish"
	"github.com/amishk599/jobmarket/internal/ratelimit"
	"github.com/amishk599/jobmarket/internal/retry"
	"github.com/amishk599/jobmarket/internal/store"
)

var (
	cfgPath string
	debug   bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:          "jobmarket",
	Short:        "France Travail job offer ingestion",
	Long:         "jobmarket pulls data job offers from the France Travail API, classifies them, and publishes new rows to SQL and dated parquet snapshots.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBMARKET_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "fetch and transform, but write nothing to the store or blob storage")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBMARKET_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBMARKET_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// runStore is everything the commands need from the relational store.
type runStore interface {
	model.RowStore
	Close() error
}

func setupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (runStore, error) {
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be written")
		return store.NewNopStore(), nil
	}
	s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.Table)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "driver", cfg.Store.Driver, "table", cfg.Store.Table)
	return s, nil
}

func setupBucket(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blob.Bucket, error) {
	if dryRun {
		return blob.NewMemoryBucket(), nil
	}
	switch cfg.Blob.Kind {
	case "s3":
		logger.Debug("using s3 bucket", "bucket", cfg.Blob.Bucket, "region", cfg.Blob.Region)
		return blob.NewS3Bucket(ctx, blob.S3Options{
			Bucket:          cfg.Blob.Bucket,
			Region:          cfg.Blob.Region,
			Endpoint:        cfg.Blob.Endpoint,
			UsePathStyle:    cfg.Blob.PathStyle,
			AccessKeyID:     cfg.Blob.AccessKeyID,
			SecretAccessKey: cfg.Blob.SecretAccessKey,
		})
	case "memory":
		return blob.NewMemoryBucket(), nil
	default:
		logger.Debug("using local snapshot directory", "dir", cfg.Blob.Dir)
		return blob.NewDirBucket(cfg.Blob.Dir)
	}
}

// setupNotifier always logs, and also posts to Slack and SNS when configured.
func setupNotifier(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, error) {
	n := notifier.Multi{notifier.NewLogNotifier(logger)}
	if cfg.Notification.WebhookURL != "" {
		logger.Info("using slack notifier")
		n = append(n, notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger))
	}
	if cfg.Notification.SNSTopicARN != "" {
		client, err := notifier.NewSNSClient(ctx, cfg.Notification.SNSRegion)
		if err != nil {
			return nil, err
		}
		logger.Info("using sns notifier", "topic", cfg.Notification.SNSTopicARN)
		n = append(n, notifier.NewSNSNotifier(client, cfg.Notification.SNSTopicARN, logger))
	}
	return n, nil
}

// setupTokens returns the token source, cached when auth.cache asks for it.
// The returned cleanup closes any cache connection.
func setupTokens(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.TokenSource, func(), error) {
	cc := auth.NewClientCredentials(cfg.Auth.TokenURL, cfg.Auth.ClientID, cfg.Auth.ClientSecret, cfg.Auth.Scope, httpClient)
	key := "jobmarket:token:" + cfg.Auth.ClientID

	switch cfg.Auth.Cache {
	case "memory":
		return auth.NewCachedAuthenticator(cc, auth.NewMemoryCache(), key, cfg.Auth.RefreshMargin, logger), func() {}, nil
	case "redis":
		rdb, err := auth.NewRedisClient(ctx, cfg.Auth.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis token cache")
		cached := auth.NewCachedAuthenticator(cc, auth.NewRedisCache(rdb), key, cfg.Auth.RefreshMargin, logger)
		return cached, func() { rdb.Close() }, nil
	default:
		return cc, func() {}, nil
	}
}

// app holds the wired components shared by the commands.
type app struct {
	cfg    *config.Config
	store  runStore
	bucket blob.Bucket
	runner *pipeline.Runner
	close  func()
}

// buildApp wires the runner. A nil observer disables metrics.
func buildApp(ctx context.Context, cfg *config.Config, obs pipeline.Observer, logger *slog.Logger) (*app, error) {
	httpClient := &http.Client{Timeout: cfg.API.Timeout}

	s, err := setupStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	bucket, err := setupBucket(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening blob storage: %w", err)
	}
	n, err := setupNotifier(ctx, cfg, httpClient, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up notifier: %w", err)
	}
	tokens, closeTokens, err := setupTokens(ctx, cfg, httpClient, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up token cache: %w", err)
	}

	var fetcher model.PageFetcher = adapter.NewFranceTravailAdapter(cfg.API.SearchURL, httpClient)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.MinDelay)
	fetcher = ratelimit.NewRateLimitedFetcher(fetcher, limiter, "francetravail")
	fetcher = retry.NewRetryFetcher(fetcher, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger)
	logger.Debug("fetcher configured",
		"min_delay", cfg.RateLimit.MinDelay.String(),
		"max_retries", cfg.Retry.MaxRetries,
	)

	p := pipeline.New(
		tokens,
		fetcher,
		filter.NewCategoryFilter(cfg.Ingest.ExcludeTitles, cfg.Ingest.PostalPrefixes),
		nil,
		logger,
	)
	runner := pipeline.NewRunner(
		p,
		dedup.New(s),
		publish.New(s, bucket, cfg.Blob.Prefix, logger),
		s,
		n,
		obs,
		logger,
	)

	return &app{
		cfg:    cfg,
		store:  s,
		bucket: bucket,
		runner: runner,
		close: func() {
			closeTokens()
			s.Close()
		},
	}, nil
}
