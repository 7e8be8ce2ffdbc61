package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobmarket/internal/adapter"
	"github.com/amishk599/jobmarket/internal/auth"
	"github.com/amishk599/jobmarket/internal/store"
)

// Config is the root configuration for the ingestion service.
type Config struct {
	API          APIConfig
	Auth         AuthConfig
	Ingest       IngestConfig
	Store        StoreConfig
	Blob         BlobConfig
	Retry        RetryConfig
	RateLimit    RateLimitConfig
	Schedule     ScheduleConfig
	Notification NotificationConfig
	Metrics      MetricsConfig
}

// APIConfig points at the offers search endpoint.
type APIConfig struct {
	SearchURL string
	Timeout   time.Duration // per-request HTTP timeout
}

// AuthConfig holds the client-credentials grant settings.
type AuthConfig struct {
	TokenURL      string
	ClientID      string // expanded from env var by Load
	ClientSecret  string
	Scope         string
	Cache         string // "none", "memory" or "redis"
	RedisURL      string
	RefreshMargin time.Duration // cached tokens expire this long before the grant does
}

// IngestConfig controls what a run requests and keeps.
type IngestConfig struct {
	Keyword        string
	MaxResults     int
	BackfillStart  time.Time
	ExcludeTitles  []string
	PostalPrefixes []string
}

// StoreConfig selects the relational store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// BlobConfig selects where snapshots are written.
type BlobConfig struct {
	Kind            string `yaml:"kind"` // "s3", "dir" or "memory"
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Dir             string `yaml:"dir"`
}

// RetryConfig controls page fetch retries.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// RateLimitConfig sets the minimum gap between two search requests.
type RateLimitConfig struct {
	MinDelay time.Duration
}

// ScheduleConfig drives the daemon started by the start command.
type ScheduleConfig struct {
	Cron       string
	RunOnStart bool
	Location   *time.Location
}

// NotificationConfig enables optional run notices. The log notifier is
// always on.
type NotificationConfig struct {
	WebhookURL  string `yaml:"webhook_url"`   // Slack incoming webhook
	SNSTopicARN string `yaml:"sns_topic_arn"` // empty disables SNS
	SNSRegion   string `yaml:"sns_region"`
}

// MetricsConfig controls the Prometheus endpoint served by the daemon.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

const (
	defaultTimeout       = 30 * time.Second
	defaultRefreshMargin = 60 * time.Second
	defaultKeyword       = "data"
	defaultMaxResults    = 3000
	defaultBackfillStart = "2022-01-01"
	defaultDSN           = "jobmarket.db"
	defaultBlobDir       = "snapshots"
	defaultBucket        = "francejobdata"
	defaultRegion        = "eu-west-3"
	defaultMaxRetries    = 3
	defaultBaseDelay     = 2 * time.Second
	defaultMinDelay      = 100 * time.Millisecond
	defaultCron          = "0 6 * * *"
	defaultTimezone      = "Europe/Paris"

	slackWebhookPrefix = "https://hooks.slack.com/"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	API          rawAPIConfig       `yaml:"api"`
	Auth         rawAuthConfig      `yaml:"auth"`
	Ingest       rawIngestConfig    `yaml:"ingest"`
	Store        StoreConfig        `yaml:"store"`
	Blob         BlobConfig         `yaml:"blob"`
	Retry        rawRetryConfig     `yaml:"retry"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Schedule     rawScheduleConfig  `yaml:"schedule"`
	Notification NotificationConfig `yaml:"notification"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type rawAPIConfig struct {
	SearchURL string `yaml:"search_url"`
	Timeout   string `yaml:"timeout"`
}

type rawAuthConfig struct {
	TokenURL      string `yaml:"token_url"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	Scope         string `yaml:"scope"`
	Cache         string `yaml:"cache"`
	RedisURL      string `yaml:"redis_url"`
	RefreshMargin string `yaml:"refresh_margin"`
}

type rawIngestConfig struct {
	Keyword        string   `yaml:"keyword"`
	MaxResults     int      `yaml:"max_results"`
	BackfillStart  string   `yaml:"backfill_start"`
	ExcludeTitles  []string `yaml:"exclude_titles"`
	PostalPrefixes []string `yaml:"postal_prefixes"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawRateLimitConfig struct {
	MinDelay string `yaml:"min_delay"`
}

type rawScheduleConfig struct {
	Cron       string `yaml:"cron"`
	RunOnStart bool   `yaml:"run_on_start"`
	Timezone   string `yaml:"timezone"`
}

// Load reads the .env files next to path and in the working directory, then
// parses the YAML config file at path with ${VAR} expansion, applies defaults
// and validates it. Variables already set in the environment win over .env.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads every existing file once, in order.
func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	timeout, err := parseDuration("api.timeout", raw.API.Timeout, defaultTimeout)
	if err != nil {
		return nil, err
	}
	margin, err := parseDuration("auth.refresh_margin", raw.Auth.RefreshMargin, defaultRefreshMargin)
	if err != nil {
		return nil, err
	}
	baseDelay, err := parseDuration("retry.base_delay", raw.Retry.BaseDelay, defaultBaseDelay)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("rate_limit.min_delay", raw.RateLimit.MinDelay, defaultMinDelay)
	if err != nil {
		return nil, err
	}

	backfill := orDefault(raw.Ingest.BackfillStart, defaultBackfillStart)
	backfillStart, err := time.Parse("2006-01-02", backfill)
	if err != nil {
		return nil, fmt.Errorf("parse ingest.backfill_start %q: %w", backfill, err)
	}

	tz := orDefault(raw.Schedule.Timezone, defaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("parse schedule.timezone %q: %w", tz, err)
	}

	maxRetries := defaultMaxRetries
	if raw.Retry.MaxRetries != nil {
		maxRetries = *raw.Retry.MaxRetries
	}
	maxResults := raw.Ingest.MaxResults
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}

	blob := raw.Blob
	blob.Kind = strings.ToLower(orDefault(blob.Kind, "dir"))
	blob.Dir = orDefault(blob.Dir, defaultBlobDir)
	blob.Bucket = orDefault(blob.Bucket, defaultBucket)
	blob.Region = orDefault(blob.Region, defaultRegion)

	notification := raw.Notification
	notification.SNSRegion = orDefault(notification.SNSRegion, blob.Region)

	return &Config{
		API: APIConfig{
			SearchURL: orDefault(raw.API.SearchURL, adapter.DefaultSearchURL),
			Timeout:   timeout,
		},
		Auth: AuthConfig{
			TokenURL:      orDefault(raw.Auth.TokenURL, auth.DefaultTokenURL),
			ClientID:      raw.Auth.ClientID,
			ClientSecret:  raw.Auth.ClientSecret,
			Scope:         orDefault(raw.Auth.Scope, auth.DefaultScope),
			Cache:         strings.ToLower(orDefault(raw.Auth.Cache, "none")),
			RedisURL:      raw.Auth.RedisURL,
			RefreshMargin: margin,
		},
		Ingest: IngestConfig{
			Keyword:        orDefault(raw.Ingest.Keyword, defaultKeyword),
			MaxResults:     maxResults,
			BackfillStart:  backfillStart,
			ExcludeTitles:  raw.Ingest.ExcludeTitles,
			PostalPrefixes: raw.Ingest.PostalPrefixes,
		},
		Store: StoreConfig{
			Driver: strings.ToLower(orDefault(raw.Store.Driver, string(store.SQLite))),
			DSN:    orDefault(raw.Store.DSN, defaultDSN),
			Table:  orDefault(raw.Store.Table, store.DefaultTable),
		},
		Blob: blob,
		Retry: RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  baseDelay,
		},
		RateLimit: RateLimitConfig{MinDelay: minDelay},
		Schedule: ScheduleConfig{
			Cron:       orDefault(raw.Schedule.Cron, defaultCron),
			RunOnStart: raw.Schedule.RunOnStart,
			Location:   loc,
		},
		Notification: notification,
		Metrics:      raw.Metrics,
	}, nil
}

func validate(cfg *Config) error {
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", cfg.API.Timeout)
	}

	switch cfg.Auth.Cache {
	case "none", "memory":
	case "redis":
		if cfg.Auth.RedisURL == "" {
			return fmt.Errorf("auth.redis_url is required when auth.cache is \"redis\"")
		}
	default:
		return fmt.Errorf("auth.cache must be none, memory or redis, got %q", cfg.Auth.Cache)
	}
	if cfg.Auth.RefreshMargin < 0 {
		return fmt.Errorf("auth.refresh_margin must not be negative, got %v", cfg.Auth.RefreshMargin)
	}

	if cfg.Ingest.MaxResults < 0 {
		return fmt.Errorf("ingest.max_results must be positive, got %d", cfg.Ingest.MaxResults)
	}

	if _, err := store.ParseDialect(cfg.Store.Driver); err != nil {
		return fmt.Errorf("store.driver: %w", err)
	}
	if cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}

	switch cfg.Blob.Kind {
	case "s3":
		if cfg.Blob.Bucket == "" {
			return fmt.Errorf("blob.bucket is required when blob.kind is \"s3\"")
		}
	case "dir", "memory":
	default:
		return fmt.Errorf("blob.kind must be s3, dir or memory, got %q", cfg.Blob.Kind)
	}

	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.RateLimit.MinDelay < 0 {
		return fmt.Errorf("rate_limit.min_delay must not be negative, got %v", cfg.RateLimit.MinDelay)
	}

	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron %q: %w", cfg.Schedule.Cron, err)
	}

	if url := cfg.Notification.WebhookURL; url != "" && !strings.HasPrefix(url, slackWebhookPrefix) {
		return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
	}

	return nil
}

// RequireCredentials reports whether the API client credentials are set.
// Only commands that call the offers API need them.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Auth.ClientID == "" {
		missing = append(missing, "auth.client_id")
	}
	if c.Auth.ClientSecret == "" {
		missing = append(missing, "auth.client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required (set FT_CLIENT_ID and FT_CLIENT_SECRET)", strings.Join(missing, " and "))
	}
	return nil
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
