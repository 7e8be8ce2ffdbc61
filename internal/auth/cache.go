package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Granter issues tokens together with their lifetime.
type Granter interface {
	Obtain(ctx context.Context) (*Grant, error)
}

// Cache stores a token for a bounded time.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

// CachedAuthenticator reuses a token until shortly before it expires. Cache
// errors are logged and fall through to a fresh exchange.
type CachedAuthenticator struct {
	inner  Granter
	cache  Cache
	key    string
	margin time.Duration
	logger *slog.Logger
}

// NewCachedAuthenticator wraps inner. Tokens are evicted margin before their
// advertised expiry.
func NewCachedAuthenticator(inner Granter, cache Cache, key string, margin time.Duration, logger *slog.Logger) *CachedAuthenticator {
	return &CachedAuthenticator{
		inner:  inner,
		cache:  cache,
		key:    key,
		margin: margin,
		logger: logger,
	}
}

// Token returns the cached token, or obtains and caches a new one.
func (a *CachedAuthenticator) Token(ctx context.Context) (string, error) {
	token, ok, err := a.cache.Get(ctx, a.key)
	if err != nil {
		a.logger.Warn("token cache read failed", "error", err)
	}
	if ok {
		return token, nil
	}

	g, err := a.inner.Obtain(ctx)
	if err != nil {
		return "", err
	}

	ttl := g.Lifetime() - a.margin
	if ttl > 0 {
		if err := a.cache.Set(ctx, a.key, g.AccessToken, ttl); err != nil {
			a.logger.Warn("token cache write failed", "error", err)
		}
	}
	return g.AccessToken, nil
}

type memoryEntry struct {
	token   string
	expires time.Time
}

// MemoryCache keeps tokens in process memory.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.token, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{token: token, expires: c.now().Add(ttl)}
	return nil
}

// RedisCache shares tokens between processes, e.g. successive scheduled runs.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return token, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
