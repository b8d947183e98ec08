package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/debt"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "credify:summary"
	versionKey = keyPrefix + ":version"
	summaryTTL = 24 * time.Hour
)

// SummaryCache keeps the ledger summary in Redis, one entry per calendar day.
// Invalidation bumps a version counter so stale entries simply stop being read.
type SummaryCache struct {
	client  *redis.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewSummaryCache(client *redis.Client, timeout time.Duration, logger *slog.Logger) *SummaryCache {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &SummaryCache{client: client, timeout: timeout, logger: logger}
}

func summaryKey(day string, version int64) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, day, version)
}

func (c *SummaryCache) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, versionKey).Int64()
	if stderrors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get returns the entry for day under the current version, along with that version.
// The version is -1 when it could not be read.
func (c *SummaryCache) Get(ctx context.Context, day string) (*debt.Summary, int64, bool) {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := c.version(ctx)
	if err != nil {
		c.logger.Warn("summary cache version lookup failed", "error", err)
		return nil, -1, false
	}

	data, err := c.client.Get(ctx, summaryKey(day, v)).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			c.logger.Warn("summary cache read failed", "error", err, "day", day)
		}
		return nil, v, false
	}

	var summary debt.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		c.logger.Warn("summary cache entry is corrupt", "error", err, "day", day)
		return nil, v, false
	}
	return &summary, v, true
}

// Set stores summary under the version Get returned. An invalidation in between
// moves readers to a newer version, so the entry is written but never read.
func (c *SummaryCache) Set(ctx context.Context, day string, version int64, summary *debt.Summary) {
	if version < 0 {
		return
	}

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Warn("summary cache encode failed", "error", err)
		return
	}

	if err := c.client.Set(ctx, summaryKey(day, version), data, summaryTTL).Err(); err != nil {
		c.logger.Warn("summary cache write failed", "error", err, "day", day)
	}
}

func (c *SummaryCache) Invalidate(ctx context.Context) {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		c.logger.Warn("summary cache invalidation failed", "error", err)
	}
}

func (c *SummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
