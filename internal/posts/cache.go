package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	postTTL     = 5 * time.Minute
	pageTTL     = 2 * time.Minute
	pagePattern = "posts:page:*"
)

// cache is a best-effort read cache. A nil *cache, or one without a client, is a no-op.
type cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisClient connects to Redis and returns nil when it cannot be reached, which
// disables caching.
func NewRedisClient(ctx context.Context, opts *redis.Options, logger *slog.Logger) *redis.Client {
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, caching disabled", "addr", opts.Addr, "error", err)
		rdb.Close()
		return nil
	}
	logger.Info("redis cache connected", "addr", opts.Addr)
	return rdb
}

func postKey(id uuid.UUID) string { return fmt.Sprintf("post:%s", id) }

func pageKey(self string) string { return "posts:page:" + self }

func (c *cache) enabled() bool { return c != nil && c.client != nil }

func (c *cache) get(ctx context.Context, key string, dest any) bool {
	if !c.enabled() {
		return false
	}
	cached, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(cached, dest); err != nil {
		c.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return false
	}
	cacheHits.Inc()
	return true
}

func (c *cache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// invalidate drops the cached post and every cached listing page.
func (c *cache) invalidate(ctx context.Context, id uuid.UUID) {
	if !c.enabled() {
		return
	}
	c.client.Del(ctx, postKey(id))

	iter := c.client.Scan(ctx, 0, pagePattern, 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", "pattern", pagePattern, "error", err)
	}
}
