package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/curatedthreads/threads-backend/internal/metrics"
	"github.com/curatedthreads/threads-backend/pkg/kv"
	memkv "github.com/curatedthreads/threads-backend/pkg/kv/memory"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache key prefixes.
const (
	KeyFeedItems  = "ctd:feed:items"
	KeyCategories = "ctd:categories"
)

// Cache caches computed feed state. It prefers Redis and falls back to an
// in-memory kv store when Redis is unreachable at startup, so development
// never requires a running Redis.
type Cache struct {
	client  *redis.Client
	kvStore kv.Store

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewCache(addr string, logger *zap.SugaredLogger, m *metrics.Metrics) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Warnw("Redis unavailable; using in-memory cache", "error", err)
		}
		return &Cache{
			kvStore: memkv.NewStore(),
			logger:  logger,
			metrics: m,
		}, nil
	}

	return &Cache{
		client:  client,
		logger:  logger,
		metrics: m,
	}, nil
}

// NewMemoryCache builds a cache on the in-memory store (tests, dev).
func NewMemoryCache(logger *zap.SugaredLogger) *Cache {
	return &Cache{
		kvStore: memkv.New(0),
		logger:  logger,
	}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte

	if c.client != nil {
		val, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				c.recordMiss(ctx, key)
				return ErrCacheMiss
			}
			if c.logger != nil {
				c.logger.Errorw("Cache get error", "key", key, "error", err)
			}
			return fmt.Errorf("cache get error: %w", err)
		}
		data = val
	} else {
		val, err := c.kvStore.Get(ctx, key)
		if err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				c.recordMiss(ctx, key)
				return ErrCacheMiss
			}
			return fmt.Errorf("cache get error: %w", err)
		}
		data = val
	}

	c.recordHit(ctx, key)
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if c.client != nil {
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Cache set error", "key", key, "error", err)
			}
			return fmt.Errorf("cache set error: %w", err)
		}
		return nil
	}
	if err := c.kvStore.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if c.client != nil {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Cache delete error", "keys", keys, "error", err)
			}
			return fmt.Errorf("cache delete error: %w", err)
		}
		return nil
	}
	if _, err := c.kvStore.Del(ctx, keys...); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// GetFeedItems loads the cached feed card snapshot.
func (c *Cache) GetFeedItems(ctx context.Context, dest interface{}) error {
	return c.Get(ctx, KeyFeedItems, dest)
}

// SetFeedItems stores the feed card snapshot.
func (c *Cache) SetFeedItems(ctx context.Context, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, KeyFeedItems, value, ttl)
}

// InvalidateFeed drops the feed snapshot after a post or category change.
func (c *Cache) InvalidateFeed(ctx context.Context) error {
	return c.Delete(ctx, KeyFeedItems)
}

// GetCategories loads the cached category list.
func (c *Cache) GetCategories(ctx context.Context, dest interface{}) error {
	return c.Get(ctx, KeyCategories, dest)
}

// SetCategories stores the category list.
func (c *Cache) SetCategories(ctx context.Context, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, KeyCategories, value, ttl)
}

// InvalidateCategories drops the category list after a lifecycle change.
func (c *Cache) InvalidateCategories(ctx context.Context) error {
	return c.Delete(ctx, KeyCategories)
}

// IsInMemoryMode reports whether the Redis fallback is active.
func (c *Cache) IsInMemoryMode() bool {
	return c.client == nil
}

func (c *Cache) Ping(ctx context.Context) error {
	if c.client != nil {
		return c.client.Ping(ctx).Err()
	}
	return c.kvStore.Ping(ctx)
}

func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return c.kvStore.Close()
}

func (c *Cache) recordHit(ctx context.Context, key string) {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, key)
	}
}

func (c *Cache) recordMiss(ctx context.Context, key string) {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(ctx, key)
	}
}
