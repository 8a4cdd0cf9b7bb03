package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is not found or has expired.
var ErrNotFound = errors.New("not found")

// Store is the key-value surface the cache layer needs. The Redis client
// satisfies it through a thin adapter; the in-memory store backs tests and
// Redis-less deployments.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
