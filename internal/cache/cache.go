// Package cache provides a small in-memory caching layer used to keep
// read-heavy HTTP endpoints (such as the session history listing) from
// hitting SQLite on every request.
package cache

import (
	"context"
	"time"
)

const DefaultExpiration = 10 * time.Minute
const DefaultCleanupInterval = 30 * time.Minute

// Manager is the caching interface. Keys are strings so use cases can
// build namespaced keys ("sessions:recent:20").
type Manager[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	GetWithRefresh(ctx context.Context, key string, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}
