package cache

import (
	"context"
	"time"
)

// ReadThrough wraps a Manager with a loader function. On a miss the loader
// runs and its result is cached for ttl.
type ReadThrough[V any, I any] struct {
	cache     Manager[V]
	load      func(ctx context.Context, input I) (V, error)
	skipCache bool
}

func NewReadThrough[V any, I any](
	cache Manager[V],
	load func(ctx context.Context, input I) (V, error),
	skipCache bool,
) *ReadThrough[V, I] {
	return &ReadThrough[V, I]{
		cache:     cache,
		load:      load,
		skipCache: skipCache,
	}
}

func (r *ReadThrough[V, I]) Get(ctx context.Context, key string, input I, ttl time.Duration) (V, error) {
	if r.skipCache {
		return r.load(ctx, input)
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	value, err := r.load(ctx, input)
	if err != nil {
		return value, err
	}

	r.cache.Set(ctx, key, value, ttl)

	return value, nil
}

// Invalidate drops cached entries so the next Get reloads them.
func (r *ReadThrough[V, I]) Invalidate(ctx context.Context, keys ...string) error {
	return r.cache.Delete(ctx, keys...)
}

// InvalidateAll drops the entire cache behind this reader.
func (r *ReadThrough[V, I]) InvalidateAll(ctx context.Context) error {
	return r.cache.Flush(ctx)
}
