package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type exampleValue struct {
	ID int
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemoryCache[*exampleValue]("test", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()

	c.Set(ctx, "key", &exampleValue{ID: 1}, time.Minute)

	value, found := c.Get(ctx, "key")
	require.True(t, found)
	require.Equal(t, &exampleValue{ID: 1}, value)
}

func TestMemoryCache_Get_Miss(t *testing.T) {
	c := NewMemoryCache[*exampleValue]("test", DefaultExpiration, DefaultCleanupInterval)

	value, found := c.Get(context.Background(), "missing")
	require.False(t, found)
	require.Nil(t, value)
}

func TestMemoryCache_Get_Expired(t *testing.T) {
	c := NewMemoryCache[*exampleValue]("test", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()

	c.Set(ctx, "key", &exampleValue{ID: 1}, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, found := c.Get(ctx, "key")
	require.False(t, found)
}

func TestMemoryCache_GetWithRefresh_ExtendsTTL(t *testing.T) {
	c := NewMemoryCache[*exampleValue]("test", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()

	c.Set(ctx, "key", &exampleValue{ID: 1}, 50*time.Millisecond)

	// Refresh with a longer ttl, then wait past the original expiry.
	value, found := c.GetWithRefresh(ctx, "key", time.Minute)
	require.True(t, found)
	require.Equal(t, &exampleValue{ID: 1}, value)

	time.Sleep(80 * time.Millisecond)

	_, found = c.Get(ctx, "key")
	require.True(t, found, "Refreshed entry should outlive its original ttl")
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache[*exampleValue]("test", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()

	c.Set(ctx, "a", &exampleValue{ID: 1}, time.Minute)
	c.Set(ctx, "b", &exampleValue{ID: 2}, time.Minute)

	require.NoError(t, c.Delete(ctx, "a"))

	_, found := c.Get(ctx, "a")
	require.False(t, found)
	_, found = c.Get(ctx, "b")
	require.True(t, found)

	require.NoError(t, c.Delete(ctx), "Deleting no keys should be a no-op")
}

func TestMemoryCache_Flush(t *testing.T) {
	c := NewMemoryCache[*exampleValue]("test", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()

	c.Set(ctx, "a", &exampleValue{ID: 1}, time.Minute)
	c.Set(ctx, "b", &exampleValue{ID: 2}, time.Minute)

	require.NoError(t, c.Flush(ctx))

	_, found := c.Get(ctx, "a")
	require.False(t, found)
	_, found = c.Get(ctx, "b")
	require.False(t, found)
}
