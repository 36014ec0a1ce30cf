package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	value, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	value, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache()
	c.now = clock.now

	require.NoError(t, c.Set(ctx, "short", "1", time.Second))
	require.NoError(t, c.Set(ctx, "forever", "2", 0))

	clock.advance(time.Second)

	value, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.Empty(t, value, "entry expires exactly at its deadline")
	assert.Equal(t, 1, c.Len(), "expired entry is evicted on read")

	value, err = c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "2", value)
}

func TestMemoryCache_Purge(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache()
	c.now = clock.now

	require.NoError(t, c.Set(ctx, "a", "1", time.Second))
	require.NoError(t, c.Set(ctx, "b", "2", time.Second))
	require.NoError(t, c.Set(ctx, "c", "3", time.Hour))

	clock.advance(2 * time.Second)

	assert.Equal(t, 2, c.Purge(ctx))
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	require.NoError(t, c.Set(ctx, "c", "3", 0))

	require.NoError(t, c.Delete(ctx, "a", "b", "unknown"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len())
	assert.NoError(t, c.Close())
}
