package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T) (*SQLiteCache, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cache", "cache.db")
	c, err := NewSQLiteCache(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, path
}

func TestSQLiteCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestSQLiteCache(t)

	value, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, c.Set(ctx, "k", "v1", time.Minute))
	require.NoError(t, c.Set(ctx, "k", "v2", time.Minute))

	value, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value, "set overwrites an existing key")
}

func TestSQLiteCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c, _ := newTestSQLiteCache(t)
	c.now = clock.now

	require.NoError(t, c.Set(ctx, "short", "1", time.Second))
	require.NoError(t, c.Set(ctx, "long", "2", time.Hour))
	require.NoError(t, c.Set(ctx, "forever", "3", 0))

	clock.advance(time.Minute)

	value, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.Empty(t, value)

	value, err = c.Get(ctx, "long")
	require.NoError(t, err)
	assert.Equal(t, "2", value)

	clock.advance(2 * time.Hour)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the hour entry is left to purge")

	value, err = c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "3", value)
}

func TestSQLiteCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestSQLiteCache(t)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, key, key, 0))
	}

	require.NoError(t, c.Delete(ctx, "a", "b"))
	require.NoError(t, c.Delete(ctx))

	value, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, value)

	value, err = c.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "c", value)

	require.NoError(t, c.Clear(ctx))
	value, err = c.Get(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSQLiteCache_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	c, path := newTestSQLiteCache(t)

	require.NoError(t, c.Set(ctx, "k", "persisted", time.Hour))
	require.NoError(t, c.Close())

	reopened, err := NewSQLiteCache(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	value, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "persisted", value)
}
