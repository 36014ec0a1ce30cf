package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staticnotes/internal/notes/config"
)

var errBroken = errors.New("broken store")

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, error) { return "", errBroken }

func (brokenCache) Set(context.Context, string, string, time.Duration) error { return errBroken }

func (brokenCache) Delete(context.Context, ...string) error { return errBroken }

func (brokenCache) Close() error { return nil }

func TestTiered_PromotesPersistentHits(t *testing.T) {
	ctx := context.Background()
	persistent := NewMemoryCache()
	memory := NewMemoryCache()
	tiered := NewTiered(memory, persistent, time.Minute)

	require.NoError(t, persistent.Set(ctx, "k", "v", time.Hour))

	value, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	promoted, err := memory.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", promoted)
}

func TestTiered_WritesBothLevels(t *testing.T) {
	ctx := context.Background()
	persistent := NewMemoryCache()
	memory := NewMemoryCache()
	tiered := NewTiered(memory, persistent, time.Minute)

	require.NoError(t, tiered.Set(ctx, "k", "v", time.Hour))
	assert.Equal(t, 1, memory.Len())
	assert.Equal(t, 1, persistent.Len())

	require.NoError(t, tiered.Delete(ctx, "k"))
	assert.Zero(t, memory.Len())
	assert.Zero(t, persistent.Len())

	require.NoError(t, tiered.Set(ctx, "x", "y", 0))
	require.NoError(t, tiered.Clear(ctx))
	assert.Zero(t, memory.Len())
	assert.Zero(t, persistent.Len())
}

func TestTiered_PurgeDropsExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	memory := NewMemoryCache()
	memory.now = clock.now
	persistent, _ := newTestSQLiteCache(t)
	persistent.now = clock.now
	tiered := NewTiered(memory, persistent, time.Minute)

	require.NoError(t, tiered.Set(ctx, "old", "1", time.Minute))
	require.NoError(t, tiered.Set(ctx, "fresh", "2", time.Hour))

	clock.advance(2 * time.Minute)

	removed, err := tiered.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed, "one expired entry per level")
	assert.Equal(t, 1, memory.Len())

	removed, err = persistent.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	value, err := tiered.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "2", value)
}

func TestNew_PurgesExpiredSQLiteRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	seed, err := NewSQLiteCache(ctx, path)
	require.NoError(t, err)
	seed.now = func() time.Time { return time.Now().Add(-time.Hour) }
	require.NoError(t, seed.Set(ctx, "old", "1", time.Minute))
	seed.now = time.Now
	require.NoError(t, seed.Set(ctx, "fresh", "2", time.Hour))
	require.NoError(t, seed.Close())

	c := New(ctx, &config.CacheConfig{Backend: config.CacheBackendSQLite, TTL: time.Minute, SQLitePath: path})
	require.NoError(t, c.Close())

	check, err := NewSQLiteCache(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = check.Close() })
	check.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	value, err := check.Get(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, value, "expired row is gone even when read with an earlier clock")

	value, err = check.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "2", value)
}

func TestTiered_DegradesToMemory(t *testing.T) {
	ctx := context.Background()
	tiered := NewTiered(NewMemoryCache(), brokenCache{}, time.Minute)

	require.NoError(t, tiered.Set(ctx, "k", "v", time.Hour))

	value, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	value, err = tiered.Get(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, value)

	assert.NoError(t, tiered.Delete(ctx, "k"))
}

func TestNew_Backends(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		c := New(ctx, &config.CacheConfig{Backend: config.CacheBackendMemory, TTL: time.Minute})
		assert.False(t, c.Persistent())
		assert.NoError(t, c.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		c := New(ctx, &config.CacheConfig{
			Backend:    config.CacheBackendSQLite,
			TTL:        time.Minute,
			SQLitePath: filepath.Join(t.TempDir(), "cache.db"),
		})
		t.Cleanup(func() { _ = c.Close() })
		assert.True(t, c.Persistent())
	})

	t.Run("redis", func(t *testing.T) {
		_, redisCfg := mockRedisServer(t)
		c := New(ctx, &config.CacheConfig{
			Backend:   config.CacheBackendRedis,
			TTL:       time.Minute,
			KeyPrefix: "sn:",
			Redis:     *redisCfg,
		})
		t.Cleanup(func() { _ = c.Close() })
		assert.True(t, c.Persistent())
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		c := New(ctx, &config.CacheConfig{
			Backend: config.CacheBackendRedis,
			TTL:     time.Minute,
			Redis: config.RedisConfig{
				Host:           "127.0.0.1",
				Port:           1,
				ConnectTimeout: 100 * time.Millisecond,
			},
		})
		assert.False(t, c.Persistent())
	})
}
