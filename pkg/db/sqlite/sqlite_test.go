package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staticnotes/migrations"
	"staticnotes/pkg/db/sqlite"
)

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	ctx := context.Background()

	db, err := sqlite.Open(ctx, path, migrations.Cache, migrations.CachePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'cache_entries'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "cache_entries", name)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	first, err := sqlite.Open(ctx, path, migrations.Cache, migrations.CachePath)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := sqlite.Open(ctx, path, migrations.Cache, migrations.CachePath)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
