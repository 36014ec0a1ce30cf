package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"staticnotes/migrations"
	"staticnotes/pkg/db/sqlite"
	"staticnotes/pkg/logger"
)

// Константы для сообщений об ошибках sqlite кэша.
const (
	ErrorSQLiteGet    = "failed to get value from sqlite cache"
	ErrorSQLiteSet    = "failed to set value in sqlite cache"
	ErrorSQLiteDelete = "failed to delete value from sqlite cache"
	ErrorSQLitePurge  = "failed to purge sqlite cache"
	ErrorSQLiteClear  = "failed to clear sqlite cache"
	ErrorSQLiteClose  = "failed to close sqlite cache"
)

const (
	querySelect = `SELECT value, expires_at FROM cache_entries WHERE key = ?`
	queryUpsert = `INSERT INTO cache_entries (key, value, expires_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    expires_at = excluded.expires_at,
    updated_at = excluded.updated_at`
	queryDeleteExpiredKey = `DELETE FROM cache_entries WHERE key = ? AND expires_at <> 0 AND expires_at <= ?`
	queryPurge            = `DELETE FROM cache_entries WHERE expires_at <> 0 AND expires_at <= ?`
	queryClear            = `DELETE FROM cache_entries`
)

// SQLiteCache - постоянный кэш в локальном файле sqlite.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCache открывает файл кэша и применяет миграции схемы.
func NewSQLiteCache(ctx context.Context, path string) (*SQLiteCache, error) {
	db, err := sqlite.Open(ctx, path, migrations.Cache, migrations.CachePath)
	if err != nil {
		return nil, err
	}
	return &SQLiteCache{db: db, now: time.Now}, nil
}

// Get получает значение по ключу. Просроченная запись удаляется и считается промахом.
func (c *SQLiteCache) Get(ctx context.Context, key string) (string, error) {
	var (
		value     string
		expiresAt int64
	)

	err := c.db.QueryRowContext(ctx, querySelect, key).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		logger.Log(ctx).Error(ctx, ErrorSQLiteGet, zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%s: %w", ErrorSQLiteGet, err)
	}

	now := c.now().UnixMilli()
	if expiresAt != 0 && expiresAt <= now {
		if _, err := c.db.ExecContext(ctx, queryDeleteExpiredKey, key, now); err != nil {
			logger.Log(ctx).Warn(ctx, ErrorSQLiteDelete, zap.String("key", key), zap.Error(err))
		}
		return "", nil
	}

	return value, nil
}

// Set сохраняет значение. Нулевой ttl означает хранение без срока.
func (c *SQLiteCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	now := c.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixMilli()
	}

	if _, err := c.db.ExecContext(ctx, queryUpsert, key, value, expiresAt, now.UnixMilli()); err != nil {
		logger.Log(ctx).Error(ctx, ErrorSQLiteSet, zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorSQLiteSet, err)
	}
	return nil
}

// Delete удаляет значения по ключам.
func (c *SQLiteCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	query := "DELETE FROM cache_entries WHERE key IN (" + placeholders + ")"
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		logger.Log(ctx).Error(ctx, ErrorSQLiteDelete, zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorSQLiteDelete, err)
	}
	return nil
}

// Purge удаляет просроченные записи и возвращает их количество.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, queryPurge, c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrorSQLitePurge, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrorSQLitePurge, err)
	}
	return n, nil
}

// Clear удаляет все записи.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, queryClear); err != nil {
		return fmt.Errorf("%s: %w", ErrorSQLiteClear, err)
	}
	return nil
}

// Close закрывает базу.
func (c *SQLiteCache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrorSQLiteClose, err)
	}
	return nil
}
