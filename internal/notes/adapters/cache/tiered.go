package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/ports/cache"
	"staticnotes/pkg/logger"
)

// Константы для логирования многоуровневого кэша.
const (
	LogPersistentUnavailable = "persistent cache unavailable, using memory only"
	LogPersistentGetFailed   = "persistent cache read failed"
	LogPersistentSetFailed   = "persistent cache write failed"
	LogPersistentDelFailed   = "persistent cache delete failed"
	LogCacheOpened           = "cache opened"
	LogCachePurged           = "expired cache entries purged"
	LogPurgeFailed           = "failed to purge expired cache entries"

	ErrorClearFailed = "failed to clear cache"
	ErrorPurgeFailed = "failed to purge cache"
)

// Clearer - хранилище, умеющее удалить все свои записи.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Purger - хранилище, которое само не удаляет просроченные записи.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Tiered - кэш из двух уровней: память процесса и постоянное хранилище.
// Ошибки постоянного уровня логируются и не доходят до вызывающего.
type Tiered struct {
	memory     *MemoryCache
	persistent cache.Cache
	promoteTTL time.Duration
}

// NewTiered собирает многоуровневый кэш. persistent может быть nil.
// Записи, найденные только в постоянном уровне, поднимаются в память на promoteTTL.
func NewTiered(memory *MemoryCache, persistent cache.Cache, promoteTTL time.Duration) *Tiered {
	return &Tiered{
		memory:     memory,
		persistent: persistent,
		promoteTTL: promoteTTL,
	}
}

// New создает кэш по конфигурации. Если постоянное хранилище недоступно,
// кэш продолжает работать только в памяти.
func New(ctx context.Context, cfg *config.CacheConfig) *Tiered {
	log := logger.Log(ctx).With(zap.String("backend", cfg.Backend))

	var (
		persistent cache.Cache
		err        error
	)

	switch cfg.Backend {
	case config.CacheBackendRedis:
		persistent, err = NewRedisCache(ctx, &cfg.Redis, cfg.KeyPrefix)
	case config.CacheBackendSQLite:
		persistent, err = NewSQLiteCache(ctx, cfg.SQLitePath)
	}

	if err != nil {
		log.Warn(ctx, LogPersistentUnavailable, zap.Error(err))
		persistent = nil
	}

	log.Debug(ctx, LogCacheOpened, zap.Bool("persistent", persistent != nil))
	tiered := NewTiered(NewMemoryCache(), persistent, cfg.TTL)

	// Записи живут StaleTTL и без чтения не удаляются, поэтому чистим при открытии.
	if removed, err := tiered.Purge(ctx); err != nil {
		log.Warn(ctx, LogPurgeFailed, zap.Error(err))
	} else if removed > 0 {
		log.Debug(ctx, LogCachePurged, zap.Int64("removed", removed))
	}
	return tiered
}

// Persistent сообщает, подключен ли постоянный уровень.
func (t *Tiered) Persistent() bool {
	return t.persistent != nil
}

// Get ищет значение сначала в памяти, затем в постоянном хранилище.
func (t *Tiered) Get(ctx context.Context, key string) (string, error) {
	value, err := t.memory.Get(ctx, key)
	if err != nil || value != "" || t.persistent == nil {
		return value, err
	}

	value, err = t.persistent.Get(ctx, key)
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogPersistentGetFailed, zap.String("key", key), zap.Error(err))
		return "", nil
	}
	if value != "" {
		_ = t.memory.Set(ctx, key, value, t.promoteTTL)
	}
	return value, nil
}

// Set пишет значение в оба уровня.
func (t *Tiered) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := t.memory.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if t.persistent == nil {
		return nil
	}
	if err := t.persistent.Set(ctx, key, value, ttl); err != nil {
		logger.Log(ctx).Warn(ctx, LogPersistentSetFailed, zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Delete удаляет ключи из обоих уровней.
func (t *Tiered) Delete(ctx context.Context, keys ...string) error {
	if err := t.memory.Delete(ctx, keys...); err != nil {
		return err
	}
	if t.persistent == nil {
		return nil
	}
	if err := t.persistent.Delete(ctx, keys...); err != nil {
		logger.Log(ctx).Warn(ctx, LogPersistentDelFailed, zap.Strings("keys", keys), zap.Error(err))
	}
	return nil
}

// Clear удаляет все записи обоих уровней.
func (t *Tiered) Clear(ctx context.Context) error {
	if err := t.memory.Clear(ctx); err != nil {
		return err
	}
	clearer, ok := t.persistent.(Clearer)
	if !ok {
		return nil
	}
	if err := clearer.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrorClearFailed, err)
	}
	return nil
}

// Purge удаляет просроченные записи обоих уровней и возвращает их количество.
func (t *Tiered) Purge(ctx context.Context) (int64, error) {
	removed := int64(t.memory.Purge(ctx))
	purger, ok := t.persistent.(Purger)
	if !ok {
		return removed, nil
	}
	n, err := purger.Purge(ctx)
	if err != nil {
		return removed, fmt.Errorf("%s: %w", ErrorPurgeFailed, err)
	}
	return removed + n, nil
}

// Close закрывает постоянный уровень.
func (t *Tiered) Close() error {
	return errors.Join(t.memory.Close(), closePersistent(t.persistent))
}

func closePersistent(c cache.Cache) error {
	if c == nil {
		return nil
	}
	return c.Close()
}
