// Package cache определяет интерфейс хранилища ключ-значение с TTL.
package cache

import (
	"context"
	"time"
)

// Cache определяет интерфейс для работы с кэшем.
// Get при промахе возвращает пустую строку без ошибки.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	Close() error
}
