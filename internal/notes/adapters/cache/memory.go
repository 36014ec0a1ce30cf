// Package cache содержит реализации кэша ключ-значение с TTL.
package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryCache - кэш в памяти процесса. Просроченные записи удаляются при чтении или через Purge.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryCache создает пустой кэш в памяти.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get получает значение по ключу.
func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return "", nil
	}
	if item.expired(c.now()) {
		delete(c.items, key)
		return "", nil
	}
	return item.value, nil
}

// Set сохраняет значение. Нулевой ttl означает хранение без срока.
func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.items[key] = item
	return nil
}

// Delete удаляет значения по ключам.
func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

// Purge удаляет просроченные записи и возвращает их количество.
func (c *MemoryCache) Purge(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Clear удаляет все записи.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]memoryItem)
	return nil
}

// Len возвращает число записей, включая еще не вычищенные просроченные.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close ничего не освобождает.
func (c *MemoryCache) Close() error {
	return nil
}
