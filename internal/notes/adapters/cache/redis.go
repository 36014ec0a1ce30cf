package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"staticnotes/internal/notes/config"
	dbredis "staticnotes/pkg/db/redis"
	"staticnotes/pkg/logger"
)

// Константы для логирования.
const (
	LogMethodGet    = "get"
	LogMethodSet    = "set"
	LogMethodDelete = "delete"
	LogMethodClear  = "clear"

	ErrorFailedToGet    = "failed to get value from redis"
	ErrorFailedToSet    = "failed to set value in redis"
	ErrorFailedToDelete = "failed to delete value from redis"
	ErrorFailedToClear  = "failed to clear redis keys"
	ErrorFailedToClose  = "failed to close redis connection"

	scanBatch = 100
)

// RedisCache реализует интерфейс Cache с использованием Redis.
// Все ключи хранятся с префиксом, чтобы Clear не задевал чужие данные.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache подключается к Redis и создает кэш.
func NewRedisCache(ctx context.Context, cfg *config.RedisConfig, prefix string) (*RedisCache, error) {
	client, err := dbredis.Connect(ctx, cfg.ClientConfig())
	if err != nil {
		return nil, err
	}
	return NewRedisCacheWithClient(client, prefix), nil
}

// NewRedisCacheWithClient создает кэш поверх готового клиента.
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get получает значение по ключу.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodGet), zap.String("key", key))

	value, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		log.Error(ctx, ErrorFailedToGet, zap.Error(err))
		return "", fmt.Errorf("%s: %w", ErrorFailedToGet, err)
	}

	return value, nil
}

// Set устанавливает значение для ключа с временем жизни.
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSet), zap.String("key", key))

	if ttl < 0 {
		ttl = 0
	}

	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		log.Error(ctx, ErrorFailedToSet, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSet, err)
	}

	return nil
}

// Delete удаляет значения по ключам.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	log := logger.Log(ctx).With(zap.String("method", LogMethodDelete), zap.Strings("keys", keys))

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.key(key)
	}

	if err := c.client.Del(ctx, full...).Err(); err != nil {
		log.Error(ctx, ErrorFailedToDelete, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToDelete, err)
	}

	return nil
}

// Clear удаляет все ключи с префиксом кэша.
func (c *RedisCache) Clear(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodClear), zap.String("prefix", c.prefix))

	iter := c.client.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				log.Error(ctx, ErrorFailedToClear, zap.Error(err))
				return fmt.Errorf("%s: %w", ErrorFailedToClear, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		log.Error(ctx, ErrorFailedToClear, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToClear, err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			log.Error(ctx, ErrorFailedToClear, zap.Error(err))
			return fmt.Errorf("%s: %w", ErrorFailedToClear, err)
		}
	}

	return nil
}

// Close закрывает соединение с Redis.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToClose, err)
	}
	return nil
}
