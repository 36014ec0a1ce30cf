package config

import (
	"fmt"
	"strconv"
	"time"

	dbredis "staticnotes/pkg/db/redis"
)

// Поддерживаемые постоянные хранилища кэша.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendSQLite = "sqlite"
)

// CacheConfig описывает кэш чтения поверх API.
type CacheConfig struct {
	Backend    string        `yaml:"backend" env:"NOTES_CACHE_BACKEND" env-default:"sqlite"`
	TTL        time.Duration `yaml:"ttl" env:"NOTES_CACHE_TTL" env-default:"5m"`
	StaleTTL   time.Duration `yaml:"stale_ttl" env:"NOTES_CACHE_STALE_TTL" env-default:"24h"`
	SQLitePath string        `yaml:"sqlite_path" env:"NOTES_CACHE_SQLITE_PATH" env-default:".staticnotes/cache.db"`
	KeyPrefix  string        `yaml:"key_prefix" env:"NOTES_CACHE_KEY_PREFIX" env-default:"staticnotes:"`
	Redis      RedisConfig   `yaml:"redis"`
}

// Validate проверяет настройки кэша.
func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendSQLite:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Backend)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.TTL)
	}
	if c.StaleTTL < c.TTL {
		c.StaleTTL = c.TTL
	}
	return nil
}

// RedisConfig представляет конфигурацию Redis.
type RedisConfig struct {
	Host            string        `yaml:"host" env:"NOTES_REDIS_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"NOTES_REDIS_PORT" env-default:"6379"`
	Password        string        `yaml:"password" env:"NOTES_REDIS_PASSWORD" env-default:""`
	DB              int           `yaml:"db" env:"NOTES_REDIS_DB" env-default:"0"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"NOTES_REDIS_CONNECT_TIMEOUT" env-default:"5s"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"NOTES_REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"NOTES_REDIS_WRITE_TIMEOUT" env-default:"3s"`
	PoolSize        int           `yaml:"pool_size" env:"NOTES_REDIS_POOL_SIZE" env-default:"4"`
	MinIdle         int           `yaml:"min_idle" env:"NOTES_REDIS_MIN_IDLE" env-default:"1"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"NOTES_REDIS_IDLE_TIMEOUT" env-default:"5m"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"NOTES_REDIS_MAX_CONN_LIFETIME" env-default:"1h"`
}

// GetAddressString возвращает адрес Redis строкой.
func (c *RedisConfig) GetAddressString() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ClientConfig переводит настройки в конфигурацию общего клиента Redis.
func (c *RedisConfig) ClientConfig() *dbredis.Config {
	return &dbredis.Config{
		Host:            c.Host,
		Port:            c.Port,
		Password:        c.Password,
		DB:              c.DB,
		PoolSize:        c.PoolSize,
		MinIdle:         c.MinIdle,
		ConnectTimeout:  c.ConnectTimeout,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		IdleTimeout:     c.IdleTimeout,
		MaxConnLifetime: c.MaxConnLifetime,
	}
}
