// Package redis предоставляет общую фабрику клиента Redis.
package redis

import (
	"strconv"
	"time"
)

// Значения по умолчанию для Redis.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 6379
	DefaultPoolSize = 4
	DefaultTimeout  = 3 * time.Second
)

// Config содержит настройки подключения к Redis.
type Config struct {
	Host            string
	Port            int
	Password        string
	DB              int
	PoolSize        int
	MinIdle         int
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxConnLifetime time.Duration
}

// DefaultConfig возвращает конфигурацию Redis по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		PoolSize:       DefaultPoolSize,
		ConnectTimeout: DefaultTimeout,
		ReadTimeout:    DefaultTimeout,
		WriteTimeout:   DefaultTimeout,
	}
}

// Address возвращает адрес в формате host:port.
func (c *Config) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
