// Package config содержит конфигурацию staticnotes.
package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	loader "staticnotes/pkg/config"
	"staticnotes/pkg/logger"
)

// Константы ошибок и сообщений для конфигурации.
const (
	ServiceName = "staticnotes"

	LogConfigLoaded     = "Configuration loaded successfully"
	ErrFailedLoadConfig = "Failed to load configuration"
	ErrInvalidConfig    = "Invalid configuration"
)

// Config представляет полную конфигурацию приложения.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Cache    CacheConfig    `yaml:"cache"`
	Site     SiteConfig     `yaml:"site"`
	HTTP     HTTPConfig     `yaml:"http"`
	Deploy   DeployConfig   `yaml:"deploy"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// Load загружает конфигурацию из окружения и необязательного .env файла.
// Наличие адреса API проверяется отдельно через RequireAPI: не всем командам он нужен.
func Load(ctx context.Context, envPath string) (*Config, error) {
	log := logger.Log(ctx)

	cfg, err := loader.Load[Config](ctx, ServiceName, envPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}

	if err := cfg.Cache.Validate(); err != nil {
		log.Error(ctx, ErrInvalidConfig, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrInvalidConfig, err)
	}

	log.Debug(ctx, LogConfigLoaded,
		zap.String("api_base_url", cfg.API.BaseURL),
		zap.Duration("api_timeout", cfg.API.Timeout),
		zap.Int("api_retry_count", cfg.API.RetryCount),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.String("base_path", cfg.Site.NormalizedBasePath()),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode))

	return cfg, nil
}

// RequireAPI проверяет настройки API для команд, которые к нему обращаются.
func (c *Config) RequireAPI() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("%s: %w", ErrInvalidConfig, err)
	}
	return nil
}
