package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"staticnotes/internal/notes/resilience"
)

// Ошибки конфигурации API.
var (
	ErrMissingBaseURL = errors.New("NOTES_API_BASE_URL is required")
	ErrInvalidBaseURL = errors.New("NOTES_API_BASE_URL must be an absolute http(s) url")
	ErrNegativeRetry  = errors.New("NOTES_API_RETRY_COUNT must not be negative")
)

// APIConfig описывает подключение к webhook API заметок.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url" env:"NOTES_API_BASE_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"NOTES_API_TIMEOUT" env-default:"10s"`
	RetryCount int           `yaml:"retry_count" env:"NOTES_API_RETRY_COUNT" env-default:"2"`
	UserAgent  string        `yaml:"user_agent" env:"NOTES_API_USER_AGENT" env-default:"staticnotes"`

	InitialBackoff time.Duration `yaml:"initial_backoff" env:"NOTES_API_INITIAL_BACKOFF" env-default:"200ms"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env:"NOTES_API_MAX_BACKOFF" env-default:"2s"`

	BreakerThreshold int           `yaml:"breaker_threshold" env:"NOTES_API_BREAKER_THRESHOLD" env-default:"5"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout" env:"NOTES_API_BREAKER_TIMEOUT" env-default:"10s"`
}

// Validate проверяет, что API настроен.
func (c *APIConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.RetryCount < 0 {
		return ErrNegativeRetry
	}
	return nil
}

// MaxAttempts возвращает количество попыток с учетом первой.
func (c *APIConfig) MaxAttempts() int {
	return c.RetryCount + 1
}

// Retry возвращает настройки повторов для клиента API.
func (c *APIConfig) Retry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = c.MaxAttempts()
	if c.InitialBackoff > 0 {
		cfg.InitialBackoff = c.InitialBackoff
	}
	if c.MaxBackoff > 0 {
		cfg.MaxBackoff = c.MaxBackoff
	}
	return cfg
}

// Breaker возвращает настройки Circuit Breaker для клиента API.
func (c *APIConfig) Breaker() resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig()
	if c.BreakerThreshold > 0 {
		cfg.ErrorThreshold = c.BreakerThreshold
	}
	if c.BreakerTimeout > 0 {
		cfg.Timeout = c.BreakerTimeout
	}
	return cfg
}
