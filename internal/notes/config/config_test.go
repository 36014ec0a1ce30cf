package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staticnotes/internal/notes/config"
	"staticnotes/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2, cfg.API.RetryCount)
	assert.Equal(t, 3, cfg.API.MaxAttempts())
	assert.Equal(t, config.CacheBackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "/", cfg.Site.NormalizedBasePath())
	assert.Equal(t, "dist", cfg.Site.OutputDir)
	assert.Equal(t, logger.Development, cfg.Logging.GetEnvironment())
	assert.Equal(t, 5*time.Second, cfg.Shutdown.GetTimeout())

	assert.ErrorIs(t, cfg.RequireAPI(), config.ErrMissingBaseURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("NOTES_API_BASE_URL", "https://hooks.example.com/api")
	t.Setenv("NOTES_API_TIMEOUT", "3s")
	t.Setenv("NOTES_API_RETRY_COUNT", "4")
	t.Setenv("NOTES_PUBLIC_BASE_PATH", "my-notes")
	t.Setenv("NOTES_CACHE_BACKEND", "redis")
	t.Setenv("NOTES_LOGGER_MODE", "production")

	cfg, err := config.Load(context.Background(), "")
	require.NoError(t, err)

	require.NoError(t, cfg.RequireAPI())
	assert.Equal(t, "https://hooks.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.API.MaxAttempts())
	assert.Equal(t, "/my-notes/", cfg.Site.NormalizedBasePath())
	assert.Equal(t, config.CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.GetAddressString())
	assert.Equal(t, logger.Production, cfg.Logging.GetEnvironment())
}

func TestLoadRejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("NOTES_CACHE_BACKEND", "floppy")

	cfg, err := config.Load(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestAPIValidate(t *testing.T) {
	cases := map[string]struct {
		cfg  config.APIConfig
		want error
	}{
		"missing":  {config.APIConfig{}, config.ErrMissingBaseURL},
		"relative": {config.APIConfig{BaseURL: "/notes"}, config.ErrInvalidBaseURL},
		"ftp":      {config.APIConfig{BaseURL: "ftp://host"}, config.ErrInvalidBaseURL},
		"negative": {config.APIConfig{BaseURL: "http://host", RetryCount: -1}, config.ErrNegativeRetry},
		"ok":       {config.APIConfig{BaseURL: "http://host:8787"}, nil},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	assert.Equal(t, "/", config.NormalizeBasePath(""))
	assert.Equal(t, "/", config.NormalizeBasePath("/"))
	assert.Equal(t, "/notes/", config.NormalizeBasePath("notes"))
	assert.Equal(t, "/a/b/", config.NormalizeBasePath("/a/b/"))
}

func TestCacheValidateRaisesStaleTTL(t *testing.T) {
	c := config.CacheConfig{Backend: config.CacheBackendMemory, TTL: time.Hour, StaleTTL: time.Minute}
	require.NoError(t, c.Validate())
	assert.Equal(t, time.Hour, c.StaleTTL)
}
