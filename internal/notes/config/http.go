package config

import (
	"fmt"
	"time"
)

// HTTPConfig представляет конфигурацию HTTP сервера предпросмотра.
type HTTPConfig struct {
	Host         string        `yaml:"host" env:"NOTES_HTTP_HOST" env-default:"127.0.0.1"`
	Port         int           `yaml:"port" env:"NOTES_HTTP_PORT" env-default:"8080"`
	MockPort     int           `yaml:"mock_port" env:"NOTES_MOCK_HTTP_PORT" env-default:"8787"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"NOTES_HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"NOTES_HTTP_WRITE_TIMEOUT" env-default:"10s"`
}

// GetAddress возвращает адрес HTTP сервера.
func (c *HTTPConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetMockAddress возвращает адрес локального mock API.
func (c *HTTPConfig) GetMockAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MockPort)
}
