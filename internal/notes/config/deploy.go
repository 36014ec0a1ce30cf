package config

import "errors"

// ErrMissingBucket возвращается, если для публикации не задан бакет.
var ErrMissingBucket = errors.New("NOTES_DEPLOY_BUCKET is required for deploy")

// DeployConfig описывает публикацию сайта в S3-совместимое хранилище.
type DeployConfig struct {
	Bucket       string `yaml:"bucket" env:"NOTES_DEPLOY_BUCKET"`
	Prefix       string `yaml:"prefix" env:"NOTES_DEPLOY_PREFIX" env-default:""`
	Region       string `yaml:"region" env:"NOTES_DEPLOY_REGION" env-default:"us-east-1"`
	Endpoint     string `yaml:"endpoint" env:"NOTES_DEPLOY_ENDPOINT" env-default:""`
	AccessKey    string `yaml:"access_key" env:"NOTES_DEPLOY_ACCESS_KEY" env-default:""`
	SecretKey    string `yaml:"secret_key" env:"NOTES_DEPLOY_SECRET_KEY" env-default:""`
	UsePathStyle bool   `yaml:"use_path_style" env:"NOTES_DEPLOY_PATH_STYLE" env-default:"false"`
	CacheControl string `yaml:"cache_control" env:"NOTES_DEPLOY_CACHE_CONTROL" env-default:"public, max-age=300"`
}

// Validate проверяет настройки публикации.
func (c *DeployConfig) Validate() error {
	if c.Bucket == "" {
		return ErrMissingBucket
	}
	return nil
}
