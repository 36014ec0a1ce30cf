package config

import (
	"strings"
)

// SiteConfig описывает генерацию статического сайта.
type SiteConfig struct {
	BasePath     string `yaml:"base_path" env:"NOTES_PUBLIC_BASE_PATH" env-default:"/"`
	OutputDir    string `yaml:"output_dir" env:"NOTES_SITE_OUTPUT_DIR" env-default:"dist"`
	Title        string `yaml:"title" env:"NOTES_SITE_TITLE" env-default:"Notes"`
	Description  string `yaml:"description" env:"NOTES_SITE_DESCRIPTION" env-default:""`
	Author       string `yaml:"author" env:"NOTES_SITE_AUTHOR" env-default:""`
	URL          string `yaml:"url" env:"NOTES_SITE_URL" env-default:""`
	TemplatesDir string `yaml:"templates_dir" env:"NOTES_SITE_TEMPLATES_DIR" env-default:""`
	Workers      int    `yaml:"workers" env:"NOTES_SITE_WORKERS" env-default:"8"`
	FeedLimit    int    `yaml:"feed_limit" env:"NOTES_SITE_FEED_LIMIT" env-default:"20"`
}

// NormalizedBasePath возвращает базовый путь вида "/", "/notes/".
func (c *SiteConfig) NormalizedBasePath() string {
	return NormalizeBasePath(c.BasePath)
}

// NormalizeBasePath приводит путь к форме с ведущим и завершающим слешем.
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}
