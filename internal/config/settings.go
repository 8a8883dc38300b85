package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the optional YAML settings file. Non-zero fields override the
// environment-derived configuration.
type Settings struct {
	BackendAPIURL    string `yaml:"backend_api_url"`
	BackendAPIKey    string `yaml:"backend_api_key"`
	SourceLanguage   string `yaml:"source_language"`
	TargetLanguage   string `yaml:"target_language"`
	FallbackLanguage string `yaml:"fallback_language"`
	BatchSize        int    `yaml:"batch_size"`
	MaxRetries       *int   `yaml:"max_retries"` // pointer: zero is a valid budget
	CacheTTLMs       int64  `yaml:"cache_ttl_ms"`
	RateMaxRequests  int    `yaml:"rate_max_requests"`
	RateWindowMs     int64  `yaml:"rate_window_ms"`
	CleanupCron      string `yaml:"cleanup_cron"`
}

// LoadSettingsFile reads and parses a YAML settings file.
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

// WithSettings overrides environment configuration with file settings.
func WithSettings(settings Settings) Option {
	return func(c *Config) {
		if settings.BackendAPIURL != "" {
			c.Backend.APIURL = settings.BackendAPIURL
		}
		if settings.BackendAPIKey != "" {
			c.Backend.APIKey = settings.BackendAPIKey
		}
		if settings.SourceLanguage != "" {
			c.Translate.SourceLanguage = settings.SourceLanguage
		}
		if settings.TargetLanguage != "" {
			c.Translate.TargetLanguage = settings.TargetLanguage
		}
		if settings.FallbackLanguage != "" {
			c.Translate.FallbackLanguage = settings.FallbackLanguage
		}
		if settings.BatchSize > 0 {
			c.Translate.BatchSize = settings.BatchSize
		}
		if settings.MaxRetries != nil && *settings.MaxRetries >= 0 {
			c.Translate.MaxRetries = *settings.MaxRetries
		}
		if settings.CacheTTLMs > 0 {
			c.Cache.TTL = time.Duration(settings.CacheTTLMs) * time.Millisecond
		}
		if settings.RateMaxRequests > 0 {
			c.RateLimit.MaxRequests = settings.RateMaxRequests
		}
		if settings.RateWindowMs > 0 {
			c.RateLimit.Window = time.Duration(settings.RateWindowMs) * time.Millisecond
		}
		if settings.CleanupCron != "" {
			c.Cache.CleanupCron = settings.CleanupCron
		}
	}
}
