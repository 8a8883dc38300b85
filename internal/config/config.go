package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// Backend Configuration:
// - BACKEND_API_URL: Translation backend endpoint (required)
// - BACKEND_API_KEY: Opaque credential forwarded to the backend (optional)
// - BACKEND_TIMEOUT: Per-request timeout in seconds (default: 30)
//
// Translation Configuration:
// - SOURCE_LANGUAGE: ISO code or "auto" (default: auto)
// - TARGET_LANGUAGE: ISO code (required)
// - FALLBACK_LANGUAGE: Used when language detection fails (default: en)
// - BATCH_SIZE: Jobs per batch (default: 50)
// - MAX_RETRIES: Retry budget per job (default: 3)
//
// Cache Configuration:
// - CACHE_TTL_MS: Entry time-to-live in milliseconds (default: 24h)
// - CACHE_FAST_CAPACITY: Fast-tier entry limit (default: 1000)
// - DB_PATH: SQLite file for the durable tier (default: ./data/translate-json.db)
// - CLEANUP_CRON: Expiry sweep schedule (default: "0 * * * *")
//
// Rate Limiter Configuration:
// - RATE_MAX_REQUESTS: Admissions per window (default: 10)
// - RATE_WINDOW_MS: Window length in milliseconds (default: 1000)
//
// System Configuration:
// - LOG_LEVEL: debug|info|warn|error (default: info)
// - LOG_FILE: write logs to this file instead of stdout (optional)
type Config struct {
	Backend   BackendConfig   `json:"backend"`
	Translate TranslateConfig `json:"translate"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	System    SystemConfig    `json:"system"`
}

// BackendConfig holds the translation backend connection settings.
type BackendConfig struct {
	APIURL  string `json:"api_url"`
	APIKey  string `json:"api_key"`
	Timeout int    `json:"timeout"`
}

// TranslateConfig holds the per-run translation settings.
type TranslateConfig struct {
	SourceLanguage   string `json:"source_language"`
	TargetLanguage   string `json:"target_language"`
	FallbackLanguage string `json:"fallback_language"`
	BatchSize        int    `json:"batch_size"`
	MaxRetries       int    `json:"max_retries"`
}

// CacheConfig holds the two-tier cache settings.
type CacheConfig struct {
	TTL          time.Duration `json:"ttl"`
	FastCapacity int           `json:"fast_capacity"`
	DBPath       string        `json:"db_path"`
	CleanupCron  string        `json:"cleanup_cron"`
}

// RateLimitConfig holds the sliding-window admission settings.
type RateLimitConfig struct {
	MaxRequests int           `json:"max_requests"`
	Window      time.Duration `json:"window"`
}

// SystemConfig holds process-level settings.
type SystemConfig struct {
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// Option is a function type for configuring Config.
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Backend: BackendConfig{
			APIURL:  getEnvString("BACKEND_API_URL", ""),
			APIKey:  getEnvString("BACKEND_API_KEY", ""),
			Timeout: getEnvInt("BACKEND_TIMEOUT", 30),
		},
		Translate: TranslateConfig{
			SourceLanguage:   getEnvString("SOURCE_LANGUAGE", "auto"),
			TargetLanguage:   getEnvString("TARGET_LANGUAGE", ""),
			FallbackLanguage: getEnvString("FALLBACK_LANGUAGE", "en"),
			BatchSize:        getEnvInt("BATCH_SIZE", 50),
			MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		},
		Cache: CacheConfig{
			TTL:          time.Duration(getEnvInt64("CACHE_TTL_MS", (24 * time.Hour).Milliseconds())) * time.Millisecond,
			FastCapacity: getEnvInt("CACHE_FAST_CAPACITY", 1000),
			DBPath:       getEnvString("DB_PATH", "./data/translate-json.db"),
			CleanupCron:  getEnvString("CLEANUP_CRON", "0 * * * *"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getEnvInt("RATE_MAX_REQUESTS", 10),
			Window:      time.Duration(getEnvInt64("RATE_WINDOW_MS", 1000)) * time.Millisecond,
		},
		System: SystemConfig{
			LogLevel: getEnvString("LOG_LEVEL", "info"),
			LogFile:  getEnvString("LOG_FILE", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that all required configuration is properly set.
func (c *Config) Validate() error {
	if c.Backend.APIURL == "" {
		return fmt.Errorf("BACKEND_API_URL is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.Translate.TargetLanguage == "" {
		return fmt.Errorf("TARGET_LANGUAGE is required")
	}
	if _, err := language.Parse(c.Translate.TargetLanguage); err != nil {
		return fmt.Errorf("invalid TARGET_LANGUAGE: %w", err)
	}
	if c.Translate.SourceLanguage != "auto" {
		if _, err := language.Parse(c.Translate.SourceLanguage); err != nil {
			return fmt.Errorf("invalid SOURCE_LANGUAGE: %w", err)
		}
	}
	if _, err := language.Parse(c.Translate.FallbackLanguage); err != nil {
		return fmt.Errorf("invalid FALLBACK_LANGUAGE: %w", err)
	}
	if c.Translate.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	if c.Translate.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("RATE_MAX_REQUESTS must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_WINDOW_MS must be positive")
	}
	if _, err := cron.ParseStandard(c.Cache.CleanupCron); err != nil {
		return fmt.Errorf("invalid CLEANUP_CRON: %w", err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 gets a 64-bit integer value from environment variables with default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
