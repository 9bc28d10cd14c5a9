// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidPause is returned for negative or inconsistent pause settings.
	ErrInvalidPause = errors.New("config: DEFAULT_PAUSE_MS must be >= 0 and MAX_PAUSE_MS must be > 0")
	// ErrInvalidDocumentLimit is returned when MAX_DOCUMENT_BYTES is not positive.
	ErrInvalidDocumentLimit = errors.New("config: MAX_DOCUMENT_BYTES must be > 0")
	// ErrInvalidLogFormat is returned when LOG_FORMAT is neither json nor text.
	ErrInvalidLogFormat = errors.New("config: LOG_FORMAT must be json or text")
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port             int   `env:"PORT, default=8080" json:"port"`
	MaxDocumentBytes int64 `env:"MAX_DOCUMENT_BYTES, default=10485760" json:"max_document_bytes"`

	// Storage settings
	DataDir string `env:"DATA_DIR, default=/tmp/tts-arranger" json:"data_dir"`

	// Compilation settings
	RulesFiles         []string `env:"RULES_FILES" json:"rules_files,omitempty"` // local paths or s3://bucket/key
	IgnoreDefaultRules bool     `env:"IGNORE_DEFAULT_RULES, default=false" json:"ignore_default_rules"`
	DefaultPauseMs     int      `env:"DEFAULT_PAUSE_MS, default=250" json:"default_pause_ms"`
	MaxPauseMs         int      `env:"MAX_PAUSE_MS, default=1500" json:"max_pause_ms"`
	DefaultLanguage    string   `env:"DEFAULT_LANGUAGE, default=en" json:"default_language"`
	AppendFullStop     bool     `env:"APPEND_FULL_STOP, default=false" json:"append_full_stop"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"` // S3-compatible services
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`               // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"`           // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return LoadWith(context.Background(), envconfig.OsLookuper())
}

// LoadWith reads configuration through lookuper. Tests pass a map lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and settings that depend on each other.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.DefaultPauseMs < 0 || c.MaxPauseMs <= 0 {
		return ErrInvalidPause
	}
	if c.MaxDocumentBytes <= 0 {
		return ErrInvalidDocumentLimit
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return ErrInvalidLogFormat
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DataDir: %s, RulesFiles: %v, IgnoreDefaultRules: %t, DefaultPauseMs: %d, MaxPauseMs: %d, DefaultLanguage: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, AWSAccessKeyID: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DataDir,
		c.RulesFiles,
		c.IgnoreDefaultRules,
		c.DefaultPauseMs,
		c.MaxPauseMs,
		c.DefaultLanguage,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		mask(c.AWSAccessKeyID),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
