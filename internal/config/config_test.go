package config

import (
	"context"
	"log/slog"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMap(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadWith(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(10<<20), cfg.MaxDocumentBytes)
	assert.Equal(t, "/tmp/tts-arranger", cfg.DataDir)
	assert.Empty(t, cfg.RulesFiles)
	assert.False(t, cfg.IgnoreDefaultRules)
	assert.Equal(t, 250, cfg.DefaultPauseMs)
	assert.Equal(t, 1500, cfg.MaxPauseMs)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.False(t, cfg.AppendFullStop)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DATA_DIR", "/custom/data")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/custom/data", cfg.DataDir)
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{
		"PORT":                  "3000",
		"MAX_DOCUMENT_BYTES":    "2048",
		"DATA_DIR":              "/custom/data",
		"RULES_FILES":           "rules/book.toml,s3://bucket/rules.json",
		"IGNORE_DEFAULT_RULES":  "true",
		"DEFAULT_PAUSE_MS":      "300",
		"MAX_PAUSE_MS":          "2000",
		"DEFAULT_LANGUAGE":      "de",
		"APPEND_FULL_STOP":      "true",
		"S3_BUCKET":             "my-bucket",
		"S3_REGION":             "us-east-1",
		"S3_ENDPOINT":           "http://localhost:9000",
		"AWS_ACCESS_KEY_ID":     "access-key",
		"AWS_SECRET_ACCESS_KEY": "secret-key",
		"LOG_FORMAT":            "json",
		"LOG_LEVEL":             "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, int64(2048), cfg.MaxDocumentBytes)
	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, []string{"rules/book.toml", "s3://bucket/rules.json"}, cfg.RulesFiles)
	assert.True(t, cfg.IgnoreDefaultRules)
	assert.Equal(t, 300, cfg.DefaultPauseMs)
	assert.Equal(t, 2000, cfg.MaxPauseMs)
	assert.Equal(t, "de", cfg.DefaultLanguage)
	assert.True(t, cfg.AppendFullStop)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"port not a number", map[string]string{"PORT": "not-a-number"}, nil},
		{"port out of range", map[string]string{"PORT": "70000"}, ErrInvalidPort},
		{"negative pause", map[string]string{"DEFAULT_PAUSE_MS": "-1"}, ErrInvalidPause},
		{"zero max pause", map[string]string{"MAX_PAUSE_MS": "0"}, ErrInvalidPause},
		{"zero document limit", map[string]string{"MAX_DOCUMENT_BYTES": "0"}, ErrInvalidDocumentLimit},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}, ErrInvalidLogFormat},
		{"bucket without region", map[string]string{"S3_BUCKET": "bucket"}, ErrS3RegionRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMap(t, tt.env)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		DataDir:            "/tmp/test",
		RulesFiles:         []string{"book.toml"},
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "access-key",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "book.toml")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "access-key")
	assert.NotContains(t, str, "secret-key")
}

func TestConfig_NewLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{LogFormat: format, LogLevel: "warn"}

			logger := cfg.NewLogger()
			require.NotNil(t, logger)
			assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
			assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
