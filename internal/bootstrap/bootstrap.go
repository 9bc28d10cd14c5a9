// Package bootstrap provides dependency initialization for the TTS arranger API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/tts-arranger-api/internal/compiler"
	"github.com/maauso/tts-arranger-api/internal/config"
	"github.com/maauso/tts-arranger-api/internal/job"
	"github.com/maauso/tts-arranger-api/internal/markup"
	"github.com/maauso/tts-arranger-api/internal/rules"
	"github.com/maauso/tts-arranger-api/internal/segment"
	"github.com/maauso/tts-arranger-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service *job.CompileService
}

// NewDependencies creates and initializes all dependencies for the application.
// Configured rule files are read once here; ctx bounds that read.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Rule files shared by every document
	loader := rules.NewLoader(store, logger)
	configured, err := loader.Load(ctx, cfg.RulesFiles)
	if err != nil {
		return nil, fmt.Errorf("load rule files: %w", err)
	}
	if len(cfg.RulesFiles) > 0 {
		logger.Info("rule files loaded",
			slog.Int("files", len(cfg.RulesFiles)),
			slog.Int("rules", len(configured)),
		)
	}

	tables, err := segment.LoadTables()
	if err != nil {
		return nil, fmt.Errorf("load segmentation tables: %w", err)
	}

	defaults := rules.Defaults()
	if cfg.IgnoreDefaultRules {
		defaults = nil
	}

	markupOpts := markup.DefaultOptions()
	markupOpts.DefaultPauseMs = cfg.DefaultPauseMs

	pipeline := compiler.New(tables,
		compiler.WithDefaultRules(defaults),
		compiler.WithMarkupOptions(markupOpts),
		compiler.WithMaxPause(cfg.MaxPauseMs),
		compiler.WithDefaultLanguage(cfg.DefaultLanguage),
		compiler.WithAppendFullStop(cfg.AppendFullStop),
		compiler.WithLogger(logger),
	)

	// Initialize job repository
	repo := job.NewMemoryRepository()

	svc := job.NewCompileService(
		repo,
		pipeline,
		store,
		logger,
		job.WithRuleLoader(loader),
		job.WithConfiguredRules(configured),
	)

	return &Dependencies{
		Service: svc,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.DataDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("endpoint", cfg.S3Endpoint),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", cfg.DataDir),
	)
	return localStore, nil
}
