// Package bootstrap provides dependency initialization for the autocut server.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/maauso/autocut/internal/config"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/preset"
	"github.com/maauso/autocut/internal/project"
	"github.com/maauso/autocut/internal/silence"
	"github.com/maauso/autocut/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ProjectService *project.Service
	Presets        *preset.Resolver

	closers []io.Closer
}

// Close releases resources opened by NewDependencies.
func (d *Dependencies) Close() error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	presets, err := NewPresets(cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{Presets: presets}

	// Initialize project repository
	repo, err := initRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := repo.(io.Closer); ok {
		deps.closers = append(deps.closers, c)
	}

	// Initialize ffmpeg adapters
	prober := media.NewFFprobeProber(cfg.FFprobePath)
	analyzer := silence.NewFFmpegAnalyzer(cfg.FFmpegPath)
	renderer := media.NewFFmpegRenderer(cfg.FFmpegPath)

	defaultPreset, err := preset.ParseName(cfg.DefaultPreset)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	opts := []project.ServiceOption{project.WithDefaultPreset(defaultPreset)}
	if window := cfg.LevelWindow(); window > 0 {
		opts = append(opts, project.WithLevelAnalysis(window, cfg.HysteresisDb))
		logger.Info("level analysis enabled",
			slog.Duration("window", window),
			slog.Float64("hysteresis_db", cfg.HysteresisDb),
		)
	}

	deps.ProjectService = project.NewService(repo, prober, analyzer, renderer, store, presets, logger, opts...)
	return deps, nil
}

// NewPresets returns the built-in preset table with overrides from
// PRESETS_FILE applied.
func NewPresets(cfg *config.Config, logger *slog.Logger) (*preset.Resolver, error) {
	presets := preset.NewResolver()
	if cfg.PresetsFile == "" {
		return presets, nil
	}
	if err := presets.LoadFile(cfg.PresetsFile); err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	logger.Info("preset overrides loaded",
		slog.String("presets_file", cfg.PresetsFile),
	)
	return presets, nil
}

// initRepository opens the SQLite store, or keeps projects in memory when
// persistence is disabled.
func initRepository(cfg *config.Config, logger *slog.Logger) (project.Repository, error) {
	if !cfg.PersistProjects {
		logger.Info("project persistence disabled, using memory repository")
		return project.NewMemoryRepository(), nil
	}

	repo, err := project.OpenSQLite(cfg.DatabasePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("open project database: %w", err)
	}
	logger.Info("project database opened",
		slog.String("db_path", cfg.DatabasePath()),
	)
	return repo, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.ExportDirectory(), s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("export_dir", cfg.ExportDirectory()),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.ExportDirectory())
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("export_dir", cfg.ExportDirectory()),
	)
	return localStore, nil
}
