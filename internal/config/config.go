// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/autocut/internal/preset"
)

// Analysis modes.
const (
	// AnalysisSpans detects silence with ffmpeg silencedetect.
	AnalysisSpans = "spans"
	// AnalysisLevels measures RMS levels per window and thresholds them.
	AnalysisLevels = "levels"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidAnalysisMode is returned when ANALYSIS_MODE is unknown.
	ErrInvalidAnalysisMode = errors.New("config: ANALYSIS_MODE must be spans or levels")
	// ErrInvalidLevelWindow is returned when LEVEL_WINDOW_MS is not positive.
	ErrInvalidLevelWindow = errors.New("config: LEVEL_WINDOW_MS must be positive")
	// ErrInvalidHysteresis is returned when HYSTERESIS_DB is negative.
	ErrInvalidHysteresis = errors.New("config: HYSTERESIS_DB must not be negative")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Storage settings
	DataDir         string `env:"DATA_DIR, default=/tmp/autocut" json:"data_dir"`
	DBPath          string `env:"DB_PATH" json:"db_path,omitempty"`       // Defaults to DATA_DIR/autocut.db
	ExportDir       string `env:"EXPORT_DIR" json:"export_dir,omitempty"` // Defaults to DATA_DIR/exports
	PersistProjects bool   `env:"PERSIST_PROJECTS, default=true" json:"persist_projects"`

	// Media tools
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Analysis settings
	PresetsFile   string  `env:"PRESETS_FILE" json:"presets_file,omitempty"`
	DefaultPreset string  `env:"DEFAULT_PRESET, default=podcast" json:"default_preset"`
	AnalysisMode  string  `env:"ANALYSIS_MODE, default=spans" json:"analysis_mode"` // "spans" or "levels"
	LevelWindowMs int     `env:"LEVEL_WINDOW_MS, default=50" json:"level_window_ms"`
	HysteresisDb  float64 `env:"HYSTERESIS_DB, default=0" json:"hysteresis_db"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// DatabasePath returns DB_PATH or its default under DATA_DIR.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "autocut.db")
}

// ExportDirectory returns EXPORT_DIR or its default under DATA_DIR.
func (c *Config) ExportDirectory() string {
	if c.ExportDir != "" {
		return c.ExportDir
	}
	return filepath.Join(c.DataDir, "exports")
}

// LevelWindow returns the level analysis window, or zero in spans mode.
func (c *Config) LevelWindow() time.Duration {
	if !strings.EqualFold(c.AnalysisMode, AnalysisLevels) {
		return 0
	}
	return time.Duration(c.LevelWindowMs) * time.Millisecond
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
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

// Validate checks value ranges that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	switch strings.ToLower(c.AnalysisMode) {
	case AnalysisSpans, AnalysisLevels:
	default:
		return ErrInvalidAnalysisMode
	}
	if c.LevelWindowMs <= 0 {
		return ErrInvalidLevelWindow
	}
	if c.HysteresisDb < 0 {
		return ErrInvalidHysteresis
	}
	if _, err := preset.ParseName(c.DefaultPreset); err != nil {
		return fmt.Errorf("config: DEFAULT_PRESET: %w", err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return NewLogger(os.Stdout, c.LogFormat, c.LogLevel)
}

// NewLogger creates a logger writing to w. It is shared by the server and
// the CLI, which logs to stderr.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DataDir: %s, DBPath: %s, ExportDir: %s, DefaultPreset: %s, AnalysisMode: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DataDir,
		c.DatabasePath(),
		c.ExportDirectory(),
		c.DefaultPreset,
		c.AnalysisMode,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
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
