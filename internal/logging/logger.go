// Package logging builds the zap loggers used across sitemerge. Each
// subsystem logs through a named child logger for its Category.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sitemerge/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryGenerate Category = "generate" // Synthetic data generation
	CategoryMerge    Category = "merge"    // Stream merging
	CategoryStore    Category = "store"    // SQLite run storage
	CategoryWatch    Category = "watch"    // Input directory watching
	CategorySink     Category = "sink"     // Merged record output
)

// ParseLevel maps a config level name onto a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// New builds the root logger. verbose forces debug level regardless of cfg.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// For returns the child logger for a category.
func For(logger *zap.Logger, cat Category) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(string(cat))
}
