// Package config handles application configuration and environment loading.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the CLI's environment-level settings. Command flags take
// precedence over everything here.
type Config struct {
	Project   string // default GCP project (BQFLOW_PROJECT)
	Location  string // default BigQuery/transfer location (BQFLOW_LOCATION)
	HistoryDB string // path to the SQLite run-history file (BQFLOW_HISTORY_DB)
	LogLevel  string // log level: debug, info, warn, error (default "info")

	// Warnings collects non-fatal problems found during loading. They are
	// logged by the caller once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults where unset.
func LoadFromEnv() *Config {
	cfg := &Config{
		Project:   os.Getenv("BQFLOW_PROJECT"),
		Location:  os.Getenv("BQFLOW_LOCATION"),
		HistoryDB: os.Getenv("BQFLOW_HISTORY_DB"),
		LogLevel:  os.Getenv("BQFLOW_LOG_LEVEL"),
	}

	if cfg.Location == "" {
		cfg.Location = "US"
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = defaultHistoryPath(&cfg.Warnings)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		cfg.Warnings = append(cfg.Warnings, "unknown BQFLOW_LOG_LEVEL "+cfg.LogLevel+", using info")
		cfg.LogLevel = "info"
	}

	return cfg
}

// defaultHistoryPath places the history database under the user cache
// directory, falling back to the working directory.
func defaultHistoryPath(warnings *[]string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		*warnings = append(*warnings, "cannot resolve user cache dir, keeping history in working directory")
		return "bqflow-history.db"
	}
	return filepath.Join(dir, "bqflow", "history.db")
}

// NewLogger builds the process logger writing to stderr at the configured
// level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
