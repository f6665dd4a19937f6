// Package config provides centralized configuration management for the importer.
// Process settings come from environment variables with sensible defaults and
// are validated on startup to fail fast on misconfiguration. The per-partner
// canvas type file is loaded separately by LoadCanvasTypes.
package config

import "time"

// Config holds all process configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds relational store connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// ConnectTimeout bounds the connection handshake for each file (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// ImportConfig holds file intake and row import settings.
type ImportConfig struct {
	// IntakeDir is scanned for pending partner files (default: canvas)
	IntakeDir string `env:"CANVAS_INTAKE_DIR" default:"canvas"`

	// ArchiveDir receives consumed files (default: canvas/archive)
	ArchiveDir string `env:"CANVAS_ARCHIVE_DIR" default:"canvas/archive"`

	// CanvasConfig is the path of the canvas type file, YAML or JSON (default: config/canvas_types.json)
	CanvasConfig string `env:"CANVAS_CONFIG" default:"config/canvas_types.json"`

	// BatchSize is the number of inserted rows between commits (default: 1000)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"1000"`

	// Ledger records one import_files row per processed file (default: true)
	Ledger bool `env:"IMPORT_LEDGER" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// Dir receives one import_YYYYMMDD_HHMMSS.log file per run (default: logs)
	Dir string `env:"LOG_DIR" default:"logs"`
}

// MetricsConfig holds the optional Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint
	Addr string `env:"METRICS_ADDR"`

	// ShutdownTimeout bounds the metrics server shutdown (default: 5s)
	ShutdownTimeout time.Duration `env:"METRICS_SHUTDOWN_TIMEOUT" default:"5s"`
}

