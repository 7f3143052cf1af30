// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package config

import "time"

// Config is the root configuration.
type Config struct {
	Canvas   CanvasConfig   `koanf:"canvas"`
	Audit    AuditConfig    `koanf:"audit"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// CanvasConfig configures the upstream Canvas API client.
type CanvasConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Token             string        `koanf:"token"`
	PerPage           int           `koanf:"per_page"`
	PageDelay         time.Duration `koanf:"page_delay"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	RetryBaseDelay    time.Duration `koanf:"retry_base_delay"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	RateLimitFloor    int           `koanf:"rate_limit_floor"`
}

// AuditConfig configures the batch orchestrator.
type AuditConfig struct {
	Workers               int `koanf:"workers"`
	QueueSize             int `koanf:"queue_size"`
	CollectionParallelism int `koanf:"collection_parallelism"`
}

// Storage backends.
const (
	BackendDuckDB = "duckdb"
	BackendBadger = "badger"
)

// DatabaseConfig selects and tunes the batch state store.
type DatabaseConfig struct {
	Backend    string `koanf:"backend"`
	Path       string `koanf:"path"`
	MaxMemory  string `koanf:"max_memory"`
	Threads    int    `koanf:"threads"`
	BadgerPath string `koanf:"badger_path"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds CORS and rate limiting for the HTTP API.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// EventsConfig configures the lifecycle event bus. NATSURL is optional; the
// in-process bus is always enabled.
type EventsConfig struct {
	NATSURL string `koanf:"nats_url"`
	Buffer  int    `koanf:"buffer"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional YAML file, and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
