// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/models"
)

// Validate checks that required configuration is present and within range.
func (c *Config) Validate() error {
	if err := c.Canvas.Validate(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

// Validate reports missing credentials as *models.ConfigurationError. The
// canvas client calls it at construction time.
func (c *CanvasConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return &models.ConfigurationError{Key: "CANVAS_BASE_URL", Message: "is required"}
	}
	if err := validateHTTPURL(c.BaseURL); err != nil {
		return &models.ConfigurationError{Key: "CANVAS_BASE_URL", Message: err.Error()}
	}
	if strings.TrimSpace(c.Token) == "" {
		return &models.ConfigurationError{Key: "CANVAS_TOKEN", Message: "is required"}
	}
	if c.PerPage < 1 || c.PerPage > 100 {
		return &models.ConfigurationError{Key: "CANVAS_PER_PAGE", Message: fmt.Sprintf("must be between 1 and 100, got %d", c.PerPage)}
	}
	if c.PageDelay < 0 {
		return &models.ConfigurationError{Key: "CANVAS_PAGE_DELAY", Message: "must not be negative"}
	}
	if c.RequestTimeout < time.Second || c.RequestTimeout > 2*time.Minute {
		return &models.ConfigurationError{Key: "CANVAS_REQUEST_TIMEOUT", Message: fmt.Sprintf("must be between 1s and 2m, got %v", c.RequestTimeout)}
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return &models.ConfigurationError{Key: "CANVAS_MAX_RETRIES", Message: fmt.Sprintf("must be between 0 and 10, got %d", c.MaxRetries)}
	}
	if c.RequestsPerSecond < 0 {
		return &models.ConfigurationError{Key: "CANVAS_REQUESTS_PER_SECOND", Message: "must not be negative"}
	}
	return nil
}

// validateHTTPURL accepts http(s) URLs with a host. Unlike most base URLs the
// Canvas one carries a path (/api/v1), so paths are allowed.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	if u.RawQuery != "" {
		return fmt.Errorf("should not contain query parameters")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.Workers < 1 || c.Audit.Workers > 32 {
		return fmt.Errorf("AUDIT_WORKERS must be between 1 and 32, got %d", c.Audit.Workers)
	}
	if c.Audit.QueueSize < 1 {
		return fmt.Errorf("AUDIT_QUEUE_SIZE must be positive, got %d", c.Audit.QueueSize)
	}
	if c.Audit.CollectionParallelism < 1 || c.Audit.CollectionParallelism > 16 {
		return fmt.Errorf("AUDIT_COLLECTION_PARALLELISM must be between 1 and 16, got %d", c.Audit.CollectionParallelism)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Backend {
	case BackendDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required for the duckdb backend")
		}
	case BackendBadger:
		if c.Database.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required for the badger backend")
		}
	default:
		return fmt.Errorf("DATABASE_BACKEND must be %q or %q, got %q", BackendDuckDB, BackendBadger, c.Database.Backend)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
