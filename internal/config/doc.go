// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package config loads CourseScope configuration with Koanf v2.

# Configuration Sources

Sources are layered, later ones override earlier ones:

 1. Built-in defaults (defaultConfig)
 2. YAML config file (CONFIG_PATH, or config.yaml / config.yml / /etc/coursescope/config.yaml)
 3. Environment variables (explicit mapping table, unknown variables are ignored)

Binaries preload a .env file before calling Load, so values from .env behave
like regular environment variables.

# Environment Variables

Canvas (CanvasConfig):
  - CANVAS_BASE_URL: versioned API base, e.g. https://school.instructure.com/api/v1 (required)
  - CANVAS_TOKEN: API access token (required)
  - CANVAS_PER_PAGE: page size hint sent on the first request (default: 100)
  - CANVAS_PAGE_DELAY: minimum gap between pages of one collection (default: 800ms)
  - CANVAS_REQUEST_TIMEOUT: per-request timeout (default: 30s)
  - CANVAS_MAX_RETRIES: retries for 429/5xx/timeouts (default: 3)
  - CANVAS_RETRY_BASE_DELAY: first backoff delay, doubled per attempt (default: 1s)
  - CANVAS_REQUESTS_PER_SECOND: client-wide request rate, 0 disables (default: 0)
  - CANVAS_RATE_LIMIT_FLOOR: slow down when X-Rate-Limit-Remaining drops below this, 0 disables

Audit (AuditConfig):
  - AUDIT_WORKERS: concurrent course audits (default: 4)
  - AUDIT_QUEUE_SIZE: pending task capacity (default: 1000)
  - AUDIT_COLLECTION_PARALLELISM: concurrent sub-collection fetches per course (default: 1)

Database (DatabaseConfig):
  - DATABASE_BACKEND: duckdb or badger (default: duckdb)
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
  - BADGER_PATH

Server, security, events and logging:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - EVENTS_NATS_URL, EVENTS_BUFFER
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Missing Canvas settings are reported as *models.ConfigurationError so that
callers can distinguish them from other load failures.
*/
package config
