// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Command server runs the CourseScope HTTP API and audit worker pool.

	coursescope (root)
	├── data-layer       audit worker pool
	├── messaging-layer  websocket hub, event bridge
	└── api-layer        HTTP server

Startup order:

 1. .env from the working directory or a parent (variables already set win)
 2. configuration: koanf defaults, config.yaml, environment
 3. logging
 4. Canvas client (missing CANVAS_BASE_URL or CANVAS_TOKEN is fatal)
 5. batch store: DuckDB or Badger per DATABASE_BACKEND
 6. event publisher (in-process, plus NATS when EVENTS_NATS_URL is set),
    orchestrator, websocket hub, event bridge
 7. supervisor tree and HTTP server

SIGINT or SIGTERM cancels the tree. The HTTP server drains first, the worker
pool settles queued courses as failed, then the store is closed.

Minimal environment:

	CANVAS_BASE_URL=https://school.instructure.com/api/v1
	CANVAS_TOKEN=<token>
	DATABASE_BACKEND=duckdb
	DUCKDB_PATH=/data/coursescope.duckdb
	HTTP_PORT=8080
*/
package main
