// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

// Package database is the DuckDB implementation of the batch state store.
//
// # Overview
//
// Two tables hold the durable state of the audit engine:
//
//   - audit_batches: one row per submitted batch with its counters, the
//     JSON list of failed course ids, status, and lifecycle timestamps
//   - audit_course_results: one row per (batch_id, course_id); batch_id is
//     NULL for standalone audits
//
// Engagement ratios are stored as DOUBLE and read back unrounded. They can
// exceed 1 when historic submitters outnumber active students.
//
// # Files
//
//   - database.go: connection lifecycle, pool tuning, Ping, Close
//   - schema.go: table creation and versioned migrations
//   - batches.go: batch CRUD and cascading delete
//   - results.go: result upsert and queries
//   - retry.go: transaction conflict detection and retry
//
// # Concurrency
//
// DB is safe for concurrent use. DuckDB uses optimistic concurrency, so
// writes that collide on the same row are retried a few times before the
// conflict is returned.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	orch := batch.NewOrchestrator(db, aggregator, cfg.Audit)
package database
