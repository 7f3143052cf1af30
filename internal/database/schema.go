// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/coursescope/internal/logging"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
	AppliedAt   time.Time
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL
);
`

// migrations returns every schema migration in order. Migrations are
// append-only once released.
func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "create_audit_batches",
			Description: "Batch records with counters and failed course ids",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_batches (
					id TEXT PRIMARY KEY,
					total_jobs INTEGER NOT NULL,
					processed_jobs INTEGER NOT NULL DEFAULT 0,
					failed_jobs INTEGER NOT NULL DEFAULT 0,
					failed_item_ids TEXT NOT NULL DEFAULT '[]',
					status TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL,
					started_at TIMESTAMP,
					finished_at TIMESTAMP
				);
				CREATE INDEX IF NOT EXISTS idx_audit_batches_created_at ON audit_batches(created_at);
			`,
		},
		{
			Version:     2,
			Name:        "create_audit_course_results",
			Description: "Per-course audit metrics keyed by (batch_id, course_id)",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_course_results (
					batch_id TEXT,
					course_id BIGINT NOT NULL,
					course_name TEXT NOT NULL DEFAULT '',
					published_pages INTEGER NOT NULL DEFAULT 0,
					classic_quizzes INTEGER NOT NULL DEFAULT 0,
					new_quizzes INTEGER NOT NULL DEFAULT 0,
					other_assignments INTEGER NOT NULL DEFAULT 0,
					discussions INTEGER NOT NULL DEFAULT 0,
					active_students INTEGER NOT NULL DEFAULT 0,
					quiz_engagement DOUBLE NOT NULL DEFAULT 0,
					assignment_engagement DOUBLE NOT NULL DEFAULT 0,
					discussion_engagement DOUBLE NOT NULL DEFAULT 0,
					duration_ms BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_audit_results_batch_course ON audit_course_results(batch_id, course_id);
				CREATE INDEX IF NOT EXISTS idx_audit_results_course ON audit_course_results(course_id);
			`,
		},
	}
}

// schemaContext bounds schema work at startup.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// initialize applies pending migrations and checkpoints the result.
func (db *DB) initialize() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	newMigrations := 0
	for _, m := range migrations() {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("applied", newMigrations).Msg("Schema migrations applied")
		if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
			logging.Warn().Err(err).Msg("Failed to checkpoint after migrations")
		}
	}
	return nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	for _, stmt := range splitStatements(m.SQL) {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)`,
		m.Version, m.Name, m.Description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
	}
	logging.Debug().Int("version", m.Version).Str("name", m.Name).Msg("Migration applied")
	return nil
}

// appliedMigrations returns the migrations already recorded, by version.
func (db *DB) appliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[m.Version] = m
	}
	return applied, rows.Err()
}

// AppliedMigrations lists recorded migrations in version order.
func (db *DB) AppliedMigrations(ctx context.Context) ([]Migration, error) {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Migration, 0, len(applied))
	for _, m := range migrations() {
		if a, ok := applied[m.Version]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func splitStatements(sqlText string) []string {
	var out []string
	for _, stmt := range strings.Split(sqlText, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
