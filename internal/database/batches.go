// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/coursescope/internal/models"
)

const batchColumns = `id, total_jobs, processed_jobs, failed_jobs, failed_item_ids, status, created_at, started_at, finished_at`

// CreateBatch inserts a new batch row.
func (db *DB) CreateBatch(ctx context.Context, b *models.AuditBatch) (err error) {
	defer func(start time.Time) { observe("create_batch", start, err) }(time.Now())
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	failed, err := marshalIDs(b.FailedItemIDs)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO audit_batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TotalJobs, b.ProcessedJobs, b.FailedJobs, failed, string(b.Status),
		b.CreatedAt.UTC(), nullTime(b.StartedAt), nullTime(b.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to create batch %s: %w", b.ID, err)
	}
	return nil
}

// UpdateBatch writes the full snapshot of an existing batch.
func (db *DB) UpdateBatch(ctx context.Context, b *models.AuditBatch) (err error) {
	defer func(start time.Time) { observe("update_batch", start, err) }(time.Now())
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	failed, err := marshalIDs(b.FailedItemIDs)
	if err != nil {
		return err
	}

	var affected int64
	err = withConflictRetry(ctx, func() error {
		res, execErr := db.conn.ExecContext(ctx, `
			UPDATE audit_batches SET
				total_jobs = ?, processed_jobs = ?, failed_jobs = ?, failed_item_ids = ?,
				status = ?, started_at = ?, finished_at = ?
			WHERE id = ?`,
			b.TotalJobs, b.ProcessedJobs, b.FailedJobs, failed, string(b.Status),
			nullTime(b.StartedAt), nullTime(b.FinishedAt), b.ID)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to update batch %s: %w", b.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %s: %w", b.ID, models.ErrNotFound)
	}
	return nil
}

// GetBatch returns one batch.
func (db *DB) GetBatch(ctx context.Context, id string) (b *models.AuditBatch, err error) {
	defer func(start time.Time) { observe("get_batch", start, err) }(time.Now())
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM audit_batches WHERE id = ?`, id)
	b, err = scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %s: %w", id, err)
	}
	return b, nil
}

// ListBatches returns up to limit batches, newest first. A limit <= 0 means
// no limit.
func (db *DB) ListBatches(ctx context.Context, limit int) (batches []*models.AuditBatch, err error) {
	defer func(start time.Time) { observe("list_batches", start, err) }(time.Now())
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + batchColumns + ` FROM audit_batches ORDER BY created_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches = make([]*models.AuditBatch, 0)
	for rows.Next() {
		b, scanErr := scanBatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", scanErr)
		}
		batches = append(batches, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}

// DeleteBatch removes a batch and its results in one transaction.
func (db *DB) DeleteBatch(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_batch", start, err) }(time.Now())
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var affected int64
	err = withConflictRetry(ctx, func() error {
		tx, txErr := db.conn.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}
		if _, txErr = tx.ExecContext(ctx, `DELETE FROM audit_course_results WHERE batch_id = ?`, id); txErr != nil {
			rollback(tx, txErr)
			return txErr
		}
		res, txErr := tx.ExecContext(ctx, `DELETE FROM audit_batches WHERE id = ?`, id)
		if txErr != nil {
			rollback(tx, txErr)
			return txErr
		}
		if affected, txErr = res.RowsAffected(); txErr != nil {
			rollback(tx, txErr)
			return txErr
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to delete batch %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %s: %w", id, models.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row rowScanner) (*models.AuditBatch, error) {
	var (
		b                 models.AuditBatch
		failed, status    string
		started, finished sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.TotalJobs, &b.ProcessedJobs, &b.FailedJobs, &failed, &status,
		&b.CreatedAt, &started, &finished); err != nil {
		return nil, err
	}
	ids, err := unmarshalIDs(failed)
	if err != nil {
		return nil, err
	}
	b.FailedItemIDs = ids
	b.Status = models.BatchStatus(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.StartedAt = timePtr(started)
	b.FinishedAt = timePtr(finished)
	return &b, nil
}

func marshalIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode failed item ids: %w", err)
	}
	return string(data), nil
}

func unmarshalIDs(raw string) ([]int64, error) {
	ids := []int64{}
	if raw == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode failed item ids: %w", err)
	}
	return ids, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
