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

	"github.com/tomtom215/coursescope/internal/models"
)

const resultColumns = `batch_id, course_id, course_name,
	published_pages, classic_quizzes, new_quizzes, other_assignments, discussions, active_students,
	quiz_engagement, assignment_engagement, discussion_engagement,
	duration_ms, created_at`

// UpsertResult inserts or replaces the row keyed by (batch_id, course_id).
// The UPDATE matches with IS NOT DISTINCT FROM so that standalone rows with
// a NULL batch_id are replaced too.
func (db *DB) UpsertResult(ctx context.Context, r *models.CourseAuditResult) (err error) {
	defer func(start time.Time) { observe("upsert_result", start, err) }(time.Now())
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	batchID := nullString(r.BatchID)

	err = withConflictRetry(ctx, func() error {
		tx, txErr := db.conn.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		res, txErr := tx.ExecContext(ctx, `
			UPDATE audit_course_results SET
				course_name = ?, published_pages = ?, classic_quizzes = ?, new_quizzes = ?,
				other_assignments = ?, discussions = ?, active_students = ?,
				quiz_engagement = ?, assignment_engagement = ?, discussion_engagement = ?,
				duration_ms = ?, created_at = ?
			WHERE batch_id IS NOT DISTINCT FROM ? AND course_id = ?`,
			r.CourseName, r.PublishedPages, r.ClassicQuizzes, r.NewQuizzes,
			r.OtherAssignments, r.Discussions, r.ActiveStudents,
			r.QuizEngagement, r.AssignmentEngagement, r.DiscussionEngagement,
			r.DurationMS, created.UTC(), batchID, r.CourseID)
		if txErr != nil {
			rollback(tx, txErr)
			return txErr
		}
		affected, txErr := res.RowsAffected()
		if txErr != nil {
			rollback(tx, txErr)
			return txErr
		}

		if affected == 0 {
			_, txErr = tx.ExecContext(ctx, `
				INSERT INTO audit_course_results (
					batch_id, course_id, course_name,
					published_pages, classic_quizzes, new_quizzes, other_assignments, discussions, active_students,
					quiz_engagement, assignment_engagement, discussion_engagement,
					duration_ms, created_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				batchID, r.CourseID, r.CourseName,
				r.PublishedPages, r.ClassicQuizzes, r.NewQuizzes, r.OtherAssignments, r.Discussions, r.ActiveStudents,
				r.QuizEngagement, r.AssignmentEngagement, r.DiscussionEngagement,
				r.DurationMS, created.UTC())
			if txErr != nil {
				rollback(tx, txErr)
				return txErr
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to upsert result for course %d: %w", r.CourseID, err)
	}
	return nil
}

// GetResults returns a batch's results ordered by course id.
func (db *DB) GetResults(ctx context.Context, batchID string) (results []*models.CourseAuditResult, err error) {
	defer func(start time.Time) { observe("get_results", start, err) }(time.Now())
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM audit_course_results WHERE batch_id = ? ORDER BY course_id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for batch %s: %w", batchID, err)
	}
	defer rows.Close()

	results = make([]*models.CourseAuditResult, 0)
	for rows.Next() {
		r, scanErr := scanResult(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan result: %w", scanErr)
		}
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// GetStandaloneResult returns the latest standalone result for a course.
func (db *DB) GetStandaloneResult(ctx context.Context, courseID int64) (r *models.CourseAuditResult, err error) {
	defer func(start time.Time) { observe("get_standalone_result", start, err) }(time.Now())
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM audit_course_results
		WHERE batch_id IS NULL AND course_id = ?
		ORDER BY created_at DESC LIMIT 1`, courseID)
	r, err = scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("standalone result for course %d: %w", courseID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get standalone result for course %d: %w", courseID, err)
	}
	return r, nil
}

func scanResult(row rowScanner) (*models.CourseAuditResult, error) {
	var (
		r       models.CourseAuditResult
		batchID sql.NullString
	)
	if err := row.Scan(&batchID, &r.CourseID, &r.CourseName,
		&r.PublishedPages, &r.ClassicQuizzes, &r.NewQuizzes, &r.OtherAssignments, &r.Discussions, &r.ActiveStudents,
		&r.QuizEngagement, &r.AssignmentEngagement, &r.DiscussionEngagement,
		&r.DurationMS, &r.CreatedAt); err != nil {
		return nil, err
	}
	if batchID.Valid {
		id := batchID.String
		r.BatchID = &id
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
