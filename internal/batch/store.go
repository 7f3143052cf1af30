// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package batch

import (
	"context"

	"github.com/tomtom215/coursescope/internal/models"
)

// Store persists batches and course results.
//
// Implementations return models.ErrNotFound (possibly wrapped) for unknown
// batch ids and are safe for concurrent use.
type Store interface {
	CreateBatch(ctx context.Context, b *models.AuditBatch) error
	// UpdateBatch writes a full snapshot.
	UpdateBatch(ctx context.Context, b *models.AuditBatch) error
	GetBatch(ctx context.Context, id string) (*models.AuditBatch, error)
	// ListBatches returns the newest batches first.
	ListBatches(ctx context.Context, limit int) ([]*models.AuditBatch, error)
	// DeleteBatch removes the batch and its results.
	DeleteBatch(ctx context.Context, id string) error

	// UpsertResult inserts or replaces the row keyed by (BatchID, CourseID).
	UpsertResult(ctx context.Context, r *models.CourseAuditResult) error
	// GetResults returns a batch's results ordered by course id.
	GetResults(ctx context.Context, batchID string) ([]*models.CourseAuditResult, error)
	GetStandaloneResult(ctx context.Context, courseID int64) (*models.CourseAuditResult, error)

	Ping(ctx context.Context) error
	Close() error
}
