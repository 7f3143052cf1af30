// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
	"github.com/tomtom215/coursescope/internal/models"
)

// Task is one course audit. BatchID is nil for standalone audits.
type Task struct {
	BatchID  *string
	CourseID int64
}

// Run audits the task's course and stamps the result with the batch id, the
// course name, the elapsed time and the creation time. The course name is
// best effort: a failed metadata fetch is logged and the name left empty.
func (a *Aggregator) Run(ctx context.Context, task Task) (*models.CourseAuditResult, error) {
	if task.BatchID != nil {
		ctx = logging.ContextWithBatchID(ctx, *task.BatchID)
	}
	start := time.Now()

	result, err := a.Audit(ctx, task.CourseID)
	elapsed := time.Since(start)
	metrics.RecordAudit(elapsed, err)

	if err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Int64("course_id", task.CourseID).
			Dur("duration", elapsed).
			Str("outcome", "failure").
			Msg("course audit failed")
		return nil, err
	}

	if course, cerr := a.src.Course(ctx, task.CourseID); cerr != nil {
		logging.Ctx(ctx).Debug().Err(cerr).Int64("course_id", task.CourseID).Msg("course name unavailable")
	} else {
		result.CourseName = course.Name
	}

	result.BatchID = task.BatchID
	result.DurationMS = elapsed.Milliseconds()
	result.CreatedAt = time.Now().UTC()

	logging.Ctx(ctx).Info().
		Int64("course_id", task.CourseID).
		Dur("duration", elapsed).
		Str("outcome", "success").
		Int("active_students", result.ActiveStudents).
		Msg("course audit completed")
	return result, nil
}
