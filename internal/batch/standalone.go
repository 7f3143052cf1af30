// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package batch

import (
	"context"
	"fmt"

	"github.com/tomtom215/coursescope/internal/audit"
	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/models"
)

// RunOutcome is the result of one course in RunMany. Exactly one of Result
// and Err is set.
type RunOutcome struct {
	CourseID int64                     `json:"course_id"`
	Result   *models.CourseAuditResult `json:"result,omitempty"`
	Err      error                     `json:"-"`
	Error    string                    `json:"error,omitempty"`
}

// RunCourse audits one course synchronously and stores the result keyed by
// course id alone. Upstream and persistence errors are returned.
func (o *Orchestrator) RunCourse(ctx context.Context, courseID int64) (*models.CourseAuditResult, error) {
	if courseID <= 0 {
		return nil, &models.ValidationError{Field: "course_id", Message: fmt.Sprintf("%d is not a positive course id", courseID)}
	}

	result, err := o.auditor.Run(ctx, audit.Task{CourseID: courseID})
	if err != nil {
		return nil, err
	}
	if err := o.store.UpsertResult(ctx, result); err != nil {
		return nil, persistenceError("upsert result", err)
	}
	return result, nil
}

// RunMany audits each course in turn. A failing course is reported in its
// outcome and does not stop the run.
func (o *Orchestrator) RunMany(ctx context.Context, courseIDs []int64) ([]RunOutcome, error) {
	ids, err := normalizeIDs(courseIDs)
	if err != nil {
		return nil, err
	}

	outcomes := make([]RunOutcome, 0, len(ids))
	for _, id := range ids {
		result, err := o.RunCourse(ctx, id)
		out := RunOutcome{CourseID: id, Result: result, Err: err}
		if err != nil {
			out.Error = err.Error()
			logging.Ctx(ctx).Warn().Err(err).Int64("course_id", id).Msg("standalone audit failed")
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// StandaloneResult returns the latest standalone result for a course.
func (o *Orchestrator) StandaloneResult(ctx context.Context, courseID int64) (*models.CourseAuditResult, error) {
	r, err := o.store.GetStandaloneResult(ctx, courseID)
	if err != nil {
		return nil, persistenceError("get standalone result", err)
	}
	return r, nil
}
