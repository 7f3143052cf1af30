// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package models

import (
	"math"
	"time"
)

// CourseAuditResult holds the audit metrics for a single course.
//
// All nine metrics are written as one record. BatchID is nil when the course
// was audited standalone, outside any batch.
type CourseAuditResult struct {
	BatchID    *string `json:"batch_id"`
	CourseID   int64   `json:"course_id"`
	CourseName string  `json:"course_name,omitempty"`

	PublishedPages   int `json:"published_pages"`
	ClassicQuizzes   int `json:"classic_quizzes"`
	NewQuizzes       int `json:"new_quizzes"`
	OtherAssignments int `json:"other_assignments"`
	Discussions      int `json:"discussions"`
	ActiveStudents   int `json:"active_students"`

	QuizEngagement       float64 `json:"quiz_engagement"`
	AssignmentEngagement float64 `json:"assignment_engagement"`
	DiscussionEngagement float64 `json:"discussion_engagement"`

	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Standalone reports whether the result was produced outside a batch.
func (r *CourseAuditResult) Standalone() bool {
	return r.BatchID == nil
}

// EngagementRatio divides responders by students*items, returning 0 when
// either factor is zero.
func EngagementRatio(responders, students, items int) float64 {
	denominator := students * items
	if denominator <= 0 {
		return 0
	}
	return float64(responders) / float64(denominator)
}

// Percent returns round(processed/total*100), or 0 for an empty total.
func Percent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}
