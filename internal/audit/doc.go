// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

// Package audit computes the per-course content and engagement metrics.
//
// The Aggregator reads a course through a Source (the Canvas client in
// production) and produces one models.CourseAuditResult:
//
//   - published pages, classic quizzes, New Quizzes, other assignments,
//     active discussion topics and active students;
//   - quiz, assignment and discussion engagement, each defined as the number
//     of distinct responders summed over the items, divided by
//     students x items.
//
// Each upstream collection is fetched at most once per audit. Sub-collection
// fetches (submissions and entries) fan out on an errgroup bounded by the
// configured collection parallelism; the default of 1 keeps the audit fully
// sequential. The first failure cancels the remaining fetches and is returned
// unmodified, so callers can inspect the *canvas.UpstreamError.
//
// The aggregator never persists anything.
package audit
