// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package canvas is the upstream client for the Canvas LMS REST API.

The client harvests paginated collections by following the RFC 5988 Link
header that Canvas returns on every list endpoint:

	Link: <https://canvas.example.edu/api/v1/courses/1/pages?page=2&per_page=100>; rel="next",
	      <https://canvas.example.edu/api/v1/courses/1/pages?page=1&per_page=100>; rel="first"

Every page request is paced by a per-collection limiter (one page per
PageDelay) and, optionally, by a client-wide limiter shared by all concurrent
course audits. Transient failures (HTTP 429, 5xx and transport timeouts) are
retried with exponential backoff, honoring Retry-After. All requests pass
through a circuit breaker named "canvas" that opens after a sustained failure
rate so that a degraded Canvas instance is not hammered by every worker.

Failures are reported as *UpstreamError. Partial pages are never returned.

Typed accessors decode the collections the course auditor needs:

	client, err := canvas.NewClient(&cfg.Canvas)
	if err != nil {
	    return err // *models.ConfigurationError
	}
	quizzes, err := client.Quizzes(ctx, courseID)

Diagnostics (TestConnection, ProbeCourse) bypass retries and the breaker.
*/
package canvas
