// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package models defines the data structures shared across CourseScope.

Key Components:

  - CourseAuditResult: the nine audit metrics for one course, optionally owned by a batch
  - AuditBatch: lifecycle, counters and failed course ids of a submitted batch
  - Progress: the {processed, total, percent, status} snapshot polled by callers
  - BatchEvent: lifecycle event payload published on the event bus
  - APIResponse: standardized HTTP response envelope
  - Error taxonomy: ValidationError, ConfigurationError, PersistenceError, ErrNotFound

Batch status transitions:

	pending -> running -> finished   (every course settled, none failed)
	pending -> running -> failed     (every course settled, at least one failed)

Terminal states are absorbing. The upstream error type lives next to the client
that produces it, in package canvas.
*/
package models
