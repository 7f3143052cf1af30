// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

/*
Package batch orchestrates course audits.

A batch is a set of course ids submitted together. Submit validates and
deduplicates the ids, persists the batch, and enqueues one task per course on
a bounded worker pool. Each task audits its course, writes the result keyed by
(batch id, course id), and settles into the batch's tracker.

# Lifecycle

	pending -> running -> finished   (no task failed)
	                   \-> failed    (at least one task failed)

Terminal states are absorbing. The terminal transition happens exactly once,
inside the tracker's critical section, when the processed count reaches the
total. Snapshots are persisted under the same lock, so stored counters never
go backwards.

# Failure isolation

A failed course audit (upstream error, failed result write, cancellation) is
recorded as a failed item and never affects sibling tasks. If the pool is
stopped, tasks still queued or in flight settle as failed, so every batch
reaches a terminal state.

# Standalone mode

RunCourse and RunMany audit synchronously outside any batch. Results are keyed
by course id alone and errors propagate to the caller.
*/
package batch
