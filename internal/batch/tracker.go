// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package batch

import (
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/coursescope/internal/models"
)

// tracker owns the live counters of one running batch.
type tracker struct {
	mu    sync.Mutex
	batch *models.AuditBatch

	// unsaved is set while the terminal snapshot has not reached the store.
	unsaved bool
}

func newTracker(b *models.AuditBatch) *tracker {
	return &tracker{batch: b.Clone()}
}

// settlement is the outcome of recording one task.
type settlement struct {
	snapshot *models.AuditBatch
	terminal bool
	ignored  bool
}

// record applies one task outcome. The caller must hold t.mu.
func (t *tracker) record(courseID int64, failed bool, now time.Time) settlement {
	b := t.batch
	if b.Status.IsTerminal() || b.ProcessedJobs >= b.TotalJobs {
		return settlement{snapshot: b.Clone(), ignored: true}
	}

	b.ProcessedJobs++
	if failed {
		b.FailedJobs++
		if i, found := slices.BinarySearch(b.FailedItemIDs, courseID); !found {
			b.FailedItemIDs = slices.Insert(b.FailedItemIDs, i, courseID)
		}
	}

	terminal := false
	if b.ProcessedJobs == b.TotalJobs {
		b.Status = models.BatchStatusFinished
		if b.FailedJobs > 0 {
			b.Status = models.BatchStatusFailed
		}
		finished := now
		b.FinishedAt = &finished
		terminal = true
	}
	return settlement{snapshot: b.Clone(), terminal: terminal}
}

func (t *tracker) snapshot() *models.AuditBatch {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.batch.Clone()
}

func (t *tracker) needsFlush() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unsaved
}
