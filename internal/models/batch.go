// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package models

import (
	"slices"
	"time"
)

// BatchStatus is the lifecycle state of an audit batch.
type BatchStatus string

const (
	BatchStatusPending  BatchStatus = "pending"
	BatchStatusRunning  BatchStatus = "running"
	BatchStatusFinished BatchStatus = "finished"
	BatchStatusFailed   BatchStatus = "failed"
)

func (s BatchStatus) String() string { return string(s) }

// IsValid reports whether s is one of the known statuses.
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPending, BatchStatusRunning, BatchStatusFinished, BatchStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is absorbing.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusFinished || s == BatchStatusFailed
}

// CanTransition reports whether moving from s to next is a legal step.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	switch s {
	case BatchStatusPending:
		return next == BatchStatusRunning
	case BatchStatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// AuditBatch is the durable record of one submitted batch.
//
// Invariant: 0 <= FailedJobs <= ProcessedJobs <= TotalJobs.
type AuditBatch struct {
	ID            string      `json:"id"`
	TotalJobs     int         `json:"total_jobs"`
	ProcessedJobs int         `json:"processed_jobs"`
	FailedJobs    int         `json:"failed_jobs"`
	FailedItemIDs []int64     `json:"failed_item_ids"`
	Status        BatchStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	StartedAt     *time.Time  `json:"started_at,omitempty"`
	FinishedAt    *time.Time  `json:"finished_at,omitempty"`
}

// Progress returns the polling snapshot for the batch.
func (b *AuditBatch) Progress() Progress {
	return Progress{
		BatchID:   b.ID,
		Processed: b.ProcessedJobs,
		Failed:    b.FailedJobs,
		Total:     b.TotalJobs,
		Percent:   Percent(b.ProcessedJobs, b.TotalJobs),
		Status:    b.Status,
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (b *AuditBatch) Clone() *AuditBatch {
	c := *b
	c.FailedItemIDs = slices.Clone(b.FailedItemIDs)
	if b.StartedAt != nil {
		t := *b.StartedAt
		c.StartedAt = &t
	}
	if b.FinishedAt != nil {
		t := *b.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// Progress is the snapshot returned to progress-polling callers.
type Progress struct {
	BatchID   string      `json:"batch_id,omitempty"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Total     int         `json:"total"`
	Percent   int         `json:"percent"`
	Status    BatchStatus `json:"status"`
}

// Event types published on the lifecycle bus.
const (
	BatchEventProgress = "batch_progress"
	BatchEventFinished = "batch_finished"
)

// BatchEvent is the payload published whenever a batch's counters change.
type BatchEvent struct {
	Type          string    `json:"type"`
	BatchID       string    `json:"batch_id"`
	CourseID      int64     `json:"course_id,omitempty"`
	Succeeded     bool      `json:"succeeded"`
	Progress      Progress  `json:"progress"`
	FailedItemIDs []int64   `json:"failed_item_ids,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
