// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/coursescope/internal/batch"
	"github.com/tomtom215/coursescope/internal/canvas"
	"github.com/tomtom215/coursescope/internal/models"
)

const testBatchID = "6f1c2a8e-3b4d-4c5e-9f60-718293a4b5c6"

type mockBatches struct {
	mu sync.Mutex

	submitted  [][]int64
	listLimits []int
	runIDs     [][]int64

	submitErr error
	getErr    error
	runErr    error
	deleteErr error
	pingErr   error
}

func (m *mockBatches) Submit(_ context.Context, ids []int64) (*models.AuditBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, ids)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.AuditBatch{
		ID:            testBatchID,
		TotalJobs:     len(ids),
		FailedItemIDs: []int64{},
		Status:        models.BatchStatusRunning,
		CreatedAt:     started,
		StartedAt:     &started,
	}, nil
}

func (m *mockBatches) Batch(_ context.Context, id string) (*models.AuditBatch, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.AuditBatch{ID: id, TotalJobs: 4, ProcessedJobs: 1, Status: models.BatchStatusRunning, FailedItemIDs: []int64{}}, nil
}

func (m *mockBatches) Progress(ctx context.Context, id string) (models.Progress, error) {
	b, err := m.Batch(ctx, id)
	if err != nil {
		return models.Progress{}, err
	}
	return b.Progress(), nil
}

func (m *mockBatches) Results(_ context.Context, id string) ([]*models.CourseAuditResult, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return []*models.CourseAuditResult{
		{BatchID: &id, CourseID: 1},
		{BatchID: &id, CourseID: 2},
	}, nil
}

func (m *mockBatches) ListBatches(_ context.Context, limit int) ([]*models.AuditBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listLimits = append(m.listLimits, limit)
	return []*models.AuditBatch{}, nil
}

func (m *mockBatches) DeleteBatch(context.Context, string) error {
	return m.deleteErr
}

func (m *mockBatches) RunCourse(_ context.Context, courseID int64) (*models.CourseAuditResult, error) {
	if m.runErr != nil {
		return nil, m.runErr
	}
	return &models.CourseAuditResult{CourseID: courseID, ActiveStudents: 10}, nil
}

func (m *mockBatches) RunMany(_ context.Context, ids []int64) ([]batch.RunOutcome, error) {
	m.mu.Lock()
	m.runIDs = append(m.runIDs, ids)
	m.mu.Unlock()

	out := make([]batch.RunOutcome, 0, len(ids))
	for _, id := range ids {
		if id == 13 {
			out = append(out, batch.RunOutcome{CourseID: id, Error: "canvas: status 500"})
			continue
		}
		out = append(out, batch.RunOutcome{CourseID: id, Result: &models.CourseAuditResult{CourseID: id}})
	}
	return out, nil
}

func (m *mockBatches) StandaloneResult(_ context.Context, courseID int64) (*models.CourseAuditResult, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.CourseAuditResult{CourseID: courseID}, nil
}

func (m *mockBatches) Ping(context.Context) error {
	return m.pingErr
}

func (m *mockBatches) lastSubmitted() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.submitted) == 0 {
		return nil
	}
	return m.submitted[len(m.submitted)-1]
}

type mockDiagnostics struct {
	outlineErr   error
	outlineCalls *atomic.Int32
}

func (mockDiagnostics) BaseURL() string { return "https://canvas.example.edu/api/v1" }

func (mockDiagnostics) TestConnection(context.Context) canvas.ConnectionReport {
	return canvas.ConnectionReport{Success: true, StatusCode: 200, URL: "https://canvas.example.edu/api/v1/courses?per_page=1"}
}

func (mockDiagnostics) ProbeCourse(_ context.Context, courseID int64) canvas.CourseProbe {
	return canvas.CourseProbe{
		CourseID:  courseID,
		Endpoints: []canvas.EndpointProbe{{Name: "course", Success: true, StatusCode: 200, Count: 1}},
	}
}

func (m mockDiagnostics) Outline(context.Context, int64) ([]canvas.ModuleOutline, error) {
	if m.outlineCalls != nil {
		m.outlineCalls.Add(1)
	}
	if m.outlineErr != nil {
		return nil, m.outlineErr
	}
	return []canvas.ModuleOutline{{Module: canvas.Module{ID: 1, Name: "Week 1"}}}, nil
}
