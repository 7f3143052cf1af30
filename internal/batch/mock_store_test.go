// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/coursescope/internal/audit"
	"github.com/tomtom215/coursescope/internal/canvas"
	"github.com/tomtom215/coursescope/internal/models"
)

type resultKey struct {
	batchID  string
	courseID int64
}

// mockStore is an in-memory Store that records every batch snapshot written.
type mockStore struct {
	mu      sync.Mutex
	batches map[string]*models.AuditBatch
	results map[resultKey]*models.CourseAuditResult
	writes  []*models.AuditBatch

	failCreate error
	failUpdate error
	failUpsert map[int64]error
}

func newMockStore() *mockStore {
	return &mockStore{
		batches:    make(map[string]*models.AuditBatch),
		results:    make(map[resultKey]*models.CourseAuditResult),
		failUpsert: make(map[int64]error),
	}
}

func (s *mockStore) CreateBatch(_ context.Context, b *models.AuditBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	s.batches[b.ID] = b.Clone()
	return nil
}

func (s *mockStore) UpdateBatch(_ context.Context, b *models.AuditBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return s.failUpdate
	}
	if _, ok := s.batches[b.ID]; !ok {
		return fmt.Errorf("update batch %s: %w", b.ID, models.ErrNotFound)
	}
	s.batches[b.ID] = b.Clone()
	s.writes = append(s.writes, b.Clone())
	return nil
}

func (s *mockStore) GetBatch(_ context.Context, id string) (*models.AuditBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return b.Clone(), nil
}

func (s *mockStore) ListBatches(_ context.Context, limit int) ([]*models.AuditBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AuditBatch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *mockStore) DeleteBatch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.batches, id)
	for k := range s.results {
		if k.batchID == id {
			delete(s.results, k)
		}
	}
	return nil
}

func (s *mockStore) UpsertResult(_ context.Context, r *models.CourseAuditResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failUpsert[r.CourseID]; err != nil {
		return err
	}
	key := resultKey{courseID: r.CourseID}
	if r.BatchID != nil {
		key.batchID = *r.BatchID
	}
	cp := *r
	s.results[key] = &cp
	return nil
}

func (s *mockStore) GetResults(_ context.Context, batchID string) ([]*models.CourseAuditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CourseAuditResult
	for k, r := range s.results {
		if k.batchID == batchID && batchID != "" {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (s *mockStore) GetStandaloneResult(_ context.Context, courseID int64) (*models.CourseAuditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[resultKey{courseID: courseID}]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *mockStore) Ping(context.Context) error { return nil }
func (s *mockStore) Close() error               { return nil }

func (s *mockStore) snapshotWrites() []*models.AuditBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AuditBatch(nil), s.writes...)
}

func (s *mockStore) setFailUpdate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdate = err
}

func (s *mockStore) storedBatch(id string) (*models.AuditBatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (s *mockStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *mockStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// mockAuditor fails the courses listed in fail and can block until released.
type mockAuditor struct {
	mu    sync.Mutex
	calls []audit.Task
	fail  map[int64]error
	block chan struct{}
}

func (a *mockAuditor) Run(ctx context.Context, task audit.Task) (*models.CourseAuditResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, task)
	err := a.fail[task.CourseID]
	block := a.block
	a.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &models.CourseAuditResult{
		BatchID:        task.BatchID,
		CourseID:       task.CourseID,
		CourseName:     fmt.Sprintf("Course %d", task.CourseID),
		ActiveStudents: 10,
	}, nil
}

func (a *mockAuditor) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.BatchEvent
}

func (p *recordingPublisher) PublishBatchEvent(_ context.Context, e models.BatchEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) byType(typ string) []models.BatchEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.BatchEvent
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

var errUpstream500 = &canvas.UpstreamError{StatusCode: 500, URL: "https://canvas.example.edu/api/v1/courses/2/pages"}

var errBoom = errors.New("boom")
