// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/coursescope/internal/audit"
	"github.com/tomtom215/coursescope/internal/config"
	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
	"github.com/tomtom215/coursescope/internal/models"
)

// Auditor runs one course audit.
type Auditor interface {
	Run(ctx context.Context, task audit.Task) (*models.CourseAuditResult, error)
}

var _ Auditor = (*audit.Aggregator)(nil)

// EventPublisher receives batch lifecycle events. Publishing is best effort.
type EventPublisher interface {
	PublishBatchEvent(ctx context.Context, event models.BatchEvent)
}

type nopPublisher struct{}

func (nopPublisher) PublishBatchEvent(context.Context, models.BatchEvent) {}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(o *Orchestrator) { o.events = p }
}

// WithPersistRetry sets the first delay between attempts to store a terminal
// batch snapshot after a failed write. Later attempts double up to one minute.
func WithPersistRetry(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.persistRetry = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator submits batches, runs their tasks and answers progress queries.
type Orchestrator struct {
	store   Store
	auditor Auditor
	events  EventPublisher
	now     func() time.Time
	pool    *Pool

	persistRetry time.Duration

	mu       sync.RWMutex
	trackers map[string]*tracker
}

// NewOrchestrator wires the orchestrator and its worker pool. The pool must
// be served (directly or by a supervisor) for submitted batches to progress.
func NewOrchestrator(store Store, auditor Auditor, cfg config.AuditConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		auditor:  auditor,
		events:   nopPublisher{},
		now:      func() time.Time { return time.Now().UTC() },
		trackers:     make(map[string]*tracker),
		persistRetry: defaultPersistRetry,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.pool = newPool(cfg.Workers, cfg.QueueSize, o.execute)
	return o
}

// Pool returns the worker pool service.
func (o *Orchestrator) Pool() *Pool {
	return o.pool
}

// Submit creates a batch for courseIDs and dispatches one task per distinct
// id. The returned snapshot is taken before any task runs.
func (o *Orchestrator) Submit(ctx context.Context, courseIDs []int64) (*models.AuditBatch, error) {
	ids, err := normalizeIDs(courseIDs)
	if err != nil {
		return nil, err
	}
	if o.pool.Stopped() {
		return nil, ErrPoolStopped
	}

	b := &models.AuditBatch{
		ID:            uuid.NewString(),
		TotalJobs:     len(ids),
		FailedItemIDs: []int64{},
		Status:        models.BatchStatusPending,
		CreatedAt:     o.now(),
	}
	if err := o.store.CreateBatch(ctx, b); err != nil {
		return nil, persistenceError("create batch", err)
	}

	started := o.now()
	b.Status = models.BatchStatusRunning
	b.StartedAt = &started
	if err := o.store.UpdateBatch(ctx, b); err != nil {
		// Nothing will ever dispatch a pending row.
		if derr := o.store.DeleteBatch(context.WithoutCancel(ctx), b.ID); derr != nil {
			logging.Ctx(ctx).Error().Err(derr).Str("batch_id", b.ID).Msg("could not remove unstarted batch")
		}
		return nil, persistenceError("start batch", err)
	}

	snapshot := b.Clone()
	o.mu.Lock()
	o.trackers[b.ID] = newTracker(b)
	o.mu.Unlock()

	metrics.BatchesSubmitted.Inc()
	metrics.ActiveBatches.Inc()
	logging.Ctx(ctx).Info().
		Str("batch_id", b.ID).
		Int("total_jobs", b.TotalJobs).
		Msg("batch submitted")

	for _, id := range ids {
		if err := o.pool.Enqueue(ctx, job{batchID: b.ID, courseID: id}); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("batch_id", b.ID).Int64("course_id", id).Msg("could not enqueue course audit")
			o.settle(ctx, b.ID, id, err)
		}
	}
	return snapshot, nil
}

// execute is the pool handler for one job.
func (o *Orchestrator) execute(ctx context.Context, j job) {
	ctx = logging.ContextWithBatchID(ctx, j.batchID)

	if err := ctx.Err(); err != nil {
		o.settle(ctx, j.batchID, j.courseID, err)
		return
	}

	batchID := j.batchID
	result, err := o.auditor.Run(ctx, audit.Task{BatchID: &batchID, CourseID: j.courseID})
	if err == nil {
		// The result is complete; write it even if the pool is stopping.
		if werr := o.store.UpsertResult(context.WithoutCancel(ctx), result); werr != nil {
			err = persistenceError("upsert result", werr)
			logging.Ctx(ctx).Error().Err(err).Int64("course_id", j.courseID).Msg("could not store course result")
		}
	}
	o.settle(ctx, j.batchID, j.courseID, err)
}

// settle records one task outcome, persists the snapshot, and publishes the
// resulting events. taskErr nil means success.
func (o *Orchestrator) settle(ctx context.Context, batchID string, courseID int64, taskErr error) {
	o.mu.RLock()
	tr := o.trackers[batchID]
	o.mu.RUnlock()
	if tr == nil {
		logging.Ctx(ctx).Error().Str("batch_id", batchID).Int64("course_id", courseID).Msg("settlement for unknown batch")
		return
	}

	tr.mu.Lock()
	s := tr.record(courseID, taskErr != nil, o.now())
	var perr error
	if !s.ignored {
		perr = o.store.UpdateBatch(context.WithoutCancel(ctx), s.snapshot)
		tr.unsaved = s.terminal && perr != nil
	}
	tr.mu.Unlock()

	if s.ignored {
		logging.Ctx(ctx).Warn().Str("batch_id", batchID).Int64("course_id", courseID).Msg("settlement after batch completion ignored")
		return
	}
	if perr != nil {
		logging.Ctx(ctx).Error().Err(perr).Str("batch_id", batchID).Msg("could not persist batch progress")
	}

	event := models.BatchEvent{
		Type:      models.BatchEventProgress,
		BatchID:   batchID,
		CourseID:  courseID,
		Succeeded: taskErr == nil,
		Progress:  s.snapshot.Progress(),
		Timestamp: o.now(),
	}
	o.events.PublishBatchEvent(ctx, event)

	if !s.terminal {
		return
	}
	if perr != nil {
		go o.retryFlush(context.WithoutCancel(ctx), tr)
		return
	}
	o.finalize(ctx, s.snapshot)
}

const (
	defaultPersistRetry = time.Second
	maxPersistRetry     = time.Minute
)

// retryFlush keeps writing the terminal snapshot until it is stored. The
// tracker stays live meanwhile, so reads see the terminal state and the
// batch cannot be deleted.
func (o *Orchestrator) retryFlush(ctx context.Context, tr *tracker) {
	delay := o.persistRetry
	for {
		time.Sleep(delay)
		if o.flush(ctx, tr) {
			return
		}
		delay = min(delay*2, maxPersistRetry)
	}
}

// flush stores a terminal snapshot that failed to persist and finalizes the
// batch. It reports whether nothing is left to write.
func (o *Orchestrator) flush(ctx context.Context, tr *tracker) bool {
	tr.mu.Lock()
	if !tr.unsaved {
		tr.mu.Unlock()
		return true
	}
	snap := tr.batch.Clone()
	err := o.store.UpdateBatch(context.WithoutCancel(ctx), snap)
	if err == nil {
		tr.unsaved = false
	}
	tr.mu.Unlock()

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("batch_id", snap.ID).Msg("could not persist terminal batch state")
		return false
	}
	o.finalize(ctx, snap)
	return true
}

// finalize publishes the terminal event and evicts the tracker.
func (o *Orchestrator) finalize(ctx context.Context, b *models.AuditBatch) {
	o.mu.Lock()
	delete(o.trackers, b.ID)
	o.mu.Unlock()

	metrics.ActiveBatches.Dec()
	metrics.RecordBatchCompleted(b.Status.String())

	o.events.PublishBatchEvent(ctx, models.BatchEvent{
		Type:          models.BatchEventFinished,
		BatchID:       b.ID,
		Progress:      b.Progress(),
		FailedItemIDs: b.FailedItemIDs,
		Timestamp:     o.now(),
	})

	logging.Ctx(ctx).Info().
		Str("batch_id", b.ID).
		Str("status", b.Status.String()).
		Int("processed", b.ProcessedJobs).
		Int("failed", b.FailedJobs).
		Ints64("failed_item_ids", b.FailedItemIDs).
		Msg("batch completed")
}

func (o *Orchestrator) live(id string) *tracker {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.trackers[id]
}

// Progress returns the live counters when the batch runs in this process,
// otherwise the persisted ones.
func (o *Orchestrator) Progress(ctx context.Context, id string) (models.Progress, error) {
	b, err := o.Batch(ctx, id)
	if err != nil {
		return models.Progress{}, err
	}
	return b.Progress(), nil
}

// Batch returns a snapshot of the batch.
func (o *Orchestrator) Batch(ctx context.Context, id string) (*models.AuditBatch, error) {
	if tr := o.live(id); tr != nil {
		if tr.needsFlush() {
			o.flush(ctx, tr)
		}
		return tr.snapshot(), nil
	}
	b, err := o.store.GetBatch(ctx, id)
	if err != nil {
		return nil, persistenceError("get batch", err)
	}
	return b, nil
}

// Results returns the batch's results ordered by course id. While the batch
// runs the list is partial.
func (o *Orchestrator) Results(ctx context.Context, id string) ([]*models.CourseAuditResult, error) {
	if _, err := o.Batch(ctx, id); err != nil {
		return nil, err
	}
	results, err := o.store.GetResults(ctx, id)
	if err != nil {
		return nil, persistenceError("get results", err)
	}
	return results, nil
}

// ListBatches returns up to limit batches, newest first.
func (o *Orchestrator) ListBatches(ctx context.Context, limit int) ([]*models.AuditBatch, error) {
	batches, err := o.store.ListBatches(ctx, limit)
	if err != nil {
		return nil, persistenceError("list batches", err)
	}
	return batches, nil
}

// DeleteBatch removes a batch and its results. Batches running in this
// process cannot be deleted.
func (o *Orchestrator) DeleteBatch(ctx context.Context, id string) error {
	if tr := o.live(id); tr != nil {
		if tr.needsFlush() {
			return &models.ValidationError{Field: "id", Message: "batch state is not yet persisted"}
		}
		return &models.ValidationError{Field: "id", Message: "batch is still running"}
	}
	if err := o.store.DeleteBatch(ctx, id); err != nil {
		return persistenceError("delete batch", err)
	}
	logging.Ctx(ctx).Info().Str("batch_id", id).Msg("batch deleted")
	return nil
}

// ActiveBatches returns the number of batches running in this process.
func (o *Orchestrator) ActiveBatches() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.trackers)
}

// Ping checks the store.
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.store.Ping(ctx)
}

// persistenceError wraps store failures, leaving ErrNotFound and errors that
// are already classified untouched.
func persistenceError(op string, err error) error {
	if errors.Is(err, models.ErrNotFound) || models.IsPersistenceError(err) {
		return err
	}
	return &models.PersistenceError{Op: op, Err: err}
}
