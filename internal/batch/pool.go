// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package batch

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
)

// ErrPoolStopped is returned by Enqueue once the pool has shut down.
var ErrPoolStopped = errors.New("worker pool stopped")

// job is one course audit inside a batch.
type job struct {
	batchID  string
	courseID int64
}

// Pool runs jobs on a fixed number of workers. It implements suture.Service.
//
// When the serving context ends, workers finish their current job, and jobs
// still queued are handed to the handler with the cancelled context so they
// can settle as failed.
type Pool struct {
	workers int
	queue   chan job
	handle  func(ctx context.Context, j job)

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
	once    sync.Once
}

func newPool(workers, queueSize int, handle func(ctx context.Context, j job)) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		workers: workers,
		queue:   make(chan job, queueSize),
		handle:  handle,
		done:    make(chan struct{}),
	}
}

// Enqueue blocks until the job is queued, ctx ends, or the pool stops.
func (p *Pool) Enqueue(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- j:
		metrics.BatchJobsQueued.Inc()
		return nil
	case <-p.done:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped reports whether the pool has shut down and rejects new jobs.
func (p *Pool) Stopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// Serve runs the workers until ctx is cancelled.
func (p *Pool) Serve(ctx context.Context) error {
	logging.Info().Int("workers", p.workers).Int("queue_size", cap(p.queue)).Msg("worker pool started")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}
	wg.Wait()

	p.stop()
	drained := p.drain(ctx)
	logging.Info().Int("drained", drained).Msg("worker pool stopped")
	return ctx.Err()
}

func (p *Pool) work(ctx context.Context) {
	for {
		// Stop takes priority over picking up more work.
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case j := <-p.queue:
			metrics.BatchJobsQueued.Dec()
			metrics.WorkersBusy.Inc()
			p.handle(ctx, j)
			metrics.WorkersBusy.Dec()
		}
	}
}

// stop rejects new jobs. Blocked Enqueue calls are released via done before
// the write lock is taken.
func (p *Pool) stop() {
	p.once.Do(func() { close(p.done) })
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

// drain hands every queued job to the handler with the cancelled context.
func (p *Pool) drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case j := <-p.queue:
			metrics.BatchJobsQueued.Dec()
			p.handle(ctx, j)
			n++
		default:
			return n
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (p *Pool) String() string {
	return "audit-worker-pool"
}
