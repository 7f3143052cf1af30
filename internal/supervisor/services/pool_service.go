// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/coursescope/internal/logging"
)

// Runner is satisfied by *batch.Pool.
type Runner interface {
	Serve(ctx context.Context) error
}

// PoolService runs the audit worker pool. The pool rejects work once it has
// drained, so after its first return the service asks suture not to restart
// it.
type PoolService struct {
	pool Runner
}

// NewPoolService wraps pool.
func NewPoolService(pool Runner) *PoolService {
	return &PoolService{pool: pool}
}

// Serve implements suture.Service.
func (p *PoolService) Serve(ctx context.Context) error {
	err := p.pool.Serve(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	logging.Error().Err(err).Msg("audit worker pool exited before shutdown")
	if err != nil {
		return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
	}
	return suture.ErrDoNotRestart
}

func (p *PoolService) String() string {
	return "audit-worker-pool"
}
