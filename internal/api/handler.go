// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package api

import (
	"context"
	"time"

	"github.com/tomtom215/coursescope/internal/batch"
	"github.com/tomtom215/coursescope/internal/cache"
	"github.com/tomtom215/coursescope/internal/canvas"
	"github.com/tomtom215/coursescope/internal/config"
	"github.com/tomtom215/coursescope/internal/models"
	ws "github.com/tomtom215/coursescope/internal/websocket"
)

// BatchService is the subset of *batch.Orchestrator the handlers use.
type BatchService interface {
	Submit(ctx context.Context, courseIDs []int64) (*models.AuditBatch, error)
	Batch(ctx context.Context, id string) (*models.AuditBatch, error)
	Progress(ctx context.Context, id string) (models.Progress, error)
	Results(ctx context.Context, id string) ([]*models.CourseAuditResult, error)
	ListBatches(ctx context.Context, limit int) ([]*models.AuditBatch, error)
	DeleteBatch(ctx context.Context, id string) error
	RunCourse(ctx context.Context, courseID int64) (*models.CourseAuditResult, error)
	RunMany(ctx context.Context, courseIDs []int64) ([]batch.RunOutcome, error)
	StandaloneResult(ctx context.Context, courseID int64) (*models.CourseAuditResult, error)
	Ping(ctx context.Context) error
}

// Diagnostics is the subset of *canvas.Client used by the debug and outline
// endpoints.
type Diagnostics interface {
	BaseURL() string
	TestConnection(ctx context.Context) canvas.ConnectionReport
	ProbeCourse(ctx context.Context, courseID int64) canvas.CourseProbe
	Outline(ctx context.Context, courseID int64) ([]canvas.ModuleOutline, error)
}

var (
	_ BatchService = (*batch.Orchestrator)(nil)
	_ Diagnostics  = (*canvas.Client)(nil)
)

const (
	outlineCacheSize = 256
	outlineCacheTTL  = time.Minute
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	batches   BatchService
	canvas    Diagnostics
	wsHub     *ws.Hub
	config    *config.Config
	outlines  *cache.LRU[[]canvas.ModuleOutline]
	startTime time.Time
}

// NewHandler builds a Handler. wsHub may be nil, in which case /ws answers
// 503.
func NewHandler(batches BatchService, diag Diagnostics, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		batches:   batches,
		canvas:    diag,
		wsHub:     wsHub,
		config:    cfg,
		outlines:  cache.NewLRU[[]canvas.ModuleOutline](outlineCacheSize, outlineCacheTTL),
		startTime: time.Now(),
	}
}
