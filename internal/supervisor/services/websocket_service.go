// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package services

import (
	"context"

	"github.com/tomtom215/coursescope/internal/logging"
)

// ContextHub is satisfied by *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService runs the progress push hub. The hub holds no durable
// state, so suture may restart it freely; clients reconnect.
type WebSocketHubService struct {
	hub ContextHub
}

func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{hub: hub}
}

// Serve implements suture.Service.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	err := w.hub.RunWithContext(ctx)
	if ctx.Err() == nil {
		logging.Warn().AnErr("reason", err).Msg("websocket hub exited early, clients must reconnect")
	}
	return err
}

func (w *WebSocketHubService) String() string { return "websocket-hub" }
