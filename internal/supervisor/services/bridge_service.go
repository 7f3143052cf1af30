// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package services

import "context"

// BridgeRunner is satisfied by *events.Bridge.
type BridgeRunner interface {
	Serve(ctx context.Context) error
}

// BridgeService forwards bus events to websocket clients. Subscription
// failures return an error so suture restarts the bridge.
type BridgeService struct {
	bridge BridgeRunner
}

// NewBridgeService wraps bridge.
func NewBridgeService(bridge BridgeRunner) *BridgeService {
	return &BridgeService{bridge: bridge}
}

// Serve implements suture.Service.
func (b *BridgeService) Serve(ctx context.Context) error {
	return b.bridge.Serve(ctx)
}

func (b *BridgeService) String() string {
	return "event-bridge"
}
