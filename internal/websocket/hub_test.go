// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/models"
)

//nolint:gochecknoinits // keep hub logging out of test output
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func createTestClient(hub *Hub, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, buffer)}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.GetClientCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(time.Second):
		return Message{}, false
	}
}

func progressEvent(batchID string, processed int) models.BatchEvent {
	return models.BatchEvent{
		Type:     models.BatchEventProgress,
		BatchID:  batchID,
		Progress: models.Progress{BatchID: batchID, Processed: processed, Total: 4},
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	t.Parallel()
	hub, _ := startHub(t)

	c := createTestClient(hub, 4)
	hub.Register <- c
	waitForClients(t, hub, 1)

	hub.Unregister <- c
	waitForClients(t, hub, 0)
	if _, ok := <-c.send; ok {
		t.Error("send channel still open after unregister")
	}

	// A second unregister is a no-op.
	hub.Unregister <- c
	waitForClients(t, hub, 0)
}

func TestHub_BroadcastBatchEventRespectsSubscriptions(t *testing.T) {
	t.Parallel()
	hub, _ := startHub(t)

	all := createTestClient(hub, 8)
	followA := createTestClient(hub, 8)
	followA.subscribe("batch-a")
	followB := createTestClient(hub, 8)
	followB.subscribe("batch-b")
	for _, c := range []*Client{all, followA, followB} {
		hub.Register <- c
	}
	waitForClients(t, hub, 3)

	hub.BroadcastBatchEvent(progressEvent("batch-a", 1))
	hub.BroadcastJSON("notice", map[string]string{"hello": "world"})

	msg, ok := receive(t, all)
	if !ok || msg.Type != MessageTypeBatchProgress {
		t.Fatalf("unfiltered client got %+v", msg)
	}
	if ev, ok := msg.Data.(models.BatchEvent); !ok || ev.BatchID != "batch-a" {
		t.Errorf("message data = %#v", msg.Data)
	}
	if msg, _ := receive(t, all); msg.Type != "notice" {
		t.Errorf("unfiltered client second message = %+v", msg)
	}

	if msg, _ := receive(t, followA); msg.Type != MessageTypeBatchProgress {
		t.Errorf("batch-a follower got %+v", msg)
	}
	if msg, _ := receive(t, followA); msg.Type != "notice" {
		t.Errorf("batch-a follower second message = %+v", msg)
	}

	// batch-b follower sees only the untargeted notice.
	if msg, _ := receive(t, followB); msg.Type != "notice" {
		t.Errorf("batch-b follower got %+v, want notice", msg)
	}
}

func TestHub_DropsSlowClients(t *testing.T) {
	t.Parallel()
	hub, _ := startHub(t)

	slow := createTestClient(hub, 1)
	fast := createTestClient(hub, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitForClients(t, hub, 2)

	hub.BroadcastBatchEvent(progressEvent("b", 1))
	hub.BroadcastBatchEvent(progressEvent("b", 2))
	waitForClients(t, hub, 1)

	for i := 1; i <= 2; i++ {
		msg, ok := receive(t, fast)
		if !ok {
			t.Fatalf("fast client missing message %d", i)
		}
		if ev := msg.Data.(models.BatchEvent); ev.Progress.Processed != i {
			t.Errorf("message %d processed = %d, broadcast order not kept", i, ev.Progress.Processed)
		}
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()

	c := createTestClient(hub, 4)
	hub.Register <- c
	waitForClients(t, hub, 1)

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("RunWithContext() = %v, want context.Canceled", err)
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("clients after shutdown = %d", hub.GetClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("client send channel open after shutdown")
	}
	select {
	case <-hub.done:
	default:
		t.Error("done channel not closed")
	}
}

func TestHub_BroadcastQueueFullDrops(t *testing.T) {
	t.Parallel()

	hub := NewHub(1)
	hub.BroadcastJSON("a", nil)
	hub.BroadcastJSON("b", nil)
	if len(hub.broadcast) != 1 {
		t.Errorf("queued = %d, want 1", len(hub.broadcast))
	}
}

func TestMarshalMessage(t *testing.T) {
	t.Parallel()

	data, err := MarshalMessage(Message{Type: MessageTypePong})
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	if string(data) != `{"type":"pong","data":null}` {
		t.Errorf("MarshalMessage() = %s", data)
	}
}
