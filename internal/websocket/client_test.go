// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/coursescope/internal/models"
)

func TestClient_Handle(t *testing.T) {
	t.Parallel()

	c := createTestClient(NewHub(1), 4)

	c.handle(inbound{Type: MessageTypeSubscribe, Data: json.RawMessage(`{"batch_id":"b-1"}`)})
	if c.Subscription() != "b-1" {
		t.Errorf("Subscription() = %q, want b-1", c.Subscription())
	}
	if c.wants("b-2") || !c.wants("b-1") || !c.wants("") {
		t.Error("wants() does not honor the subscription")
	}

	c.handle(inbound{Type: MessageTypeSubscribe, Data: json.RawMessage(`not json`)})
	if c.Subscription() != "b-1" {
		t.Error("malformed subscribe changed the subscription")
	}

	c.handle(inbound{Type: MessageTypeUnsubscribe})
	if c.Subscription() != "" || !c.wants("b-2") {
		t.Error("unsubscribe did not clear the filter")
	}

	c.handle(inbound{Type: MessageTypePing})
	if msg := <-c.send; msg.Type != MessageTypePong {
		t.Errorf("ping reply = %+v", msg)
	}
}

// TestClient_EndToEnd drives a real connection through the hub.
func TestClient_EndToEnd(t *testing.T) {
	t.Parallel()
	hub, _ := startHub(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe","data":{"batch_id":"wanted"}}`)); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	// Frames are handled in order, so the pong means the subscription is set.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data models.BatchEvent `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != MessageTypePong {
		t.Fatalf("first frame = %+v, %v; want pong", msg, err)
	}

	hub.BroadcastBatchEvent(progressEvent("other", 1))
	hub.BroadcastBatchEvent(models.BatchEvent{Type: models.BatchEventFinished, BatchID: "wanted"})

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != MessageTypeBatchFinished || msg.Data.BatchID != "wanted" {
		t.Errorf("received %+v, want batch_finished for wanted", msg)
	}
}
