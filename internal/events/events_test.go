// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/coursescope/internal/config"
	"github.com/tomtom215/coursescope/internal/models"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []models.BatchEvent
}

func (r *recordingBroadcaster) BroadcastBatchEvent(e models.BatchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingBroadcaster) snapshot() []models.BatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.BatchEvent(nil), r.events...)
}

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	p, err := NewPublisher(config.EventsConfig{Buffer: 16})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestTopicFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		eventType string
		want      string
		wantErr   bool
	}{
		{models.BatchEventProgress, TopicBatchProgress, false},
		{models.BatchEventFinished, TopicBatchFinished, false},
		{"batch_exploded", "", true},
	}
	for _, tt := range tests {
		got, err := TopicFor(tt.eventType)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("TopicFor(%q) = %q, %v", tt.eventType, got, err)
		}
	}
}

func TestPublisher_DeliversToSubscriber(t *testing.T) {
	t.Parallel()
	p := newTestPublisher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := p.Subscriber().Subscribe(ctx, TopicBatchFinished)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	event := models.BatchEvent{
		Type:          models.BatchEventFinished,
		BatchID:       "b-9",
		Progress:      models.Progress{BatchID: "b-9", Processed: 2, Failed: 1, Total: 2, Percent: 100, Status: models.BatchStatusFailed},
		FailedItemIDs: []int64{17},
	}
	p.PublishBatchEvent(context.Background(), event)

	var msg *message.Message
	select {
	case msg = <-msgs:
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
	msg.Ack()

	if msg.Metadata.Get("batch_id") != "b-9" || msg.Metadata.Get("type") != models.BatchEventFinished {
		t.Errorf("metadata = %v", msg.Metadata)
	}
	var got models.BatchEvent
	if err := json.Unmarshal(msg.Payload, &got); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if got.Progress.Status != models.BatchStatusFailed || len(got.FailedItemIDs) != 1 || got.FailedItemIDs[0] != 17 {
		t.Errorf("payload = %+v", got)
	}
}

func TestPublisher_Closed(t *testing.T) {
	t.Parallel()
	p := newTestPublisher(t)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Publish(context.Background(), TopicBatchProgress, models.BatchEvent{Type: models.BatchEventProgress}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close = %v, want ErrClosed", err)
	}
	// PublishBatchEvent swallows the error.
	p.PublishBatchEvent(context.Background(), models.BatchEvent{Type: models.BatchEventProgress})
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestBridge_ForwardsBothTopics(t *testing.T) {
	t.Parallel()
	p := newTestPublisher(t)
	out := &recordingBroadcaster{}
	bridge := NewBridge(p.Subscriber(), out)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- bridge.Serve(ctx) }()

	// Publish until the bridge has subscribed and seen the first event.
	deadline := time.Now().Add(2 * time.Second)
	for len(out.snapshot()) == 0 && time.Now().Before(deadline) {
		p.PublishBatchEvent(context.Background(), models.BatchEvent{Type: models.BatchEventProgress, BatchID: "warmup"})
		time.Sleep(10 * time.Millisecond)
	}
	p.PublishBatchEvent(context.Background(), models.BatchEvent{Type: models.BatchEventFinished, BatchID: "done"})

	deadline = time.Now().Add(2 * time.Second)
	found := false
	for !found && time.Now().Before(deadline) {
		for _, e := range out.snapshot() {
			if e.BatchID == "done" && e.Type == models.BatchEventFinished {
				found = true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !found {
		t.Error("finished event not forwarded")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if bridge.String() != "event-bridge" {
		t.Errorf("String() = %q", bridge.String())
	}
}

func TestBridge_DropsUndecodable(t *testing.T) {
	t.Parallel()
	out := &recordingBroadcaster{}
	bridge := NewBridge(nil, out)

	msg := message.NewMessage("1", []byte("{not json"))
	bridge.forward(msg)
	select {
	case <-msg.Acked():
	default:
		t.Error("undecodable message not acked")
	}
	if len(out.snapshot()) != 0 {
		t.Error("undecodable message forwarded")
	}
}
