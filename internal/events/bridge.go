// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/models"
)

// Broadcaster receives decoded batch events. Satisfied by *websocket.Hub.
type Broadcaster interface {
	BroadcastBatchEvent(event models.BatchEvent)
}

// Bridge forwards in-process batch events to a Broadcaster. It implements
// suture.Service.
type Bridge struct {
	sub message.Subscriber
	out Broadcaster
}

// NewBridge creates a bridge from sub to out.
func NewBridge(sub message.Subscriber, out Broadcaster) *Bridge {
	return &Bridge{sub: sub, out: out}
}

// Serve subscribes to both batch topics and forwards until ctx ends.
func (b *Bridge) Serve(ctx context.Context) error {
	progress, err := b.sub.Subscribe(ctx, TopicBatchProgress)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicBatchProgress, err)
	}
	finished, err := b.sub.Subscribe(ctx, TopicBatchFinished)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicBatchFinished, err)
	}

	logging.Info().Msg("event bridge started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("event bridge stopped")
			return ctx.Err()
		case msg, ok := <-progress:
			if !ok {
				return b.closed(ctx, TopicBatchProgress)
			}
			b.forward(msg)
		case msg, ok := <-finished:
			if !ok {
				return b.closed(ctx, TopicBatchFinished)
			}
			b.forward(msg)
		}
	}
}

// closed reports a subscription channel closing. Cancellation closes the
// channels too, so ctx is checked first.
func (b *Bridge) closed(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%s subscription closed", topic)
}

// forward decodes and hands over one message. Undecodable messages are acked
// and dropped so they are not redelivered.
func (b *Bridge) forward(msg *message.Message) {
	defer msg.Ack()

	var event models.BatchEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable batch event")
		return
	}
	b.out.BroadcastBatchEvent(event)
}

// String implements fmt.Stringer for suture logging.
func (b *Bridge) String() string {
	return "event-bridge"
}
