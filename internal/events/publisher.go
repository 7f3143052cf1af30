// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/coursescope/internal/batch"
	"github.com/tomtom215/coursescope/internal/config"
	"github.com/tomtom215/coursescope/internal/logging"
	"github.com/tomtom215/coursescope/internal/metrics"
	"github.com/tomtom215/coursescope/internal/models"
)

// Topics.
const (
	TopicBatchProgress = "audit.batch.progress"
	TopicBatchFinished = "audit.batch.finished"
)

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("event publisher closed")

var _ batch.EventPublisher = (*Publisher)(nil)

// TopicFor maps an event type to its topic.
func TopicFor(eventType string) (string, error) {
	switch eventType {
	case models.BatchEventProgress:
		return TopicBatchProgress, nil
	case models.BatchEventFinished:
		return TopicBatchFinished, nil
	default:
		return "", fmt.Errorf("unknown batch event type %q", eventType)
	}
}

// Publisher fans batch events out to the in-process bus and, optionally, NATS.
type Publisher struct {
	local  *gochannel.GoChannel
	remote message.Publisher
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates the in-process bus and, when cfg.NATSURL is set, a
// core NATS publisher.
func NewPublisher(cfg config.EventsConfig) (*Publisher, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		local: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(buffer),
		}, logger),
		logger: logger,
	}

	if cfg.NATSURL != "" {
		remote, err := newNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			_ = p.local.Close()
			return nil, err
		}
		p.remote = remote
		p.cb = newPublishBreaker()
		logging.Info().Str("url", logging.RedactURL(cfg.NATSURL)).Msg("Publishing batch events to NATS")
	}
	return p, nil
}

func newNATSPublisher(url string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	return pub, nil
}

// newPublishBreaker stops hammering an unreachable NATS server.
func newPublishBreaker() *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "nats-publish",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), float64(to))
		},
	})
}

// Subscriber returns the in-process subscriber.
func (p *Publisher) Subscriber() message.Subscriber {
	return p.local
}

// PublishBatchEvent implements batch.EventPublisher. Failures are logged.
func (p *Publisher) PublishBatchEvent(ctx context.Context, event models.BatchEvent) {
	topic, err := TopicFor(event.Type)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("dropping batch event")
		return
	}
	if err := p.Publish(ctx, topic, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Str("batch_id", event.BatchID).Msg("failed to publish batch event")
	}
}

// Publish encodes event and publishes it on topic.
func (p *Publisher) Publish(ctx context.Context, topic string, event models.BatchEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode batch event: %w", err)
	}

	newMessage := func() *message.Message {
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set("batch_id", event.BatchID)
		msg.Metadata.Set("type", event.Type)
		if id := logging.CorrelationIDFromContext(ctx); id != "" {
			msg.Metadata.Set("correlation_id", id)
		}
		return msg
	}

	err = p.local.Publish(topic, newMessage())
	metrics.RecordEventPublish(topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	if p.remote != nil {
		_, rerr := p.cb.Execute(func() (struct{}, error) {
			return struct{}{}, p.remote.Publish(topic, newMessage())
		})
		metrics.RecordEventPublish("nats:"+topic, rerr)
		if rerr != nil {
			return fmt.Errorf("publish %s to nats: %w", topic, rerr)
		}
	}
	return nil
}

// Close shuts down the bus and the NATS publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.remote != nil {
		errs = append(errs, p.remote.Close())
	}
	errs = append(errs, p.local.Close())
	return errors.Join(errs...)
}
