package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/metrics"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
)

// Handler processes one decoded agent event.
type Handler func(ev *model.Event)

// Subscriber consumes agent activity from the bus. NATS delivers into a
// bounded channel and a single worker drains it, so bus I/O never runs the
// event-processing logic on the delivery goroutine. Events are processed
// strictly in delivery order.
type Subscriber struct {
	nc        *nats.Conn
	handler   Handler
	queueSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewSubscriber creates a subscriber feeding handler.
func NewSubscriber(nc *nats.Conn, handler Handler, queueSize int, m *metrics.Metrics, logger *slog.Logger) *Subscriber {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Subscriber{
		nc:        nc,
		handler:   handler,
		queueSize: queueSize,
		logger:    logger,
		metrics:   m,
	}
}

// Run subscribes to all agent subjects and consumes until ctx is cancelled.
// Failure to establish the subscription is returned to the caller and is
// fatal at startup. On shutdown the subscription is stopped first and
// already-queued events are processed before returning, so no in-flight
// window or score update is lost.
func (s *Subscriber) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, s.queueSize)

	sub, err := s.nc.ChanSubscribe(AgentEventsWildcard, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", AgentEventsWildcard, err)
	}
	s.logger.Info("Subscribed to agent events", "subject", AgentEventsWildcard, "queue_size", s.queueSize)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping agent event intake")
			if err := sub.Unsubscribe(); err != nil {
				s.logger.Error("Failed to unsubscribe", "error", err)
			}
			s.drainQueued(msgs)
			s.logger.Info("Agent event subscriber stopped")
			return nil
		case msg := <-msgs:
			s.consume(msg)
		}
	}
}

// drainQueued processes events already buffered at shutdown.
func (s *Subscriber) drainQueued(msgs chan *nats.Msg) {
	for {
		select {
		case msg := <-msgs:
			s.consume(msg)
		default:
			return
		}
	}
}

// consume decodes and processes one message. Any failure, including a panic
// inside rule evaluation, is isolated to this event so the loop keeps
// consuming.
func (s *Subscriber) consume(msg *nats.Msg) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while processing event", "subject", msg.Subject, "panic", r)
		}
	}()

	start := time.Now()

	ev, err := ParseEvent(msg.Subject, msg.Data, start)
	if err != nil {
		s.logger.Debug("Dropping undecodable event", "subject", msg.Subject, "error", err)
		s.metrics.IncEventsInvalid()
		return
	}

	s.handler(ev)

	s.metrics.IncEventsProcessed()
	s.metrics.ObserveEventProcessingDuration(time.Since(start).Seconds())
}
