package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and ensures the STREET_SCORES stream exists.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRescoreRequests delivers each rescore request to handler once;
// handler errors are redelivered up to three times.
func (s *Subscriber) SubscribeRescoreRequests(ctx context.Context, handler func(ctx context.Context, reason string) error) error {
	sub, err := s.js.Subscribe(SubjectRescoreRequest, func(msg *nats.Msg) {
		var req RescoreRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Warn("discarding malformed rescore request", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, req.Reason); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(rescoreDurable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverNew(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
