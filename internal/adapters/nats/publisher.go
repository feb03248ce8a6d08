package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/streetrisk/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	now  func() time.Time
}

// NewPublisher connects to NATS and ensures the STREET_SCORES stream exists.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js, now: time.Now}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"streets.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist; update it
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

func (p *Publisher) PublishStreetsScored(ctx context.Context, summary domain.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectStreetsScored, data, nats.Context(ctx), nats.MsgId(summary.RunID))
	return err
}

func (p *Publisher) PublishRescoreRequest(ctx context.Context, reason string) error {
	data, err := json.Marshal(RescoreRequest{Reason: reason, RequestedAt: p.now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectRescoreRequest, data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
