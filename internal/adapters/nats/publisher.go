package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

const (
	// ClickStream holds recorded click events until the recorder acks them.
	ClickStream = "LOCATION_CLICKS"
	// ClickSubjectPrefix is followed by the location ID.
	ClickSubjectPrefix = "clicks.recorded."
	clickSubjects      = ClickSubjectPrefix + ">"
	clickDurable       = "click-recorder"
)

// ClickStreamConfig describes the JetStream stream for click events. maxAge
// should match the trending retention window.
func ClickStreamConfig(maxAge time.Duration) nats.StreamConfig {
	return nats.StreamConfig{
		Name:      ClickStream,
		Subjects:  []string{clickSubjects},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    maxAge,
		Storage:   nats.FileStorage,
	}
}

// Publisher implements ports.ClickPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the click stream exists.
func NewPublisher(url string, maxAge time.Duration) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := ClickStreamConfig(maxAge)
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishClick publishes an event on clicks.recorded.<location id>. The event
// ID doubles as the JetStream message ID so retries are deduplicated.
func (p *Publisher) PublishClick(ctx context.Context, event *domain.ClickEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ClickSubjectPrefix+event.LocationID, data,
		nats.Context(ctx), nats.MsgId(event.ID))
	return err
}

// Conn exposes the underlying connection for health reporting.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// Connect opens a NATS connection that keeps reconnecting.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
