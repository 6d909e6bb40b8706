package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// Subscriber implements ports.ClickSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeClicks delivers click events to handler. Messages that do not
// decode are terminated; handler errors are redelivered up to MaxDeliver.
func (s *Subscriber) SubscribeClicks(ctx context.Context, handler func(ctx context.Context, event *domain.ClickEvent) error) error {
	sub, err := s.js.Subscribe(clickSubjects, func(msg *nats.Msg) {
		event, err := decodeClick(msg.Data)
		if err != nil {
			slog.Warn("dropping undecodable click", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.BindStream(ClickStream),
		nats.Durable(clickDurable),
		nats.ManualAck(),
		nats.MaxDeliver(5),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func decodeClick(data []byte) (*domain.ClickEvent, error) {
	var event domain.ClickEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.LocationID == "" {
		return nil, fmt.Errorf("click without location_id")
	}
	return &event, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
