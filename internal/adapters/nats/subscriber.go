package natsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStreams(js); err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeOrderCreated calls handler with the id carried in the last token
// of orders.created.<id>.
func (s *Subscriber) SubscribeOrderCreated(ctx context.Context, handler func(ctx context.Context, orderID int64) error) error {
	return s.subscribeID(ctx, SubjectOrderCreated, "community-assigner-orders", handler)
}

// SubscribeUserLocated calls handler with the id carried in the last token
// of users.located.<id>.
func (s *Subscriber) SubscribeUserLocated(ctx context.Context, handler func(ctx context.Context, userID int64) error) error {
	return s.subscribeID(ctx, SubjectUserLocated, "community-assigner-users", handler)
}

func (s *Subscriber) subscribeID(ctx context.Context, prefix, durable string, handler func(ctx context.Context, id int64) error) error {
	sub, err := s.js.Subscribe(prefix+">", func(msg *nats.Msg) {
		id, err := SubjectID(msg.Subject, prefix)
		if err != nil {
			// redelivery cannot fix a malformed subject
			slog.Warn("drop malformed event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, id); err != nil {
			slog.Warn("event handler failed", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubjectID parses the numeric id that follows prefix in subject.
func SubjectID(subject, prefix string) (int64, error) {
	token, ok := strings.CutPrefix(subject, prefix)
	if !ok || token == "" || strings.Contains(token, ".") {
		return 0, fmt.Errorf("subject %q does not match %s<id>", subject, prefix)
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject %q: %w", subject, err)
	}
	return id, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
