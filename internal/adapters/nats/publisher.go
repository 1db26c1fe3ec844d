package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pawcircle/nearby/internal/core/domain"
)

const (
	SubjectOrderCreated      = "orders.created."
	SubjectUserLocated       = "users.located."
	SubjectCommunityAssigned = "community.assigned."

	// NoCommunityToken is the last subject token for subjects left without
	// a community.
	NoCommunityToken = "none"
)

// Streams returns the JetStream streams this service relies on.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "COMMUNITY_ASSIGNMENTS",
			Subjects:  []string{SubjectCommunityAssigned + ">"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "MARKETPLACE_ORDERS",
			Subjects:  []string{SubjectOrderCreated + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "MARKETPLACE_USERS",
			Subjects:  []string{SubjectUserLocated + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	for _, cfg := range Streams() {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishCommunityAssigned publishes on community.assigned.<id|none>. The
// event id doubles as the JetStream dedup id.
func (p *Publisher) PublishCommunityAssigned(ctx context.Context, event *domain.AssignmentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(AssignedSubject(event.CommunityID), data,
		nats.Context(ctx),
		nats.MsgId(event.ID),
	)
	return err
}

// Ping reports whether the connection is up.
func (p *Publisher) Ping() error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats status %s", p.conn.Status())
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// AssignedSubject returns the subject an assignment to communityID is
// published on.
func AssignedSubject(communityID *int64) string {
	if communityID == nil {
		return SubjectCommunityAssigned + NoCommunityToken
	}
	return SubjectCommunityAssigned + strconv.FormatInt(*communityID, 10)
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("pawcircle-nearby"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
