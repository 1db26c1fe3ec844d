package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/usecases"
)

// Pinger is a backing service that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Nearby      *usecases.NearbyService
	Communities *usecases.CommunityService
	Assignments *usecases.AssignmentService
	Matcher     *matching.Matcher
	Auth        *TokenVerifier
	NATS        *nats.Conn
	DB          Pinger
	Cache       Pinger
}
