package ports

import (
	"context"

	"github.com/pawcircle/nearby/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishCommunityAssigned(ctx context.Context, event *domain.AssignmentEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeOrderCreated(ctx context.Context, handler func(ctx context.Context, orderID int64) error) error
	SubscribeUserLocated(ctx context.Context, handler func(ctx context.Context, userID int64) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ReassignmentScheduler starts a background pass that re-evaluates the
// community of every open order.
type ReassignmentScheduler interface {
	ScheduleReassignment(ctx context.Context, reason string) error
}
