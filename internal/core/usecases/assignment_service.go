package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/ports"
	"github.com/pawcircle/nearby/internal/pkg/metrics"
	"github.com/pawcircle/nearby/internal/pkg/telemetry"
)

// AssignmentSummary counts the outcomes of a batch assignment.
type AssignmentSummary struct {
	Assigned  int `json:"assigned"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Add accumulates another summary.
func (a *AssignmentSummary) Add(o AssignmentSummary) {
	a.Assigned += o.Assigned
	a.Unchanged += o.Unchanged
	a.Skipped += o.Skipped
}

func (a *AssignmentSummary) count(o domain.AssignmentOutcome) {
	switch o {
	case domain.OutcomeAssigned:
		a.Assigned++
	case domain.OutcomeUnchanged:
		a.Unchanged++
	default:
		a.Skipped++
	}
}

// AssignmentService keeps the community of orders and users in line with
// their location.
type AssignmentService struct {
	communities ports.CommunityRepository
	orders      ports.OrderRepository
	users       ports.UserRepository
	publisher   ports.EventPublisher
	matcher     *matching.Matcher
	now         func() time.Time
}

// NewAssignmentService creates a new AssignmentService. publisher may be nil.
func NewAssignmentService(
	communities ports.CommunityRepository,
	orders ports.OrderRepository,
	users ports.UserRepository,
	publisher ports.EventPublisher,
	matcher *matching.Matcher,
) *AssignmentService {
	return &AssignmentService{
		communities: communities,
		orders:      orders,
		users:       users,
		publisher:   publisher,
		matcher:     matcher,
		now:         time.Now,
	}
}

// AssignOrder sets the community of an order from its point.
func (s *AssignmentService) AssignOrder(ctx context.Context, orderID int64) (domain.AssignmentOutcome, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAssignOrder)
	defer span.End()
	span.SetAttributes(attribute.Int64(telemetry.AttrSubjectID, orderID))

	communities, err := s.communities.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("list active communities: %w", err)
	}
	outcome, err := s.assignOrder(ctx, orderID, communities)
	span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(outcome)))
	return outcome, err
}

// AssignOrders reassigns a batch of orders against one snapshot of the
// active communities. Missing orders and orders with a corrupt point are
// counted as skipped.
func (s *AssignmentService) AssignOrders(ctx context.Context, orderIDs []int64) (AssignmentSummary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAssignOrderBatch)
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrBatchSize, len(orderIDs)))

	var sum AssignmentSummary
	communities, err := s.communities.ListActive(ctx)
	if err != nil {
		return sum, fmt.Errorf("list active communities: %w", err)
	}

	for _, id := range orderIDs {
		outcome, err := s.assignOrder(ctx, id, communities)
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidCoordinate):
			slog.WarnContext(ctx, "skip order reassignment", "order_id", id, "error", err)
			outcome = domain.OutcomeSkipped
		case err != nil:
			return sum, err
		}
		sum.count(outcome)
	}
	return sum, nil
}

// AssignUser sets the home community of a user from their stored point.
func (s *AssignmentService) AssignUser(ctx context.Context, userID int64) (domain.AssignmentOutcome, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAssignUser)
	defer span.End()
	span.SetAttributes(attribute.Int64(telemetry.AttrSubjectID, userID))

	loc, err := s.users.GetLocation(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %d: %w", userID, err)
	}
	communities, err := s.communities.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("list active communities: %w", err)
	}

	outcome, err := s.assign(ctx, domain.SubjectUser, userID, loc.Location, loc.CommunityID, communities,
		func(id *int64) error { return s.users.SetCommunity(ctx, userID, id) })
	span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(outcome)))
	return outcome, err
}

func (s *AssignmentService) assignOrder(ctx context.Context, orderID int64, communities []domain.Community) (domain.AssignmentOutcome, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("load order %d: %w", orderID, err)
	}
	return s.assign(ctx, domain.SubjectOrder, orderID, order.Location, order.CommunityID, communities,
		func(id *int64) error { return s.orders.SetCommunity(ctx, orderID, id) })
}

// assign persists and announces a community change. A subject without a
// point keeps whatever community it has.
func (s *AssignmentService) assign(
	ctx context.Context,
	kind domain.SubjectKind,
	subjectID int64,
	point *domain.Point,
	current *int64,
	communities []domain.Community,
	persist func(*int64) error,
) (outcome domain.AssignmentOutcome, err error) {
	defer func() {
		if err == nil {
			metrics.CommunityAssignments.WithLabelValues(string(kind), string(outcome)).Inc()
		}
	}()

	if point == nil {
		return domain.OutcomeSkipped, nil
	}
	if err := point.Validate(); err != nil {
		return "", fmt.Errorf("%s %d: %w", kind, subjectID, err)
	}

	var next *int64
	if c, ok := s.matcher.FindCommunity(*point, communities); ok {
		id := c.ID
		next = &id
	}
	if sameCommunity(current, next) {
		return domain.OutcomeUnchanged, nil
	}

	if err := persist(next); err != nil {
		return "", fmt.Errorf("set community of %s %d: %w", kind, subjectID, err)
	}

	if s.publisher != nil {
		event := &domain.AssignmentEvent{
			ID:                  uuid.NewString(),
			Kind:                kind,
			SubjectID:           subjectID,
			PreviousCommunityID: current,
			CommunityID:         next,
			Time:                s.now().UTC(),
		}
		if err := s.publisher.PublishCommunityAssigned(ctx, event); err != nil {
			slog.WarnContext(ctx, "publish community assignment", "kind", kind, "subject_id", subjectID, "error", err)
		}
	}
	return domain.OutcomeAssigned, nil
}

func sameCommunity(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
