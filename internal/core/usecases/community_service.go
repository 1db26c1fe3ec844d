package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/ports"
	"github.com/pawcircle/nearby/internal/pkg/metrics"
	"github.com/pawcircle/nearby/internal/pkg/telemetry"
)

const activeCommunitiesKey = "communities:active"

// Page size bounds for List.
const (
	DefaultCommunityPage = 20
	MaxCommunityPage     = 100
)

// CommunityService manages communities and locates points inside them.
type CommunityService struct {
	repo      ports.CommunityRepository
	cache     ports.CacheService
	scheduler ports.ReassignmentScheduler
	matcher   *matching.Matcher
}

// NewCommunityService creates a new CommunityService. cache and scheduler
// may be nil.
func NewCommunityService(
	repo ports.CommunityRepository,
	cache ports.CacheService,
	scheduler ports.ReassignmentScheduler,
	matcher *matching.Matcher,
) *CommunityService {
	return &CommunityService{repo: repo, cache: cache, scheduler: scheduler, matcher: matcher}
}

// List returns a page of communities ordered by id and the total count.
func (s *CommunityService) List(ctx context.Context, offset, limit int) ([]domain.Community, int, error) {
	if limit <= 0 || limit > MaxCommunityPage {
		limit = DefaultCommunityPage
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}

// Get returns a single community.
func (s *CommunityService) Get(ctx context.Context, id int64) (*domain.Community, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates and stores a new active community, then schedules a
// reassignment of open orders.
func (s *CommunityService) Create(ctx context.Context, name string, bounds domain.BoundingBox) (*domain.Community, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidCommunity)
	}
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCommunity, err)
	}

	c := &domain.Community{Name: name, Bounds: bounds, Active: true}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create community: %w", err)
	}

	s.invalidate(ctx)
	s.schedule(ctx, fmt.Sprintf("community %d created", c.ID))
	return c, nil
}

// SetActive enables or disables a community.
func (s *CommunityService) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.schedule(ctx, fmt.Sprintf("community %d active=%t", id, active))
	return nil
}

// Active returns the active communities ordered by id.
func (s *CommunityService) Active(ctx context.Context) ([]domain.Community, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, activeCommunitiesKey); err == nil {
			var communities []domain.Community
			if err := json.Unmarshal(data, &communities); err == nil {
				metrics.CacheHits.WithLabelValues("communities").Inc()
				return communities, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("communities").Inc()
	}

	communities, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(communities); err == nil {
			_ = s.cache.Set(ctx, activeCommunitiesKey, data, 60)
		}
	}
	return communities, nil
}

// Locate returns the active community containing p. ok is false when p
// lies outside every community.
func (s *CommunityService) Locate(ctx context.Context, p domain.Point) (*domain.Community, bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCommunityLocate)
	defer span.End()

	if err := p.Validate(); err != nil {
		metrics.InvalidCoordinates.WithLabelValues("locate").Inc()
		return nil, false, err
	}

	communities, err := s.Active(ctx)
	if err != nil {
		return nil, false, err
	}

	c, ok := s.matcher.FindCommunity(p, communities)
	if !ok {
		return nil, false, nil
	}
	return &c, true, nil
}

func (s *CommunityService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeCommunitiesKey); err != nil {
		slog.WarnContext(ctx, "invalidate community cache", "error", err)
	}
}

// schedule failures are logged only; the change itself is already stored
// and the next reassignment pass picks it up.
func (s *CommunityService) schedule(ctx context.Context, reason string) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleReassignment(ctx, reason); err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "schedule community reassignment", "reason", reason, "error", err)
	}
}
