package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/ports"
	"github.com/pawcircle/nearby/internal/pkg/metrics"
	"github.com/pawcircle/nearby/internal/pkg/telemetry"
)

const (
	DefaultNearbyLimit = 50
	MaxNearbyLimit     = 200
)

// NearbyOptions tunes radius handling and caching for nearby searches.
type NearbyOptions struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	CacheTTL        int // seconds; 0 disables caching
}

// NearbyQuery describes a nearby search. Point and CommunityID override the
// stored location of UserID when both are present.
type NearbyQuery struct {
	UserID      *int64
	Point       *domain.Point
	CommunityID *int64
	RadiusKm    float64 // 0 selects the default radius
	Limit       int
}

// NearbyResult is a ranked community-first feed.
type NearbyResult struct {
	Requester domain.Requester     `json:"requester"`
	RadiusKm  float64              `json:"radius_km"`
	Results   []domain.MatchResult `json:"results"`
}

// NearbyService produces the "available nearby services" feed. It fetches
// communities and open orders from storage and hands them to the matcher.
type NearbyService struct {
	communities ports.CommunityRepository
	orders      ports.OrderRepository
	users       ports.UserRepository
	cache       ports.CacheService
	matcher     *matching.Matcher
	opts        NearbyOptions
}

// NewNearbyService creates a new NearbyService. cache may be nil.
func NewNearbyService(
	communities ports.CommunityRepository,
	orders ports.OrderRepository,
	users ports.UserRepository,
	cache ports.CacheService,
	matcher *matching.Matcher,
	opts NearbyOptions,
) *NearbyService {
	return &NearbyService{
		communities: communities,
		orders:      orders,
		users:       users,
		cache:       cache,
		matcher:     matcher,
		opts:        opts,
	}
}

// Find runs a community-first nearby search.
func (s *NearbyService) Find(ctx context.Context, q NearbyQuery) (result *NearbyResult, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanNearbyFind)
	start := time.Now()
	defer func() {
		metrics.NearbyDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCoordinate) {
				metrics.InvalidCoordinates.WithLabelValues("nearby").Inc()
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	radius, err := s.radius(q.RadiusKm)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}
	if limit > MaxNearbyLimit {
		limit = MaxNearbyLimit
	}
	span.SetAttributes(attribute.Float64(telemetry.AttrRadiusKm, radius))

	req, err := s.resolveRequester(ctx, q)
	if err != nil {
		return nil, err
	}

	explicitCommunity := req.CommunityID != nil
	cacheKey := nearbyCacheKey(req, radius)
	snap, hit := s.fromCache(ctx, cacheKey)
	if hit && !explicitCommunity {
		// The home community is located from the exact point, which may sit
		// on the other side of a border than the point the snapshot was
		// fetched for.
		located, ok := s.matcher.FindCommunity(req.Point, snap.Communities)
		if ok != (snap.HomeCommunityID != nil) || (ok && located.ID != *snap.HomeCommunityID) {
			hit = false
		}
	}
	if hit {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		req.CommunityID = snap.HomeCommunityID
	} else {
		communities, candidates, err := s.fetch(ctx, &req, radius)
		if err != nil {
			return nil, err
		}
		snap = &nearbySnapshot{HomeCommunityID: req.CommunityID, Communities: communities, Candidates: candidates}
		s.toCache(ctx, cacheKey, snap)
	}
	communities, candidates := snap.Communities, snap.Candidates
	metrics.NearbyCandidates.Observe(float64(len(candidates)))

	ranked, err := s.matcher.CommunityFirst(req, candidates, communities, radius)
	if err != nil {
		return nil, err
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if ranked == nil {
		ranked = []domain.MatchResult{}
	}
	observeSegments(ranked)

	result = &NearbyResult{Requester: req, RadiusKm: radius, Results: ranked}

	if req.CommunityID != nil {
		span.SetAttributes(attribute.Int64(telemetry.AttrCommunityID, *req.CommunityID))
	}
	span.SetAttributes(
		attribute.Int(telemetry.AttrCandidates, len(candidates)),
		attribute.Int(telemetry.AttrResults, len(ranked)),
	)
	return result, nil
}

func (s *NearbyService) radius(r float64) (float64, error) {
	if r == 0 {
		return s.opts.DefaultRadiusKm, nil
	}
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidRadius, r)
	}
	return math.Min(r, s.opts.MaxRadiusKm), nil
}

// resolveRequester fills in the search origin and home community. The home
// community is left nil here when it must be derived from the point.
func (s *NearbyService) resolveRequester(ctx context.Context, q NearbyQuery) (domain.Requester, error) {
	var req domain.Requester
	var point *domain.Point

	if q.Point != nil {
		if err := q.Point.Validate(); err != nil {
			return req, err
		}
		point = q.Point
	}
	req.CommunityID = q.CommunityID

	if q.UserID != nil && (point == nil || req.CommunityID == nil) {
		loc, err := s.users.GetLocation(ctx, *q.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return req, fmt.Errorf("load user location: %w", err)
		}
		if loc != nil {
			if point == nil && loc.Location != nil {
				if err := loc.Location.Validate(); err != nil {
					return req, fmt.Errorf("stored location of user %d: %w", *q.UserID, err)
				}
				point = loc.Location
			}
			if req.CommunityID == nil {
				req.CommunityID = loc.CommunityID
			}
		}
	}

	if point == nil {
		if req.CommunityID == nil {
			return req, domain.ErrMissingLocation
		}
		c, err := s.communities.GetByID(ctx, *req.CommunityID)
		if err != nil {
			return req, fmt.Errorf("community %d: %w", *req.CommunityID, err)
		}
		center := c.Center()
		point = &center
	}

	req.Point = *point
	return req, nil
}

// fetch loads everything the matcher needs. Orders of the home community
// and orders inside the search box are read concurrently with the
// community list; when the home community is unknown it is located first.
func (s *NearbyService) fetch(ctx context.Context, req *domain.Requester, radius float64) ([]domain.Community, []domain.Candidate, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanNearbyFetch)
	defer span.End()

	var (
		communities []domain.Community
		home        []domain.Candidate
		within      []domain.Candidate
	)
	box := s.matcher.SearchBounds(req.Point, radius+cellPadKm)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		communities, err = s.communities.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("list communities: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		within, err = s.orders.ListOpenWithin(gctx, box)
		if err != nil {
			return fmt.Errorf("list orders within radius: %w", err)
		}
		return nil
	})
	if req.CommunityID != nil {
		id := *req.CommunityID
		g.Go(func() error {
			var err error
			home, err = s.orders.ListOpenInCommunity(gctx, id)
			if err != nil {
				return fmt.Errorf("list orders in community %d: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if req.CommunityID == nil {
		if c, ok := s.matcher.FindCommunity(req.Point, communities); ok {
			id := c.ID
			req.CommunityID = &id
			var err error
			home, err = s.orders.ListOpenInCommunity(ctx, id)
			if err != nil {
				return nil, nil, fmt.Errorf("list orders in community %d: %w", id, err)
			}
		}
	}

	candidates := make([]domain.Candidate, 0, len(home)+len(within))
	candidates = append(candidates, home...)
	candidates = append(candidates, within...)
	return communities, candidates, nil
}

// nearbySnapshot is the cached output of the fetch phase. Ranking is never
// cached; it always runs from the caller's own point.
type nearbySnapshot struct {
	HomeCommunityID *int64             `json:"home_community_id,omitempty"`
	Communities     []domain.Community `json:"communities"`
	Candidates      []domain.Candidate `json:"candidates"`
}

// cellPadKm widens the fetch box so a snapshot covers the search circle of
// any point in its cache cell. Cells are 0.0001 degrees wide.
const cellPadKm = 0.05

func (s *NearbyService) fromCache(ctx context.Context, key string) (*nearbySnapshot, bool) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("nearby").Inc()
		return nil, false
	}
	var snap nearbySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		metrics.CacheMisses.WithLabelValues("nearby").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("nearby").Inc()
	return &snap, true
}

func (s *NearbyService) toCache(ctx context.Context, key string, snap *nearbySnapshot) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	if data, err := json.Marshal(snap); err == nil {
		_ = s.cache.Set(ctx, key, data, s.opts.CacheTTL)
	}
}

// nearbyCacheKey groups origins into ~11 m cells so jittery client
// coordinates share one fetch.
func nearbyCacheKey(req domain.Requester, radius float64) string {
	community := "auto"
	if req.CommunityID != nil {
		community = strconv.FormatInt(*req.CommunityID, 10)
	}
	return fmt.Sprintf("nearby:%.4f:%.4f:%s:%.2f", req.Point.Lat, req.Point.Lng, community, radius)
}

func observeSegments(rs []domain.MatchResult) {
	counts := map[domain.Segment]int{
		domain.SegmentInCommunity: 0,
		domain.SegmentNearby:      0,
	}
	for _, r := range rs {
		counts[r.Segment]++
	}
	for seg, n := range counts {
		metrics.NearbyResults.WithLabelValues(string(seg)).Observe(float64(n))
	}
}
