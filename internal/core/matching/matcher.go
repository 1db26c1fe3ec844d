// Package matching ranks open orders around a requester by community
// affinity and great-circle distance.
//
// Every function here is pure: inputs are only read, outputs are freshly
// allocated, and a Matcher may be shared by any number of goroutines.
package matching

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/pkg/geospatial"
)

// EarthRadiusKm is the sphere radius used by the default configuration.
const EarthRadiusKm = geospatial.EarthRadiusKm

// Matcher performs geospatial matching on a sphere of a fixed radius.
type Matcher struct {
	radiusKm float64
}

// New creates a Matcher for a sphere of the given radius in kilometers.
func New(earthRadiusKm float64) *Matcher {
	return &Matcher{radiusKm: earthRadiusKm}
}

// FindCommunity returns the first active community, in input order, whose
// bounding box contains p. Bounds are inclusive on all four sides.
func (m *Matcher) FindCommunity(p domain.Point, communities []domain.Community) (domain.Community, bool) {
	for _, c := range communities {
		if c.Active && c.Bounds.Contains(p) {
			return c, true
		}
	}
	return domain.Community{}, false
}

// Distance returns the Haversine distance in kilometers between a and b.
func (m *Matcher) Distance(a, b domain.Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return geospatial.Haversine(m.radiusKm, a.Lat, a.Lng, b.Lat, b.Lng), nil
}

// RankNearby returns the candidates whose effective location lies within
// radiusKm of from, sorted by ascending distance then candidate id.
// Candidates of excludeCommunityID, when given, are left out.
//
// requesterCommunityID is accepted so callers can pass the full requester
// context; it does not affect filtering.
func (m *Matcher) RankNearby(
	from domain.Point,
	requesterCommunityID *int64,
	candidates []domain.Candidate,
	communities []domain.Community,
	radiusKm float64,
	excludeCommunityID *int64,
) ([]domain.MatchResult, error) {
	if err := validateRadius(radiusKm); err != nil {
		return nil, err
	}
	if err := from.Validate(); err != nil {
		return nil, fmt.Errorf("requester: %w", err)
	}

	centers := indexCenters(communities)
	var out []domain.MatchResult
	for _, c := range candidates {
		if excludeCommunityID != nil && c.InCommunity(*excludeCommunityID) {
			continue
		}
		res, ok, err := m.measure(from, c, centers)
		if err != nil {
			return nil, err
		}
		if !ok || res.DistanceKm > radiusKm {
			continue
		}
		out = append(out, res)
	}

	sortResults(out)
	return out, nil
}

// RankInCommunity returns the candidates that belong to communityID at any
// distance, sorted by ascending distance then candidate id.
func (m *Matcher) RankInCommunity(
	communityID int64,
	from domain.Point,
	candidates []domain.Candidate,
	communities []domain.Community,
) ([]domain.MatchResult, error) {
	if err := from.Validate(); err != nil {
		return nil, fmt.Errorf("requester: %w", err)
	}

	centers := indexCenters(communities)
	var out []domain.MatchResult
	for _, c := range candidates {
		if !c.InCommunity(communityID) {
			continue
		}
		res, ok, err := m.measure(from, c, centers)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, res)
	}

	sortResults(out)
	return out, nil
}

// CommunityFirst builds the community-first feed: every match in the
// requester's home community (any distance), followed by matches outside it
// within radiusKm. Without a home community only the radius search runs.
// Candidates are deduplicated by id, keeping the first occurrence.
func (m *Matcher) CommunityFirst(
	req domain.Requester,
	candidates []domain.Candidate,
	communities []domain.Community,
	radiusKm float64,
) ([]domain.MatchResult, error) {
	candidates = dedupe(candidates)

	if req.CommunityID == nil {
		nearby, err := m.RankNearby(req.Point, nil, candidates, communities, radiusKm, nil)
		if err != nil {
			return nil, err
		}
		return withSegment(nearby, domain.SegmentNearby), nil
	}

	home, err := m.RankInCommunity(*req.CommunityID, req.Point, candidates, communities)
	if err != nil {
		return nil, err
	}
	nearby, err := m.RankNearby(req.Point, req.CommunityID, candidates, communities, radiusKm, req.CommunityID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MatchResult, 0, len(home)+len(nearby))
	out = append(out, withSegment(home, domain.SegmentInCommunity)...)
	out = append(out, withSegment(nearby, domain.SegmentNearby)...)
	return out, nil
}

// SearchBounds returns a box enclosing every point within radiusKm of p,
// suitable as a coarse storage pre-filter ahead of RankNearby.
func (m *Matcher) SearchBounds(p domain.Point, radiusKm float64) domain.BoundingBox {
	minLat, minLng, maxLat, maxLng := geospatial.BoundingBox(p.Lat, p.Lng, radiusKm, m.radiusKm)
	return domain.BoundingBox{MinLng: minLng, MaxLng: maxLng, MinLat: minLat, MaxLat: maxLat}
}

// Resolve returns the effective location of c: its own point when present,
// else the center of its community. ok is false when neither is known.
func Resolve(c domain.Candidate, communities []domain.Community) (domain.EffectiveLocation, bool) {
	return resolve(c, indexCenters(communities))
}

func resolve(c domain.Candidate, centers map[int64]domain.Point) (domain.EffectiveLocation, bool) {
	if c.Location != nil {
		return domain.EffectiveLocation{Source: domain.SourceOwnPoint, Point: *c.Location}, true
	}
	if c.CommunityID != nil {
		if p, ok := centers[*c.CommunityID]; ok {
			return domain.EffectiveLocation{
				Source:      domain.SourceCommunityCenter,
				Point:       p,
				CommunityID: *c.CommunityID,
			}, true
		}
	}
	return domain.EffectiveLocation{}, false
}

func (m *Matcher) measure(from domain.Point, c domain.Candidate, centers map[int64]domain.Point) (domain.MatchResult, bool, error) {
	loc, ok := resolve(c, centers)
	if !ok {
		return domain.MatchResult{}, false, nil
	}
	if err := loc.Point.Validate(); err != nil {
		return domain.MatchResult{}, false, fmt.Errorf("candidate %d (%s): %w", c.ID, loc.Source, err)
	}
	d := geospatial.Haversine(m.radiusKm, from.Lat, from.Lng, loc.Point.Lat, loc.Point.Lng)
	return domain.MatchResult{Candidate: c, DistanceKm: d, Source: loc.Source}, true, nil
}

func indexCenters(communities []domain.Community) map[int64]domain.Point {
	centers := make(map[int64]domain.Point, len(communities))
	for _, c := range communities {
		if _, seen := centers[c.ID]; !seen {
			centers[c.ID] = c.Center()
		}
	}
	return centers
}

func sortResults(rs []domain.MatchResult) {
	slices.SortFunc(rs, func(a, b domain.MatchResult) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return cmp.Compare(a.Candidate.ID, b.Candidate.ID)
	})
}

func withSegment(rs []domain.MatchResult, s domain.Segment) []domain.MatchResult {
	for i := range rs {
		rs[i].Segment = s
	}
	return rs
}

func dedupe(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[int64]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func validateRadius(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRadius, r)
	}
	return nil
}
