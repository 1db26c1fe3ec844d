package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/ports"
	"github.com/pawcircle/nearby/internal/core/usecases"
)

func newCommunityService(repo *mockCommunityRepo, cache *memCache, sched *mockScheduler) *usecases.CommunityService {
	var c ports.CacheService
	if cache != nil {
		c = cache
	}
	var s ports.ReassignmentScheduler
	if sched != nil {
		s = sched
	}
	return usecases.NewCommunityService(repo, c, s, matching.New(matching.EarthRadiusKm))
}

func TestCommunityService_Create(t *testing.T) {
	var stored *domain.Community
	repo := &mockCommunityRepo{
		createFn: func(ctx context.Context, c *domain.Community) error {
			c.ID = 12
			c.CreatedAt = time.Now()
			stored = c
			return nil
		},
	}
	sched := &mockScheduler{}
	svc := newCommunityService(repo, nil, sched)

	c, err := svc.Create(context.Background(), "  Casco Viejo ", domain.BoundingBox{MinLng: -2.93, MaxLng: -2.92, MinLat: 43.25, MaxLat: 43.26})
	require.NoError(t, err)
	assert.Equal(t, int64(12), c.ID)
	assert.Equal(t, "Casco Viejo", stored.Name)
	assert.True(t, stored.Active)
	assert.Equal(t, []string{"community 12 created"}, sched.reasons)
}

func TestCommunityService_Create_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		cname  string
		bounds domain.BoundingBox
	}{
		{"empty name", " ", domain.BoundingBox{MinLng: 0, MaxLng: 1, MinLat: 0, MaxLat: 1}},
		{"min lng above max", "a", domain.BoundingBox{MinLng: 2, MaxLng: 1, MinLat: 0, MaxLat: 1}},
		{"min lat above max", "a", domain.BoundingBox{MinLng: 0, MaxLng: 1, MinLat: 2, MaxLat: 1}},
		{"corner out of range", "a", domain.BoundingBox{MinLng: 0, MaxLng: 1, MinLat: 0, MaxLat: 91}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &mockCommunityRepo{createFn: func(ctx context.Context, c *domain.Community) error {
				called = true
				return nil
			}}
			_, err := newCommunityService(repo, nil, nil).Create(context.Background(), tt.cname, tt.bounds)
			assert.ErrorIs(t, err, domain.ErrInvalidCommunity)
			assert.False(t, called, "repository must not be called")
		})
	}
}

func TestCommunityService_List_ClampsLimit(t *testing.T) {
	repo := &mockCommunityRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.Community, int, error) {
			assert.Equal(t, 0, offset)
			assert.Equal(t, 20, limit)
			return []domain.Community{community(1, 0, 1, 0, 1)}, 1, nil
		},
	}
	communities, total, err := newCommunityService(repo, nil, nil).List(context.Background(), -5, 1000)
	require.NoError(t, err)
	assert.Len(t, communities, 1)
	assert.Equal(t, 1, total)
}

func TestCommunityService_Locate(t *testing.T) {
	calls := 0
	repo := &mockCommunityRepo{
		listActiveFn: func(ctx context.Context) ([]domain.Community, error) {
			calls++
			return []domain.Community{community(1, 0, 10, 0, 10), community(2, 5, 15, 5, 15)}, nil
		},
	}
	cache := newMemCache()
	svc := newCommunityService(repo, cache, nil)

	c, ok, err := svc.Locate(context.Background(), domain.Point{Lng: 7, Lat: 7})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), c.ID, "overlap resolves to the lower id")

	_, ok, err = svc.Locate(context.Background(), domain.Point{Lng: 20, Lat: 20})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls, "second lookup served from cache")

	_, _, err = svc.Locate(context.Background(), domain.Point{Lng: 0, Lat: 91})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestCommunityService_SetActive_InvalidatesAndSchedules(t *testing.T) {
	active := []domain.Community{community(1, 0, 10, 0, 10)}
	repo := &mockCommunityRepo{
		listActiveFn: func(ctx context.Context) ([]domain.Community, error) { return active, nil },
		setActiveFn: func(ctx context.Context, id int64, a bool) error {
			if id != 1 {
				return domain.ErrNotFound
			}
			active = nil
			return nil
		},
	}
	cache := newMemCache()
	sched := &mockScheduler{}
	svc := newCommunityService(repo, cache, sched)

	_, ok, err := svc.Locate(context.Background(), domain.Point{Lng: 5, Lat: 5})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.SetActive(context.Background(), 1, false))
	assert.Equal(t, []string{"community 1 active=false"}, sched.reasons)

	_, ok, err = svc.Locate(context.Background(), domain.Point{Lng: 5, Lat: 5})
	require.NoError(t, err)
	assert.False(t, ok)

	err = svc.SetActive(context.Background(), 99, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, sched.reasons, 1)
}
