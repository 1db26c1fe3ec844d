package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/pawcircle/nearby/internal/core/domain"
)

var errCacheMiss = errors.New("cache miss")

// --- Mock CommunityRepository ---

type mockCommunityRepo struct {
	listFn       func(ctx context.Context, offset, limit int) ([]domain.Community, int, error)
	listAllFn    func(ctx context.Context) ([]domain.Community, error)
	listActiveFn func(ctx context.Context) ([]domain.Community, error)
	getByIDFn    func(ctx context.Context, id int64) (*domain.Community, error)
	createFn     func(ctx context.Context, c *domain.Community) error
	setActiveFn  func(ctx context.Context, id int64, active bool) error
}

func (m *mockCommunityRepo) List(ctx context.Context, offset, limit int) ([]domain.Community, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockCommunityRepo) ListAll(ctx context.Context) ([]domain.Community, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockCommunityRepo) ListActive(ctx context.Context) ([]domain.Community, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}

func (m *mockCommunityRepo) GetByID(ctx context.Context, id int64) (*domain.Community, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockCommunityRepo) Create(ctx context.Context, c *domain.Community) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return nil
}

func (m *mockCommunityRepo) SetActive(ctx context.Context, id int64, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return nil
}

// --- Mock OrderRepository ---

type mockOrderRepo struct {
	listOpenInCommunityFn func(ctx context.Context, communityID int64) ([]domain.Candidate, error)
	listOpenWithinFn      func(ctx context.Context, box domain.BoundingBox) ([]domain.Candidate, error)
	getByIDFn             func(ctx context.Context, id int64) (*domain.Candidate, error)
	setCommunityFn        func(ctx context.Context, id int64, communityID *int64) error
	listOpenIDsFn         func(ctx context.Context) ([]int64, error)
}

func (m *mockOrderRepo) ListOpenInCommunity(ctx context.Context, communityID int64) ([]domain.Candidate, error) {
	if m.listOpenInCommunityFn != nil {
		return m.listOpenInCommunityFn(ctx, communityID)
	}
	return nil, nil
}

func (m *mockOrderRepo) ListOpenWithin(ctx context.Context, box domain.BoundingBox) ([]domain.Candidate, error) {
	if m.listOpenWithinFn != nil {
		return m.listOpenWithinFn(ctx, box)
	}
	return nil, nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Candidate, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockOrderRepo) SetCommunity(ctx context.Context, id int64, communityID *int64) error {
	if m.setCommunityFn != nil {
		return m.setCommunityFn(ctx, id, communityID)
	}
	return nil
}

func (m *mockOrderRepo) ListOpenIDs(ctx context.Context) ([]int64, error) {
	if m.listOpenIDsFn != nil {
		return m.listOpenIDsFn(ctx)
	}
	return nil, nil
}

// --- Mock UserRepository ---

type mockUserRepo struct {
	getLocationFn  func(ctx context.Context, userID int64) (*domain.UserLocation, error)
	setCommunityFn func(ctx context.Context, userID int64, communityID *int64) error
}

func (m *mockUserRepo) GetLocation(ctx context.Context, userID int64) (*domain.UserLocation, error) {
	if m.getLocationFn != nil {
		return m.getLocationFn(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) SetCommunity(ctx context.Context, userID int64, communityID *int64) error {
	if m.setCommunityFn != nil {
		return m.setCommunityFn(ctx, userID, communityID)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.AssignmentEvent
	err    error
}

func (m *mockPublisher) PublishCommunityAssigned(ctx context.Context, event *domain.AssignmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return m.err
}

// --- Mock ReassignmentScheduler ---

type mockScheduler struct {
	reasons []string
	err     error
}

func (m *mockScheduler) ScheduleReassignment(ctx context.Context, reason string) error {
	m.reasons = append(m.reasons, reason)
	return m.err
}

// --- In-memory CacheService ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func ptr[T any](v T) *T { return &v }

func community(id int64, minLng, maxLng, minLat, maxLat float64) domain.Community {
	return domain.Community{
		ID:     id,
		Name:   "community",
		Bounds: domain.BoundingBox{MinLng: minLng, MaxLng: maxLng, MinLat: minLat, MaxLat: maxLat},
		Active: true,
	}
}
