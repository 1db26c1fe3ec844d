package http_test

import (
	"context"
	"errors"

	"github.com/pawcircle/nearby/internal/core/domain"
)

// ---- Mock repositories ----

type mockCommunityRepo struct {
	communities []domain.Community
	createFn    func(ctx context.Context, c *domain.Community) error
}

func (m *mockCommunityRepo) List(ctx context.Context, offset, limit int) ([]domain.Community, int, error) {
	total := len(m.communities)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return m.communities[offset:end], total, nil
}

func (m *mockCommunityRepo) ListAll(ctx context.Context) ([]domain.Community, error) {
	return m.communities, nil
}

func (m *mockCommunityRepo) ListActive(ctx context.Context) ([]domain.Community, error) {
	var out []domain.Community
	for _, c := range m.communities {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCommunityRepo) GetByID(ctx context.Context, id int64) (*domain.Community, error) {
	for _, c := range m.communities {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCommunityRepo) Create(ctx context.Context, c *domain.Community) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	c.ID = int64(len(m.communities) + 1)
	m.communities = append(m.communities, *c)
	return nil
}

func (m *mockCommunityRepo) SetActive(ctx context.Context, id int64, active bool) error {
	for i := range m.communities {
		if m.communities[i].ID == id {
			m.communities[i].Active = active
			return nil
		}
	}
	return domain.ErrNotFound
}

type mockOrderRepo struct {
	orders []domain.Candidate
}

func (m *mockOrderRepo) ListOpenInCommunity(ctx context.Context, communityID int64) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for _, o := range m.orders {
		if o.InCommunity(communityID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListOpenWithin(ctx context.Context, box domain.BoundingBox) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for _, o := range m.orders {
		if o.Location != nil && box.Contains(*o.Location) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Candidate, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockOrderRepo) SetCommunity(ctx context.Context, id int64, communityID *int64) error {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].CommunityID = communityID
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockOrderRepo) ListOpenIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(m.orders))
	for _, o := range m.orders {
		ids = append(ids, o.ID)
	}
	return ids, nil
}

type mockUserRepo struct {
	users map[int64]domain.UserLocation
}

func (m *mockUserRepo) GetLocation(ctx context.Context, userID int64) (*domain.UserLocation, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *mockUserRepo) SetCommunity(ctx context.Context, userID int64, communityID *int64) error {
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.CommunityID = communityID
	m.users[userID] = u
	return nil
}

type mockPublisher struct {
	events []domain.AssignmentEvent
}

func (m *mockPublisher) PublishCommunityAssigned(ctx context.Context, event *domain.AssignmentEvent) error {
	m.events = append(m.events, *event)
	return nil
}

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

var errDown = errors.New("connection refused")

func ptr[T any](v T) *T { return &v }
