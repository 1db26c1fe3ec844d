package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/usecases"
)

type assignmentFixture struct {
	orders    map[int64]*domain.Candidate
	users     map[int64]*domain.UserLocation
	publisher *mockPublisher
	svc       *usecases.AssignmentService
}

func newAssignmentFixture() *assignmentFixture {
	f := &assignmentFixture{
		orders:    map[int64]*domain.Candidate{},
		users:     map[int64]*domain.UserLocation{},
		publisher: &mockPublisher{},
	}
	communities := &mockCommunityRepo{
		listActiveFn: func(ctx context.Context) ([]domain.Community, error) {
			return []domain.Community{community(1, 0, 10, 0, 10), community(2, 10, 20, 0, 10)}, nil
		},
	}
	orders := &mockOrderRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.Candidate, error) {
			o, ok := f.orders[id]
			if !ok {
				return nil, domain.ErrNotFound
			}
			cp := *o
			return &cp, nil
		},
		setCommunityFn: func(ctx context.Context, id int64, communityID *int64) error {
			f.orders[id].CommunityID = communityID
			return nil
		},
	}
	users := &mockUserRepo{
		getLocationFn: func(ctx context.Context, id int64) (*domain.UserLocation, error) {
			u, ok := f.users[id]
			if !ok {
				return nil, domain.ErrNotFound
			}
			cp := *u
			return &cp, nil
		},
		setCommunityFn: func(ctx context.Context, id int64, communityID *int64) error {
			f.users[id].CommunityID = communityID
			return nil
		},
	}
	f.svc = usecases.NewAssignmentService(communities, orders, users, f.publisher, matching.New(matching.EarthRadiusKm))
	return f
}

func TestAssignmentService_AssignOrder(t *testing.T) {
	f := newAssignmentFixture()
	f.orders[1] = &domain.Candidate{ID: 1, Location: &domain.Point{Lng: 5, Lat: 5}}

	outcome, err := f.svc.AssignOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, outcome)
	require.NotNil(t, f.orders[1].CommunityID)
	assert.Equal(t, int64(1), *f.orders[1].CommunityID)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, domain.SubjectOrder, ev.Kind)
	assert.Equal(t, int64(1), ev.SubjectID)
	assert.Nil(t, ev.PreviousCommunityID)
	assert.Equal(t, int64(1), *ev.CommunityID)
	_, err = uuid.Parse(ev.ID)
	assert.NoError(t, err)

	// second pass changes nothing and publishes nothing
	outcome, err = f.svc.AssignOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnchanged, outcome)
	assert.Len(t, f.publisher.events, 1)
}

func TestAssignmentService_AssignOrder_LeavesCommunity(t *testing.T) {
	f := newAssignmentFixture()
	f.orders[1] = &domain.Candidate{ID: 1, Location: &domain.Point{Lng: 50, Lat: 5}, CommunityID: ptr(int64(2))}

	outcome, err := f.svc.AssignOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, outcome)
	assert.Nil(t, f.orders[1].CommunityID)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, int64(2), *f.publisher.events[0].PreviousCommunityID)
	assert.Nil(t, f.publisher.events[0].CommunityID)
}

func TestAssignmentService_AssignOrder_WithoutPointKeepsCommunity(t *testing.T) {
	f := newAssignmentFixture()
	f.orders[1] = &domain.Candidate{ID: 1, CommunityID: ptr(int64(2))}

	outcome, err := f.svc.AssignOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, outcome)
	assert.Equal(t, int64(2), *f.orders[1].CommunityID)
	assert.Empty(t, f.publisher.events)
}

func TestAssignmentService_AssignOrder_PublishFailureIsNotFatal(t *testing.T) {
	f := newAssignmentFixture()
	f.publisher.err = errors.New("nats: timeout")
	f.orders[1] = &domain.Candidate{ID: 1, Location: &domain.Point{Lng: 15, Lat: 5}}

	outcome, err := f.svc.AssignOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, outcome)
	assert.Equal(t, int64(2), *f.orders[1].CommunityID)
}

func TestAssignmentService_AssignOrder_Errors(t *testing.T) {
	f := newAssignmentFixture()
	f.orders[2] = &domain.Candidate{ID: 2, Location: &domain.Point{Lng: 5, Lat: 95}}

	_, err := f.svc.AssignOrder(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.AssignOrder(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestAssignmentService_AssignOrders(t *testing.T) {
	f := newAssignmentFixture()
	f.orders[1] = &domain.Candidate{ID: 1, Location: &domain.Point{Lng: 5, Lat: 5}}                                // assigned
	f.orders[2] = &domain.Candidate{ID: 2, Location: &domain.Point{Lng: 15, Lat: 5}, CommunityID: ptr(int64(2))} // unchanged
	f.orders[3] = &domain.Candidate{ID: 3}                                                                         // no point
	f.orders[4] = &domain.Candidate{ID: 4, Location: &domain.Point{Lng: 500, Lat: 5}}                              // corrupt

	sum, err := f.svc.AssignOrders(context.Background(), []int64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, usecases.AssignmentSummary{Assigned: 1, Unchanged: 1, Skipped: 3}, sum)
	assert.Len(t, f.publisher.events, 1)
}

func TestAssignmentService_AssignUser(t *testing.T) {
	f := newAssignmentFixture()
	f.users[7] = &domain.UserLocation{UserID: 7, Location: &domain.Point{Lng: 10, Lat: 10}}

	outcome, err := f.svc.AssignUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAssigned, outcome)
	// (10,10) is a shared corner; the first community wins
	assert.Equal(t, int64(1), *f.users[7].CommunityID)
	assert.Equal(t, domain.SubjectUser, f.publisher.events[0].Kind)

	_, err = f.svc.AssignUser(context.Background(), 8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssignmentSummary_Add(t *testing.T) {
	sum := usecases.AssignmentSummary{Assigned: 1}
	sum.Add(usecases.AssignmentSummary{Assigned: 2, Unchanged: 3, Skipped: 4})
	assert.Equal(t, usecases.AssignmentSummary{Assigned: 3, Unchanged: 3, Skipped: 4}, sum)
}
