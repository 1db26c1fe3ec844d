package ports

import (
	"context"

	"github.com/pawcircle/nearby/internal/core/domain"
)

// CommunityRepository persists communities. Lists are ordered by id so that
// overlapping boxes resolve deterministically.
type CommunityRepository interface {
	List(ctx context.Context, offset, limit int) ([]domain.Community, int, error)
	ListAll(ctx context.Context) ([]domain.Community, error)
	ListActive(ctx context.Context) ([]domain.Community, error)
	GetByID(ctx context.Context, id int64) (*domain.Community, error)
	Create(ctx context.Context, c *domain.Community) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// OrderRepository reads open orders and records their community.
type OrderRepository interface {
	// ListOpenInCommunity returns open orders assigned to communityID.
	ListOpenInCommunity(ctx context.Context, communityID int64) ([]domain.Candidate, error)
	// ListOpenWithin returns open orders whose own point, or community
	// center when they have none, falls inside box.
	ListOpenWithin(ctx context.Context, box domain.BoundingBox) ([]domain.Candidate, error)
	GetByID(ctx context.Context, id int64) (*domain.Candidate, error)
	SetCommunity(ctx context.Context, id int64, communityID *int64) error
	ListOpenIDs(ctx context.Context) ([]int64, error)
}

// UserRepository reads user locations and records their home community.
type UserRepository interface {
	GetLocation(ctx context.Context, userID int64) (*domain.UserLocation, error)
	SetCommunity(ctx context.Context, userID int64, communityID *int64) error
}
