package postgres

import (
	"context"
	"fmt"

	"github.com/pawcircle/nearby/internal/core/domain"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetLocation(ctx context.Context, userID int64) (*domain.UserLocation, error) {
	var (
		loc      = domain.UserLocation{UserID: userID}
		lng, lat *float64
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT lng, lat, community_id FROM users WHERE id = $1
	`, userID).Scan(&lng, &lat, &loc.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, translate(err))
	}
	loc.Location = point(lng, lat)
	return &loc, nil
}

func (r *UserRepo) SetCommunity(ctx context.Context, userID int64, communityID *int64) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET community_id = $2 WHERE id = $1`, userID, communityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}
