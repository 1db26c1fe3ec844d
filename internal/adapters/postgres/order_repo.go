package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pawcircle/nearby/internal/core/domain"
)

const orderColumns = `o.id, o.owner_id, o.title, COALESCE(o.service_type, ''), o.reward,
	o.lng, o.lat, o.community_id, o.created_at`

// OrderRepo implements ports.OrderRepository over the marketplace orders
// table. Only orders with status 'open' are candidates.
type OrderRepo struct {
	db *DB
}

func NewOrderRepo(db *DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) ListOpenInCommunity(ctx context.Context, communityID int64) ([]domain.Candidate, error) {
	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.status = 'open' AND o.community_id = $1
		ORDER BY o.id
	`, communityID)
}

// ListOpenWithin is a coarse pre-filter: an order qualifies when its own
// point, or its community center when it has none, lies in box. A point
// with only one coordinate set counts as none, as in scanCandidate.
func (r *OrderRepo) ListOpenWithin(ctx context.Context, box domain.BoundingBox) ([]domain.Candidate, error) {
	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		LEFT JOIN communities c ON c.id = o.community_id
		WHERE o.status = 'open'
		  AND CASE WHEN o.lng IS NOT NULL AND o.lat IS NOT NULL
		           THEN o.lng BETWEEN $1 AND $2 AND o.lat BETWEEN $3 AND $4
		           ELSE (c.min_lng + c.max_lng) / 2 BETWEEN $1 AND $2
		            AND (c.min_lat + c.max_lat) / 2 BETWEEN $3 AND $4
		      END
		ORDER BY o.id
	`, box.MinLng, box.MaxLng, box.MinLat, box.MaxLat)
}

func (r *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Candidate, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id)
	c, err := scanCandidate(row)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", id, translate(err))
	}
	return &c, nil
}

func (r *OrderRepo) SetCommunity(ctx context.Context, id int64, communityID *int64) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE orders SET community_id = $2 WHERE id = $1`, id, communityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *OrderRepo) ListOpenIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id FROM orders WHERE status = 'open' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *OrderRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Candidate, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func scanCandidate(row pgx.Row) (domain.Candidate, error) {
	var (
		c        domain.Candidate
		lng, lat *float64
	)
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.ServiceType, &c.Reward,
		&lng, &lat, &c.CommunityID, &c.CreatedAt,
	)
	c.Location = point(lng, lat)
	return c, err
}

// point returns nil unless both coordinates are set.
func point(lng, lat *float64) *domain.Point {
	if lng == nil || lat == nil {
		return nil
	}
	return &domain.Point{Lng: *lng, Lat: *lat}
}
