package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pawcircle/nearby/internal/core/domain"
)

const communityColumns = `id, name, min_lng, max_lng, min_lat, max_lat, active, created_at`

// CommunityRepo implements ports.CommunityRepository.
type CommunityRepo struct {
	db *DB
}

func NewCommunityRepo(db *DB) *CommunityRepo {
	return &CommunityRepo{db: db}
}

func (r *CommunityRepo) List(ctx context.Context, offset, limit int) ([]domain.Community, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM communities`).Scan(&total); err != nil {
		return nil, 0, err
	}

	communities, err := r.query(ctx, `
		SELECT `+communityColumns+`
		FROM communities ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return communities, total, nil
}

func (r *CommunityRepo) ListAll(ctx context.Context) ([]domain.Community, error) {
	return r.query(ctx, `SELECT `+communityColumns+` FROM communities ORDER BY id`)
}

func (r *CommunityRepo) ListActive(ctx context.Context) ([]domain.Community, error) {
	return r.query(ctx, `SELECT `+communityColumns+` FROM communities WHERE active ORDER BY id`)
}

func (r *CommunityRepo) GetByID(ctx context.Context, id int64) (*domain.Community, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+communityColumns+` FROM communities WHERE id = $1`, id)
	c, err := scanCommunity(row)
	if err != nil {
		return nil, fmt.Errorf("community %d: %w", id, translate(err))
	}
	return &c, nil
}

// Create inserts c and fills in its id and creation time.
func (r *CommunityRepo) Create(ctx context.Context, c *domain.Community) error {
	b := c.Bounds
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO communities (name, min_lng, max_lng, min_lat, max_lat, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, c.Name, b.MinLng, b.MaxLng, b.MinLat, b.MaxLat, c.Active).Scan(&c.ID, &c.CreatedAt)
}

func (r *CommunityRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE communities SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("community %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *CommunityRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Community, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var communities []domain.Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}

func scanCommunity(row pgx.Row) (domain.Community, error) {
	var c domain.Community
	err := row.Scan(
		&c.ID, &c.Name,
		&c.Bounds.MinLng, &c.Bounds.MaxLng, &c.Bounds.MinLat, &c.Bounds.MaxLat,
		&c.Active, &c.CreatedAt,
	)
	return c, err
}
