//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawcircle/nearby/internal/adapters/postgres"
	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/pkg/config"
)

// setupTestDB connects to the database named by PAWCIRCLE_DATABASE_* and
// expects migrations to be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	cfg, err := config.Load("pawcircle-test")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func seedUser(t *testing.T, db *postgres.DB, lng, lat *float64) int64 {
	t.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(),
		`INSERT INTO users (lng, lat) VALUES ($1, $2) RETURNING id`, lng, lat).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedOrder(t *testing.T, db *postgres.DB, owner int64, lng, lat *float64, communityID *int64) int64 {
	t.Helper()
	var id int64
	err := db.Pool.QueryRow(context.Background(), `
		INSERT INTO orders (owner_id, title, lng, lat, community_id)
		VALUES ($1, 'integration order', $2, $3, $4) RETURNING id
	`, owner, lng, lat, communityID).Scan(&id)
	require.NoError(t, err)
	return id
}

func f64(v float64) *float64 { return &v }

func TestCommunityRepo_Integration(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewCommunityRepo(db)
	ctx := context.Background()

	c := &domain.Community{
		Name:   "integration " + time.Now().Format(time.RFC3339Nano),
		Bounds: domain.BoundingBox{MinLng: 100, MaxLng: 100.1, MinLat: -40, MaxLat: -39.9},
		Active: true,
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotZero(t, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Bounds, got.Bounds)

	require.NoError(t, repo.SetActive(ctx, c.ID, false))
	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	for _, a := range active {
		assert.NotEqual(t, c.ID, a.ID)
	}

	_, err = repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.SetActive(ctx, -1, true), domain.ErrNotFound)
}

func TestOrderRepo_ListOpenWithin_Integration(t *testing.T) {
	db := setupTestDB(t)
	communities := postgres.NewCommunityRepo(db)
	orders := postgres.NewOrderRepo(db)
	users := postgres.NewUserRepo(db)
	ctx := context.Background()

	c := &domain.Community{
		Name:   "prefilter " + time.Now().Format(time.RFC3339Nano),
		Bounds: domain.BoundingBox{MinLng: 120, MaxLng: 120.2, MinLat: 10, MaxLat: 10.2},
		Active: true,
	}
	require.NoError(t, communities.Create(ctx, c))

	owner := seedUser(t, db, f64(120.05), f64(10.05))
	own := seedOrder(t, db, owner, f64(120.01), f64(10.01), nil)
	centered := seedOrder(t, db, owner, nil, nil, &c.ID)
	far := seedOrder(t, db, owner, f64(-120), f64(10), nil)
	// lng inside the box, lat missing: ranked at the center, so filtered there too
	halfIn := seedOrder(t, db, owner, f64(120.01), nil, &c.ID)
	// lng far away, lat missing: still at the center, which is in the box
	halfOut := seedOrder(t, db, owner, f64(-120), nil, &c.ID)

	box := domain.BoundingBox{MinLng: 119.9, MaxLng: 120.15, MinLat: 9.9, MaxLat: 10.15}
	got, err := orders.ListOpenWithin(ctx, box)
	require.NoError(t, err)

	ids := map[int64]domain.Candidate{}
	for _, o := range got {
		ids[o.ID] = o
	}
	assert.Contains(t, ids, own)
	assert.Contains(t, ids, centered)
	assert.NotContains(t, ids, far)
	assert.Nil(t, ids[centered].Location)
	assert.Contains(t, ids, halfIn)
	assert.Contains(t, ids, halfOut)
	assert.Nil(t, ids[halfOut].Location)

	// a half point whose community center is outside the box is dropped
	// even when its lone coordinate is inside
	outside := domain.BoundingBox{MinLng: 120.0, MaxLng: 120.02, MinLat: 10.0, MaxLat: 10.15}
	got, err = orders.ListOpenWithin(ctx, outside)
	require.NoError(t, err)
	for _, o := range got {
		assert.NotEqual(t, halfIn, o.ID)
	}

	require.NoError(t, orders.SetCommunity(ctx, own, &c.ID))
	inCommunity, err := orders.ListOpenInCommunity(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, inCommunity, 4)

	loc, err := users.GetLocation(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, &domain.Point{Lng: 120.05, Lat: 10.05}, loc.Location)
	assert.Nil(t, loc.CommunityID)
}
