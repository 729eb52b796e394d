package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xstevenyung/jumpdash/internal/domain"
)

func TestDashboardRepo_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewDashboardRepo(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Perf", "auth0|alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Perf", created.Name)
	assert.Equal(t, "auth0|alice", created.OwnerID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, 0)
}

func TestDashboardRepo_GetByID_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewDashboardRepo(pool)

	d, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrDashboardNotFound)
	assert.Nil(t, d)
}

func TestDashboardRepo_ListByOwner(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewDashboardRepo(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, "first", "auth0|alice")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "other", "auth0|bob")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "second", "auth0|alice")
	require.NoError(t, err)

	list, err := repo.ListByOwner(ctx, "auth0|alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)
	assert.Equal(t, "first", list[1].Name)

	empty, err := repo.ListByOwner(ctx, "auth0|nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDashboardRepo_UpdateName(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewDashboardRepo(pool)
	ctx := context.Background()

	d, err := repo.Create(ctx, "old", "auth0|alice")
	require.NoError(t, err)

	updated, err := repo.UpdateName(ctx, d.ID, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, d.OwnerID, updated.OwnerID)

	_, err = repo.UpdateName(ctx, 999, "x")
	assert.ErrorIs(t, err, domain.ErrDashboardNotFound)
}

func TestDashboardRepo_DeleteCascadesBlocks(t *testing.T) {
	pool := setupTestDB(t)
	dashboards := NewDashboardRepo(pool)
	blocks := NewBlockRepo(pool)
	ctx := context.Background()

	d, err := dashboards.Create(ctx, "doomed", "auth0|alice")
	require.NoError(t, err)
	b, err := blocks.Create(ctx, d.ID, "github-star", json.RawMessage(`{"repository":{"full_name":"a/b"}}`))
	require.NoError(t, err)

	require.NoError(t, dashboards.Delete(ctx, d.ID))

	_, err = blocks.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)

	assert.ErrorIs(t, dashboards.Delete(ctx, d.ID), domain.ErrDashboardNotFound)
}
