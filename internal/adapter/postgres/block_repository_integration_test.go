package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xstevenyung/jumpdash/internal/domain"
)

func TestBlockRepo_CreateAndList(t *testing.T) {
	pool := setupTestDB(t)
	dashboards := NewDashboardRepo(pool)
	repo := NewBlockRepo(pool)
	ctx := context.Background()

	d, err := dashboards.Create(ctx, "Perf", "auth0|alice")
	require.NoError(t, err)

	first, err := repo.Create(ctx, d.ID, "github-star", json.RawMessage(`{"repository":{"full_name":"solidjs/solid"}}`))
	require.NoError(t, err)
	assert.Equal(t, "github-star", first.Type)
	assert.Equal(t, d.ID, first.DashboardID)
	assert.JSONEq(t, `{"repository":{"full_name":"solidjs/solid"}}`, string(first.Settings))

	_, err = repo.Create(ctx, d.ID, "npm-download", nil)
	require.NoError(t, err)

	list, err := repo.ListByDashboard(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.JSONEq(t, `{}`, string(list[1].Settings))
}

func TestBlockRepo_ListByDashboard_Empty(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewBlockRepo(pool)

	list, err := repo.ListByDashboard(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBlockRepo_CreateRequiresDashboard(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewBlockRepo(pool)

	_, err := repo.Create(context.Background(), 999, "github-star", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestBlockRepo_Delete(t *testing.T) {
	pool := setupTestDB(t)
	dashboards := NewDashboardRepo(pool)
	repo := NewBlockRepo(pool)
	ctx := context.Background()

	d, err := dashboards.Create(ctx, "Perf", "auth0|alice")
	require.NoError(t, err)
	b, err := repo.Create(ctx, d.ID, "github-pr", json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, b.ID))
	assert.ErrorIs(t, repo.Delete(ctx, b.ID), domain.ErrBlockNotFound)
}
