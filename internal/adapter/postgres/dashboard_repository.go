package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xstevenyung/jumpdash/internal/domain"
)

const dashboardColumns = "id, name, owner_id, created_at"

type DashboardRepo struct {
	pool *pgxpool.Pool
}

func NewDashboardRepo(pool *pgxpool.Pool) *DashboardRepo {
	return &DashboardRepo{pool: pool}
}

func scanDashboard(row pgx.Row) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DashboardRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Dashboard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}

	dashboards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Dashboard, error) {
		d, err := scanDashboard(row)
		if err != nil {
			return domain.Dashboard{}, err
		}
		return *d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan dashboards: %w", err)
	}
	return dashboards, nil
}

func (r *DashboardRepo) Create(ctx context.Context, name, ownerID string) (*domain.Dashboard, error) {
	d, err := scanDashboard(r.pool.QueryRow(ctx,
		`INSERT INTO dashboards (name, owner_id) VALUES ($1, $2) RETURNING `+dashboardColumns,
		name, ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard: %w", err)
	}
	return d, nil
}

func (r *DashboardRepo) GetByID(ctx context.Context, id int64) (*domain.Dashboard, error) {
	d, err := scanDashboard(r.pool.QueryRow(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDashboardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}
	return d, nil
}

func (r *DashboardRepo) UpdateName(ctx context.Context, id int64, name string) (*domain.Dashboard, error) {
	d, err := scanDashboard(r.pool.QueryRow(ctx,
		`UPDATE dashboards SET name = $2 WHERE id = $1 RETURNING `+dashboardColumns, id, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDashboardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update dashboard: %w", err)
	}
	return d, nil
}

// Delete removes the dashboard. Its blocks go with it through ON DELETE CASCADE.
func (r *DashboardRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM dashboards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dashboard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDashboardNotFound
	}
	return nil
}
