package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xstevenyung/jumpdash/internal/domain"
)

const blockColumns = "id, type, settings, dashboard_id"

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func scanBlock(row pgx.Row) (*domain.Block, error) {
	var (
		b        domain.Block
		settings []byte
	)
	if err := row.Scan(&b.ID, &b.Type, &settings, &b.DashboardID); err != nil {
		return nil, err
	}
	b.Settings = json.RawMessage(settings)
	return &b, nil
}

func (r *BlockRepo) ListByDashboard(ctx context.Context, dashboardID int64) ([]domain.Block, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE dashboard_id = $1 ORDER BY id`, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	blocks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Block, error) {
		b, err := scanBlock(row)
		if err != nil {
			return domain.Block{}, err
		}
		return *b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan blocks: %w", err)
	}
	return blocks, nil
}

func (r *BlockRepo) Create(ctx context.Context, dashboardID int64, blockType string, settings json.RawMessage) (*domain.Block, error) {
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	b, err := scanBlock(r.pool.QueryRow(ctx,
		`INSERT INTO blocks (type, settings, dashboard_id) VALUES ($1, $2::jsonb, $3) RETURNING `+blockColumns,
		blockType, string(settings), dashboardID))
	if err != nil {
		return nil, fmt.Errorf("failed to create block: %w", err)
	}
	return b, nil
}

func (r *BlockRepo) GetByID(ctx context.Context, id int64) (*domain.Block, error) {
	b, err := scanBlock(r.pool.QueryRow(ctx, `SELECT `+blockColumns+` FROM blocks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBlockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return b, nil
}

func (r *BlockRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlockNotFound
	}
	return nil
}
