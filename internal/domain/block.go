package domain

import (
	"context"
	"encoding/json"
)

type Block struct {
	ID          int64
	Type        string
	Settings    json.RawMessage
	DashboardID int64
}

type BlockRepository interface {
	// ListByDashboard returns blocks in insertion order.
	ListByDashboard(ctx context.Context, dashboardID int64) ([]Block, error)
	Create(ctx context.Context, dashboardID int64, blockType string, settings json.RawMessage) (*Block, error)
	GetByID(ctx context.Context, id int64) (*Block, error)
	Delete(ctx context.Context, id int64) error
}
