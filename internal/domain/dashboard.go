package domain

import (
	"context"
	"time"
)

// DefaultDashboardName is used when a dashboard is created or renamed without a name.
const DefaultDashboardName = "(Untitled)"

type Dashboard struct {
	ID        int64
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// IsOwnedBy reports whether subject is the dashboard's owner.
func (d *Dashboard) IsOwnedBy(subject string) bool {
	return subject != "" && d.OwnerID == subject
}

// DashboardName returns name, or DefaultDashboardName when it is empty.
func DashboardName(name string) string {
	if name == "" {
		return DefaultDashboardName
	}
	return name
}

type DashboardRepository interface {
	// ListByOwner returns the owner's dashboards, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Dashboard, error)
	Create(ctx context.Context, name, ownerID string) (*Dashboard, error)
	GetByID(ctx context.Context, id int64) (*Dashboard, error)
	UpdateName(ctx context.Context, id int64, name string) (*Dashboard, error)
	Delete(ctx context.Context, id int64) error
}
