package domain

import (
	"context"
	"time"
)

// AccessTypeGitHub is the only provider an Access can currently hold a token for.
const AccessTypeGitHub = "github"

// Access is a stored OAuth token for one user against one provider. Tokens are
// never refreshed or rotated.
type Access struct {
	ID        int64
	UserID    string
	Type      string
	Token     string
	CreatedAt time.Time
}

type AccessRepository interface {
	ListByUser(ctx context.Context, userID string) ([]Access, error)
	Find(ctx context.Context, userID, accessType string) (*Access, error)
	// CreateIfAbsent inserts the access unless one already exists for
	// (userID, accessType). The stored row is returned either way; created
	// is false when an earlier row won.
	CreateIfAbsent(ctx context.Context, userID, accessType, token string) (access *Access, created bool, err error)
}
