package httpserver

import (
	"encoding/json"
	"time"

	"github.com/xstevenyung/jumpdash/internal/blocks"
	"github.com/xstevenyung/jumpdash/internal/domain"
)

type dashboardRequest struct {
	Name string `json:"name"`
}

type blockRequest struct {
	Type     string          `json:"type"`
	Settings json.RawMessage `json:"settings"`
}

type dashboardResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type dashboardWithBlocksResponse struct {
	dashboardResponse
	Blocks []blockResponse `json:"blocks"`
}

type blockResponse struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Settings    json.RawMessage `json:"settings"`
	DashboardID int64           `json:"dashboard_id"`
}

// accessResponse never carries the token.
type accessResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type blockTypeResponse struct {
	Type           string         `json:"type"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	RequiresGitHub bool           `json:"requires_github"`
	Fields         []blocks.Field `json:"fields"`
}

func toDashboardResponse(d *domain.Dashboard) dashboardResponse {
	return dashboardResponse{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		CreatedAt: d.CreatedAt,
	}
}

func toBlockResponse(b *domain.Block) blockResponse {
	settings := b.Settings
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	return blockResponse{
		ID:          b.ID,
		Type:        b.Type,
		Settings:    settings,
		DashboardID: b.DashboardID,
	}
}

func toAccessResponse(a *domain.Access) accessResponse {
	return accessResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Type:      a.Type,
		CreatedAt: a.CreatedAt,
	}
}

func toBlockTypeResponse(def blocks.Definition) blockTypeResponse {
	fields := []blocks.Field{}
	if def.Setup != nil {
		fields = append(fields, def.Setup.Fields()...)
	}
	return blockTypeResponse{
		Type:           def.Type,
		Name:           def.Name,
		Description:    def.Description,
		RequiresGitHub: def.RequiresGitHub,
		Fields:         fields,
	}
}
