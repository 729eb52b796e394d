package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xstevenyung/jumpdash/internal/adapter/github"
	"github.com/xstevenyung/jumpdash/internal/blocks"
	"github.com/xstevenyung/jumpdash/internal/domain"
)

var (
	// ErrOAuthExchange wraps failures trading a GitHub code for a token.
	ErrOAuthExchange = errors.New("github oauth exchange failed")
	// ErrUpstream wraps transport failures reaching a third-party API.
	ErrUpstream = errors.New("upstream request failed")
)

type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

type GitHubProxy interface {
	Forward(ctx context.Context, req github.ProxyRequest) (*github.ProxyResponse, error)
}

type Service struct {
	dashboards domain.DashboardRepository
	blocks     domain.BlockRepository
	accesses   domain.AccessRepository
	registry   *blocks.Registry
	oauth      GitHubOAuth
	proxy      GitHubProxy
}

func NewService(
	dashboards domain.DashboardRepository,
	blockRepo domain.BlockRepository,
	accesses domain.AccessRepository,
	registry *blocks.Registry,
	oauth GitHubOAuth,
	proxy GitHubProxy,
) *Service {
	return &Service{
		dashboards: dashboards,
		blocks:     blockRepo,
		accesses:   accesses,
		registry:   registry,
		oauth:      oauth,
		proxy:      proxy,
	}
}

func (s *Service) ListDashboards(ctx context.Context, ownerID string) ([]domain.Dashboard, error) {
	return s.dashboards.ListByOwner(ctx, ownerID)
}

// CreateDashboard stores a dashboard owned by ownerID. An empty name becomes
// domain.DefaultDashboardName.
func (s *Service) CreateDashboard(ctx context.Context, ownerID, name string) (*domain.Dashboard, error) {
	d, err := s.dashboards.Create(ctx, domain.DashboardName(name), ownerID)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Dashboard created", "dashboard_id", d.ID, "owner_id", ownerID)
	return d, nil
}

func (s *Service) GetDashboard(ctx context.Context, id int64) (*domain.Dashboard, error) {
	return s.dashboards.GetByID(ctx, id)
}

// RenameDashboard does not check ownership; callers do.
func (s *Service) RenameDashboard(ctx context.Context, id int64, name string) (*domain.Dashboard, error) {
	return s.dashboards.UpdateName(ctx, id, domain.DashboardName(name))
}

func (s *Service) DeleteDashboard(ctx context.Context, id int64) error {
	if err := s.dashboards.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Dashboard deleted", "dashboard_id", id)
	return nil
}

func (s *Service) ListBlocks(ctx context.Context, dashboardID int64) ([]domain.Block, error) {
	return s.blocks.ListByDashboard(ctx, dashboardID)
}

// AddBlock resolves blockType in the registry and stores the settings as
// normalized by the type's setup. Returns blocks.ErrUnknownBlockType or
// blocks.ErrInvalidSettings for bad input.
func (s *Service) AddBlock(ctx context.Context, dashboardID int64, blockType string, settings json.RawMessage) (*domain.Block, error) {
	def, err := s.registry.Resolve(blockType)
	if err != nil {
		return nil, err
	}

	normalized, err := def.Setup.Normalize(settings)
	if err != nil {
		return nil, err
	}

	return s.blocks.Create(ctx, dashboardID, def.Type, normalized)
}

func (s *Service) GetBlock(ctx context.Context, id int64) (*domain.Block, error) {
	return s.blocks.GetByID(ctx, id)
}

// DeleteBlock removes a block by id alone. Ownership of the parent dashboard
// is not checked.
// TODO: require the caller to own the block's dashboard once clients send the
// dashboard id along with the block id.
func (s *Service) DeleteBlock(ctx context.Context, id int64) error {
	return s.blocks.Delete(ctx, id)
}

func (s *Service) ListAccesses(ctx context.Context, userID string) ([]domain.Access, error) {
	return s.accesses.ListByUser(ctx, userID)
}

func (s *Service) FindAccess(ctx context.Context, userID, accessType string) (*domain.Access, error) {
	return s.accesses.Find(ctx, userID, accessType)
}

func (s *Service) GitHubAuthURL(state string) string {
	return s.oauth.AuthURL(state)
}

// ConnectGitHub exchanges code for a token and stores it unless the user
// already has a GitHub access. The first stored token wins; created reports
// whether this call stored it.
func (s *Service) ConnectGitHub(ctx context.Context, userID, code string) (access *domain.Access, created bool, err error) {
	existing, err := s.accesses.Find(ctx, userID, domain.AccessTypeGitHub)
	if err != nil && !errors.Is(err, domain.ErrAccessNotFound) {
		return nil, false, err
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}

	if existing != nil {
		slog.InfoContext(ctx, "GitHub access already linked, keeping stored token", "user_id", userID)
		return existing, false, nil
	}

	access, created, err = s.accesses.CreateIfAbsent(ctx, userID, domain.AccessTypeGitHub, token)
	if err != nil {
		return nil, false, err
	}
	if created {
		slog.InfoContext(ctx, "GitHub access linked", "user_id", userID, "access_id", access.ID)
	}
	return access, created, nil
}

// ProxyGitHub forwards req with token. GitHub's own error statuses come back
// as a response, not an error.
func (s *Service) ProxyGitHub(ctx context.Context, token string, req github.ProxyRequest) (*github.ProxyResponse, error) {
	req.Token = token
	resp, err := s.proxy.Forward(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return resp, nil
}

func (s *Service) BlockTypes() []blocks.Definition {
	return s.registry.List()
}

// RenderBlock produces the block's View for viewerID. GitHub-backed blocks use
// the viewer's stored access and fail with domain.ErrAccessNotFound without one.
func (s *Service) RenderBlock(ctx context.Context, viewerID string, block *domain.Block, preview bool) (*blocks.View, error) {
	def, err := s.registry.Resolve(block.Type)
	if err != nil {
		return nil, err
	}

	req := blocks.RenderRequest{Settings: block.Settings, Preview: preview}
	if def.RequiresGitHub && !preview {
		access, err := s.accesses.Find(ctx, viewerID, domain.AccessTypeGitHub)
		if err != nil {
			return nil, err
		}
		req.GitHubToken = access.Token
	}

	view, err := def.Display.Render(ctx, req)
	if err != nil {
		var apiErr *github.APIError
		if errors.As(err, &apiErr) || errors.Is(err, blocks.ErrInvalidSettings) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return view, nil
}
