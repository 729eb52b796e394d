package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xstevenyung/jumpdash/internal/adapter/auth"
	"github.com/xstevenyung/jumpdash/internal/adapter/github"
	"github.com/xstevenyung/jumpdash/internal/adapter/metrics"
	"github.com/xstevenyung/jumpdash/internal/blocks"
	"github.com/xstevenyung/jumpdash/internal/domain"
	"github.com/xstevenyung/jumpdash/internal/platform/config"
)

type appService interface {
	ListDashboards(ctx context.Context, ownerID string) ([]domain.Dashboard, error)
	CreateDashboard(ctx context.Context, ownerID, name string) (*domain.Dashboard, error)
	GetDashboard(ctx context.Context, id int64) (*domain.Dashboard, error)
	RenameDashboard(ctx context.Context, id int64, name string) (*domain.Dashboard, error)
	DeleteDashboard(ctx context.Context, id int64) error

	ListBlocks(ctx context.Context, dashboardID int64) ([]domain.Block, error)
	AddBlock(ctx context.Context, dashboardID int64, blockType string, settings json.RawMessage) (*domain.Block, error)
	GetBlock(ctx context.Context, id int64) (*domain.Block, error)
	DeleteBlock(ctx context.Context, id int64) error
	RenderBlock(ctx context.Context, viewerID string, block *domain.Block, preview bool) (*blocks.View, error)
	BlockTypes() []blocks.Definition

	ListAccesses(ctx context.Context, userID string) ([]domain.Access, error)
	FindAccess(ctx context.Context, userID, accessType string) (*domain.Access, error)
	GitHubAuthURL(state string) string
	ConnectGitHub(ctx context.Context, userID, code string) (*domain.Access, bool, error)
	ProxyGitHub(ctx context.Context, token string, req github.ProxyRequest) (*github.ProxyResponse, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app      appService
	verifier auth.Verifier

	cache        domain.ResponseCache
	cacheMetrics *metrics.CacheMetrics
	httpMetrics  *metrics.HTTPMetrics
	metrics      http.Handler

	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the routes. Request and cache metrics are registered on reg,
// which is also served on /metrics.
func NewServer(cfg *config.Config, app appService, verifier auth.Verifier, cache domain.ResponseCache, reg *prometheus.Registry, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		verifier:     verifier,
		cache:        cache,
		cacheMetrics: metrics.NewCacheMetrics(reg),
		httpMetrics:  metrics.NewHTTPMetrics(reg),
		metrics:      metrics.Handler(reg),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets the server be driven directly, e.g. by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
