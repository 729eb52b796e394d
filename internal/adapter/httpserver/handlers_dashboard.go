package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xstevenyung/jumpdash/internal/domain"
	apperrors "github.com/xstevenyung/jumpdash/internal/platform/errors"
)

func (s *Server) registerDashboardRoutes() {
	authenticated := s.authenticate(bearerToken)

	s.echo.GET("/dashboards", s.handleListDashboards, authenticated)
	s.echo.POST("/dashboards", s.handleCreateDashboard, authenticated)
	s.echo.GET("/dashboards/:id", s.handleGetDashboard, s.loadDashboard)
	s.echo.PUT("/dashboards/:id", s.handleRenameDashboard, authenticated, s.loadDashboard, s.requireOwner)
	s.echo.DELETE("/dashboards/:id", s.handleDeleteDashboard, authenticated, s.loadDashboard, s.requireOwner)
}

func (s *Server) handleListDashboards(c echo.Context) error {
	dashboards, err := s.app.ListDashboards(c.Request().Context(), subjectOf(c))
	if err != nil {
		return apperrors.InternalError("failed to list dashboards", err)
	}

	resp := make([]dashboardResponse, 0, len(dashboards))
	for i := range dashboards {
		resp = append(resp, toDashboardResponse(&dashboards[i]))
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateDashboard(c echo.Context) error {
	var req dashboardRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	d, err := s.app.CreateDashboard(c.Request().Context(), subjectOf(c), req.Name)
	if err != nil {
		return apperrors.InternalError("failed to create dashboard", err)
	}

	if err := c.JSON(http.StatusOK, toDashboardResponse(d)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleGetDashboard is public. A failing block query answers 404 like a
// missing dashboard.
func (s *Server) handleGetDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	d := dashboardOf(c)

	list, err := s.app.ListBlocks(ctx, d.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list blocks", "dashboard_id", d.ID, "error", err)
		return apperrors.NotFoundError("dashboard not found").WithField("dashboard_id", d.ID)
	}

	resp := dashboardWithBlocksResponse{
		dashboardResponse: toDashboardResponse(d),
		Blocks:            make([]blockResponse, 0, len(list)),
	}
	for i := range list {
		resp.Blocks = append(resp.Blocks, toBlockResponse(&list[i]))
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleRenameDashboard(c echo.Context) error {
	var req dashboardRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	current := dashboardOf(c)
	d, err := s.app.RenameDashboard(c.Request().Context(), current.ID, req.Name)
	if errors.Is(err, domain.ErrDashboardNotFound) {
		return apperrors.NotFoundError("dashboard not found").WithField("dashboard_id", current.ID)
	}
	if err != nil {
		return apperrors.InternalError("failed to rename dashboard", err).WithField("dashboard_id", current.ID)
	}

	if err := c.JSON(http.StatusOK, toDashboardResponse(d)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteDashboard(c echo.Context) error {
	d := dashboardOf(c)
	err := s.app.DeleteDashboard(c.Request().Context(), d.ID)
	if errors.Is(err, domain.ErrDashboardNotFound) {
		return apperrors.NotFoundError("dashboard not found").WithField("dashboard_id", d.ID)
	}
	if err != nil {
		return apperrors.InternalError("failed to delete dashboard", err).WithField("dashboard_id", d.ID)
	}
	return c.NoContent(http.StatusNoContent)
}
