package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/xstevenyung/jumpdash/internal/adapter/github"
	"github.com/xstevenyung/jumpdash/internal/app"
	"github.com/xstevenyung/jumpdash/internal/blocks"
	"github.com/xstevenyung/jumpdash/internal/domain"
	apperrors "github.com/xstevenyung/jumpdash/internal/platform/errors"
)

func (s *Server) registerBlockRoutes() {
	authenticated := s.authenticate(bearerToken)

	s.echo.GET("/registry", s.handleRegistry)
	s.echo.POST("/dashboards/:id/blocks", s.handleAddBlock, authenticated, s.loadDashboard, s.requireOwner)
	// No requireOwner: any authenticated caller can delete any block. See
	// app.Service.DeleteBlock.
	s.echo.DELETE("/blocks/:id", s.handleDeleteBlock, authenticated, s.loadBlock)
	s.echo.GET("/blocks/:id/view", s.handleViewBlock, authenticated, s.loadBlock)
}

func (s *Server) handleRegistry(c echo.Context) error {
	defs := s.app.BlockTypes()
	resp := make([]blockTypeResponse, 0, len(defs))
	for _, def := range defs {
		resp = append(resp, toBlockTypeResponse(def))
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleAddBlock(c echo.Context) error {
	var req blockRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	d := dashboardOf(c)
	b, err := s.app.AddBlock(c.Request().Context(), d.ID, req.Type, req.Settings)
	switch {
	case errors.Is(err, blocks.ErrUnknownBlockType):
		return apperrors.ValidationError("unknown block type").WithField("type", req.Type)
	case errors.Is(err, blocks.ErrInvalidSettings):
		return apperrors.ValidationError(err.Error()).WithField("type", req.Type)
	case err != nil:
		return apperrors.InternalError("failed to add block", err).WithField("dashboard_id", d.ID)
	}

	if err := c.JSON(http.StatusOK, toBlockResponse(b)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteBlock(c echo.Context) error {
	b := blockOf(c)
	err := s.app.DeleteBlock(c.Request().Context(), b.ID)
	if errors.Is(err, domain.ErrBlockNotFound) {
		return apperrors.NotFoundError("block not found").WithField("block_id", b.ID)
	}
	if err != nil {
		return apperrors.InternalError("failed to delete block", err).WithField("block_id", b.ID)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleViewBlock(c echo.Context) error {
	b := blockOf(c)
	preview, _ := strconv.ParseBool(c.QueryParam("preview"))

	view, err := s.app.RenderBlock(c.Request().Context(), subjectOf(c), b, preview)
	if err != nil {
		return renderError(err).WithField("block_id", b.ID).WithField("type", b.Type)
	}

	if err := c.JSON(http.StatusOK, view); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func renderError(err error) *apperrors.Error {
	var apiErr *github.APIError
	switch {
	case errors.Is(err, blocks.ErrUnknownBlockType):
		return apperrors.UnprocessableError("unknown block type", err)
	case errors.Is(err, blocks.ErrInvalidSettings):
		return apperrors.UnprocessableError("stored block settings are invalid", err)
	case errors.Is(err, domain.ErrAccessNotFound), errors.Is(err, blocks.ErrMissingGitHubToken):
		return apperrors.UnauthorizedError("github account not linked")
	case errors.As(err, &apiErr):
		return apperrors.ExternalError("github rejected the request", err).WithField("upstream_status", apiErr.Status)
	case errors.Is(err, app.ErrUpstream):
		return apperrors.ExternalError("upstream request failed", err)
	default:
		return apperrors.InternalError("failed to render block", err)
	}
}
