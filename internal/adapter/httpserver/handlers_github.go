package httpserver

import (
	"errors"
	"fmt"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xstevenyung/jumpdash/internal/adapter/github"
	"github.com/xstevenyung/jumpdash/internal/app"
	apperrors "github.com/xstevenyung/jumpdash/internal/platform/errors"
)

const proxyBodyLimit = "1M"

func (s *Server) registerGitHubRoutes() {
	s.echo.Any("/github/*", s.handleGitHubProxy,
		middleware.BodyLimit(proxyBodyLimit),
		s.authenticate(bearerToken),
		s.loadGitHubAccess,
		s.cacheProxyResponse,
	)
}

// handleGitHubProxy forwards the call with the caller's stored token and
// relays GitHub's status and body unchanged.
func (s *Server) handleGitHubProxy(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}

	req := github.ProxyRequest{
		Method:   c.Request().Method,
		Path:     c.Param("*"),
		RawQuery: c.Request().URL.RawQuery,
		Body:     body,
	}

	resp, err := s.app.ProxyGitHub(c.Request().Context(), accessOf(c).Token, req)
	if errors.Is(err, app.ErrUpstream) {
		return apperrors.ExternalError("github request failed", err).WithField("github_path", req.Path)
	}
	if err != nil {
		return apperrors.InternalError("failed to proxy github request", err)
	}

	c.Set(ctxProxyResponse, resp)

	contentType := resp.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	if err := c.Blob(resp.Status, contentType, resp.Body); err != nil {
		return fmt.Errorf("failed to relay github response: %w", err)
	}
	return nil
}
