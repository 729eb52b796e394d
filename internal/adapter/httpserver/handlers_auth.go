package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xstevenyung/jumpdash/internal/app"
	apperrors "github.com/xstevenyung/jumpdash/internal/platform/errors"
)

const (
	oauthRateLimit = 1 // requests per second per client IP
	oauthRateBurst = 10
)

func (s *Server) registerAuthRoutes() {
	fromState := s.authenticate(stateToken)
	limiter := newRateLimiter(oauthRateLimit, oauthRateBurst)

	s.echo.GET("/auth/github", s.handleGitHubLogin, limiter, fromState)
	s.echo.GET("/auth/github/callback", s.handleGitHubCallback, limiter, fromState)
	s.echo.GET("/accesses", s.handleListAccesses, s.authenticate(bearerToken))
}

// handleGitHubLogin sends the browser to GitHub. The verified token travels on
// as the OAuth state and authenticates the callback.
func (s *Server) handleGitHubLogin(c echo.Context) error {
	return c.Redirect(http.StatusFound, s.app.GitHubAuthURL(stateToken(c)))
}

func (s *Server) handleGitHubCallback(c echo.Context) error {
	if reason := c.QueryParam("error"); reason != "" {
		return apperrors.ValidationError("github authorization was not granted").WithField("reason", reason)
	}

	code := c.QueryParam("code")
	if code == "" {
		return apperrors.ValidationError("missing authorization code")
	}

	subject := subjectOf(c)
	_, _, err := s.app.ConnectGitHub(c.Request().Context(), subject, code)
	if errors.Is(err, app.ErrOAuthExchange) {
		return apperrors.ExternalError("failed to exchange github code", err)
	}
	if err != nil {
		return apperrors.InternalError("failed to store github access", err)
	}

	return c.Redirect(http.StatusFound, s.config.WebURL)
}

func (s *Server) handleListAccesses(c echo.Context) error {
	accesses, err := s.app.ListAccesses(c.Request().Context(), subjectOf(c))
	if err != nil {
		return apperrors.InternalError("failed to list accesses", err)
	}

	resp := make([]accessResponse, 0, len(accesses))
	for i := range accesses {
		resp = append(resp, toAccessResponse(&accesses[i]))
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
