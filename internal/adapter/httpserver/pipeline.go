package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xstevenyung/jumpdash/internal/adapter/github"
	"github.com/xstevenyung/jumpdash/internal/domain"
	apperrors "github.com/xstevenyung/jumpdash/internal/platform/errors"
)

// Request state set by the stages below. Read it through the typed accessors.
const (
	ctxSubject       = "subject"
	ctxDashboard     = "dashboard"
	ctxBlock         = "block"
	ctxAccess        = "access"
	ctxProxyResponse = "proxy_response"
)

func subjectOf(c echo.Context) string {
	subject, _ := c.Get(ctxSubject).(string)
	return subject
}

func dashboardOf(c echo.Context) *domain.Dashboard {
	d, _ := c.Get(ctxDashboard).(*domain.Dashboard)
	return d
}

func blockOf(c echo.Context) *domain.Block {
	b, _ := c.Get(ctxBlock).(*domain.Block)
	return b
}

func accessOf(c echo.Context) *domain.Access {
	a, _ := c.Get(ctxAccess).(*domain.Access)
	return a
}

// tokenSource pulls the raw bearer token out of a request.
type tokenSource func(c echo.Context) string

func bearerToken(c echo.Context) string {
	scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// stateToken reads the token from the OAuth state parameter. Browsers reach
// the OAuth routes by navigation and cannot send an Authorization header.
func stateToken(c echo.Context) string {
	return c.QueryParam("state")
}

// authenticate verifies the token and stores its subject. Failures answer 401
// before any later stage runs.
func (s *Server) authenticate(source tokenSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := source(c)
			if token == "" {
				return apperrors.UnauthorizedError("missing bearer token")
			}

			subject, err := s.verifier.Verify(c.Request().Context(), token)
			if err != nil {
				return apperrors.UnauthorizedError("invalid bearer token").WithField("reason", err.Error())
			}

			c.Set(ctxSubject, subject)
			return next(c)
		}
	}
}

// parseID accepts positive decimal ids only. Anything else is treated as a
// missing row.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) loadDashboard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseID(c.Param("id"))
		if !ok {
			return apperrors.NotFoundError("dashboard not found").WithField("dashboard_id", c.Param("id"))
		}

		d, err := s.app.GetDashboard(c.Request().Context(), id)
		if errors.Is(err, domain.ErrDashboardNotFound) {
			return apperrors.NotFoundError("dashboard not found").WithField("dashboard_id", id)
		}
		if err != nil {
			return apperrors.InternalError("failed to load dashboard", err).WithField("dashboard_id", id)
		}

		c.Set(ctxDashboard, d)
		return next(c)
	}
}

func (s *Server) loadBlock(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseID(c.Param("id"))
		if !ok {
			return apperrors.NotFoundError("block not found").WithField("block_id", c.Param("id"))
		}

		b, err := s.app.GetBlock(c.Request().Context(), id)
		if errors.Is(err, domain.ErrBlockNotFound) {
			return apperrors.NotFoundError("block not found").WithField("block_id", id)
		}
		if err != nil {
			return apperrors.InternalError("failed to load block", err).WithField("block_id", id)
		}

		c.Set(ctxBlock, b)
		return next(c)
	}
}

// requireOwner runs after authenticate and loadDashboard. A mismatch answers
// 401, the same as a bad token.
func (s *Server) requireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		d := dashboardOf(c)
		if d == nil {
			return apperrors.InternalError("dashboard missing from request state", nil)
		}
		if !d.IsOwnedBy(subjectOf(c)) {
			return apperrors.UnauthorizedError("not the dashboard owner").WithField("dashboard_id", d.ID)
		}
		return next(c)
	}
}

func (s *Server) loadGitHubAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		access, err := s.app.FindAccess(c.Request().Context(), subjectOf(c), domain.AccessTypeGitHub)
		if errors.Is(err, domain.ErrAccessNotFound) {
			return apperrors.UnauthorizedError("github account not linked")
		}
		if err != nil {
			return apperrors.InternalError("failed to load github access", err)
		}

		c.Set(ctxAccess, access)
		return next(c)
	}
}

// cacheProxyResponse serves repeated proxy calls from the response cache. On a
// miss it runs the handler and stores the upstream body when the handler left
// a 2xx response in ctxProxyResponse.
func (s *Server) cacheProxyResponse(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return fmt.Errorf("failed to read request body: %w", err)
		}
		c.Request().Body = io.NopCloser(bytes.NewReader(body))

		key, err := domain.CacheKey(body)
		if err != nil {
			return apperrors.ValidationError("request body must be JSON")
		}

		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.cacheMetrics.Errors.WithLabelValues("get").Inc()
			return apperrors.InternalError("failed to read response cache", err).WithField("cache_key", key)
		}
		if ok {
			s.cacheMetrics.Hits.Inc()
			if err := c.JSONBlob(http.StatusOK, cached); err != nil {
				return fmt.Errorf("failed to send cached response: %w", err)
			}
			return nil
		}
		s.cacheMetrics.Misses.Inc()

		if err := next(c); err != nil {
			return err
		}

		resp, _ := c.Get(ctxProxyResponse).(*github.ProxyResponse)
		if resp == nil || !resp.OK() || len(resp.Body) == 0 {
			return nil
		}
		if err := s.cache.Set(ctx, key, resp.Body); err != nil {
			s.cacheMetrics.Errors.WithLabelValues("set").Inc()
			slog.WarnContext(ctx, "Failed to store proxy response", "cache_key", key, "error", err)
			return nil
		}
		s.cacheMetrics.Stores.Inc()
		return nil
	}
}
