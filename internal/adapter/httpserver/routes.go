package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xstevenyung/jumpdash/internal/platform/correlation"
)

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestIDMiddleware())
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.httpMetrics.Middleware())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.AllowedOrigins(),
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, correlation.Header},
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost,
			http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
	}))
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	s.echo.Use(ErrorHandlingMiddleware())

	s.registerHealthRoutes()
	s.registerDashboardRoutes()
	s.registerBlockRoutes()
	s.registerAuthRoutes()
	s.registerGitHubRoutes()
}

// setupRequestIDMiddleware reuses an incoming X-Request-ID or mints one, and
// carries it into the request context so every log line of the request has it.
func (s *Server) setupRequestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    correlation.NewID,
		TargetHeader: correlation.Header,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := correlation.WithID(c.Request().Context(), correlation.FromHeader(id))
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if subject := subjectOf(c); subject != "" {
				attrs = append(attrs, "subject", subject)
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
