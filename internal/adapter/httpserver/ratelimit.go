package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/xstevenyung/jumpdash/internal/platform/errors"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter limits per client IP. It runs before authentication so that
// requests with forged tokens are limited too.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		// echo hands the returned error to c.Error, past ErrorHandlingMiddleware,
		// so the response is written here.
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			appErr := apperrors.RateLimitedError("rate limit exceeded").WithField("client", identifier)
			logError(c, appErr)
			return writeError(c, appErr)
		},
	})
}
