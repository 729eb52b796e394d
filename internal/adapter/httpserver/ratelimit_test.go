package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/xstevenyung/jumpdash/internal/platform/errors"
)

const testRemoteAddr = "1.2.3.4:1234"

func limitedRequest(t *testing.T, handler echo.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/github", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	require.NoError(t, callHandler(handler, c))
	return rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRateLimiterAllowsRequestsUnderLimit(t *testing.T) {
	handler := newRateLimiter(10, 3)(okHandler) // 10 req/s, burst 3

	for range 3 {
		rec := limitedRequest(t, handler, testRemoteAddr)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterBlocksExcessiveRequests(t *testing.T) {
	handler := newRateLimiter(0.01, 1)(okHandler) // very low rate, burst 1

	rec := limitedRequest(t, handler, testRemoteAddr)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = limitedRequest(t, handler, testRemoteAddr)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp.Error)
	assert.Equal(t, apperrors.TypeRateLimited, resp.Type)
}

func TestRateLimiterDifferentIPsAreIndependent(t *testing.T) {
	handler := newRateLimiter(0.01, 1)(okHandler)

	assert.Equal(t, http.StatusOK, limitedRequest(t, handler, testRemoteAddr).Code)
	assert.Equal(t, http.StatusOK, limitedRequest(t, handler, "5.6.7.8:1234").Code)
}

func TestOAuthRoutes_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	srv := env.server(t)
	target := "/auth/github?state=" + url.QueryEscape(tokenFor(alice))

	for range oauthRateBurst {
		rec := serve(t, srv, http.MethodGet, target, "", "")
		require.Equal(t, http.StatusFound, rec.Code)
	}

	rec := serve(t, srv, http.MethodGet, target, "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeRateLimited, resp.Type)
	assert.Equal(t, "rate limit exceeded", resp.Error)
}

func TestOAuthRoutes_ForgedStatesAreLimited(t *testing.T) {
	env := newTestEnv(t)
	srv := env.server(t)

	for range oauthRateBurst {
		rec := serve(t, srv, http.MethodGet, "/auth/github/callback?code=x&state=forged", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := serve(t, srv, http.MethodGet, "/auth/github/callback?code=x&state=forged", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, env.oauth.exchanged)
}
