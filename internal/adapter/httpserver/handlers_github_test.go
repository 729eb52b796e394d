package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xstevenyung/jumpdash/internal/adapter/github"
	"github.com/xstevenyung/jumpdash/internal/app"
	"github.com/xstevenyung/jumpdash/internal/blocks"
	"github.com/xstevenyung/jumpdash/internal/domain"
)

func linkGitHub(t *testing.T, env *testEnv, subject, token string) {
	t.Helper()
	_, _, err := env.store.Accesses().CreateIfAbsent(context.Background(), subject, domain.AccessTypeGitHub, token)
	require.NoError(t, err)
}

func TestGitHubProxy_WithoutAccess(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(t, env.server(t), http.MethodGet, "/github/user", tokenFor(alice), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", rec.Body.String())
	assert.Zero(t, env.upstream.calls.Load())
}

func TestGitHubProxy_WithoutToken(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(t, env.server(t), http.MethodGet, "/github/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.upstream.calls.Load())
}

func TestGitHubProxy_ForwardsWithStoredToken(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")

	rec := serve(t, env.server(t), http.MethodGet, "/github/search/repositories?q=solid&per_page=5", tokenFor(alice), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"login":"octocat"}`, rec.Body.String())

	upstreamReq, _ := env.upstream.lastRequest()
	require.NotNil(t, upstreamReq)
	assert.Equal(t, http.MethodGet, upstreamReq.Method)
	assert.Equal(t, "/search/repositories", upstreamReq.URL.Path)
	assert.Equal(t, "solid", upstreamReq.URL.Query().Get("q"))
	assert.Equal(t, "5", upstreamReq.URL.Query().Get("per_page"))
	assert.Equal(t, "Bearer gho_alice", upstreamReq.Header.Get("Authorization"))
}

func TestGitHubProxy_ForwardsBodyForPost(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")

	rec := serve(t, env.server(t), http.MethodPost, "/github/graphql", tokenFor(alice), `{"query":"{ viewer { login } }"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	upstreamReq, body := env.upstream.lastRequest()
	require.NotNil(t, upstreamReq)
	assert.Equal(t, http.MethodPost, upstreamReq.Method)
	assert.JSONEq(t, `{"query":"{ viewer { login } }"}`, string(body))
}

func TestGitHubProxy_RelaysUpstreamErrorsUncached(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")
	env.upstream.respondWith(http.StatusNotFound, `{"message":"Not Found","documentation_url":"https://docs.github.com"}`)
	srv := env.server(t)

	rec := serve(t, srv, http.MethodGet, "/github/orgs/nope-missing", tokenFor(alice), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Not Found","documentation_url":"https://docs.github.com"}`, rec.Body.String())
	assert.Zero(t, env.cache.Len())

	env.upstream.respondWith(http.StatusOK, `{"login":"octocat"}`)
	rec = serve(t, srv, http.MethodGet, "/github/user", tokenFor(alice), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), env.upstream.calls.Load())
}

// The cache key is the request body alone, so different endpoints called with
// the same body share one entry until it expires.
func TestGitHubProxy_CacheSharedAcrossMethodsAndPaths(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")
	srv := env.server(t)

	env.upstream.respondWith(http.StatusOK, `{"first":true}`)
	rec := serve(t, srv, http.MethodGet, "/github/user", tokenFor(alice), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"first":true}`, rec.Body.String())

	env.upstream.respondWith(http.StatusCreated, `{"second":true}`)
	rec = serve(t, srv, http.MethodPost, "/github/user/repos", tokenFor(alice), `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"first":true}`, rec.Body.String())
	assert.Equal(t, int32(1), env.upstream.calls.Load())

	assert.Equal(t, float64(1), testutil.ToFloat64(srv.cacheMetrics.Hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.cacheMetrics.Misses))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.cacheMetrics.Stores))

	env.clock.Advance(3601 * time.Second)

	rec = serve(t, srv, http.MethodPost, "/github/user/repos", tokenFor(alice), `{}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"second":true}`, rec.Body.String())
	assert.Equal(t, int32(2), env.upstream.calls.Load())
}

func TestGitHubProxy_CacheHitWithinWindow(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")
	srv := env.server(t)

	serve(t, srv, http.MethodGet, "/github/user", tokenFor(alice), "")
	env.clock.Advance(3599 * time.Second)
	rec := serve(t, srv, http.MethodGet, "/github/user", tokenFor(alice), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), env.upstream.calls.Load())
}

func TestGitHubProxy_DifferentBodiesMiss(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")
	srv := env.server(t)

	serve(t, srv, http.MethodPost, "/github/graphql", tokenFor(alice), `{"query":"a"}`)
	serve(t, srv, http.MethodPost, "/github/graphql", tokenFor(alice), `{"query":"b"}`)

	assert.Equal(t, int32(2), env.upstream.calls.Load())
	assert.Equal(t, 2, env.cache.Len())
}

func TestGitHubProxy_InvalidJSONBody(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")

	rec := serve(t, env.server(t), http.MethodPost, "/github/graphql", tokenFor(alice), `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.upstream.calls.Load())
}

func TestGitHubProxy_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")

	big := `{"q":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := serve(t, env.server(t), http.MethodPost, "/github/graphql", tokenFor(alice), big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, env.upstream.calls.Load())
}

func TestGitHubProxy_UpstreamUnreachable(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")

	unreachable := github.NewClient(github.WithBaseURL("http://127.0.0.1:1"))
	svc := app.NewService(env.store.Dashboards(), env.store.Blocks(), env.store.Accesses(),
		blocks.Builtin(unreachable, stubDownloads{}), env.oauth, unreachable)
	srv := newTestServer(t, svc, withCache(env.cache))

	rec := serve(t, srv, http.MethodGet, "/github/user", tokenFor(alice), "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "external", resp["type"])
	assert.Zero(t, env.cache.Len())
}

func TestGitHubProxy_CacheFailureSurfaces(t *testing.T) {
	env := newTestEnv(t)
	linkGitHub(t, env, alice, "gho_alice")
	srv := newTestServer(t, env.app, withCache(failingCache{err: errors.New("circuit breaker is open")}))

	rec := serve(t, srv, http.MethodGet, "/github/user", tokenFor(alice), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, env.upstream.calls.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.cacheMetrics.Errors.WithLabelValues("get")))
}

// A user creates a dashboard, adds a block with extra settings and reads the
// dashboard back without a token.
func TestEndToEnd_DashboardWithBlock(t *testing.T) {
	env := newTestEnv(t)
	srv := env.server(t)

	rec := serve(t, srv, http.MethodPost, "/dashboards", tokenFor(alice), `{"name":"Perf"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created dashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.ID)

	rec = serve(t, srv, http.MethodPost, "/dashboards/1/blocks", tokenFor(alice),
		`{"type":"github-star","settings":{"repository":{"full_name":"solidjs/solid","owner":{"login":"solidjs"},"stargazers_count":31000}}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, srv, http.MethodGet, "/dashboards/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"id": 1,
		"name": "Perf",
		"owner_id": "auth0|alice",
		"created_at": "`+created.CreatedAt.Format(time.RFC3339Nano)+`",
		"blocks": [{
			"id": 1,
			"type": "github-star",
			"settings": {"repository": {"full_name": "solidjs/solid"}},
			"dashboard_id": 1
		}]
	}`, rec.Body.String())
}
