package httpserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/xstevenyung/jumpdash/internal/adapter/github"
	"github.com/xstevenyung/jumpdash/internal/adapter/memory"
	"github.com/xstevenyung/jumpdash/internal/adapter/metrics"
	"github.com/xstevenyung/jumpdash/internal/app"
	"github.com/xstevenyung/jumpdash/internal/blocks"
	"github.com/xstevenyung/jumpdash/internal/domain"
	"github.com/xstevenyung/jumpdash/internal/platform/config"
)

const (
	alice = "auth0|alice"
	bob   = "auth0|bob"
)

// --- Mock implementations ---

// stubVerifier accepts tokens of the form "valid:<subject>".
type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (string, error) {
	subject, ok := strings.CutPrefix(token, "valid:")
	if !ok || subject == "" {
		return "", errors.New("signature is invalid")
	}
	return subject, nil
}

func tokenFor(subject string) string {
	return "valid:" + subject
}

type mockOAuth struct {
	mu        sync.Mutex
	exchanged []string
	err       error
}

func (m *mockOAuth) AuthURL(state string) string {
	return "https://github.com/login/oauth/authorize?client_id=test-client-id&state=" + url.QueryEscape(state)
}

func (m *mockOAuth) Exchange(_ context.Context, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanged = append(m.exchanged, code)
	if m.err != nil {
		return "", m.err
	}
	return "gho_" + code, nil
}

type stubDownloads struct{}

func (stubDownloads) WeeklyDownloads(context.Context, string) (int64, error) { return 77, nil }

// fakeGitHub records every call that reaches the upstream API.
type fakeGitHub struct {
	server *httptest.Server
	calls  atomic.Int32

	mu       sync.Mutex
	last     *http.Request
	lastBody []byte
	status   int
	body     string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{status: http.StatusOK, body: `{"login":"octocat"}`}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.last, f.lastBody = r, body
		status, respBody := f.status, f.body
		f.mu.Unlock()

		if strings.HasPrefix(r.URL.Path, "/repos/") {
			respBody = `{"full_name":"solidjs/solid","stargazers_count":31000,"open_issues_count":80}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) respondWith(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeGitHub) lastRequest() (*http.Request, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.lastBody
}

// stubApp delegates to a real service except where a function is set.
type stubApp struct {
	appService
	listBlocksFn      func(ctx context.Context, dashboardID int64) ([]domain.Block, error)
	deleteDashboardFn func(ctx context.Context, id int64) error
	deleteBlockFn     func(ctx context.Context, id int64) error
}

func (s *stubApp) ListBlocks(ctx context.Context, dashboardID int64) ([]domain.Block, error) {
	if s.listBlocksFn != nil {
		return s.listBlocksFn(ctx, dashboardID)
	}
	return s.appService.ListBlocks(ctx, dashboardID)
}

func (s *stubApp) DeleteDashboard(ctx context.Context, id int64) error {
	if s.deleteDashboardFn != nil {
		return s.deleteDashboardFn(ctx, id)
	}
	return s.appService.DeleteDashboard(ctx, id)
}

func (s *stubApp) DeleteBlock(ctx context.Context, id int64) error {
	if s.deleteBlockFn != nil {
		return s.deleteBlockFn(ctx, id)
	}
	return s.appService.DeleteBlock(ctx, id)
}

type failingCache struct{ err error }

func (f failingCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingCache) Set(context.Context, string, []byte) error        { return f.err }

// --- Test helpers ---

type testEnv struct {
	app      *app.Service
	store    *memory.Store
	clock    *clockwork.FakeClock
	cache    *memory.ResponseCache
	oauth    *mockOAuth
	upstream *fakeGitHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := memory.NewStore(clock)
	upstream := newFakeGitHub(t)
	client := github.NewClient(github.WithBaseURL(upstream.server.URL))
	oauth := &mockOAuth{}

	svc := app.NewService(store.Dashboards(), store.Blocks(), store.Accesses(),
		blocks.Builtin(client, stubDownloads{}), oauth, client)

	return &testEnv{
		app:      svc,
		store:    store,
		clock:    clock,
		cache:    memory.NewResponseCache(clock, time.Hour),
		oauth:    oauth,
		upstream: upstream,
	}
}

func (e *testEnv) server(t *testing.T, opts ...func(*Server)) *Server {
	t.Helper()
	return newTestServer(t, e.app, append([]func(*Server){withCache(e.cache)}, opts...)...)
}

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	srv := &Server{
		echo: echo.New(),
		config: &config.Config{
			Port:               "8000",
			WebURL:             "http://localhost:3000",
			CORSAllowedOrigins: "*",
		},
		app:          app,
		verifier:     stubVerifier{},
		cache:        memory.NewResponseCache(clockwork.NewFakeClock(), time.Hour),
		cacheMetrics: metrics.NewCacheMetrics(reg),
		httpMetrics:  metrics.NewHTTPMetrics(reg),
		metrics:      metrics.Handler(reg),
		startTime:    time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withCache(cache domain.ResponseCache) func(*Server) {
	return func(s *Server) {
		s.cache = cache
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

// serve runs a request through the full middleware chain.
func serve(t *testing.T, srv *Server, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func mustCreateDashboard(t *testing.T, store *memory.Store, owner, name string) *domain.Dashboard {
	t.Helper()
	d, err := store.Dashboards().Create(context.Background(), name, owner)
	require.NoError(t, err)
	return d
}
