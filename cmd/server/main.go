package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xstevenyung/jumpdash/internal/adapter/auth"
	"github.com/xstevenyung/jumpdash/internal/adapter/github"
	"github.com/xstevenyung/jumpdash/internal/adapter/httpserver"
	"github.com/xstevenyung/jumpdash/internal/adapter/metrics"
	"github.com/xstevenyung/jumpdash/internal/adapter/npm"
	"github.com/xstevenyung/jumpdash/internal/adapter/postgres"
	"github.com/xstevenyung/jumpdash/internal/adapter/redis"
	"github.com/xstevenyung/jumpdash/internal/app"
	"github.com/xstevenyung/jumpdash/internal/blocks"
	"github.com/xstevenyung/jumpdash/internal/platform/config"
	"github.com/xstevenyung/jumpdash/internal/platform/crypto"
	"github.com/xstevenyung/jumpdash/internal/platform/logging"
	"github.com/xstevenyung/jumpdash/internal/platform/retry"
	"github.com/xstevenyung/jumpdash/internal/platform/version"
)

const (
	dialTimeout     = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func runGracefulShutdown(srv *httpserver.Server, stopBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopBackground()
		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func dialPolicy(dependency string) retry.Policy {
	p := retry.DefaultPolicy()
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency not reachable yet, retrying",
			"dependency", dependency, "attempt", attempt, "backoff", backoff, "error", err)
	}
	return p
}

func setupDB(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *pgxpool.Pool {
	tracer := postgres.NewQueryTracer(metrics.NewDBMetrics(reg))

	pool, err := retry.Do(ctx, dialPolicy("postgres"), func(ctx context.Context) (*pgxpool.Pool, error) {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		return postgres.Connect(dialCtx, cfg.DatabaseURL, tracer)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := postgres.RunMigrations(migrateCtx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	redisMetrics := metrics.NewRedisMetrics(reg)
	hooks := []goredis.Hook{
		redis.NewMetricsHook(redisMetrics),
		redis.NewCircuitBreakerHook(redisMetrics),
	}

	client, err := retry.Do(ctx, dialPolicy("redis"), func(ctx context.Context) (*goredis.Client, error) {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		return redis.NewClient(dialCtx, cfg.RedisURL, hooks...)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	build := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", build.Version, "commit", build.Commit)

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	reg := metrics.NewRegistry()

	pool := setupDB(ctx, cfg, reg)
	defer pool.Close()

	redisClient := setupRedis(ctx, cfg, reg)
	defer func() { _ = redisClient.Close() }()

	cipher, err := crypto.New(cfg.TokenEncryptionKey)
	if err != nil {
		slog.Error("Failed to create token cipher", "error", err)
		os.Exit(1)
	}
	if cfg.TokenEncryptionKey == "" {
		slog.Warn("TOKEN_ENCRYPTION_KEY not set, access tokens are stored in plain text")
	}

	upstreamMetrics := metrics.NewUpstreamMetrics(reg)
	upstreamHTTP := &http.Client{Timeout: cfg.UpstreamTimeout}
	githubClient := github.NewClient(github.WithHTTPClient(upstreamHTTP), github.WithMetrics(upstreamMetrics))
	npmClient := npm.NewClient(npm.WithHTTPClient(upstreamHTTP), npm.WithMetrics(upstreamMetrics))
	oauthClient := github.NewOAuthClient(cfg.GitHubClientID, cfg.GitHubClientSecret,
		github.WithOAuthHTTPClient(upstreamHTTP))

	appSvc := app.NewService(
		postgres.NewDashboardRepo(pool),
		postgres.NewBlockRepo(pool),
		postgres.NewAccessRepo(pool, cipher),
		blocks.Builtin(githubClient, npmClient),
		oauthClient,
		githubClient,
	)

	verifier, err := auth.NewJWKSVerifier(ctx, cfg.JWKSURL(), cfg.Issuer(), cfg.Auth0Audience)
	if err != nil {
		slog.Error("Failed to set up token verification", "error", err)
		os.Exit(1)
	}

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}
	cache := redis.NewResponseCache(redisClient, cfg.CacheTTL)
	srv := httpserver.NewServer(cfg, appSvc, verifier, cache, reg, healthChecks)

	done := runGracefulShutdown(srv, stopBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
