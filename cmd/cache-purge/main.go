// Command cache-purge removes cached GitHub proxy responses from Redis.
//
// With -body it deletes the single entry for that request body. Without it,
// it scans the keyspace and deletes every cached response.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/xstevenyung/jumpdash/internal/adapter/redis"
	"github.com/xstevenyung/jumpdash/internal/domain"
)

func main() {
	var (
		redisURL = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (or set REDIS_URL env)")
		body     = flag.String("body", "", "Purge only the entry cached for this JSON request body")
		dryRun   = flag.Bool("dry-run", false, "Dry run mode (don't delete anything)")
		verbose  = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *redisURL == "" {
		log.Fatal("Redis URL required (--redis or REDIS_URL env)")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	ctx := context.Background()
	client, err := redis.NewClient(ctx, *redisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() { _ = client.Close() }()
	slog.Info("Connected to Redis", "url", sanitizeURL(*redisURL))

	// TTL is irrelevant here, nothing is written.
	cache := redis.NewResponseCache(client, 0)

	if *body != "" {
		purgeOne(ctx, cache, *body, *dryRun)
		return
	}

	start := time.Now()
	stats, err := cache.Purge(ctx, *dryRun)
	if err != nil {
		log.Fatalf("Purge failed: %v", err)
	}
	slog.Info("Purge summary",
		"dry_run", *dryRun,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deleted", stats.Deleted,
		"duration_ms", time.Since(start).Milliseconds())
}

func purgeOne(ctx context.Context, cache *redis.ResponseCache, body string, dryRun bool) {
	key, err := domain.CacheKey([]byte(body))
	if err != nil {
		log.Fatalf("Invalid JSON body: %v", err)
	}
	if dryRun {
		slog.Info("Would purge cached response", "key", key)
		return
	}
	existed, err := cache.Delete(ctx, key)
	if err != nil {
		log.Fatalf("Purge failed: %v", err)
	}
	slog.Info("Purged cached response", "key", key, "existed", existed)
}

// sanitizeURL hides the password of a Redis URL for logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
