package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xstevenyung/jumpdash/internal/domain"
)

const scanCount = 100

// PurgeStats summarizes one Purge run.
type PurgeStats struct {
	Scanned int
	Matched int
	Deleted int
}

// Delete removes a single cached response. It reports whether the key existed.
func (c *ResponseCache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete cached response: %w", err)
	}
	return n > 0, nil
}

// Purge scans the keyspace and deletes every key shaped like a cached
// response. Other keys are left alone. With dryRun set nothing is deleted.
func (c *ResponseCache) Purge(ctx context.Context, dryRun bool) (PurgeStats, error) {
	var stats PurgeStats
	var cursor uint64

	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, "*", scanCount).Result()
		if err != nil {
			return stats, fmt.Errorf("scan failed: %w", err)
		}

		var batch []string
		for _, key := range keys {
			stats.Scanned++
			if !domain.IsCacheKey(key) {
				continue
			}
			stats.Matched++
			slog.Debug("Cached response matched", "key", key, "dry_run", dryRun)
			batch = append(batch, key)
		}

		if len(batch) > 0 && !dryRun {
			n, err := c.rdb.Del(ctx, batch...).Result()
			if err != nil {
				return stats, fmt.Errorf("delete failed: %w", err)
			}
			stats.Deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			return stats, nil
		}
	}
}
