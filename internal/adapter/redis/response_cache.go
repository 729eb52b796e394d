package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ResponseCache keeps upstream response bodies under the caller's key as-is,
// with no prefix, so existing entries stay readable.
type ResponseCache struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

func NewResponseCache(rdb goredis.Cmdable, ttl time.Duration) *ResponseCache {
	return &ResponseCache{rdb: rdb, ttl: ttl}
}

func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached response: %w", err)
	}
	return body, true, nil
}

func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) error {
	if err := c.rdb.Set(ctx, key, body, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache response: %w", err)
	}
	return nil
}
