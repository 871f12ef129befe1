// Package redis implements the result cache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/cache"
)

// DefaultTTL is how long results stay cached.
const DefaultTTL = 24 * time.Hour

// Cache is a Redis-backed cache.Cache.
type Cache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

var _ cache.Cache = (*Cache)(nil)

// New wraps an existing client.
func New(client goredis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// NewFromURL connects using a redis:// URL.
func NewFromURL(url string, ttl time.Duration) (*Cache, *goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, nil, moderation.NewValidationError("redis_url", err.Error())
	}
	client := goredis.NewClient(opts)
	return New(client, ttl), client, nil
}

// Get returns the cached result, if any.
func (c *Cache) Get(ctx context.Context, key string) (moderation.Result, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return moderation.Result{}, false, nil
	}
	if err != nil {
		return moderation.Result{}, false, moderation.NewStoreError("get", "redis", err)
	}

	var res moderation.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return moderation.Result{}, false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return res, true, nil
}

// Set stores result with the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, result moderation.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return moderation.NewStoreError("set", "redis", err)
	}
	return nil
}
