package radarserver

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
)

// ResponseCache caches a radar query's reduced JSON body, keyed by the
// request parameters that determine the result. A nil *ResponseCache (when
// RADAR_REDIS_ADDRESS is unset) is valid and every call becomes a no-op, so
// the server runs without Redis in development.
type ResponseCache struct {
	cache *cache.Cache[[]byte]
}

// NewResponseCache connects to redisAddress and returns a ResponseCache
// backed by it, or nil if redisAddress is empty.
func NewResponseCache(redisAddress string) *ResponseCache {
	if redisAddress == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddress})
	redisStore := redisstore.NewRedis(client, store.WithExpiration(10*time.Minute))
	return &ResponseCache{cache: cache.New[[]byte](redisStore)}
}

// Get returns the cached body for key, if present.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	value, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores body under key.
func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil {
		return
	}
	_ = c.cache.Set(ctx, key, body)
}

// responseCacheKey derives a stable cache key from the parameters that
// fully determine a radar query's result: the origin, the query instant,
// the duration, the mode filter and the transfer cap. instant is
// truncated to the minute so near-identical
// requests within the same minute share a cache entry.
func responseCacheKey(originExtID string, instant time.Time, durationMinutes int, modesRaw string, transferCapSeconds int) string {
	raw := fmt.Sprintf("%s|%s|%d|%s|%d", originExtID, instant.Truncate(time.Minute).Format(time.RFC3339), durationMinutes, modesRaw, transferCapSeconds)
	return fmt.Sprintf("radar:%x", xxhash.Sum64String(raw))
}
