package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Minute
	cacheKeyPrefix  = "gympoints:"
)

// Cache stores opaque bytes under string keys with a TTL.
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool)
	SetBytes(ctx context.Context, key string, b []byte, ttl time.Duration)
	InvalidatePrefix(ctx context.Context, prefix string)
}

// RedisCache is a byte cache in Redis. Failures degrade to cache misses.
type RedisCache struct {
	rc *redis.Client
}

// NewRedisCache wraps a client.
func NewRedisCache(rc *redis.Client) *RedisCache {
	return &RedisCache{rc: rc}
}

// GetBytes returns cached bytes for a key.
func (c *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if Sugar != nil && err != redis.Nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// SetBytes stores bytes with ttl (one minute when zero).
func (c *RedisCache) SetBytes(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, cacheKeyPrefix+key, b, ttl).Err(); err != nil {
		if Sugar != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
	}
}

// InvalidatePrefix deletes keys that match the given prefix using SCAN.
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := c.rc.Scan(ctx, cursor, cacheKeyPrefix+prefix+"*", 1000).Result()
		if err != nil {
			if Sugar != nil {
				Sugar.Warnf("cache invalidate failed prefix=%s err=%v", prefix, err)
			}
			return
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			return
		}
	}
}

type memEntry struct {
	b         []byte
	expiresAt time.Time
}

// MemoryCache is the in-process fallback when Redis is disabled.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memEntry
	now   func() time.Time
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]memEntry{}, now: time.Now}
}

func (c *MemoryCache) GetBytes(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return e.b, true
}

func (c *MemoryCache) SetBytes(_ context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c.mu.Lock()
	c.items[key] = memEntry{b: b, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) InvalidatePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
}
