package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/gympoints/config"
	"github.com/cppla/gympoints/session"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns a singleton Redis client based on loaded config, or nil
// when Redis is disabled or unreachable at first use.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		if !cfg.RedisEnabled {
			return
		}
		rc := redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			if Sugar != nil {
				Sugar.Warnf("redis unavailable at %s, using in-memory fallbacks: %v", rc.Options().Addr, err)
			}
			_ = rc.Close()
			return
		}
		redisClient = rc
	})
	return redisClient
}

// CloseRedis releases the singleton client if one was opened.
func CloseRedis() {
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// NewLeaderboardCache prefers Redis and falls back to memory.
func NewLeaderboardCache() Cache {
	if rc := GetRedis(); rc != nil {
		return NewRedisCache(rc)
	}
	return NewMemoryCache()
}

// NewSessionStore prefers Redis-backed session slots and falls back to memory.
func NewSessionStore() session.Store {
	ttl := time.Duration(config.Get().SessionTTLHours) * time.Hour
	if rc := GetRedis(); rc != nil {
		return session.NewRedisStore(rc, ttl)
	}
	return session.NewMemoryStore(ttl)
}
