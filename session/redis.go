package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:member:"

// RedisSlot stores the current member of one browser session in Redis with a sliding TTL.
type RedisSlot struct {
	rc  *redis.Client
	key string
	ttl time.Duration
}

func (s *RedisSlot) Load(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	v, err := s.rc.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// refresh expiry on use; a failure here only shortens the session
	_ = s.rc.Expire(ctx, s.key, s.ttl).Err()
	return v, nil
}

func (s *RedisSlot) Save(ctx context.Context, memberID string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if memberID == "" {
		return s.rc.Del(ctx, s.key).Err()
	}
	return s.rc.Set(ctx, s.key, memberID, s.ttl).Err()
}

func (s *RedisSlot) Clear(ctx context.Context) error {
	return s.Save(ctx, "")
}

// RedisStore hands out RedisSlots sharing one client.
type RedisStore struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a store whose slots expire after ttl of inactivity.
func NewRedisStore(rc *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{rc: rc, ttl: ttl}
}

func (s *RedisStore) Slot(key string) Anchor {
	return &RedisSlot{rc: s.rc, key: redisKeyPrefix + key, ttl: s.ttl}
}
