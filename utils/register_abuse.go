package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/gympoints/config"
)

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// in-memory fallback counters, keyed like the Redis ones
type regEntry struct {
	n         int
	expiresAt time.Time
}

var (
	regMem   = map[string]regEntry{}
	regMemMu sync.Mutex
)

func memIncr(key string, ttl time.Duration, setOnly bool) (int, bool) {
	regMemMu.Lock()
	defer regMemMu.Unlock()
	now := time.Now()
	e, ok := regMem[key]
	if ok && now.After(e.expiresAt) {
		ok = false
	}
	if setOnly {
		if ok {
			return e.n, false
		}
		regMem[key] = regEntry{n: 1, expiresAt: now.Add(ttl)}
		return 1, true
	}
	if !ok {
		e = regEntry{expiresAt: now.Add(ttl)}
	}
	e.n++
	regMem[key] = e
	return e.n, true
}

func memGet(key string) int {
	regMemMu.Lock()
	defer regMemMu.Unlock()
	e, ok := regMem[key]
	if !ok || time.Now().After(e.expiresAt) {
		return 0
	}
	return e.n
}

func untilTomorrow() time.Duration {
	now := time.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Sub(now)
}

// RegistrationCooldownTry enforces a short cooldown between attempts per IP.
func RegistrationCooldownTry(ctx context.Context, ip string) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	if sec <= 0 {
		return true
	}
	ttl := time.Duration(sec) * time.Second
	key := regKey("cooldown", ip)
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		ok, err := cli.SetNX(ctx, key, "1", ttl).Result()
		if err != nil {
			return true
		} // fail-open
		return ok
	}
	_, ok := memIncr(key, ttl, true)
	return ok
}

// RegistrationDailyLimitCheck allows up to N successful registrations per day per IP.
func RegistrationDailyLimitCheck(ctx context.Context, ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	key := regKey("succday", ip, time.Now().Format("20060102"))
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := cli.Get(ctx, key).Int()
		if err == redis.Nil {
			n = 0
		} else if err != nil {
			return true
		}
		return n < limit
	}
	return memGet(key) < limit
}

// RegistrationDailyIncrement increments the success counter for today.
func RegistrationDailyIncrement(ctx context.Context, ip string) {
	key := regKey("succday", ip, time.Now().Format("20060102"))
	ttl := untilTomorrow()
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		if err := cli.Incr(ctx, key).Err(); err == nil {
			_ = cli.Expire(ctx, key, ttl).Err()
		}
		return
	}
	memIncr(key, ttl, false)
}
