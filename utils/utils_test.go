package utils

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/gympoints/config"
)

func TestMain(m *testing.M) {
	config.Set(config.AppConfig{
		JWTSecret:                  "test-secret",
		RegisterAttemptCooldownSec: 10,
		RegisterMaxPerIPPerDay:     2,
	})
	os.Exit(m.Run())
}

var codePattern = regexp.MustCompile(`^GYM-[A-Z0-9]{8}$`)

func TestGenerateRedemptionCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateRedemptionCode()
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
		seen[code] = true
	}
	// 36^8 possibilities; 200 draws colliding means the source is broken
	assert.Len(t, seen, 200)
}

func TestSanitizeStripsMarkup(t *testing.T) {
	assert.Equal(t, "Maria", Sanitize("<b>Maria</b>"))
	assert.Equal(t, "", Sanitize("<script>alert(1)</script>"))
	assert.Equal(t, "Rua das Flores 10", Sanitize("Rua das Flores 10"))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.SetBytes(ctx, "leaderboard:10", []byte("a"), time.Minute)
	c.SetBytes(ctx, "leaderboard:20", []byte("b"), time.Minute)
	c.SetBytes(ctx, "other", []byte("c"), time.Minute)

	b, ok := c.GetBytes(ctx, "leaderboard:10")
	require.True(t, ok)
	assert.Equal(t, "a", string(b))

	c.InvalidatePrefix(ctx, "leaderboard:")
	_, ok = c.GetBytes(ctx, "leaderboard:10")
	assert.False(t, ok)
	_, ok = c.GetBytes(ctx, "leaderboard:20")
	assert.False(t, ok)
	_, ok = c.GetBytes(ctx, "other")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.GetBytes(ctx, "other")
	assert.False(t, ok, "entry should expire")
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("front-desk", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "front-desk", claims.Subject)
}

func TestTokenRejectsExpiredAndTampered(t *testing.T) {
	expired, err := GenerateToken("front-desk", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	tok, err := GenerateToken("front-desk", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(tok + "x")
	assert.Error(t, err)
}

func TestRegistrationThrottleMemoryFallback(t *testing.T) {
	ctx := context.Background()
	ip := "203.0.113.7"

	assert.True(t, RegistrationCooldownTry(ctx, ip))
	assert.False(t, RegistrationCooldownTry(ctx, ip), "second attempt inside cooldown")
	assert.True(t, RegistrationCooldownTry(ctx, "203.0.113.8"))

	assert.True(t, RegistrationDailyLimitCheck(ctx, ip))
	RegistrationDailyIncrement(ctx, ip)
	assert.True(t, RegistrationDailyLimitCheck(ctx, ip))
	RegistrationDailyIncrement(ctx, ip)
	assert.False(t, RegistrationDailyLimitCheck(ctx, ip))
}
