package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/gympoints/models"
	"github.com/cppla/gympoints/store/storetest"
	"github.com/cppla/gympoints/utils"
)

func emails(entries []LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Email
	}
	return out
}

func TestLeaderboardOrderAndStability(t *testing.T) {
	svc, st := newService(t)
	ctx := t.Context()
	storetest.SeedMember(t, st, "a@example.com", 50)
	storetest.SeedMember(t, st, "b@example.com", 300)
	storetest.SeedMember(t, st, "c@example.com", 50)
	storetest.SeedMember(t, st, "d@example.com", 120)

	board, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@example.com", "d@example.com", "a@example.com", "c@example.com"}, emails(board))
	for i, e := range board {
		assert.Equal(t, i+1, e.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, board[i-1].Points, e.Points)
		}
	}

	again, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, emails(board), emails(again))

	top, err := svc.Leaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@example.com", "d@example.com"}, emails(top))
}

func TestLeaderboardCacheInvalidatedOnMutation(t *testing.T) {
	svc, st := newService(t, WithLeaderboardCache(utils.NewMemoryCache(), time.Hour))
	ctx := t.Context()
	a := storetest.SeedMember(t, st, "a@example.com", 100)
	storetest.SeedMember(t, st, "b@example.com", 105)

	board, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", board[0].Email)

	_, err = svc.CheckIn(ctx, a.ID, day("2024-05-10"))
	require.NoError(t, err)

	board, err = svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", board[0].Email)
	assert.Equal(t, 110, board[0].Points)
	assert.Equal(t, TierIniciante, board[0].Tier)
}

func TestLeaderboardServesFromCache(t *testing.T) {
	cache := utils.NewMemoryCache()
	svc, st := newService(t, WithLeaderboardCache(cache, time.Hour))
	ctx := t.Context()
	storetest.SeedMember(t, st, "a@example.com", 10)

	_, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)

	// written behind the engine's back: the cached page is still served
	storetest.SeedMember(t, st, "b@example.com", 999)
	board, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, board, 1)
}

// racingCache runs onMiss when a page is not cached, standing in for a
// mutation that commits while the board is being read.
type racingCache struct {
	*utils.MemoryCache
	onMiss func()
}

func (c *racingCache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	b, ok := c.MemoryCache.GetBytes(ctx, key)
	if !ok && c.onMiss != nil {
		fn := c.onMiss
		c.onMiss = nil
		fn()
	}
	return b, ok
}

func TestLeaderboardSkipsCachingAcrossInvalidation(t *testing.T) {
	cache := &racingCache{MemoryCache: utils.NewMemoryCache()}
	svc, st := newService(t, WithLeaderboardCache(cache, time.Hour))
	ctx := t.Context()
	storetest.SeedMember(t, st, "a@example.com", 10)
	cache.onMiss = func() { svc.invalidateLeaderboard(ctx) }

	board, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, board, 1)
	_, cached := cache.MemoryCache.GetBytes(ctx, "leaderboard:10")
	assert.False(t, cached)

	storetest.SeedMember(t, st, "b@example.com", 999)
	board, err = svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@example.com", "a@example.com"}, emails(board))

	// with no invalidation in flight the page is cached again
	_, cached = cache.MemoryCache.GetBytes(ctx, "leaderboard:10")
	assert.True(t, cached)
}

func TestMemberRank(t *testing.T) {
	svc, st := newService(t)
	ctx := t.Context()
	storetest.SeedMember(t, st, "a@example.com", 10)
	b := storetest.SeedMember(t, st, "b@example.com", 500)
	c := storetest.SeedMember(t, st, "c@example.com", 200)

	rank, err := svc.MemberRank(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	rank, err = svc.MemberRank(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	_, err = svc.MemberRank(ctx, 999)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestHistories(t *testing.T) {
	svc, st := newService(t)
	ctx := t.Context()
	m := storetest.SeedMember(t, st, "a@example.com", 0)
	cheap := storetest.SeedPrize(t, st, "Garrafa", 10, true)
	pricey := storetest.SeedPrize(t, st, "Toalha", 20, true)

	for _, d := range []string{"2024-05-08", "2024-05-09", "2024-05-10"} {
		_, err := svc.CheckIn(ctx, m.ID, day(d))
		require.NoError(t, err)
	}

	checkIns, err := svc.CheckInHistory(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, checkIns, 3)
	assert.Equal(t, "2024-05-10", checkIns[0].CheckInDate)
	assert.Equal(t, 3, checkIns[0].StreakAtTime)
	assert.Equal(t, 14, checkIns[0].PointsEarned)

	limited, err := svc.CheckInHistory(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = svc.Redeem(ctx, m.ID, cheap.ID, day("2024-05-10"))
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, m.ID, pricey.ID, day("2024-05-10"))
	require.NoError(t, err)

	redemptions, err := svc.RedemptionHistory(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, redemptions, 2)
	assert.Equal(t, "Toalha", redemptions[0].Prize.Name)
	assert.Equal(t, "Garrafa", redemptions[1].Prize.Name)

	_, err = svc.RedemptionHistory(ctx, 999)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	_, err = svc.CheckInHistory(ctx, 999, 0)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestPrizesCatalogue(t *testing.T) {
	svc, st := newService(t)
	storetest.SeedPrize(t, st, "Whey", 800, true)
	storetest.SeedPrize(t, st, "Garrafa", 100, true)
	storetest.SeedPrize(t, st, "Esgotado", 50, false)

	prizes, err := svc.Prizes(t.Context())
	require.NoError(t, err)
	require.Len(t, prizes, 2)
	assert.Equal(t, "Garrafa", prizes[0].Name)
	assert.Equal(t, "Whey", prizes[1].Name)
}

func TestStats(t *testing.T) {
	svc, st := newService(t)
	ctx := t.Context()
	a := storetest.SeedMember(t, st, "a@example.com", 500)
	b := storetest.SeedMember(t, st, "b@example.com", 0)
	p := storetest.SeedPrize(t, st, "Garrafa", 100, true)

	_, err := svc.CheckIn(ctx, a.ID, day("2024-05-10"))
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, b.ID, day("2024-05-10"))
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, b.ID, day("2024-05-11"))
	require.NoError(t, err)

	r1, err := svc.Redeem(ctx, a.ID, p.ID, day("2024-05-10"))
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, a.ID, p.ID, day("2024-05-10"))
	require.NoError(t, err)
	_, err = svc.UpdateRedemptionStatus(ctx, r1.Redemption.ID, models.RedemptionCompleted)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, day("2024-05-10"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Members)
	assert.Equal(t, int64(2), stats.CheckInsToday)
	assert.Equal(t, int64(1), stats.PendingRedemptions)
	assert.Equal(t, int64(1), stats.Redemptions[models.RedemptionCompleted])
}
