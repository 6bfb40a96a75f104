package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/gympoints/store/storetest"
)

func TestSweepStaleStreaks(t *testing.T) {
	svc, st := newService(t)
	ctx := t.Context()

	stale := storetest.SeedMember(t, st, "stale@example.com", 100)
	withStreak(t, st, stale, 4, "2024-05-07")
	recent := storetest.SeedMember(t, st, "recent@example.com", 100)
	withStreak(t, st, recent, 2, "2024-05-09")
	current := storetest.SeedMember(t, st, "current@example.com", 100)
	withStreak(t, st, current, 8, "2024-05-10")
	storetest.SeedMember(t, st, "never@example.com", 0)

	n, err := svc.SweepStaleStreaks(ctx, day("2024-05-10"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, 0, reload(t, st, stale.ID).Streak)
	assert.Equal(t, 100, reload(t, st, stale.ID).Points)
	assert.Equal(t, 2, reload(t, st, recent.ID).Streak)
	assert.Equal(t, 8, reload(t, st, current.ID).Streak)

	// a swept member still scores a fresh streak on the next visit
	res, err := svc.CheckIn(ctx, stale.ID, day("2024-05-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Member.Streak)
	assert.Equal(t, 10, res.PointsEarned)
}

func TestStreakSweeperSchedule(t *testing.T) {
	svc, _ := newService(t)

	_, err := NewStreakSweeper(svc, "not a schedule")
	assert.Error(t, err)

	sw, err := NewStreakSweeper(svc, "5 0 * * *")
	require.NoError(t, err)
	sw.Start()
	sw.Stop()
}
