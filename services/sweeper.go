package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cppla/gympoints/metrics"
	"github.com/cppla/gympoints/models"
)

// SweepStaleStreaks zeroes the streak of every member who did not check in
// yesterday or today, so the displayed streak matches what the next check-in
// will compute. Points and levels are not touched.
func (s *RewardsService) SweepStaleStreaks(ctx context.Context, today time.Time) (int64, error) {
	yesterday := models.DateKey(s.dayOf(today).AddDate(0, 0, -1))
	n, err := s.store.ResetStaleStreaks(ctx, yesterday)
	if err != nil {
		s.observe("sweep", storageErr("reset streaks", err))
		return 0, storageErr("reset streaks", err)
	}
	s.observe("sweep", nil)
	metrics.AddStreaksReset(n)
	if n > 0 {
		s.invalidateLeaderboard(ctx)
	}
	s.log.Info("stale streaks reset", zap.Int64("members", n), zap.String("before", yesterday))
	return n, nil
}

// StreakSweeper runs SweepStaleStreaks on a cron schedule.
type StreakSweeper struct {
	svc  *RewardsService
	cron *cron.Cron
}

// NewStreakSweeper schedules the sweep with a standard five-field spec in the
// engine's time zone.
func NewStreakSweeper(svc *RewardsService, spec string) (*StreakSweeper, error) {
	c := cron.New(
		cron.WithLocation(svc.loc),
		cron.WithChain(cron.Recover(cron.DiscardLogger)),
	)
	sw := &StreakSweeper{svc: svc, cron: c}
	if _, err := c.AddFunc(spec, sw.run); err != nil {
		return nil, err
	}
	return sw, nil
}

func (sw *StreakSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := sw.svc.SweepStaleStreaks(ctx, time.Time{}); err != nil {
		sw.svc.log.Warn("streak sweep failed", zap.Error(err))
	}
}

// Start begins the schedule in the background.
func (sw *StreakSweeper) Start() {
	sw.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *StreakSweeper) Stop() {
	<-sw.cron.Stop().Done()
}
