package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/gympoints/models"
	"github.com/cppla/gympoints/store"
)

const (
	leaderboardPrefix  = "leaderboard:"
	defaultBoardLimit  = 10
	maxBoardLimit      = 100
	defaultHistorySize = 50
)

// LeaderboardEntry is one ranked member.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	models.Member
	Tier Tier `json:"tier"`
}

// Leaderboard ranks members by points, ties broken by sign-up order.
// limit is clamped to [1, 100] with 10 as the default.
func (s *RewardsService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultBoardLimit
	}
	if limit > maxBoardLimit {
		limit = maxBoardLimit
	}
	key := fmt.Sprintf("%s%d", leaderboardPrefix, limit)
	gen := s.boardGen.Load()
	if s.cache != nil {
		if b, ok := s.cache.GetBytes(ctx, key); ok {
			var cached []LeaderboardEntry
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
		}
	}

	members, err := s.store.ListMembersByPoints(ctx, limit)
	if err != nil {
		return nil, storageErr("leaderboard", err)
	}
	entries := make([]LeaderboardEntry, len(members))
	for i, m := range members {
		entries[i] = LeaderboardEntry{Rank: i + 1, Member: m, Tier: Classify(m.Streak)}
	}

	if s.cache != nil && s.boardGen.Load() == gen {
		if b, err := json.Marshal(entries); err == nil {
			s.cache.SetBytes(ctx, key, b, s.cacheTTL)
			// a mutation that landed between the check and the write
			if s.boardGen.Load() != gen {
				s.cache.InvalidatePrefix(ctx, key)
			}
		}
	}
	return entries, nil
}

// invalidateLeaderboard bumps the board generation before dropping cached
// pages, so reads that started earlier do not cache what they saw.
func (s *RewardsService) invalidateLeaderboard(ctx context.Context) {
	s.boardGen.Add(1)
	if s.cache != nil {
		s.cache.InvalidatePrefix(ctx, leaderboardPrefix)
	}
}

// MemberRank returns the 1-based leaderboard position of a member.
func (s *RewardsService) MemberRank(ctx context.Context, memberID uint) (int, error) {
	members, err := s.store.ListMembersByPoints(ctx, 0)
	if err != nil {
		return 0, storageErr("rank", err)
	}
	for i, m := range members {
		if m.ID == memberID {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: id %d", ErrMemberNotFound, memberID)
}

// RedemptionHistory lists a member's redemptions newest first, each with its prize.
func (s *RewardsService) RedemptionHistory(ctx context.Context, memberID uint) ([]models.Redemption, error) {
	if err := s.memberExists(ctx, memberID); err != nil {
		return nil, err
	}
	items, err := s.store.ListRedemptions(ctx, memberID)
	if err != nil {
		return nil, storageErr("redemption history", err)
	}
	return items, nil
}

// CheckInHistory lists a member's most recent check-ins, newest first.
func (s *RewardsService) CheckInHistory(ctx context.Context, memberID uint, limit int) ([]models.CheckIn, error) {
	if err := s.memberExists(ctx, memberID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistorySize
	}
	items, err := s.store.ListCheckIns(ctx, memberID, limit)
	if err != nil {
		return nil, storageErr("check-in history", err)
	}
	return items, nil
}

func (s *RewardsService) memberExists(ctx context.Context, memberID uint) error {
	_, err := s.store.MemberByID(ctx, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: id %d", ErrMemberNotFound, memberID)
	}
	if err != nil {
		return storageErr("load member", err)
	}
	return nil
}

// Stats is the gym-wide dashboard summary.
type Stats struct {
	Members            int64                             `json:"members"`
	CheckInsToday      int64                             `json:"check_ins_today"`
	PendingRedemptions int64                             `json:"pending_redemptions"`
	Redemptions        map[models.RedemptionStatus]int64 `json:"redemptions"`
}

// Stats summarizes activity for the calendar day of today.
func (s *RewardsService) Stats(ctx context.Context, today time.Time) (*Stats, error) {
	members, err := s.store.CountMembers(ctx)
	if err != nil {
		return nil, storageErr("count members", err)
	}
	checkIns, err := s.store.CountCheckInsOn(ctx, models.DateKey(s.dayOf(today)))
	if err != nil {
		return nil, storageErr("count check-ins", err)
	}
	rows, err := s.store.CountRedemptionsByStatus(ctx)
	if err != nil {
		return nil, storageErr("count redemptions", err)
	}
	st := &Stats{
		Members:       members,
		CheckInsToday: checkIns,
		Redemptions:   map[models.RedemptionStatus]int64{},
	}
	for _, r := range rows {
		st.Redemptions[r.Status] = r.Count
	}
	st.PendingRedemptions = st.Redemptions[models.RedemptionPending]
	s.log.Debug("stats computed", zap.Int64("members", members), zap.Int64("check_ins_today", checkIns))
	return st, nil
}
