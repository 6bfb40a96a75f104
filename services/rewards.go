// Package services implements the gym rewards engine: registration, daily
// check-ins, streaks, prize redemption and the read-side projections.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/gympoints/config"
	"github.com/cppla/gympoints/metrics"
	"github.com/cppla/gympoints/models"
	"github.com/cppla/gympoints/session"
	"github.com/cppla/gympoints/store"
	"github.com/cppla/gympoints/utils"
)

// maxCodeAttempts bounds redemption code regeneration on collision.
const maxCodeAttempts = 5

// Rules holds the scoring constants.
type Rules struct {
	CheckInBasePoints     int
	StreakBonusMultiplier int
	ReferralBonusPoints   int
	RedemptionValidDays   int
}

// DefaultRules returns the stock scoring: 10 per check-in, +2 per streak day,
// 100 per referral, codes valid for 30 days.
func DefaultRules() Rules {
	return Rules{
		CheckInBasePoints:     10,
		StreakBonusMultiplier: 2,
		ReferralBonusPoints:   100,
		RedemptionValidDays:   30,
	}
}

// RulesFromConfig reads the rewards section of the app config.
func RulesFromConfig(c config.AppConfig) Rules {
	return Rules{
		CheckInBasePoints:     c.CheckInBasePoints,
		StreakBonusMultiplier: c.StreakBonusMultiplier,
		ReferralBonusPoints:   c.ReferralBonusPoints,
		RedemptionValidDays:   c.RedemptionValidDays,
	}
}

// Cache is the byte cache backing the leaderboard projection.
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool)
	SetBytes(ctx context.Context, key string, b []byte, ttl time.Duration)
	InvalidatePrefix(ctx context.Context, prefix string)
}

// RewardsService is the rewards engine. It is safe for concurrent use; all
// state lives in the record store.
type RewardsService struct {
	store    store.RecordStore
	rules    Rules
	log      *zap.Logger
	newCode  func() (string, error)
	cache    Cache
	cacheTTL time.Duration
	boardGen atomic.Uint64
	now      func() time.Time
	loc      *time.Location
}

// Option configures a RewardsService.
type Option func(*RewardsService)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *RewardsService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCodeGenerator replaces the redemption code generator.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *RewardsService) {
		if gen != nil {
			s.newCode = gen
		}
	}
}

// WithLeaderboardCache caches leaderboard pages for ttl.
func WithLeaderboardCache(c Cache, ttl time.Duration) Option {
	return func(s *RewardsService) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithClock sets the source of "now" used when callers pass a zero day.
func WithClock(now func() time.Time) Option {
	return func(s *RewardsService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *RewardsService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewRewardsService builds an engine over st.
func NewRewardsService(st store.RecordStore, rules Rules, opts ...Option) *RewardsService {
	s := &RewardsService{
		store:    st,
		rules:    rules,
		log:      zap.NewNop(),
		newCode:  utils.GenerateRedemptionCode,
		cacheTTL: time.Minute,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the scoring constants in effect.
func (s *RewardsService) Rules() Rules {
	return s.rules
}

// Today returns the current calendar day at midnight in the engine's zone.
func (s *RewardsService) Today() time.Time {
	return s.dayOf(time.Time{})
}

func (s *RewardsService) dayOf(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	t = t.In(s.loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *RewardsService) observe(op string, err error) {
	if err == nil {
		metrics.ObserveOperation(op, "ok")
		return
	}
	metrics.ObserveOperation(op, KindName(err))
	if errors.Is(err, ErrStorage) {
		s.log.Error("rewards operation failed", zap.String("op", op), zap.Error(err))
	}
}

// memberSaveErr maps a SaveMember failure onto an error kind.
func memberSaveErr(err error) error {
	if errors.Is(err, store.ErrVersionConflict) {
		return ErrConcurrentUpdate
	}
	return storageErr("save member", err)
}

// lockMember loads a member for update, mapping absence to ErrMemberNotFound.
func lockMember(ctx context.Context, tx store.RecordStore, id uint) (*models.Member, error) {
	m, err := tx.MemberByIDForUpdate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrMemberNotFound, id)
	}
	if err != nil {
		return nil, storageErr("load member", err)
	}
	return m, nil
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name          string
	Email         string
	Phone         string
	Address       string
	ReferrerEmail string
}

func (in RegisterInput) normalize() (RegisterInput, error) {
	out := RegisterInput{
		Name:          utils.Sanitize(in.Name),
		Email:         strings.TrimSpace(in.Email),
		Phone:         utils.Sanitize(in.Phone),
		Address:       utils.Sanitize(in.Address),
		ReferrerEmail: strings.TrimSpace(in.ReferrerEmail),
	}
	switch {
	case out.Name == "":
		return out, invalid("name is required")
	case out.Email == "":
		return out, invalid("email is required")
	case out.Phone == "":
		return out, invalid("phone is required")
	case out.Address == "":
		return out, invalid("address is required")
	}
	if addr, err := mail.ParseAddress(out.Email); err != nil || addr.Address != out.Email {
		return out, invalid("malformed email %q", out.Email)
	}
	return out, nil
}

// Register creates a member, credits the referrer when one is given and
// points anchor (if any) at the new member.
func (s *RewardsService) Register(ctx context.Context, anchor session.Anchor, in RegisterInput) (member *models.Member, err error) {
	const op = "register"
	defer func() { s.observe(op, err) }()

	in, err = in.normalize()
	if err != nil {
		return nil, err
	}

	var bonus int
	err = s.store.Transaction(ctx, func(tx store.RecordStore) error {
		if _, err := tx.MemberByEmail(ctx, in.Email); err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
		} else if !errors.Is(err, store.ErrNotFound) {
			return storageErr("lookup email", err)
		}

		var referrerID uint
		if in.ReferrerEmail != "" {
			ref, err := tx.MemberByEmail(ctx, in.ReferrerEmail)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrReferrerNotFound, in.ReferrerEmail)
			}
			if err != nil {
				return storageErr("lookup referrer", err)
			}
			referrerID = ref.ID
		}

		m := &models.Member{
			Name:    in.Name,
			Email:   in.Email,
			Phone:   in.Phone,
			Address: in.Address,
			Level:   1,
		}
		if referrerID != 0 {
			m.ReferredByID = &referrerID
		}
		if err := tx.CreateMember(ctx, m); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
			}
			return storageErr("create member", err)
		}

		if referrerID != 0 {
			ref, err := lockMember(ctx, tx, referrerID)
			if err != nil {
				return err
			}
			ref.Points += s.rules.ReferralBonusPoints
			ref.Level = Level(ref.Points)
			if err := tx.SaveMember(ctx, ref); err != nil {
				return memberSaveErr(err)
			}
			bonus = s.rules.ReferralBonusPoints
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, asKind(op, err)
	}

	metrics.AddPointsAwarded("referral", bonus)
	s.invalidateLeaderboard(ctx)
	s.log.Info("member registered",
		zap.Uint("member_id", member.ID),
		zap.Bool("referred", member.ReferredByID != nil),
	)

	if anchor != nil {
		if err := anchor.Save(ctx, formatID(member.ID)); err != nil {
			s.log.Warn("session save after register failed", zap.Uint("member_id", member.ID), zap.Error(err))
		}
	}
	return member, nil
}

// CheckInResult is the outcome of a successful check-in.
type CheckInResult struct {
	Member       *models.Member  `json:"member"`
	PointsEarned int             `json:"points_earned"`
	Consecutive  bool            `json:"consecutive"`
	Tier         Tier            `json:"tier"`
	Event        *models.CheckIn `json:"event"`
}

// CheckIn records the member's visit for the calendar day of today (the
// engine clock when zero). A second check-in on the same day fails with
// ErrAlreadyCheckedIn and awards nothing.
func (s *RewardsService) CheckIn(ctx context.Context, memberID uint, today time.Time) (res *CheckInResult, err error) {
	const op = "checkin"
	defer func() { s.observe(op, err) }()

	day := s.dayOf(today)
	todayKey := models.DateKey(day)
	yesterdayKey := models.DateKey(day.AddDate(0, 0, -1))

	err = s.store.Transaction(ctx, func(tx store.RecordStore) error {
		m, err := lockMember(ctx, tx, memberID)
		if err != nil {
			return err
		}

		if _, err := tx.CheckInOn(ctx, m.ID, todayKey); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyCheckedIn, todayKey)
		} else if !errors.Is(err, store.ErrNotFound) {
			return storageErr("lookup check-in", err)
		}

		consecutive := false
		last, err := tx.LastCheckIn(ctx, m.ID)
		switch {
		case err == nil:
			consecutive = last.CheckInDate == yesterdayKey
		case errors.Is(err, store.ErrNotFound):
		default:
			return storageErr("last check-in", err)
		}

		score := s.rules.Score(m.Streak, consecutive)
		event := &models.CheckIn{
			MemberID:     m.ID,
			CheckInDate:  todayKey,
			PointsEarned: score.PointsEarned,
			StreakAtTime: score.NewStreak,
		}
		if err := tx.CreateCheckIn(ctx, event); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: %s", ErrAlreadyCheckedIn, todayKey)
			}
			return storageErr("create check-in", err)
		}

		m.Points += score.PointsEarned
		m.Streak = score.NewStreak
		m.TotalCheckIns++
		m.Level = Level(m.Points)
		m.LastCheckInDate = todayKey
		if err := tx.SaveMember(ctx, m); err != nil {
			return memberSaveErr(err)
		}

		res = &CheckInResult{
			Member:       m,
			PointsEarned: score.PointsEarned,
			Consecutive:  score.Consecutive,
			Tier:         Classify(m.Streak),
			Event:        event,
		}
		return nil
	})
	if err != nil {
		return nil, asKind(op, err)
	}

	metrics.AddPointsAwarded("checkin", res.PointsEarned)
	s.invalidateLeaderboard(ctx)
	s.log.Info("member checked in",
		zap.Uint("member_id", memberID),
		zap.String("date", todayKey),
		zap.Int("points_earned", res.PointsEarned),
		zap.Int("streak", res.Member.Streak),
	)
	return res, nil
}

// RedeemResult is the outcome of a successful redemption.
type RedeemResult struct {
	Redemption *models.Redemption `json:"redemption"`
	Code       string             `json:"code"`
	Expiry     time.Time          `json:"expiry"`
	Member     *models.Member     `json:"member"`
}

// Redeem exchanges the member's points for a prize. Level is left untouched.
func (s *RewardsService) Redeem(ctx context.Context, memberID, prizeID uint, today time.Time) (res *RedeemResult, err error) {
	const op = "redeem"
	defer func() { s.observe(op, err) }()

	day := s.dayOf(today)
	expiry := day.AddDate(0, 0, s.rules.RedemptionValidDays)

	err = s.store.Transaction(ctx, func(tx store.RecordStore) error {
		m, err := lockMember(ctx, tx, memberID)
		if err != nil {
			return err
		}

		p, err := tx.PrizeByID(ctx, prizeID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrPrizeNotFound, prizeID)
		}
		if err != nil {
			return storageErr("load prize", err)
		}
		if !p.Available {
			return fmt.Errorf("%w: %s", ErrPrizeUnavailable, p.Name)
		}
		if m.Points < p.Points {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, m.Points, p.Points)
		}

		code, err := s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}

		r := &models.Redemption{
			MemberID:    m.ID,
			PrizeID:     p.ID,
			PointsSpent: p.Points,
			Status:      models.RedemptionPending,
			Code:        code,
			ExpiresAt:   expiry,
		}
		if err := tx.CreateRedemption(ctx, r); err != nil {
			return storageErr("create redemption", err)
		}
		r.Prize = p

		m.Points -= p.Points
		if err := tx.SaveMember(ctx, m); err != nil {
			return memberSaveErr(err)
		}

		res = &RedeemResult{Redemption: r, Code: code, Expiry: expiry, Member: m}
		return nil
	})
	if err != nil {
		return nil, asKind(op, err)
	}

	metrics.AddPointsSpent(res.Redemption.PointsSpent)
	s.invalidateLeaderboard(ctx)
	s.log.Info("prize redeemed",
		zap.Uint("member_id", memberID),
		zap.Uint("prize_id", prizeID),
		zap.Int("points_spent", res.Redemption.PointsSpent),
		zap.String("code", res.Code),
	)
	return res, nil
}

// uniqueCode draws codes until one is not already stored.
func (s *RewardsService) uniqueCode(ctx context.Context, tx store.RecordStore) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", storageErr("generate code", err)
		}
		_, err = tx.RedemptionByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", storageErr("lookup code", err)
		}
		s.log.Debug("redemption code collision", zap.Int("attempt", i+1))
	}
	return "", storageErr("generate code", fmt.Errorf("no unique code after %d attempts", maxCodeAttempts))
}

// UpdateRedemptionStatus moves a pending redemption to completed or cancelled.
// Cancelling refunds the points spent.
func (s *RewardsService) UpdateRedemptionStatus(ctx context.Context, redemptionID uint, status models.RedemptionStatus) (r *models.Redemption, err error) {
	const op = "redemption_status"
	defer func() { s.observe(op, err) }()

	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}

	err = s.store.Transaction(ctx, func(tx store.RecordStore) error {
		cur, err := tx.RedemptionByID(ctx, redemptionID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrRedemptionNotFound, redemptionID)
		}
		if err != nil {
			return storageErr("load redemption", err)
		}
		if !cur.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, status)
		}

		if status == models.RedemptionCancelled {
			m, err := lockMember(ctx, tx, cur.MemberID)
			if err != nil {
				return err
			}
			m.Points += cur.PointsSpent
			if err := tx.SaveMember(ctx, m); err != nil {
				return memberSaveErr(err)
			}
		}

		cur.Status = status
		if err := tx.SaveRedemption(ctx, cur); err != nil {
			return storageErr("save redemption", err)
		}
		r = cur
		return nil
	})
	if err != nil {
		return nil, asKind(op, err)
	}

	if status == models.RedemptionCancelled {
		metrics.AddPointsAwarded("refund", r.PointsSpent)
		s.invalidateLeaderboard(ctx)
	}
	s.log.Info("redemption status changed",
		zap.Uint("redemption_id", r.ID),
		zap.String("status", string(status)),
	)
	return r, nil
}

// Login points anchor at the member registered under email.
func (s *RewardsService) Login(ctx context.Context, anchor session.Anchor, email string) (m *models.Member, err error) {
	const op = "login"
	defer func() { s.observe(op, err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid("email is required")
	}
	m, err = s.store.MemberByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, email)
	}
	if err != nil {
		return nil, storageErr("lookup email", err)
	}
	if anchor != nil {
		if err := anchor.Save(ctx, formatID(m.ID)); err != nil {
			return nil, storageErr("save session", err)
		}
	}
	return m, nil
}

// Logout clears anchor.
func (s *RewardsService) Logout(ctx context.Context, anchor session.Anchor) error {
	if anchor == nil {
		return nil
	}
	if err := anchor.Clear(ctx); err != nil {
		return storageErr("clear session", err)
	}
	return nil
}

// Current returns the member anchor points at. An anchor whose member no
// longer exists is cleared and reported as ErrNotLoggedIn.
func (s *RewardsService) Current(ctx context.Context, anchor session.Anchor) (*models.Member, error) {
	if anchor == nil {
		return nil, ErrNotLoggedIn
	}
	raw, err := anchor.Load(ctx)
	if err != nil {
		return nil, storageErr("load session", err)
	}
	if raw == "" {
		return nil, ErrNotLoggedIn
	}
	id, perr := strconv.ParseUint(raw, 10, 64)
	if perr == nil {
		m, err := s.store.MemberByID(ctx, uint(id))
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, storageErr("load member", err)
		}
	}
	s.log.Info("clearing stale session", zap.String("member_id", raw))
	if err := anchor.Clear(ctx); err != nil {
		s.log.Warn("clear stale session failed", zap.Error(err))
	}
	return nil, ErrNotLoggedIn
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
