package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/gympoints/models"
)

// GormStore implements RecordStore on top of gorm (MySQL in production, SQLite locally).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened and migrated gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying connection for health checks and migrations.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Transaction implements RecordStore.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx RecordStore) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CreateMember(ctx context.Context, m *models.Member) error {
	return translate(s.conn(ctx).Create(m).Error)
}

func (s *GormStore) MemberByID(ctx context.Context, id uint) (*models.Member, error) {
	var m models.Member
	if err := s.conn(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *GormStore) MemberByIDForUpdate(ctx context.Context, id uint) (*models.Member, error) {
	q := s.conn(ctx)
	// SQLite has no row locks; the single-writer connection serializes instead.
	if q.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m models.Member
	if err := q.First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *GormStore) MemberByEmail(ctx context.Context, email string) (*models.Member, error) {
	var m models.Member
	if err := s.conn(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *GormStore) SaveMember(ctx context.Context, m *models.Member) error {
	res := s.conn(ctx).Model(&models.Member{}).
		Where("id = ? AND version = ?", m.ID, m.Version).
		Updates(map[string]interface{}{
			"name":               m.Name,
			"phone":              m.Phone,
			"address":            m.Address,
			"points":             m.Points,
			"streak":             m.Streak,
			"total_check_ins":    m.TotalCheckIns,
			"level":              m.Level,
			"last_check_in_date": m.LastCheckInDate,
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	m.Version++
	return nil
}

func (s *GormStore) ListMembersByPoints(ctx context.Context, limit int) ([]models.Member, error) {
	var members []models.Member
	q := s.conn(ctx).Order("points DESC").Order("created_at ASC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&members).Error; err != nil {
		return nil, translate(err)
	}
	return members, nil
}

func (s *GormStore) CountMembers(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Member{}).Count(&n).Error
	return n, translate(err)
}

func (s *GormStore) ResetStaleStreaks(ctx context.Context, beforeDate string) (int64, error) {
	res := s.conn(ctx).Model(&models.Member{}).
		Where("streak > 0 AND (last_check_in_date IS NULL OR last_check_in_date = '' OR last_check_in_date < ?)", beforeDate).
		Updates(map[string]interface{}{"streak": 0, "version": gorm.Expr("version + 1")})
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) CreatePrize(ctx context.Context, p *models.Prize) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *GormStore) PrizeByID(ctx context.Context, id uint) (*models.Prize, error) {
	var p models.Prize
	if err := s.conn(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) ListPrizes(ctx context.Context, onlyAvailable bool) ([]models.Prize, error) {
	var prizes []models.Prize
	q := s.conn(ctx).Order("points ASC").Order("id ASC")
	if onlyAvailable {
		q = q.Where("available = ?", true)
	}
	if err := q.Find(&prizes).Error; err != nil {
		return nil, translate(err)
	}
	return prizes, nil
}

func (s *GormStore) SavePrize(ctx context.Context, p *models.Prize) error {
	// explicit Select so that Available=false is written too
	res := s.conn(ctx).Model(p).Select("name", "description", "points", "available", "updated_at").Updates(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateCheckIn(ctx context.Context, c *models.CheckIn) error {
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *GormStore) CheckInOn(ctx context.Context, memberID uint, date string) (*models.CheckIn, error) {
	var c models.CheckIn
	if err := s.conn(ctx).Where("member_id = ? AND check_in_date = ?", memberID, date).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) LastCheckIn(ctx context.Context, memberID uint) (*models.CheckIn, error) {
	var c models.CheckIn
	err := s.conn(ctx).Where("member_id = ?", memberID).
		Order("check_in_date DESC").
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	if c.ID == 0 {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *GormStore) ListCheckIns(ctx context.Context, memberID uint, limit int) ([]models.CheckIn, error) {
	var items []models.CheckIn
	q := s.conn(ctx).Where("member_id = ?", memberID).Order("check_in_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (s *GormStore) CountCheckInsOn(ctx context.Context, date string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.CheckIn{}).Where("check_in_date = ?", date).Count(&n).Error
	return n, translate(err)
}

func (s *GormStore) CreateRedemption(ctx context.Context, r *models.Redemption) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(r).Error)
}

func (s *GormStore) RedemptionByID(ctx context.Context, id uint) (*models.Redemption, error) {
	var r models.Redemption
	if err := s.conn(ctx).Preload("Prize").First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) RedemptionByCode(ctx context.Context, code string) (*models.Redemption, error) {
	var r models.Redemption
	if err := s.conn(ctx).Where("code = ?", code).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) ListRedemptions(ctx context.Context, memberID uint) ([]models.Redemption, error) {
	var items []models.Redemption
	err := s.conn(ctx).Preload("Prize").
		Where("member_id = ?", memberID).
		Order("created_at DESC").Order("id DESC").
		Find(&items).Error
	if err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (s *GormStore) SaveRedemption(ctx context.Context, r *models.Redemption) error {
	res := s.conn(ctx).Model(&models.Redemption{}).Where("id = ?", r.ID).
		Updates(map[string]interface{}{"status": r.Status, "updated_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CountRedemptionsByStatus(ctx context.Context) ([]RedemptionStatusCount, error) {
	var rows []RedemptionStatusCount
	err := s.conn(ctx).Model(&models.Redemption{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, translate(err)
}

// translate maps driver errors onto the store's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// isUniqueViolation catches drivers without gorm error translation.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
