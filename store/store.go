// Package store persists members, prizes, check-ins and redemptions.
package store

import (
	"context"
	"errors"

	"github.com/cppla/gympoints/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned when a member changed since it was read.
	ErrVersionConflict = errors.New("member version conflict")
)

// RedemptionStatusCount is one row of CountRedemptionsByStatus.
type RedemptionStatusCount struct {
	Status models.RedemptionStatus
	Count  int64
}

// RecordStore is the persistence contract the rewards engine depends on.
type RecordStore interface {
	// Transaction runs fn against a store bound to one database transaction.
	// Any error returned by fn rolls back every write made through it.
	Transaction(ctx context.Context, fn func(tx RecordStore) error) error

	CreateMember(ctx context.Context, m *models.Member) error
	MemberByID(ctx context.Context, id uint) (*models.Member, error)
	// MemberByIDForUpdate reads a member and locks the row until the transaction ends
	// where the dialect supports it.
	MemberByIDForUpdate(ctx context.Context, id uint) (*models.Member, error)
	MemberByEmail(ctx context.Context, email string) (*models.Member, error)
	// SaveMember writes m only if its version is unchanged, then bumps m.Version.
	SaveMember(ctx context.Context, m *models.Member) error
	ListMembersByPoints(ctx context.Context, limit int) ([]models.Member, error)
	CountMembers(ctx context.Context) (int64, error)
	// ResetStaleStreaks zeroes the streak of members whose last check-in is before date.
	ResetStaleStreaks(ctx context.Context, beforeDate string) (int64, error)

	CreatePrize(ctx context.Context, p *models.Prize) error
	PrizeByID(ctx context.Context, id uint) (*models.Prize, error)
	ListPrizes(ctx context.Context, onlyAvailable bool) ([]models.Prize, error)
	SavePrize(ctx context.Context, p *models.Prize) error

	CreateCheckIn(ctx context.Context, c *models.CheckIn) error
	CheckInOn(ctx context.Context, memberID uint, date string) (*models.CheckIn, error)
	LastCheckIn(ctx context.Context, memberID uint) (*models.CheckIn, error)
	ListCheckIns(ctx context.Context, memberID uint, limit int) ([]models.CheckIn, error)
	CountCheckInsOn(ctx context.Context, date string) (int64, error)

	CreateRedemption(ctx context.Context, r *models.Redemption) error
	RedemptionByID(ctx context.Context, id uint) (*models.Redemption, error)
	RedemptionByCode(ctx context.Context, code string) (*models.Redemption, error)
	// ListRedemptions returns a member's redemptions newest first with Prize loaded.
	ListRedemptions(ctx context.Context, memberID uint) ([]models.Redemption, error)
	SaveRedemption(ctx context.Context, r *models.Redemption) error
	CountRedemptionsByStatus(ctx context.Context) ([]RedemptionStatusCount, error)
}
