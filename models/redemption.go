package models

import "time"

// RedemptionStatus is the lifecycle state of a prize redemption.
type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionCompleted RedemptionStatus = "completed"
	RedemptionCancelled RedemptionStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s RedemptionStatus) Valid() bool {
	switch s {
	case RedemptionPending, RedemptionCompleted, RedemptionCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a redemption in status s may move to next.
// Only pending redemptions can change, and only to completed or cancelled.
func (s RedemptionStatus) CanTransitionTo(next RedemptionStatus) bool {
	return s == RedemptionPending && (next == RedemptionCompleted || next == RedemptionCancelled)
}

// Redemption records points exchanged for a prize.
type Redemption struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	MemberID    uint             `gorm:"index;not null" json:"member_id"`
	PrizeID     uint             `gorm:"index;not null" json:"prize_id"`
	PointsSpent int              `gorm:"not null" json:"points_spent"`
	Status      RedemptionStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	Code        string           `gorm:"size:16;not null;uniqueIndex:idx_redemptions_code" json:"code"`
	ExpiresAt   time.Time        `json:"expires_at"`
	CreatedAt   time.Time        `json:"redeemed_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Prize       *Prize           `gorm:"foreignKey:PrizeID" json:"prize,omitempty"`
}
