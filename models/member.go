package models

import (
	"time"

	"gorm.io/gorm"
)

// Member represents a registered gym member taking part in the points program.
type Member struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:128;not null" json:"name"`
	Email           string    `gorm:"size:255;not null;uniqueIndex:idx_members_email" json:"email"`
	Phone           string    `gorm:"size:32;not null" json:"phone"`
	Address         string    `gorm:"size:255;not null" json:"address"`
	Points          int       `gorm:"not null;default:0;index" json:"points"`
	Streak          int       `gorm:"not null;default:0" json:"streak"`
	TotalCheckIns   int       `gorm:"not null;default:0" json:"total_check_ins"`
	Level           int       `gorm:"not null;default:1" json:"level"`
	LastCheckInDate string    `gorm:"size:10" json:"last_check_in,omitempty"`
	ReferredByID    *uint     `gorm:"index" json:"referred_by_id,omitempty"`
	Version         int       `gorm:"not null;default:0" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.Level == 0 {
		m.Level = 1
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (m *Member) BeforeUpdate(tx *gorm.DB) error {
	m.UpdatedAt = time.Now()
	return nil
}
