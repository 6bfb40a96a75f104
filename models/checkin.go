package models

import "time"

// CheckInDateLayout is the day-granularity layout of CheckIn.CheckInDate.
const CheckInDateLayout = "2006-01-02"

// CheckIn stores daily check-in records for members. At most one per member per day.
type CheckIn struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MemberID     uint      `gorm:"not null;uniqueIndex:idx_checkin_member_date,priority:1" json:"member_id"`
	CheckInDate  string    `gorm:"size:10;not null;uniqueIndex:idx_checkin_member_date,priority:2;index" json:"check_in_date"`
	PointsEarned int       `gorm:"not null" json:"points_earned"`
	StreakAtTime int       `gorm:"not null" json:"streak_at_time"`
	CreatedAt    time.Time `json:"created_at"`
}

// DateKey formats t as the calendar date used by check-ins.
func DateKey(t time.Time) string {
	return t.Format(CheckInDateLayout)
}
