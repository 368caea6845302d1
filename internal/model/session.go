package model

import "time"

// Session is one timed rental of a table. It is open while EndTime is nil.
type Session struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	TableID         int64      `gorm:"not null;index" json:"table_id"`
	StartTime       time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime         *time.Time `gorm:"index" json:"end_time"`
	AccumulatedMs   int64      `gorm:"not null;default:0" json:"accumulated_ms"`
	ActiveSince     *time.Time `json:"active_since"`
	BreakCount      int        `gorm:"not null;default:0" json:"break_count"`
	IsFriendly      bool       `gorm:"not null;default:false" json:"is_friendly"`
	DiscountPercent int        `gorm:"not null;default:0" json:"discount_percent"`
	PaymentMethod   string     `gorm:"size:32" json:"payment_method,omitempty"`
	BilledMinutes   *int64     `json:"billed_minutes"`
	Amount          *int64     `json:"amount"`
	Category        string     `gorm:"size:32;not null" json:"category"`
	HourlyRate      int64      `gorm:"not null" json:"hourly_rate"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.EndTime == nil
}

// Paused reports whether an open session is currently not accruing time.
func (s *Session) Paused() bool {
	return s.EndTime == nil && s.ActiveSince == nil
}
