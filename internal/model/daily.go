package model

// Breakdown dimensions of a daily rollup.
const (
	DimensionCategory      = "category"
	DimensionPaymentMethod = "payment_method"
)

// DailyAggregate is the per-day rollup of closed sessions, keyed by the
// venue-local date (YYYY-MM-DD).
type DailyAggregate struct {
	Date          string `gorm:"primaryKey;size:10" json:"date"`
	Total         int64  `gorm:"not null;default:0" json:"total"`
	SessionCount  int64  `gorm:"not null;default:0" json:"session_count"`
	FriendlyCount int64  `gorm:"not null;default:0" json:"friendly_count"`
}

// DailyBreakdown holds one sub-total of a DailyAggregate, by category or by
// payment method.
type DailyBreakdown struct {
	Date      string `gorm:"primaryKey;size:10" json:"date"`
	Dimension string `gorm:"primaryKey;size:32" json:"dimension"`
	Key       string `gorm:"primaryKey;size:64" json:"key"`
	Amount    int64  `gorm:"not null;default:0" json:"amount"`
	Sessions  int64  `gorm:"not null;default:0" json:"sessions"`
}
