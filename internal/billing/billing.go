// Package billing turns elapsed table time into billed minutes and amounts.
//
// All functions are pure. Amounts are whole currency units, rounded half-up
// at each step: the base charge first, then the discount taken from it.
package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

const msPerMinute = int64(time.Minute / time.Millisecond)

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// Charge is a billing snapshot of a session at a given instant.
type Charge struct {
	ElapsedMs     int64 `json:"elapsed_ms"`
	BilledMinutes int64 `json:"billed_minutes"`
	Amount        int64 `json:"amount"`
}

// ElapsedMs returns the billable time of s at now: the accumulated time plus
// the current active stretch, if any.
func ElapsedMs(s *model.Session, now time.Time) int64 {
	elapsed := s.AccumulatedMs
	if s.ActiveSince != nil {
		if stretch := now.Sub(*s.ActiveSince).Milliseconds(); stretch > 0 {
			elapsed += stretch
		}
	}
	return elapsed
}

// BilledMinutes rounds elapsed milliseconds up to whole minutes.
func BilledMinutes(elapsedMs int64) int64 {
	if elapsedMs <= 0 {
		return 0
	}
	return (elapsedMs + msPerMinute - 1) / msPerMinute
}

// Amount prices billedMinutes at hourlyRate per hour minus discountPercent.
// Friendly sessions are free.
func Amount(hourlyRate int64, isFriendly bool, discountPercent int, billedMinutes int64) int64 {
	if isFriendly || billedMinutes <= 0 || hourlyRate <= 0 {
		return 0
	}
	pct := ClampDiscount(discountPercent)

	base := decimal.NewFromInt(billedMinutes).
		Mul(decimal.NewFromInt(hourlyRate)).
		Div(sixty).
		Round(0)
	discount := base.
		Mul(decimal.NewFromInt(int64(pct))).
		Div(hundred).
		Round(0)

	return base.Sub(discount).IntPart()
}

// ClampDiscount bounds a discount percentage to [0, 100].
func ClampDiscount(pct int) int {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// Quote prices s as of now using the tier snapshot taken when it started.
// Running totals and the final stop charge both go through here.
func Quote(s *model.Session, now time.Time) Charge {
	elapsed := ElapsedMs(s, now)
	minutes := BilledMinutes(elapsed)
	return Charge{
		ElapsedMs:     elapsed,
		BilledMinutes: minutes,
		Amount:        Amount(s.HourlyRate, s.IsFriendly, s.DiscountPercent, minutes),
	}
}
