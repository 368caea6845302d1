// Package daily rolls closed sessions up into per-day totals.
package daily

import (
	"sort"
	"strings"
	"time"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

// DateLayout is the format of a rollup date key.
const DateLayout = "2006-01-02"

// Completion is one closed session as seen by the rollup.
type Completion struct {
	Date          string
	Category      string
	PaymentMethod string
	Amount        int64
	Friendly      bool
}

// NewCompletion keys a completion by the venue-local date of closedAt.
func NewCompletion(closedAt time.Time, loc *time.Location, category, paymentMethod string, amount int64, friendly bool) Completion {
	if loc == nil {
		loc = time.Local
	}
	return Completion{
		Date:          DateKey(closedAt, loc),
		Category:      category,
		PaymentMethod: strings.ToLower(paymentMethod),
		Amount:        amount,
		Friendly:      friendly,
	}
}

// DateKey formats t as a venue-local date key.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// Writer applies additive increments to the persisted rollups. Implementations
// run inside the caller's transaction.
type Writer interface {
	IncrementDaily(date string, amount int64, friendly bool) error
	IncrementBreakdown(date, dimension, key string, amount int64) error
}

// Record adds c to its day's totals and to its category and payment method
// sub-totals. It must be called exactly once per closed session.
func Record(w Writer, c Completion) error {
	if err := w.IncrementDaily(c.Date, c.Amount, c.Friendly); err != nil {
		return err
	}
	if err := w.IncrementBreakdown(c.Date, model.DimensionCategory, c.Category, c.Amount); err != nil {
		return err
	}
	return w.IncrementBreakdown(c.Date, model.DimensionPaymentMethod, c.PaymentMethod, c.Amount)
}

// Summary is the report view of a single day.
type Summary struct {
	Date            string           `json:"date"`
	Total           int64            `json:"total"`
	SessionCount    int64            `json:"session_count"`
	FriendlyCount   int64            `json:"friendly_count"`
	ByCategory      map[string]int64 `json:"by_category"`
	ByPaymentMethod map[string]int64 `json:"by_payment_method"`
}

// Summarize joins day rows with their breakdowns, newest day first.
// Breakdowns without a matching day row are ignored.
func Summarize(days []model.DailyAggregate, breakdowns []model.DailyBreakdown) []Summary {
	byDate := make(map[string]*Summary, len(days))
	out := make([]Summary, 0, len(days))
	for _, d := range days {
		out = append(out, Summary{
			Date:            d.Date,
			Total:           d.Total,
			SessionCount:    d.SessionCount,
			FriendlyCount:   d.FriendlyCount,
			ByCategory:      map[string]int64{},
			ByPaymentMethod: map[string]int64{},
		})
	}
	for i := range out {
		byDate[out[i].Date] = &out[i]
	}

	for _, b := range breakdowns {
		s, ok := byDate[b.Date]
		if !ok {
			continue
		}
		switch b.Dimension {
		case model.DimensionCategory:
			s.ByCategory[b.Key] += b.Amount
		case model.DimensionPaymentMethod:
			s.ByPaymentMethod[b.Key] += b.Amount
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}
