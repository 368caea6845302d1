package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

// ErrInvalidPatch is returned when a patch fails validation or names a column
// outside the allow-list. No query is issued in that case.
var ErrInvalidPatch = errors.New("invalid patch")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Mutable columns per model. Anything else is rejected before a query is built.
var (
	tableColumns = map[string]struct{}{
		"label":       {},
		"hourly_rate": {},
		"status":      {},
		"light_on":    {},
	}
	sessionColumns = map[string]struct{}{
		"accumulated_ms":   {},
		"active_since":     {},
		"break_count":      {},
		"end_time":         {},
		"discount_percent": {},
		"payment_method":   {},
		"billed_minutes":   {},
		"amount":           {},
	}
)

// TablePatch is a partial update of a table. Nil fields are left untouched.
type TablePatch struct {
	Label      *string            `validate:"omitempty,min=1,max=64"`
	HourlyRate *int64             `validate:"omitempty,gt=0"`
	Status     *model.TableStatus `validate:"omitempty,oneof=AVAILABLE OCCUPIED MAINTENANCE"`
	LightOn    *bool
}

func (p TablePatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Label != nil {
		cols["label"] = *p.Label
	}
	if p.HourlyRate != nil {
		cols["hourly_rate"] = *p.HourlyRate
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.LightOn != nil {
		cols["light_on"] = *p.LightOn
	}
	return cols
}

// SessionPatch is a partial update of a session. Nil fields are left
// untouched; Pause clears ActiveSince.
type SessionPatch struct {
	AccumulatedMs   *int64 `validate:"omitempty,gte=0"`
	ActiveSince     *time.Time
	Pause           bool
	BreakCount      *int `validate:"omitempty,gte=0"`
	EndTime         *time.Time
	DiscountPercent *int    `validate:"omitempty,gte=0,lte=100"`
	PaymentMethod   *string `validate:"omitempty,min=1,max=32"`
	BilledMinutes   *int64  `validate:"omitempty,gte=0"`
	Amount          *int64  `validate:"omitempty,gte=0"`
}

func (p SessionPatch) columns() (map[string]any, error) {
	if p.Pause && p.ActiveSince != nil {
		return nil, fmt.Errorf("%w: pause and active_since are exclusive", ErrInvalidPatch)
	}
	cols := map[string]any{}
	if p.AccumulatedMs != nil {
		cols["accumulated_ms"] = *p.AccumulatedMs
	}
	if p.ActiveSince != nil {
		cols["active_since"] = *p.ActiveSince
	}
	if p.Pause {
		cols["active_since"] = nil
	}
	if p.BreakCount != nil {
		cols["break_count"] = *p.BreakCount
	}
	if p.EndTime != nil {
		cols["end_time"] = *p.EndTime
	}
	if p.DiscountPercent != nil {
		cols["discount_percent"] = *p.DiscountPercent
	}
	if p.PaymentMethod != nil {
		cols["payment_method"] = *p.PaymentMethod
	}
	if p.BilledMinutes != nil {
		cols["billed_minutes"] = *p.BilledMinutes
	}
	if p.Amount != nil {
		cols["amount"] = *p.Amount
	}
	return cols, nil
}

// checkPatch validates p and returns its column map restricted to allowed.
func checkPatch(p any, cols map[string]any, allowed map[string]struct{}) (map[string]any, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidPatch)
	}
	for col := range cols {
		if _, ok := allowed[col]; !ok {
			return nil, fmt.Errorf("%w: column %q is not mutable", ErrInvalidPatch, col)
		}
	}
	return cols, nil
}
