package ledger

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/billing"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// StartOptions configure a new session.
type StartOptions struct {
	IsFriendly      bool `json:"is_friendly"`
	DiscountPercent int  `json:"discount_percent" validate:"gte=0,lte=100"`
	Light           bool `json:"light"`
}

// StopOptions configure how a session is closed. A nil DiscountPercent keeps
// the discount chosen at start.
type StopOptions struct {
	PaymentMethod   string `json:"payment_method" validate:"omitempty,max=32"`
	DiscountPercent *int   `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
}

func checkOptions(opts any) error {
	if err := validate.Struct(opts); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

// SessionEvent is the payload of every session:* event.
type SessionEvent struct {
	Session model.Session  `json:"session"`
	Table   model.Table    `json:"table"`
	Charge  billing.Charge `json:"charge"`
}

// TableEvent is the payload of table:update.
type TableEvent struct {
	Table model.Table `json:"table"`
}

// TableView is a read model of one table.
type TableView struct {
	Table   model.Table    `json:"table"`
	Session *model.Session `json:"session,omitempty"`
	State   string         `json:"state"`
	Charge  billing.Charge `json:"charge"`
}

func normalizePayment(method, fallback string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return fallback
	}
	return method
}
