package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/billing"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/daily"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/store"
)

// Reads run in their own read-only transaction for a consistent snapshot and
// never take a table lock.

// RunningAmount prices the table's open session as of now. A table without
// an open session yields a zero Charge.
func (l *Ledger) RunningAmount(ctx context.Context, tableID int64) (billing.Charge, error) {
	var charge billing.Charge
	err := l.store.ReadTransaction(ctx, func(tx store.Tx) error {
		_, open, err := load(tx, tableID)
		if err != nil {
			return err
		}
		if open != nil {
			charge = billing.Quote(open, l.now())
		}
		return nil
	})
	return charge, classify(err)
}

// GetTable returns one table with its open session and live charge.
func (l *Ledger) GetTable(ctx context.Context, tableID int64) (TableView, error) {
	var view TableView
	err := l.store.ReadTransaction(ctx, func(tx store.Tx) error {
		table, open, err := load(tx, tableID)
		if err != nil {
			return err
		}
		view = newView(*table, open, l.now())
		return nil
	})
	return view, classify(err)
}

// ListTables returns every table ordered by id.
func (l *Ledger) ListTables(ctx context.Context) ([]TableView, error) {
	var views []TableView
	err := l.store.ReadTransaction(ctx, func(tx store.Tx) error {
		tables, err := tx.ListTables()
		if err != nil {
			return err
		}
		sessions, err := tx.OpenSessions()
		if err != nil {
			return err
		}

		open := make(map[int64]*model.Session, len(sessions))
		for i := range sessions {
			open[sessions[i].TableID] = &sessions[i]
		}

		now := l.now()
		views = make([]TableView, 0, len(tables))
		for _, t := range tables {
			views = append(views, newView(t, open[t.ID], now))
		}
		return nil
	})
	return views, classify(err)
}

// ListSessions returns session history, newest first.
func (l *Ledger) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	sessions, err := l.store.ListSessions(ctx, filter)
	return sessions, classify(err)
}

// DailyReport summarizes the venue-local days from..to inclusive. Zero
// bounds are open.
func (l *Ledger) DailyReport(ctx context.Context, from, to time.Time) ([]daily.Summary, error) {
	var fromKey, toKey string
	if !from.IsZero() {
		fromKey = daily.DateKey(from, l.loc)
	}
	if !to.IsZero() {
		toKey = daily.DateKey(to, l.loc)
	}
	if fromKey != "" && toKey != "" && fromKey > toKey {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidOptions, fromKey, toKey)
	}

	days, breakdowns, err := l.store.DailyRange(ctx, fromKey, toKey)
	if err != nil {
		return nil, classify(err)
	}
	return daily.Summarize(days, breakdowns), nil
}

// Location returns the venue time zone.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

func newView(table model.Table, open *model.Session, now time.Time) TableView {
	view := TableView{Table: table, State: StateOf(open).Name()}
	if open != nil {
		view.Session = open
		view.Charge = billing.Quote(open, now)
	}
	return view
}
