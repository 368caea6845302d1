// Package ledger is the sole writer of table and session state.
//
// Every command runs under the table's lock: lock, transaction, unlock, then
// publish events and queue side effects. Events and side effects never block
// or fail a command.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/billing"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/broadcast"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/daily"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/lock"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/metrics"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/store"
)

// Publisher receives committed changes. Implementations must not block.
type Publisher interface {
	Publish(t broadcast.EventType, payload any)
}

// LightSwitch queues a best-effort light change.
type LightSwitch interface {
	Request(tableID int64, on bool)
}

// Notifier is told when a table becomes available again.
type Notifier interface {
	TableAvailable(tableID int64)
}

// Deps are the collaborators of a Ledger. Light and Notifier are optional.
type Deps struct {
	Store     store.Store
	Locker    lock.Locker
	Publisher Publisher
	Light     LightSwitch
	Notifier  Notifier
}

// Options tune a Ledger.
type Options struct {
	// Location is the venue time zone used for daily rollups.
	Location             *time.Location
	DefaultPaymentMethod string
	Now                  func() time.Time
}

// Ledger executes table and session commands.
type Ledger struct {
	store    store.Store
	locker   lock.Locker
	pub      Publisher
	light    LightSwitch
	notifier Notifier

	loc            *time.Location
	defaultPayment string
	now            func() time.Time
	log            zerolog.Logger
}

// New creates a Ledger.
func New(deps Deps, opts Options, log zerolog.Logger) *Ledger {
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DefaultPaymentMethod == "" {
		opts.DefaultPaymentMethod = "cash"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{
		store:          deps.Store,
		locker:         deps.Locker,
		pub:            deps.Publisher,
		light:          deps.Light,
		notifier:       deps.Notifier,
		loc:            opts.Location,
		defaultPayment: normalizePayment(opts.DefaultPaymentMethod, "cash"),
		now:            opts.Now,
		log:            log.With().Str("component", "ledger").Logger(),
	}
}

// StartSession opens a session on an available table.
func (l *Ledger) StartSession(ctx context.Context, tableID int64, opts StartOptions) (model.Session, model.Table, error) {
	if err := checkOptions(opts); err != nil {
		return model.Session{}, model.Table{}, err
	}

	var (
		session model.Session
		table   *model.Table
	)
	err := l.mutate(ctx, "start", tableID, func(tx store.Tx, now time.Time) error {
		var open *model.Session
		var err error
		if table, open, err = load(tx, tableID); err != nil {
			return err
		}
		if _, idle := StateOf(open).(Idle); !idle || table.Status == model.TableOccupied {
			return fmt.Errorf("table %d: %w", tableID, ErrTableBusy)
		}
		if table.Status == model.TableMaintenance {
			return fmt.Errorf("table %d: %w", tableID, ErrTableUnderMaintenance)
		}

		activeSince := now
		session = model.Session{
			TableID:         tableID,
			StartTime:       now,
			ActiveSince:     &activeSince,
			IsFriendly:      opts.IsFriendly,
			DiscountPercent: opts.DiscountPercent,
			Category:        table.Category,
			HourlyRate:      table.HourlyRate,
		}
		if err := tx.CreateSession(&session); err != nil {
			return err
		}

		patch := store.TablePatch{Status: statusPtr(model.TableOccupied)}
		if opts.Light {
			patch.LightOn = boolPtr(true)
			table.LightOn = true
		}
		if err := tx.UpdateTable(tableID, patch); err != nil {
			return err
		}
		table.Status = model.TableOccupied
		table.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Session{}, model.Table{}, err
	}

	l.publish(broadcast.SessionStart, SessionEvent{Session: session, Table: *table})
	if opts.Light && l.light != nil {
		l.light.Request(tableID, true)
	}
	l.log.Info().Int64("table_id", tableID).Int64("session_id", session.ID).Bool("friendly", session.IsFriendly).Msg("session started")
	return session, *table, nil
}

// PauseSession stops the clock of the table's open session.
func (l *Ledger) PauseSession(ctx context.Context, tableID int64) (model.Session, error) {
	var (
		session model.Session
		table   *model.Table
	)
	err := l.mutate(ctx, "pause", tableID, func(tx store.Tx, now time.Time) error {
		var open *model.Session
		var err error
		if table, open, err = load(tx, tableID); err != nil {
			return err
		}
		switch st := StateOf(open).(type) {
		case Idle:
			return fmt.Errorf("table %d: %w", tableID, ErrNoActiveSession)
		case Paused:
			return fmt.Errorf("session %d: %w", st.Session.ID, ErrAlreadyPaused)
		case Active:
			session = st.Session
		}

		session.AccumulatedMs = billing.ElapsedMs(&session, now)
		session.ActiveSince = nil
		session.BreakCount++
		session.UpdatedAt = now
		return updateSession(tx, session.ID, store.SessionPatch{
			AccumulatedMs: &session.AccumulatedMs,
			Pause:         true,
			BreakCount:    &session.BreakCount,
		})
	})
	if err != nil {
		return model.Session{}, err
	}

	l.publish(broadcast.SessionPause, SessionEvent{Session: session, Table: *table, Charge: billing.Quote(&session, session.UpdatedAt)})
	l.log.Info().Int64("table_id", tableID).Int64("session_id", session.ID).Int64("accumulated_ms", session.AccumulatedMs).Msg("session paused")
	return session, nil
}

// ResumeSession restarts the clock of a paused session.
func (l *Ledger) ResumeSession(ctx context.Context, tableID int64) (model.Session, error) {
	var (
		session model.Session
		table   *model.Table
	)
	err := l.mutate(ctx, "resume", tableID, func(tx store.Tx, now time.Time) error {
		var open *model.Session
		var err error
		if table, open, err = load(tx, tableID); err != nil {
			return err
		}
		switch st := StateOf(open).(type) {
		case Idle:
			return fmt.Errorf("table %d: %w", tableID, ErrNoActiveSession)
		case Active:
			return fmt.Errorf("session %d: %w", st.Session.ID, ErrNotPaused)
		case Paused:
			session = st.Session
		}

		activeSince := now
		session.ActiveSince = &activeSince
		session.UpdatedAt = now
		return updateSession(tx, session.ID, store.SessionPatch{ActiveSince: &activeSince})
	})
	if err != nil {
		return model.Session{}, err
	}

	l.publish(broadcast.SessionResume, SessionEvent{Session: session, Table: *table, Charge: billing.Quote(&session, session.UpdatedAt)})
	l.log.Info().Int64("table_id", tableID).Int64("session_id", session.ID).Msg("session resumed")
	return session, nil
}

// StopSession closes the table's open session, fixes its charge and adds it
// to the day's rollup, all in one transaction.
func (l *Ledger) StopSession(ctx context.Context, tableID int64, opts StopOptions) (model.Session, model.Table, error) {
	if err := checkOptions(opts); err != nil {
		return model.Session{}, model.Table{}, err
	}

	var (
		session model.Session
		table   *model.Table
		charge  billing.Charge
	)
	err := l.mutate(ctx, "stop", tableID, func(tx store.Tx, now time.Time) error {
		var open *model.Session
		var err error
		if table, open, err = load(tx, tableID); err != nil {
			return err
		}
		switch st := StateOf(open).(type) {
		case Idle:
			return fmt.Errorf("table %d: %w", tableID, ErrNoActiveSession)
		case Active:
			session = st.Session
		case Paused:
			session = st.Session
		}

		if opts.DiscountPercent != nil {
			session.DiscountPercent = *opts.DiscountPercent
		}
		charge = billing.Quote(&session, now)

		endTime := now
		session.EndTime = &endTime
		session.AccumulatedMs = charge.ElapsedMs
		session.ActiveSince = nil
		session.BilledMinutes = &charge.BilledMinutes
		session.Amount = &charge.Amount
		session.PaymentMethod = normalizePayment(opts.PaymentMethod, l.defaultPayment)
		session.UpdatedAt = now

		if err := updateSession(tx, session.ID, store.SessionPatch{
			AccumulatedMs:   &session.AccumulatedMs,
			Pause:           true,
			EndTime:         &endTime,
			DiscountPercent: &session.DiscountPercent,
			PaymentMethod:   &session.PaymentMethod,
			BilledMinutes:   session.BilledMinutes,
			Amount:          session.Amount,
		}); err != nil {
			return err
		}

		if err := tx.UpdateTable(tableID, store.TablePatch{
			Status:  statusPtr(model.TableAvailable),
			LightOn: boolPtr(false),
		}); err != nil {
			return err
		}
		table.Status = model.TableAvailable
		table.LightOn = false
		table.UpdatedAt = now

		completion := daily.NewCompletion(now, l.loc, session.Category, session.PaymentMethod, charge.Amount, session.IsFriendly)
		return daily.Record(tx, completion)
	})
	if err != nil {
		return model.Session{}, model.Table{}, err
	}

	metrics.SessionsClosed.WithLabelValues(session.Category).Inc()
	metrics.RevenueTotal.WithLabelValues(session.Category).Add(float64(charge.Amount))

	l.publish(broadcast.SessionStop, SessionEvent{Session: session, Table: *table, Charge: charge})
	if l.light != nil {
		l.light.Request(tableID, false)
	}
	if l.notifier != nil {
		l.notifier.TableAvailable(tableID)
	}
	l.log.Info().
		Int64("table_id", tableID).
		Int64("session_id", session.ID).
		Int64("billed_minutes", charge.BilledMinutes).
		Int64("amount", charge.Amount).
		Str("payment_method", session.PaymentMethod).
		Msg("session stopped")
	return session, *table, nil
}

// SetTableStatus moves a table between AVAILABLE and MAINTENANCE. Setting the
// current status again is a no-op and emits nothing.
func (l *Ledger) SetTableStatus(ctx context.Context, tableID int64, status model.TableStatus) (model.Table, error) {
	if status != model.TableAvailable && status != model.TableMaintenance {
		return model.Table{}, fmt.Errorf("status %q: %w", status, ErrInvalidTransition)
	}

	var (
		table   *model.Table
		changed bool
		from    model.TableStatus
	)
	err := l.mutate(ctx, "set_status", tableID, func(tx store.Tx, now time.Time) error {
		var open *model.Session
		var err error
		if table, open, err = load(tx, tableID); err != nil {
			return err
		}
		if _, idle := StateOf(open).(Idle); !idle || table.Status == model.TableOccupied {
			return fmt.Errorf("table %d has an open session: %w", tableID, ErrInvalidTransition)
		}
		if table.Status == status {
			return nil
		}

		from = table.Status
		if err := tx.UpdateTable(tableID, store.TablePatch{Status: &status}); err != nil {
			return err
		}
		table.Status = status
		table.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return model.Table{}, err
	}
	if !changed {
		return *table, nil
	}

	l.publish(broadcast.TableUpdate, TableEvent{Table: *table})
	if from == model.TableMaintenance && l.notifier != nil {
		l.notifier.TableAvailable(tableID)
	}
	l.log.Info().Int64("table_id", tableID).Str("from", string(from)).Str("to", string(status)).Msg("table status changed")
	return *table, nil
}

// mutate serializes fn per table and runs it in one transaction. Once the
// lock is held the command is no longer cancellable.
func (l *Ledger) mutate(ctx context.Context, command string, tableID int64, fn func(tx store.Tx, now time.Time) error) (err error) {
	start := time.Now()
	defer func() {
		metrics.LedgerCommandsTotal.WithLabelValues(command, Code(err)).Inc()
		metrics.LedgerCommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
		if err != nil && IsRetryable(err) {
			l.log.Error().Err(err).Str("command", command).Int64("table_id", tableID).Msg("ledger command failed")
		}
	}()

	unlock, err := l.locker.Lock(ctx, tableID)
	if err != nil {
		return fmt.Errorf("%w: lock table %d: %w", ErrStorage, tableID, err)
	}
	defer unlock()

	now := l.now()
	err = l.store.Transaction(context.WithoutCancel(ctx), func(tx store.Tx) error {
		return fn(tx, now)
	})
	return classify(err)
}

// classify passes domain errors through and wraps everything else in ErrStorage.
func classify(err error) error {
	if err == nil || isDomain(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func (l *Ledger) publish(t broadcast.EventType, payload any) {
	if l.pub == nil {
		return
	}
	l.pub.Publish(t, payload)
}

// load reads a table and its open session inside tx.
func load(tx store.Tx, tableID int64) (*model.Table, *model.Session, error) {
	table, err := tx.GetTable(tableID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("table %d: %w", tableID, ErrTableNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	open, err := tx.OpenSession(tableID)
	if err != nil {
		return nil, nil, err
	}
	return table, open, nil
}

// updateSession writes patch to an open session. Losing a race with another
// process that closed it first reads as the table having no active session.
func updateSession(tx store.Tx, id int64, patch store.SessionPatch) error {
	err := tx.UpdateSession(id, patch)
	if errors.Is(err, store.ErrSessionClosed) {
		return fmt.Errorf("session %d: %w", id, ErrNoActiveSession)
	}
	return err
}

func statusPtr(s model.TableStatus) *model.TableStatus { return &s }

func boolPtr(b bool) *bool { return &b }
