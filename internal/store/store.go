package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrSessionClosed is returned by UpdateSession when the session is missing
// or already has an end time.
var ErrSessionClosed = errors.New("session already closed")

// Store defines the interface for all database operations.
type Store interface {
	// Transaction runs fn in a single database transaction. Returning an
	// error from fn rolls it back.
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	// ReadTransaction runs fn in a read-only transaction that sees one
	// snapshot across all of its statements.
	ReadTransaction(ctx context.Context, fn func(tx Tx) error) error

	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	DailyRange(ctx context.Context, from, to string) ([]model.DailyAggregate, []model.DailyBreakdown, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription, tableIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error

	Ping(ctx context.Context) error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	GetTable(id int64) (*model.Table, error)
	ListTables() ([]model.Table, error)
	OpenSession(tableID int64) (*model.Session, error)
	OpenSessions() ([]model.Session, error)
	CreateSession(s *model.Session) error
	UpdateTable(id int64, patch TablePatch) error
	UpdateSession(id int64, patch SessionPatch) error
	IncrementDaily(date string, amount int64, friendly bool) error
	IncrementBreakdown(date, dimension, key string, amount int64) error
}

// SessionFilter narrows a session history query. Zero fields are ignored.
type SessionFilter struct {
	TableID  int64
	From     time.Time
	To       time.Time
	OpenOnly bool
	Limit    int
}

const (
	defaultSessionLimit = 100
	maxSessionLimit     = 1000
)

// readTxOptions gives multi-statement reads a single snapshot. Postgres
// defaults to READ COMMITTED, where each statement sees its own snapshot.
var readTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *gormStore) ReadTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, readTxOptions)
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ListSessions returns sessions newest first.
func (s *gormStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	q := s.db.WithContext(ctx).Model(&model.Session{})
	if filter.TableID > 0 {
		q = q.Where("table_id = ?", filter.TableID)
	}
	if !filter.From.IsZero() {
		q = q.Where("start_time >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("start_time < ?", filter.To)
	}
	if filter.OpenOnly {
		q = q.Where("end_time IS NULL")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	if limit > maxSessionLimit {
		limit = maxSessionLimit
	}

	var sessions []model.Session
	if err := q.Order("start_time DESC").Order("id DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// DailyRange loads the rollups for dates in [from, to]. Empty bounds are open.
func (s *gormStore) DailyRange(ctx context.Context, from, to string) ([]model.DailyAggregate, []model.DailyBreakdown, error) {
	var days []model.DailyAggregate
	var breakdowns []model.DailyBreakdown

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := dateRange(tx, from, to).Order("date DESC").Find(&days).Error; err != nil {
			return err
		}
		return dateRange(tx, from, to).Order("date DESC").Find(&breakdowns).Error
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load daily rollups: %w", err)
	}
	return days, breakdowns, nil
}

func dateRange(tx *gorm.DB, from, to string) *gorm.DB {
	if from != "" {
		tx = tx.Where("date >= ?", from)
	}
	if to != "" {
		tx = tx.Where("date <= ?", to)
	}
	return tx
}

// SaveSubscription creates or replaces a push subscription and its watched tables.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription, tableIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Omit("Tables").Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		var tables []*model.Table
		if len(tableIDs) > 0 {
			if err := tx.Find(&tables, tableIDs).Error; err != nil {
				return fmt.Errorf("failed to load watched tables: %w", err)
			}
		}

		if err := tx.Model(sub).Association("Tables").Replace(&tables); err != nil {
			return fmt.Errorf("failed to replace watched tables: %w", err)
		}
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Tables").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Tables").Clear(); err != nil {
			return fmt.Errorf("failed to clear watched tables: %w", err)
		}
		if err := tx.Delete(&sub).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

// gormTx implements Tx on top of a transaction handle.
type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) GetTable(id int64) (*model.Table, error) {
	var table model.Table
	err := t.db.First(&table, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table %d: %w", id, err)
	}
	return &table, nil
}

func (t *gormTx) ListTables() ([]model.Table, error) {
	var tables []model.Table
	if err := t.db.Order("id").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// OpenSession returns the table's open session, or nil if there is none.
func (t *gormTx) OpenSession(tableID int64) (*model.Session, error) {
	var sessions []model.Session
	if err := t.db.Where("table_id = ? AND end_time IS NULL", tableID).Limit(1).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to get open session for table %d: %w", tableID, err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (t *gormTx) OpenSessions() ([]model.Session, error) {
	var sessions []model.Session
	if err := t.db.Where("end_time IS NULL").Order("table_id").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	return sessions, nil
}

func (t *gormTx) CreateSession(s *model.Session) error {
	if err := t.db.Create(s).Error; err != nil {
		return fmt.Errorf("failed to create session for table %d: %w", s.TableID, err)
	}
	return nil
}

func (t *gormTx) UpdateTable(id int64, patch TablePatch) error {
	cols, err := checkPatch(patch, patch.columns(), tableColumns)
	if err != nil {
		return err
	}
	res := t.db.Model(&model.Table{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("failed to update table %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) UpdateSession(id int64, patch SessionPatch) error {
	cols, err := patch.columns()
	if err != nil {
		return err
	}
	if cols, err = checkPatch(patch, cols, sessionColumns); err != nil {
		return err
	}
	// Only open sessions are writable, so a write based on a stale read
	// of a session another process already closed matches no row.
	res := t.db.Model(&model.Session{}).Where("id = ? AND end_time IS NULL", id).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("failed to update session %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionClosed
	}
	return nil
}

// IncrementDaily adds one closed session to the day's totals, creating the
// row on the first close of the day.
func (t *gormTx) IncrementDaily(date string, amount int64, friendly bool) error {
	var friendlyInc int64
	if friendly {
		friendlyInc = 1
	}
	row := model.DailyAggregate{Date: date, Total: amount, SessionCount: 1, FriendlyCount: friendlyInc}
	err := t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total":          gorm.Expr("daily_aggregates.total + ?", amount),
			"session_count":  gorm.Expr("daily_aggregates.session_count + ?", 1),
			"friendly_count": gorm.Expr("daily_aggregates.friendly_count + ?", friendlyInc),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to increment daily aggregate %s: %w", date, err)
	}
	return nil
}

// IncrementBreakdown adds amount to one sub-total of the day.
func (t *gormTx) IncrementBreakdown(date, dimension, key string, amount int64) error {
	row := model.DailyBreakdown{Date: date, Dimension: dimension, Key: key, Amount: amount, Sessions: 1}
	err := t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "dimension"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"amount":   gorm.Expr("daily_breakdowns.amount + ?", amount),
			"sessions": gorm.Expr("daily_breakdowns.sessions + ?", 1),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to increment %s breakdown %q for %s: %w", dimension, key, date, err)
	}
	return nil
}
