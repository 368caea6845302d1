package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/arsalan507/SnookerParlorManagement-sub000/config"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

// Models lists every persisted model, in migration order.
var Models = []any{
	&model.Table{},
	&model.Session{},
	&model.DailyAggregate{},
	&model.DailyBreakdown{},
	&model.PushSubscription{},
}

// openSessionIndex enforces at most one open session per table.
const openSessionIndex = "CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open_table ON sessions (table_id) WHERE end_time IS NULL"

// Init opens the configured database and tunes its connection pool.
func Init(cfg *config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewLogger(log, cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// A single writer keeps sqlite from returning SQLITE_BUSY under load.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetimeMinutes > 0 {
			sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
		}
	}

	log.Info().Str("driver", cfg.Driver).Msg("database connection established")
	return db, nil
}

// Migrate runs the schema migrations.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	if err := db.Exec(openSessionIndex).Error; err != nil {
		return fmt.Errorf("create open session index: %w", err)
	}
	return nil
}

// SeedTables inserts the configured tables that do not exist yet. Existing
// rows are never overwritten.
func SeedTables(ctx context.Context, db *gorm.DB, seeds []config.TableSeed) (int64, error) {
	if len(seeds) == 0 {
		return 0, nil
	}

	tables := make([]model.Table, 0, len(seeds))
	for _, s := range seeds {
		label := s.Label
		if label == "" {
			label = fmt.Sprintf("Table %d", s.ID)
		}
		category := strings.TrimSpace(s.Category)
		if category == "" {
			category = "STANDARD"
		}
		tables = append(tables, model.Table{
			ID:         s.ID,
			Label:      label,
			Category:   category,
			HourlyRate: s.HourlyRate,
			Status:     model.TableAvailable,
		})
	}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&tables)
	if res.Error != nil {
		return 0, fmt.Errorf("seed tables: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// NewLogger adapts zerolog to gorm's logger at the given level
// (silent, error, warn or info).
func NewLogger(log zerolog.Logger, level string) logger.Interface {
	return logger.New(gormWriter{log: log.With().Str("component", "gorm").Logger()}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  parseLevel(level),
		IgnoreRecordNotFoundError: true,
	})
}

type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Info().Msgf(format, args...)
}

func parseLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
