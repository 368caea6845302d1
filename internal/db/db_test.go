package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/arsalan507/SnookerParlorManagement-sub000/config"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

func TestInitMigrateSeed(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel: "silent",
	}
	gormDB, err := Init(cfg, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	require.NoError(t, Migrate(gormDB))

	ctx := context.Background()
	seeds := []config.TableSeed{
		{ID: 1, Label: "Table 1", Category: "TYPE_A", HourlyRate: 300},
		{ID: 2, Category: "TYPE_B", HourlyRate: 200},
	}
	n, err := SeedTables(ctx, gormDB, seeds)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Reseeding with a changed rate leaves the stored row alone.
	seeds[0].HourlyRate = 999
	_, err = SeedTables(ctx, gormDB, seeds)
	require.NoError(t, err)

	var tables []model.Table
	require.NoError(t, gormDB.Order("id").Find(&tables).Error)
	require.Len(t, tables, 2)
	assert.Equal(t, int64(300), tables[0].HourlyRate)
	assert.Equal(t, "Table 2", tables[1].Label)
	assert.Equal(t, model.TableAvailable, tables[1].Status)

	// The partial unique index rejects a second open session.
	first := model.Session{TableID: 1, Category: "TYPE_A", HourlyRate: 300}
	require.NoError(t, gormDB.Create(&first).Error)
	second := model.Session{TableID: 1, Category: "TYPE_A", HourlyRate: 300}
	assert.Error(t, gormDB.Create(&second).Error)
}

func TestInit_UnknownDriver(t *testing.T) {
	_, err := Init(&config.DatabaseConfig{Driver: "oracle"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLevel("silent"))
	assert.Equal(t, logger.Error, parseLevel("ERROR"))
	assert.Equal(t, logger.Info, parseLevel("info"))
	assert.Equal(t, logger.Warn, parseLevel(""))
}
