package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsalan507/SnookerParlorManagement-sub000/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(t.TempDir() + "/missing.yaml")
	require.NoError(t, err)
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.Database.LogLevel = "silent"
	cfg.Venue.Tables = []config.TableSeed{
		{ID: 1, Category: "TYPE_A", HourlyRate: 300},
		{ID: 2, Label: "Corner", Category: "TYPE_B", HourlyRate: 200},
	}
	return cfg
}

func TestNewApp_ServesSeededTables(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close()

	assert.Nil(t, a.relay)
	assert.Nil(t, a.lights)
	assert.Nil(t, a.push)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tables", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tables []struct {
			Table struct {
				ID    int64  `json:"id"`
				Label string `json:"label"`
			} `json:"table"`
			State string `json:"state"`
		} `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tables, 2)
	assert.Equal(t, "Table 1", body.Tables[0].Table.Label)
	assert.Equal(t, "Corner", body.Tables[1].Table.Label)
	assert.Equal(t, "idle", body.Tables[0].State)
}

func TestNewApp_OptionalComponents(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.LockEnabled = true
	cfg.Light.Enabled = true
	cfg.Light.BaseURL = "http://127.0.0.1:1"
	cfg.Push.PublicKey = "pub"
	cfg.Push.PrivateKey = "priv"

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close()

	require.NotNil(t, a.relay)
	require.NotNil(t, a.lights)
	require.NotNil(t, a.push)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.start(ctx)
	select {
	case <-a.relay.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tables/1/start", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/vapid_public_key", nil))
	assert.JSONEq(t, `{"public_key":"pub"}`, w.Body.String())

	cancel()
	a.lights.Wait()
}

func TestSetupLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	setupLogger(config.LoggingConfig{Level: "debug", Format: "text"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogger(config.LoggingConfig{Level: "bogus"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
