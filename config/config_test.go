package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "parlor.db", cfg.Database.DSN)
	assert.Equal(t, 30*time.Second, cfg.Broadcast.HeartbeatInterval)
	assert.Equal(t, 3, cfg.Broadcast.MaxMissed)
	assert.Equal(t, 3*time.Second, cfg.Light.Timeout)
	assert.Equal(t, "cash", cfg.Venue.DefaultPaymentMethod)
	assert.NotNil(t, cfg.Venue.Location())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
venue:
  timezone: Asia/Kolkata
  tables:
    - id: 1
      label: "Table 1"
      category: TYPE_A
      hourly_rate: 300
broadcast:
  heartbeat_seconds: 10
`)
	t.Setenv("PARLOR_SERVER_PORT", "9100")
	t.Setenv("PARLOR_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "Asia/Kolkata", cfg.Venue.Location().String())
	require.Len(t, cfg.Venue.Tables, 1)
	assert.Equal(t, int64(300), cfg.Venue.Tables[0].HourlyRate)
	assert.Equal(t, 10*time.Second, cfg.Broadcast.HeartbeatInterval)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: oracle\n"},
		{"bad timezone", "venue:\n  timezone: Mars/Olympus\n"},
		{"non-positive rate", "venue:\n  tables:\n    - id: 1\n      hourly_rate: 0\n"},
		{"light without url", "light:\n  enabled: true\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
