package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Venue      VenueConfig      `yaml:"venue"`
	Broadcast  BroadcastConfig  `yaml:"broadcast"`
	Light      LightConfig      `yaml:"light"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port" env:"PARLOR_SERVER_PORT"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" env:"PARLOR_RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" env:"PARLOR_RATE_LIMIT_BURST"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds" env:"PARLOR_CACHE_TTL_SECONDS"`
	AllowedOrigins  []string `yaml:"allowed_origins" env:"PARLOR_ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"PARLOR_DB_DRIVER"`
	DSN                    string `yaml:"dsn" env:"PARLOR_DB_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level" env:"PARLOR_DB_LOG_LEVEL"`
}

// VenueConfig describes the physical venue: its day boundary and table pool.
type VenueConfig struct {
	Timezone             string      `yaml:"timezone" env:"PARLOR_TIMEZONE"`
	DefaultPaymentMethod string      `yaml:"default_payment_method"`
	Tables               []TableSeed `yaml:"tables"`

	loc *time.Location
}

// Location returns the venue's day boundary time zone.
func (v VenueConfig) Location() *time.Location {
	if v.loc == nil {
		return time.Local
	}
	return v.loc
}

// TableSeed is a table inserted on startup when its id is not yet present.
type TableSeed struct {
	ID         int64  `yaml:"id"`
	Label      string `yaml:"label"`
	Category   string `yaml:"category"`
	HourlyRate int64  `yaml:"hourly_rate"`
}

// BroadcastConfig controls the real-time event hub.
type BroadcastConfig struct {
	HeartbeatSeconds  int           `yaml:"heartbeat_seconds" env:"PARLOR_HEARTBEAT_SECONDS"`
	HeartbeatInterval time.Duration `yaml:"-"`
	MaxMissed         int           `yaml:"max_missed"`
	BufferSize        int           `yaml:"buffer_size"`
}

// LightConfig holds the table light bridge settings.
type LightConfig struct {
	Enabled        bool          `yaml:"enabled" env:"PARLOR_LIGHT_ENABLED"`
	BaseURL        string        `yaml:"base_url" env:"PARLOR_LIGHT_URL"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"PARLOR_VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"PARLOR_VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// RedisConfig enables the cross-instance event relay and distributed table locks.
type RedisConfig struct {
	Enabled        bool   `yaml:"enabled" env:"PARLOR_REDIS_ENABLED"`
	Addr           string `yaml:"addr" env:"PARLOR_REDIS_ADDR"`
	Password       string `yaml:"password" env:"PARLOR_REDIS_PASSWORD"`
	DB             int    `yaml:"db"`
	Channel        string `yaml:"channel"`
	LockEnabled    bool   `yaml:"lock_enabled" env:"PARLOR_REDIS_LOCK_ENABLED"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"PARLOR_LOG_LEVEL"`
	Format string `yaml:"format" env:"PARLOR_LOG_FORMAT"`
}

// Load reads the configuration from the given path, then applies PARLOR_*
// environment overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "parlor.db"
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Venue.Timezone == "" {
		cfg.Venue.Timezone = "Local"
	}
	loc, err := time.LoadLocation(cfg.Venue.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Venue.Timezone, err)
	}
	cfg.Venue.loc = loc
	if cfg.Venue.DefaultPaymentMethod == "" {
		cfg.Venue.DefaultPaymentMethod = "cash"
	}
	for _, t := range cfg.Venue.Tables {
		if t.ID <= 0 || t.HourlyRate <= 0 {
			return fmt.Errorf("table seed %d: id and hourly_rate must be positive", t.ID)
		}
	}

	if cfg.Broadcast.HeartbeatSeconds <= 0 {
		cfg.Broadcast.HeartbeatSeconds = 30
	}
	cfg.Broadcast.HeartbeatInterval = time.Duration(cfg.Broadcast.HeartbeatSeconds) * time.Second
	if cfg.Broadcast.MaxMissed <= 0 {
		cfg.Broadcast.MaxMissed = 3
	}
	if cfg.Broadcast.BufferSize <= 0 {
		cfg.Broadcast.BufferSize = 64
	}

	if cfg.Light.TimeoutSeconds <= 0 {
		cfg.Light.TimeoutSeconds = 3
	}
	cfg.Light.Timeout = time.Duration(cfg.Light.TimeoutSeconds) * time.Second
	if cfg.Light.Workers <= 0 {
		cfg.Light.Workers = 2
	}
	if cfg.Light.QueueSize <= 0 {
		cfg.Light.QueueSize = 32
	}
	if cfg.Light.Enabled && cfg.Light.BaseURL == "" {
		return fmt.Errorf("light.base_url is required when light control is enabled")
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "parlor:events"
	}
	if cfg.Redis.LockTTLSeconds <= 0 {
		cfg.Redis.LockTTLSeconds = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	return nil
}
