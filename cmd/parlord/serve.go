package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/arsalan507/SnookerParlorManagement-sub000/config"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/api"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/broadcast"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/db"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/ledger"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/light"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/lock"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/notification"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/relay"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/store"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the parlor API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger
	logger.Info().Str("version", version).Str("config", configPath).Msg("starting parlord")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	return a.run(ctx)
}

// app is the wired server.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      *gorm.DB
	hub     *broadcast.Hub
	ledger  *ledger.Ledger
	router  *gin.Engine
	handler *api.Handler
	lights  *light.Dispatcher
	push    *notification.WorkerPool
	relay   *relay.Relay
	rdb     *redis.Client
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, err
	}
	seeded, err := db.SeedTables(ctx, gormDB, cfg.Venue.Tables)
	if err != nil {
		return nil, err
	}
	logger.Info().Int64("seeded", seeded).Msg("tables seeded")

	a := &app{cfg: cfg, log: logger, db: gormDB}
	a.hub = broadcast.New(broadcast.Options{
		BufferSize:        cfg.Broadcast.BufferSize,
		MaxMissed:         cfg.Broadcast.MaxMissed,
		HeartbeatInterval: cfg.Broadcast.HeartbeatInterval,
	}, logger)

	var (
		publisher ledger.Publisher = a.hub
		locker    lock.Locker      = lock.NewLocal()
	)
	if cfg.Redis.Enabled {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.relay = relay.New(a.rdb, cfg.Redis.Channel, a.hub, logger)
		publisher = a.relay
		if cfg.Redis.LockEnabled {
			locker = lock.NewRedis(a.rdb, time.Duration(cfg.Redis.LockTTLSeconds)*time.Second, logger)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Bool("distributed_lock", cfg.Redis.LockEnabled).Msg("redis relay enabled")
	}

	s := store.NewGormStore(gormDB)
	deps := ledger.Deps{Store: s, Locker: locker, Publisher: publisher}
	handlerDeps := api.Deps{Store: s, Hub: a.hub}

	if cfg.Light.Enabled {
		a.lights = light.NewDispatcher(light.NewHTTPController(cfg.Light.BaseURL, cfg.Light.Timeout), light.DispatcherOptions{
			Workers:   cfg.Light.Workers,
			QueueSize: cfg.Light.QueueSize,
			Timeout:   cfg.Light.Timeout,
		}, logger)
		deps.Light = a.lights
		handlerDeps.Lights = a.lights
	}

	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		opts := &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		a.push = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, opts, logger)
		deps.Notifier = a.push
		handlerDeps.WebPush = opts
	} else {
		logger.Warn().Msg("VAPID keys not configured, availability pushes disabled")
	}

	a.ledger = ledger.New(deps, ledger.Options{
		Location:             cfg.Venue.Location(),
		DefaultPaymentMethod: cfg.Venue.DefaultPaymentMethod,
	}, logger)
	handlerDeps.Ledger = a.ledger

	a.handler = api.NewHandler(handlerDeps, logger)
	a.router = api.NewRouter(a.handler, api.RouterOptions{
		RateLimit:      rate.Limit(cfg.Server.RateLimitPerSec),
		Burst:          cfg.Server.RateLimitBurst,
		CacheTTL:       time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)
	return a, nil
}

// start launches the background loops. They all stop when ctx is done.
func (a *app) start(ctx context.Context) {
	go a.hub.Run(ctx)
	go a.handler.WatchReports(ctx)
	if a.lights != nil {
		a.lights.Start(ctx)
	}
	if a.push != nil {
		a.push.Start(ctx)
	}
	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx); err != nil {
				a.log.Error().Err(err).Msg("relay stopped")
			}
		}()
	}
}

// run serves HTTP until ctx is done, then shuts down gracefully.
func (a *app) run(ctx context.Context) error {
	a.start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Int("port", a.cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutdown signal received, stopping services")
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("HTTP server shutdown")
	}
	if a.lights != nil {
		a.lights.Wait()
	}

	a.log.Info().Msg("server gracefully stopped")
	return nil
}

func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close redis client")
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close database")
		}
	}
}
