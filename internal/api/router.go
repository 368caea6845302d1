package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/metrics"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/mw"
)

// RouterOptions tune the middleware stack.
type RouterOptions struct {
	RateLimit      rate.Limit
	Burst          int
	CacheTTL       time.Duration
	AllowedOrigins []string
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions, log zerolog.Logger) *gin.Engine {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}

	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(log))

	corsCfg := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	rateLimiter := mw.RateLimiter(mw.NewClientLimiter(opts.RateLimit, opts.Burst, 10*time.Minute))
	caching := mw.Cache(h.reports, opts.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/tables", h.ListTables)
		api.GET("/tables/:id", h.GetTable)
		api.GET("/tables/:id/running", h.RunningAmount)
		api.GET("/tables/:id/light", h.LightStatus)
		api.POST("/tables/:id/start", h.StartSession)
		api.POST("/tables/:id/pause", h.PauseSession)
		api.POST("/tables/:id/resume", h.ResumeSession)
		api.POST("/tables/:id/stop", h.StopSession)
		api.PUT("/tables/:id/status", h.SetTableStatus)

		api.GET("/sessions", h.ListSessions)
		api.GET("/reports/daily", caching, h.DailyReport)

		api.GET("/events", h.Events)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
