package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/broadcast"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/ledger"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/light"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/store"
)

// LightDiagnostics exposes the outcome of the latest light request per table.
type LightDiagnostics interface {
	Diagnostics(tableID int64) (light.Diagnostic, bool)
}

// Deps are the collaborators of a Handler. Lights and WebPush are optional.
type Deps struct {
	Ledger  *ledger.Ledger
	Store   store.Store
	Hub     *broadcast.Hub
	Lights  LightDiagnostics
	WebPush *webpush.Options
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	ledger  *ledger.Ledger
	store   store.Store
	hub     *broadcast.Hub
	lights  LightDiagnostics
	webpush *webpush.Options
	reports *cache.Cache
	log     zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps, log zerolog.Logger) *Handler {
	return &Handler{
		ledger:  d.Ledger,
		store:   d.Store,
		hub:     d.Hub,
		lights:  d.Lights,
		webpush: d.WebPush,
		reports: cache.New(5*time.Minute, 10*time.Minute),
		log:     log.With().Str("component", "api").Logger(),
	}
}

// Health reports whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "subscribers": h.hub.Len()})
}

// fail writes err as a JSON error body with a status derived from its kind.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		_ = c.Error(err)
		msg = "storage unavailable, please retry"
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": ledger.Code(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrTableBusy),
		errors.Is(err, ledger.ErrTableUnderMaintenance),
		errors.Is(err, ledger.ErrNoActiveSession),
		errors.Is(err, ledger.ErrAlreadyPaused),
		errors.Is(err, ledger.ErrNotPaused),
		errors.Is(err, ledger.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidOptions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrStorage):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": "bad_request"})
}

func tableID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid table id")
		return 0, false
	}
	return id, true
}

// bindOptional decodes a JSON body into v when one is present.
func bindOptional(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
