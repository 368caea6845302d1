package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/broadcast"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/daily"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/store"
)

// ListSessions handles GET /api/sessions?table_id=&from=&to=&open=&limit=.
func (h *Handler) ListSessions(c *gin.Context) {
	var filter store.SessionFilter
	var err error

	if raw := c.Query("table_id"); raw != "" {
		if filter.TableID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			badRequest(c, "invalid table_id")
			return
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 0 {
			badRequest(c, "invalid limit")
			return
		}
	}
	if raw := c.Query("open"); raw != "" {
		if filter.OpenOnly, err = strconv.ParseBool(raw); err != nil {
			badRequest(c, "invalid open")
			return
		}
	}
	if filter.From, err = h.parseInstant(c.Query("from"), false); err != nil {
		badRequest(c, "invalid from: "+err.Error())
		return
	}
	if filter.To, err = h.parseInstant(c.Query("to"), true); err != nil {
		badRequest(c, "invalid to: "+err.Error())
		return
	}

	sessions, err := h.ledger.ListSessions(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// DailyReport handles GET /api/reports/daily?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) DailyReport(c *gin.Context) {
	loc := h.ledger.Location()
	from, err := parseDate(c.Query("from"), loc)
	if err != nil {
		badRequest(c, "invalid from: "+err.Error())
		return
	}
	to, err := parseDate(c.Query("to"), loc)
	if err != nil {
		badRequest(c, "invalid to: "+err.Error())
		return
	}

	report, err := h.ledger.DailyReport(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": report})
}

// WatchReports drops cached reports on every session:stop the hub carries,
// which includes stops relayed from other instances. It returns when ctx is
// done.
func (h *Handler) WatchReports(ctx context.Context) {
	for ctx.Err() == nil {
		h.watchReports(ctx)
	}
}

func (h *Handler) watchReports(ctx context.Context) {
	sub := h.hub.Subscribe()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				// Pruned by the hub. A stop may have been dropped with the buffer.
				h.reports.Flush()
				return
			}
			sub.Ack()
			if ev.Type == broadcast.SessionStop {
				h.reports.Flush()
			}
		}
	}
}

// parseInstant accepts RFC 3339 or a venue-local date. A date used as an
// upper bound means the end of that day.
func (h *Handler) parseInstant(raw string, upper bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := parseDate(raw, h.ledger.Location())
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(daily.DateLayout, raw, loc)
}
