package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/ledger"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

// ListTables handles GET /api/tables.
func (h *Handler) ListTables(c *gin.Context) {
	views, err := h.ledger.ListTables(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": views})
}

// GetTable handles GET /api/tables/:id.
func (h *Handler) GetTable(c *gin.Context) {
	id, ok := tableID(c)
	if !ok {
		return
	}
	view, err := h.ledger.GetTable(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RunningAmount handles GET /api/tables/:id/running.
func (h *Handler) RunningAmount(c *gin.Context) {
	id, ok := tableID(c)
	if !ok {
		return
	}
	charge, err := h.ledger.RunningAmount(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"table_id":       id,
		"elapsed_ms":     charge.ElapsedMs,
		"billed_minutes": charge.BilledMinutes,
		"amount":         charge.Amount,
	})
}

// LightStatus handles GET /api/tables/:id/light. The result is advisory: it
// reports the latest light request, not the physical state.
func (h *Handler) LightStatus(c *gin.Context) {
	id, ok := tableID(c)
	if !ok {
		return
	}
	if h.lights == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "light control is disabled", "code": "light_disabled"})
		return
	}
	diag, found := h.lights.Diagnostics(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recent light request", "code": "not_found"})
		return
	}
	c.JSON(http.StatusOK, diag)
}

// StartSession handles POST /api/tables/:id/start.
func (h *Handler) StartSession(c *gin.Context) {
	id, ok := tableID(c)
	if !ok {
		return
	}
	var opts ledger.StartOptions
	if err := bindOptional(c, &opts); err != nil {
		badRequest(c, err.Error())
		return
	}
	session, table, err := h.ledger.StartSession(c.Request.Context(), id, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session, "table": table})
}

// PauseSession handles POST /api/tables/:id/pause.
func (h *Handler) PauseSession(c *gin.Context) {
	id, ok := tableID(c)
	if !ok {
		return
	}
	session, err := h.ledger.PauseSession(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// ResumeSession handles POST /api/tables/:id/resume.
func (h *Handler) ResumeSession(c *gin.Context) {
	id, ok := tableID(c)
	if !ok {
		return
	}
	session, err := h.ledger.ResumeSession(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// StopSession handles POST /api/tables/:id/stop. A successful stop
// invalidates cached reports.
func (h *Handler) StopSession(c *gin.Context) {
	id, ok := tableID(c)
	if !ok {
		return
	}
	var opts ledger.StopOptions
	if err := bindOptional(c, &opts); err != nil {
		badRequest(c, err.Error())
		return
	}
	session, table, err := h.ledger.StopSession(c.Request.Context(), id, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.reports.Flush()
	c.JSON(http.StatusOK, gin.H{"session": session, "table": table})
}

type setStatusRequest struct {
	Status model.TableStatus `json:"status" binding:"required"`
}

// SetTableStatus handles PUT /api/tables/:id/status.
func (h *Handler) SetTableStatus(c *gin.Context) {
	id, ok := tableID(c)
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	table, err := h.ledger.SetTableStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": table})
}
