package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// Events handles GET /api/events, a server-sent event stream of table and
// session changes. Each event is acknowledged once written, so a client
// that stops reading is eventually pruned by the hub.
func (h *Handler) Events(c *gin.Context) {
	sub := h.hub.Subscribe()
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.log.Debug().Str("subscriber", sub.ID).Str("remote_addr", c.ClientIP()).Msg("event stream opened")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			sub.Ack()
			return true
		}
	})
	h.log.Debug().Str("subscriber", sub.ID).Msg("event stream closed")
}
