package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz is ready once a tile source is active.
func (h *Handler) Healthz(c *gin.Context) {
	status := h.facade.Status()
	if status.Source == "" {
		h.RespondWithJSON(c, http.StatusServiceUnavailable, "no active tile source", nil)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "OK", gin.H{
		"source":  status.Source,
		"pending": status.Pending,
		"warning": status.Warning,
	})
}
