package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
)

func (h *Handler) FlushCache(c *gin.Context) {
	source := c.Param("source")

	var q dto.FlushCacheQuery
	if !h.bindQuery(c, &q) {
		return
	}

	removed, err := h.facade.FlushCache(c.Request.Context(), source, q.All)
	if err != nil {
		h.RespondWithInternalServerError(c, err)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "cache flushed", dto.FlushResponse{Source: source, Removed: removed})
}

func (h *Handler) FlushQueue(c *gin.Context) {
	source := c.Param("source")

	var q dto.FlushQueueQuery
	if !h.bindQuery(c, &q) {
		return
	}

	zoom := tile.AllZooms
	if q.Zoom != nil {
		zoom = *q.Zoom
	}

	removed := h.facade.FlushQueue(source, zoom)
	h.RespondWithJSON(c, http.StatusOK, "queue flushed", dto.FlushResponse{Source: source, Removed: removed})
}

func (h *Handler) LowMemory(c *gin.Context) {
	h.facade.OnLowMemory()
	h.RespondWithJSON(c, http.StatusOK, "cache trimmed", h.facade.Status().Cache)
}

func (h *Handler) Stats(c *gin.Context) {
	s := h.facade.Status()
	h.RespondWithJSON(c, http.StatusOK, "stats", dto.StatsResponse{
		Source:      s.Source,
		Generation:  s.Generation,
		Pass:        s.Pass,
		Failures:    s.Failures,
		Warning:     s.Warning,
		Pending:     s.Pending,
		Cache:       s.Cache,
		LastSources: s.LastSources,
	})
}
