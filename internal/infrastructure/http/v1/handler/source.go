package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/usecase"
)

func (h *Handler) Sources(c *gin.Context) {
	status := h.facade.Status()

	resp := dto.SourcesResponse{
		Active:      status.Source,
		LastSources: status.LastSources,
		Warning:     status.Warning,
	}
	for _, s := range h.catalog.List() {
		resp.Sources = append(resp.Sources, dto.SourceResponse{
			ID:          s.ID,
			Name:        s.Name,
			Kind:        s.Kind,
			TileWidth:   s.TileWidth,
			TileHeight:  s.TileHeight,
			MinZoom:     s.MinZoom,
			MaxZoom:     s.MaxZoom,
			MaxOverzoom: s.MaxOverzoom,
		})
	}

	h.RespondWithJSON(c, http.StatusOK, "sources", resp)
}

func (h *Handler) SetSource(c *gin.Context) {
	id := c.Param("id")

	if err := h.facade.SetSource(id); err != nil {
		if errors.Is(err, usecase.ErrUnknownSource) {
			h.RespondWithError(c, http.StatusNotFound, err)
			return
		}
		h.RespondWithInternalServerError(c, err)
		return
	}

	requestLogger(c).Info("active source set", "source", id)
	h.RespondWithJSON(c, http.StatusOK, "source set", gin.H{"source": id})
}

// ForgetSource removes a source from the recent sources list.
func (h *Handler) ForgetSource(c *gin.Context) {
	id := c.Param("id")

	if !h.facade.ForgetSource(id) {
		h.RespondWithJSON(c, http.StatusNotFound, "source is not in recent sources", nil)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "source forgotten", gin.H{"source": id})
}
