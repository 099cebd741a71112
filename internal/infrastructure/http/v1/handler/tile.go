package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
)

// Tile serves one tile from the cache. A miss starts the fetch and answers 202;
// clients poll or wait for a redraw event.
func (h *Handler) Tile(c *gin.Context) {
	l := requestLogger(c)

	z, errZ := strconv.Atoi(c.Param("z"))
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errZ != nil || errX != nil || errY != nil {
		h.RespondWithError(c, http.StatusBadRequest, ErrInvalidTileAddress)
		return
	}

	var q dto.TileQuery
	if !h.bindQuery(c, &q) {
		return
	}

	source := q.Source
	if source == "" {
		source = h.facade.Source().ID
	}
	src, ok := h.catalog.Lookup(source)
	if !ok {
		h.RespondWithError(c, http.StatusNotFound, ErrUnknownSource)
		return
	}
	if z < src.MinZoom || z > src.MaxZoom {
		h.RespondWithJSON(c, http.StatusNotFound, "zoom outside of the source range", nil)
		return
	}

	k := tile.NewKey(src.ID, z, x, y)
	blob, ok := h.facade.GetTile(k, h.facade.BeginPass())
	if !ok {
		l.Debug("tile pending", "tile", k.String())
		h.RespondWithJSON(c, http.StatusAccepted, "tile pending", gin.H{"tile": k.String()})
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(blob.Data), blob.Data)
}
