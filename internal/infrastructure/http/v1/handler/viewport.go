package handler

import (
	"errors"
	"image"
	"image/png"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/render"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/usecase"
	"github.com/paulmach/orb"
)

// Viewport runs one draw pass of the active source and returns either the plan
// or the composed image.
func (h *Handler) Viewport(c *gin.Context) {
	var q dto.ViewportQuery
	if !h.bindQuery(c, &q) {
		return
	}

	if q.Source != "" && q.Source != h.facade.Source().ID {
		h.RespondWithJSON(c, http.StatusConflict, "source is not active", nil)
		return
	}

	plan, err := h.facade.Draw(usecase.Viewport{
		Bound: orb.Bound{Min: orb.Point{q.MinLon, q.MinLat}, Max: orb.Point{q.MaxLon, q.MaxLat}},
		Zoom:  q.Zoom,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrViewportTooLarge) || errors.Is(err, usecase.ErrUnknownSource) {
			h.RespondWithError(c, http.StatusBadRequest, err)
			return
		}
		h.RespondWithInternalServerError(c, err)
		return
	}

	if q.Format == "png" {
		if err := render.CheckSize(plan.Width, plan.Height); err != nil {
			h.RespondWithError(c, http.StatusBadRequest, err)
			return
		}
		src := h.facade.Source()
		img := render.NewCanvas(src.Renderer).Render(plan.Width, plan.Height, plan.RenderOps())
		c.Header("Content-Type", "image/png")
		c.Status(http.StatusOK)
		if err := png.Encode(c.Writer, img); err != nil {
			requestLogger(c).Error("failed to encode viewport", "error", err)
		}
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "draw plan", planResponse(plan))
}

func planResponse(p usecase.Plan) dto.PlanResponse {
	resp := dto.PlanResponse{
		Source:  p.Source,
		Zoom:    p.Range.Zoom,
		Pass:    p.Owner.Pass,
		Width:   p.Width,
		Height:  p.Height,
		Ops:     make([]dto.DrawOp, 0, len(p.Ops)),
		Missing: make([]string, 0, len(p.Missing)),
	}
	for _, op := range p.Ops {
		resp.Ops = append(resp.Ops, dto.DrawOp{
			Tile: op.Key.String(),
			Cell: op.Cell.String(),
			Kind: string(op.Kind),
			Src:  rect(op.Src),
			Dst:  rect(op.Dst),
		})
	}
	for _, k := range p.Missing {
		resp.Missing = append(resp.Missing, k.String())
	}
	return resp
}

func rect(r image.Rectangle) [4]int {
	return [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}
