package handler

import (
	"io"

	"github.com/gin-gonic/gin"
)

// Events streams redraw and warning events as server sent events.
func (h *Handler) Events(c *gin.Context) {
	events, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
