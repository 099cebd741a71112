package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/usecase"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
)

const (
	internalServerErrorText = "the server encountered an error and could not process your request"
)

var (
	ErrInvalidTileAddress = errors.New("z, x and y should be integers")
	ErrUnknownSource      = errors.New("unknown tile source")
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type Handler struct {
	validate *validator.Validate
	facade   *usecase.TileDeliveryFacade
	catalog  *usecase.Catalog
	events   *usecase.Broadcaster
}

func NewHandler(v *validator.Validate, f *usecase.TileDeliveryFacade, catalog *usecase.Catalog, events *usecase.Broadcaster) *Handler {
	return &Handler{
		validate: v,
		facade:   f,
		catalog:  catalog,
		events:   events,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context, err error) {
	requestLogger(c).Error("internal http_server error",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err,
	)
	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithError(c *gin.Context, code int, err error) {
	h.RespondWithJSON(c, code, err.Error(), nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}

// bindQuery binds query parameters into dst and validates them.
func (h *Handler) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

func requestLogger(c *gin.Context) logger.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return logger.NewNoOp()
}
