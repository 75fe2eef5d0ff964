package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/yatube/internal/storage"
	"github.com/labstack/echo/v4"
)

// MediaHandler streams uploaded images from the configured store
type MediaHandler struct {
	store storage.Store
}

func NewMediaHandler(store storage.Store) *MediaHandler {
	return &MediaHandler{store: store}
}

func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.GET("/*", h.Serve)
}

func (h *MediaHandler) Serve(c echo.Context) error {
	rc, obj, err := h.store.Open(c.Request().Context(), c.Param("*"))
	if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
		return echo.NewHTTPError(http.StatusNotFound, "Media not found")
	}
	if err != nil {
		return err
	}
	defer rc.Close()

	if obj.Size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	}
	c.Response().Header().Set("X-Content-Type-Options", "nosniff")
	return c.Stream(http.StatusOK, obj.ContentType, rc)
}
