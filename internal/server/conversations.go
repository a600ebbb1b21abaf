package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/callsight/internal/search"
	"github.com/mohammad-safakhou/callsight/internal/store"
	"github.com/mohammad-safakhou/callsight/models"
)

// ConversationsHandler exposes the stored conversation records and the
// keyword transcript search.
type ConversationsHandler struct {
	Store *store.Store
	Index *search.KeywordIndex
}

func (h *ConversationsHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/:id", h.get)
	g.PUT("/:id/notes", h.updateNotes)
}

func (h *ConversationsHandler) list(c echo.Context) error {
	rng, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	limit := intQueryDefault(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	offset := intQueryDefault(c, "offset", 0)

	items, err := h.Store.ListConversationsInRange(c.Request().Context(), rng, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	total, err := h.Store.CountConversationsInRange(c.Request().Context(), rng)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []models.ConversationRecord{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
	})
}

func (h *ConversationsHandler) get(c echo.Context) error {
	rec, err := h.Store.GetConversation(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrConversationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

// updateNotes persists operator notes. Notes survive re-syncs of the same
// conversation from the upstream platform.
func (h *ConversationsHandler) updateNotes(c echo.Context) error {
	var req notesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id := c.Param("id")
	if err := h.Store.UpdateNotes(c.Request().Context(), id, req.Notes); err != nil {
		if errors.Is(err, models.ErrConversationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"id": id})
}

// search runs a keyword query against the transcript index.
func (h *ConversationsHandler) search(c echo.Context) error {
	if h.Index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "keyword index not configured")
	}
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	limit := intQueryDefault(c, "limit", 20)
	hits, err := h.Index.Search(c.Request().Context(), q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"hits": hits})
}
