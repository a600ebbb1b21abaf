package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/callsight/internal/insight"
)

// InsightsHandler serves the dashboard payload and the category contracts.
type InsightsHandler struct {
	Orch *insight.Orchestrator
}

func (h *InsightsHandler) Register(g *echo.Group) {
	g.GET("", h.dashboard)
	g.GET("/contracts", h.contracts)
}

// dashboard fans out all seven categories for the requested range.
// refresh=true bypasses cached entries and recomputes.
func (h *InsightsHandler) dashboard(c echo.Context) error {
	rng, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	force := boolQuery(c, "refresh")
	payload, err := h.Orch.Dashboard(c.Request().Context(), rng, force)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, payload)
}

// contracts exposes the per-category retrieval parameters so clients can
// render explanations without hardcoding them.
func (h *InsightsHandler) contracts(c echo.Context) error {
	return c.JSON(http.StatusOK, insight.Contracts())
}
