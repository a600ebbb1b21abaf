package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/callsight/internal/ingest"
	"github.com/mohammad-safakhou/callsight/internal/store"
)

// SyncHandler triggers manual ingestion passes and reports on the last one.
type SyncHandler struct {
	Syncer *ingest.Syncer
	Store  *store.Store
}

func (h *SyncHandler) Register(g *echo.Group) {
	g.POST("", h.trigger)
	g.GET("/latest", h.latest)
}

func (h *SyncHandler) trigger(c echo.Context) error {
	if h.Syncer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "sync not configured (sync.endpoint)")
	}
	report, err := h.Syncer.Sync(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *SyncHandler) latest(c echo.Context) error {
	report, ok, err := h.Store.LatestSyncReport(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no sync has run yet")
	}
	return c.JSON(http.StatusOK, report)
}
