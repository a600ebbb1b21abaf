package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/callsight/internal/insight"
	"github.com/mohammad-safakhou/callsight/models"
)

// AskHandler answers ad-hoc questions scoped to a date range.
type AskHandler struct {
	Ask *insight.AskService
}

func (h *AskHandler) Register(g *echo.Group) {
	g.POST("", h.ask)
}

func (h *AskHandler) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}
	rng, err := rangeFromBody(req.From, req.To)
	if err != nil {
		return err
	}
	answer, err := h.Ask.Ask(c.Request().Context(), rng, req.Question)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, answer)
}

// rangeFromBody mirrors rangeFromQuery for JSON request bodies.
func rangeFromBody(from, to string) (models.DateRange, error) {
	if from == "" && to == "" {
		return models.AllTime(), nil
	}
	var rng models.DateRange
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return models.DateRange{}, echo.NewHTTPError(http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		}
		rng.Start = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return models.DateRange{}, echo.NewHTTPError(http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		}
		rng.End = t
	} else {
		rng.End = time.Now().UTC()
	}
	rng = models.NewDateRange(rng.Start, rng.End)
	if err := rng.Validate(); err != nil {
		return models.DateRange{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return rng, nil
}
