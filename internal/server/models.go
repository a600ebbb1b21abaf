package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/callsight/models"
)

const dateLayout = "2006-01-02"

// rangeFromQuery parses the optional from/to query params into a DateRange.
// Both empty means all time ending today. A lone "from" ends today; a lone
// "to" has no lower bound.
func rangeFromQuery(c echo.Context) (models.DateRange, error) {
	fromRaw := c.QueryParam("from")
	toRaw := c.QueryParam("to")
	if fromRaw == "" && toRaw == "" {
		return models.AllTime(), nil
	}

	var rng models.DateRange
	if fromRaw != "" {
		from, err := time.Parse(dateLayout, fromRaw)
		if err != nil {
			return models.DateRange{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid from date %q, want YYYY-MM-DD", fromRaw))
		}
		rng.Start = from
	}
	if toRaw != "" {
		to, err := time.Parse(dateLayout, toRaw)
		if err != nil {
			return models.DateRange{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid to date %q, want YYYY-MM-DD", toRaw))
		}
		rng.End = to
	} else {
		rng.End = time.Now().UTC()
	}
	// dateOnly of the zero time stays zero, so all-time survives this.
	rng = models.NewDateRange(rng.Start, rng.End)
	if err := rng.Validate(); err != nil {
		return models.DateRange{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return rng, nil
}

func intQueryDefault(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func boolQuery(c echo.Context, name string) bool {
	switch c.QueryParam(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}

type askRequest struct {
	Question string `json:"question"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}
