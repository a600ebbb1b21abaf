package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/callsight/internal/insight"
)

func TestInsightsContracts(t *testing.T) {
	handler := &InsightsHandler{}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/insights/contracts", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.contracts(ctx); err != nil {
		t.Fatalf("contracts: %v", err)
	}
	var got map[insight.Category]insight.Spec
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(insight.Categories()) {
		t.Fatalf("contracts = %d entries, want %d", len(got), len(insight.Categories()))
	}
	trends, ok := got[insight.CategorySentimentTrends]
	if !ok || trends.K != 15 || trends.Floor != 0.35 {
		t.Fatalf("sentiment_trends contract = %+v", trends)
	}
	themes := got[insight.CategoryTopThemes]
	if themes.K != 10 || themes.Floor != 0.35 {
		t.Fatalf("top_themes contract = %+v", themes)
	}
}

func TestRangeFromQuery(t *testing.T) {
	e := echo.New()
	newCtx := func(target string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		return e.NewContext(req, httptest.NewRecorder())
	}

	rng, err := rangeFromQuery(newCtx("/?from=2026-01-01&to=2026-01-31"))
	if err != nil {
		t.Fatalf("bounded: %v", err)
	}
	if rng.IsAllTime() || rng.Key() != "2026-01-01..2026-01-31" {
		t.Fatalf("bounded range = %+v", rng)
	}

	rng, err = rangeFromQuery(newCtx("/"))
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if !rng.IsAllTime() {
		t.Fatalf("missing params should mean all time, got %+v", rng)
	}

	rng, err = rangeFromQuery(newCtx("/?to=2026-03-01"))
	if err != nil {
		t.Fatalf("to only: %v", err)
	}
	if !rng.IsAllTime() || rng.Key() != "alltime..2026-03-01" {
		t.Fatalf("to-only range = %+v", rng)
	}

	if _, err := rangeFromQuery(newCtx("/?from=31-01-2026")); err == nil {
		t.Fatal("expected error for bad date format")
	}
	if _, err := rangeFromQuery(newCtx("/?from=2026-02-01&to=2026-01-01")); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestBoolQuery(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?refresh=true", nil)
	ctx := e.NewContext(req, httptest.NewRecorder())
	if !boolQuery(ctx, "refresh") {
		t.Fatal("refresh=true should parse as true")
	}
	if boolQuery(ctx, "missing") {
		t.Fatal("missing param should parse as false")
	}
}
