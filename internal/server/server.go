package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/callsight/config"
	"github.com/mohammad-safakhou/callsight/internal/ingest"
	"github.com/mohammad-safakhou/callsight/internal/insight"
	"github.com/mohammad-safakhou/callsight/internal/search"
	"github.com/mohammad-safakhou/callsight/internal/store"
	"github.com/mohammad-safakhou/callsight/internal/telemetry"
	"github.com/mohammad-safakhou/callsight/provider"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func Run(cfgPath string, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	registerDocs(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cfg := config.LoadConfig(cfgPath)
	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		log.Printf("migrations: %v", err)
	}

	// Shared dependencies (top-level DI)
	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	if err := cfg.Providers.OpenAI.Validate(); err != nil {
		return err
	}
	llm, err := provider.NewLLMProvider(cfg.Providers)
	if err != nil {
		return err
	}
	tele := telemetry.NewTelemetry(cfg.Telemetry)

	// Optional Redis for cache persistence and scheduler locking.
	var rdb *redis.Client
	var entries insight.EntryStore
	if cfg.Storage.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		entries = insight.NewRedisEntryStore(rdb)
	} else {
		entries = insight.NewMemoryEntryStore()
	}

	retriever := insight.NewRetriever(st, llm, nil)
	generator := insight.NewGenerator(retriever, llm, tele, cfg.Insights.CategoryTimeout, cfg.Insights.TranscriptCharBudget, nil)
	cache := insight.NewCache(generator, entries, st, tele, nil)
	orch := insight.NewOrchestrator(cache, st, llm.GetModelInfo().String(), nil)
	askSvc := insight.NewAskService(retriever, llm, cfg.Insights.CategoryTimeout, cfg.Insights.TranscriptCharBudget, nil)

	// Keyword index is best-effort: semantic analysis works without it.
	var idx *search.KeywordIndex
	if cfg.Search.IndexPath != "" {
		idx, err = search.Open(cfg.Search.IndexPath)
		if err != nil {
			log.Printf("keyword index unavailable: %v", err)
			idx = nil
		}
	}

	// Ingestion from the upstream conversation platform, when configured.
	var syncer *ingest.Syncer
	if cfg.Sync.Endpoint != "" {
		platform, err := ingest.NewHTTPPlatform(cfg.Sync)
		if err != nil {
			return err
		}
		if idx != nil {
			syncer = ingest.NewSyncer(platform, st, llm, idx, cfg.Providers.OpenAI.EmbeddingModel, cfg.Sync.BatchSize, nil)
		} else {
			syncer = ingest.NewSyncer(platform, st, llm, nil, cfg.Providers.OpenAI.EmbeddingModel, cfg.Sync.BatchSize, nil)
		}
		sched := &ingest.Scheduler{Syncer: syncer, Rdb: rdb, Schedule: cfg.Sync.Schedule, Stop: make(chan struct{})}
		sched.Start()
	}

	api := e.Group("/api")
	api.GET("/usage", func(c echo.Context) error {
		cost, tokens := tele.TotalCost()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"total_cost":   cost,
			"total_tokens": tokens,
			"model":        llm.GetModelInfo().String(),
		})
	})
	ih := &InsightsHandler{Orch: orch}
	ih.Register(api.Group("/insights"))
	ah := &AskHandler{Ask: askSvc}
	ah.Register(api.Group("/ask"))
	ch := &ConversationsHandler{Store: st, Index: idx}
	ch.Register(api.Group("/conversations"))
	sh := &SyncHandler{Syncer: syncer, Store: st}
	sh.Register(api.Group("/sync"))

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10020"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
