package insight

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/callsight/internal/telemetry"
	"github.com/mohammad-safakhou/callsight/models"
)

// retrievalService abstracts the semantic retriever for testing.
type retrievalService interface {
	Retrieve(ctx context.Context, rng models.DateRange, queryText string, k int, floor float64) (RetrievalResult, error)
}

// textGenerator is the slice of the LLM provider the generator depends on.
type textGenerator interface {
	GenerateWithTokens(ctx context.Context, prompt string) (string, int64, int64, error)
	CalculateCost(inputTokens, outputTokens int64) float64
}

// InsightGenerator produces one structured insight per (category, range).
type InsightGenerator interface {
	Generate(ctx context.Context, category Category, rng models.DateRange) (Result, error)
}

// Generator implements one retrieval+generation strategy per category.
// Every failure crossing its boundary is a *CategoryError so the
// orchestrator can render an accurate per-category message.
type Generator struct {
	retriever  retrievalService
	provider   textGenerator
	telemetry  *telemetry.Telemetry
	timeout    time.Duration
	charBudget int
	logger     *log.Logger
}

// NewGenerator builds the insight generator.
func NewGenerator(retriever retrievalService, provider textGenerator, tele *telemetry.Telemetry, timeout time.Duration, charBudget int, logger *log.Logger) *Generator {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if charBudget <= 0 {
		charBudget = 2000
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[INSIGHT] ", log.LstdFlags)
	}
	return &Generator{
		retriever:  retriever,
		provider:   provider,
		telemetry:  tele,
		timeout:    timeout,
		charBudget: charBudget,
		logger:     logger,
	}
}

// Generate retrieves the category's contractual sample and derives its
// structured insight. The model is never invoked when retrieval comes back
// empty, so an empty range cannot produce hallucinated content.
func (g *Generator) Generate(ctx context.Context, category Category, rng models.DateRange) (Result, error) {
	if !category.Valid() {
		return Result{}, fmt.Errorf("unknown category %q", category)
	}
	spec := category.Spec()
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ret, err := g.retriever.Retrieve(ctx, rng, spec.Probe, spec.K, spec.Floor)
	if err != nil {
		g.telemetry.RecordGeneration(string(category), time.Since(started), 0, 0, "retrieval_error")
		return Result{}, categoryErr(KindRetrievalUnavailable, category, err)
	}
	g.telemetry.RecordRetrieval(string(category), len(ret.Hits))
	if ret.InRangeCount == 0 {
		return Result{}, categoryErr(KindNoDataInRange, category, nil)
	}
	if len(ret.Hits) == 0 {
		return Result{}, categoryErr(KindInsufficientRelevantData, category, nil)
	}

	prompt := buildPrompt(category, rng, ret.Hits, g.charBudget)
	raw, inTok, outTok, err := g.provider.GenerateWithTokens(ctx, prompt)
	cost := g.provider.CalculateCost(inTok, outTok)
	if err != nil {
		g.telemetry.RecordGeneration(string(category), time.Since(started), inTok+outTok, cost, "generation_error")
		return Result{}, categoryErr(KindGenerationUnavailable, category, err)
	}

	sourceIDs := ret.SourceIDs()
	content, err := parseResponse(category, raw, sourceIDs)
	if err != nil {
		g.telemetry.RecordGeneration(string(category), time.Since(started), inTok+outTok, cost, "malformed")
		g.logger.Printf("warn: %s response unparseable: %v", category, err)
		return Result{}, categoryErr(KindMalformedGeneration, category, err)
	}

	g.telemetry.RecordGeneration(string(category), time.Since(started), inTok+outTok, cost, "ok")
	return Result{
		Category:    category,
		Content:     content,
		SourceIDs:   sourceIDs,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
