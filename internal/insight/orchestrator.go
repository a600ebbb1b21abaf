package insight

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/callsight/models"
)

// insightCache abstracts the cache for orchestrator tests.
type insightCache interface {
	GetOrCompute(ctx context.Context, rng models.DateRange, category Category, force bool) (Result, error)
}

// conversationCounter is the store slice used for the unsampled total.
type conversationCounter interface {
	CountConversationsInRange(ctx context.Context, rng models.DateRange) (int, error)
}

// SlotError is the typed per-category failure the view layer renders.
type SlotError struct {
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`
}

// CategorySlot holds either a result or an error, never both.
type CategorySlot struct {
	Result *Result    `json:"result,omitempty"`
	Error  *SlotError `json:"error,omitempty"`
}

// DashboardPayload is the JSON-shaped structure consumed by the view layer.
// TotalConversations is an unsampled count against the conversation store,
// independent of any category's retrieved subset.
type DashboardPayload struct {
	Range              models.DateRange          `json:"range"`
	TotalConversations int                       `json:"total_conversations"`
	ModelInfo          string                    `json:"model_info"`
	GeneratedAt        time.Time                 `json:"generated_at"`
	Categories         map[Category]CategorySlot `json:"categories"`
}

// Orchestrator fans out insight computation across all categories for a
// date range. Categories are independent units of work: one failing never
// prevents the other six from completing.
type Orchestrator struct {
	cache     insightCache
	counter   conversationCounter
	modelInfo string
	logger    *log.Logger
}

// NewOrchestrator builds the analysis orchestrator.
func NewOrchestrator(cache insightCache, counter conversationCounter, modelInfo string, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{cache: cache, counter: counter, modelInfo: modelInfo, logger: logger}
}

// Dashboard computes (or serves from cache) every category for the range
// and assembles the dashboard payload. The per-category map is always
// complete; failures appear as typed slot errors.
func (o *Orchestrator) Dashboard(ctx context.Context, rng models.DateRange, force bool) (DashboardPayload, error) {
	if err := rng.Validate(); err != nil {
		return DashboardPayload{}, err
	}

	total, err := o.counter.CountConversationsInRange(ctx, rng)
	if err != nil {
		return DashboardPayload{}, fmt.Errorf("count conversations: %w", err)
	}

	categories := Categories()
	slots := make([]CategorySlot, len(categories))
	var wg sync.WaitGroup
	for i, category := range categories {
		wg.Add(1)
		go func(i int, category Category) {
			defer wg.Done()
			res, err := o.cache.GetOrCompute(ctx, rng, category, force)
			if err != nil {
				kind := KindOf(err)
				o.logger.Printf("category %s failed: %v", category, err)
				slots[i] = CategorySlot{Error: &SlotError{Kind: kind, Reason: kind.Reason()}}
				return
			}
			slots[i] = CategorySlot{Result: &res}
		}(i, category)
	}
	wg.Wait()

	payload := DashboardPayload{
		Range:              rng,
		TotalConversations: total,
		ModelInfo:          o.modelInfo,
		GeneratedAt:        time.Now().UTC(),
		Categories:         make(map[Category]CategorySlot, len(categories)),
	}
	for i, category := range categories {
		payload.Categories[category] = slots[i]
	}
	return payload, nil
}
