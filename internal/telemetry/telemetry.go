package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/callsight/config"
)

// Telemetry tracks insight generation metrics and LLM cost.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	generations     *prometheus.CounterVec
	generationTime  *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	retrievedCounts *prometheus.HistogramVec

	costTracker *CostTracker
}

// CostTracker accumulates LLM spend across operations and models.
type CostTracker struct {
	mu sync.RWMutex

	OperationCosts map[string]float64 // category/operation -> cost
	TotalCost      float64
	TotalTokens    int64
}

// NewTelemetry creates a telemetry instance and registers its collectors.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		generations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callsight_insight_generations_total",
			Help: "Insight generations by category and outcome.",
		}, []string{"category", "outcome"}),
		generationTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callsight_insight_generation_seconds",
			Help:    "Insight generation latency by category.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"category"}),
		cacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callsight_insight_cache_lookups_total",
			Help: "Insight cache lookups by result (hit, miss, stale, coalesced).",
		}, []string{"result"}),
		retrievedCounts: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callsight_retrieved_conversations",
			Help:    "Number of conversations passing the similarity floor per retrieval.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 12, 15},
		}, []string{"category"}),
		costTracker: &CostTracker{OperationCosts: make(map[string]float64)},
	}
}

// RecordGeneration records one insight generation attempt.
func (t *Telemetry) RecordGeneration(category string, duration time.Duration, tokens int64, cost float64, outcome string) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.generations.WithLabelValues(category, outcome).Inc()
	t.generationTime.WithLabelValues(category).Observe(duration.Seconds())
	if t.config.CostTracking {
		t.costTracker.mu.Lock()
		t.costTracker.OperationCosts[category] += cost
		t.costTracker.TotalCost += cost
		t.costTracker.TotalTokens += tokens
		t.costTracker.mu.Unlock()
	}
	t.logger.Printf("Generation: category=%s outcome=%s duration=%v cost=$%.4f tokens=%d",
		category, outcome, duration, cost, tokens)
}

// RecordRetrieval records the retrieved count for a category.
func (t *Telemetry) RecordRetrieval(category string, hits int) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.retrievedCounts.WithLabelValues(category).Observe(float64(hits))
}

// RecordCacheLookup records a cache lookup outcome.
func (t *Telemetry) RecordCacheLookup(result string) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.cacheLookups.WithLabelValues(result).Inc()
}

// TotalCost returns accumulated LLM spend.
func (t *Telemetry) TotalCost() (float64, int64) {
	if t == nil {
		return 0, 0
	}
	t.costTracker.mu.RLock()
	defer t.costTracker.mu.RUnlock()
	return t.costTracker.TotalCost, t.costTracker.TotalTokens
}
