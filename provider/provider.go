package provider

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/callsight/config"
)

// ErrNotConfigured is returned when no usable provider configuration exists.
var ErrNotConfigured = errors.New("llm provider not configured")

// ModelInfo describes the model backing an analysis, surfaced on the dashboard.
type ModelInfo struct {
	Name            string  `json:"name"`
	Provider        string  `json:"provider"`
	EmbeddingModel  string  `json:"embedding_model"`
	MaxTokens       int     `json:"max_tokens"`
	CostPer1KInput  float64 `json:"cost_per_1k_input"`
	CostPer1KOutput float64 `json:"cost_per_1k_output"`
}

func (m ModelInfo) String() string {
	return m.Provider + "/" + m.Name + " + " + m.EmbeddingModel
}

// LLMProvider is the contract for the external language/embedding model.
type LLMProvider interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithTokens produces a completion and reports token usage.
	GenerateWithTokens(ctx context.Context, prompt string) (string, int64, int64, error)

	// Embed generates vector embeddings for the provided inputs.
	Embed(ctx context.Context, input []string) ([][]float32, error)

	// GetModelInfo returns information about the configured model.
	GetModelInfo() ModelInfo

	// CalculateCost calculates the cost for a given number of tokens.
	CalculateCost(inputTokens, outputTokens int64) float64
}

// NewLLMProvider creates an LLM provider from configuration.
func NewLLMProvider(cfg config.ProvidersConfig) (LLMProvider, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return NewOpenAIProvider(cfg.OpenAI), nil
}
