package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/callsight/config"
)

const openaiBaseURL = "https://api.openai.com/v1"

// Per-1K token prices for the models this service routes to. Kept alongside
// the client so dashboard cost figures match what the billing page reports.
var openaiPricing = map[string][2]float64{
	"gpt-4o":                 {0.0025, 0.01},
	"gpt-4o-mini":            {0.00015, 0.0006},
	"text-embedding-3-small": {0.00002, 0},
	"text-embedding-3-large": {0.00013, 0},
}

// OpenAIProvider implements LLMProvider against the OpenAI HTTP API.
type OpenAIProvider struct {
	cfg        config.OpenAIConfig
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg config.OpenAIConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openaiBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OpenAIProvider{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate produces a completion for the prompt.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	out, _, _, err := p.GenerateWithTokens(ctx, prompt)
	return out, err
}

// GenerateWithTokens produces a completion and reports prompt/completion token usage.
func (p *OpenAIProvider) GenerateWithTokens(ctx context.Context, prompt string) (string, int64, int64, error) {
	body, err := json.Marshal(chatRequest{
		Model:       p.cfg.CompletionModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, 0, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("no choices in response")
	}
	return out.Choices[0].Message.Content, out.Usage.PromptTokens, out.Usage.CompletionTokens, nil
}

// Embed generates an embedding for the given texts using OpenAI's API.
func (p *OpenAIProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if len(input) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"model": p.cfg.EmbeddingModel,
		"input": input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/embeddings", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// GetModelInfo returns information about the configured completion model.
func (p *OpenAIProvider) GetModelInfo() ModelInfo {
	price := openaiPricing[p.cfg.CompletionModel]
	return ModelInfo{
		Name:            p.cfg.CompletionModel,
		Provider:        "openai",
		EmbeddingModel:  p.cfg.EmbeddingModel,
		MaxTokens:       p.cfg.MaxTokens,
		CostPer1KInput:  price[0],
		CostPer1KOutput: price[1],
	}
}

// CalculateCost calculates the dollar cost for a given number of tokens.
func (p *OpenAIProvider) CalculateCost(inputTokens, outputTokens int64) float64 {
	price := openaiPricing[p.cfg.CompletionModel]
	return float64(inputTokens)/1000*price[0] + float64(outputTokens)/1000*price[1]
}
