package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/callsight/config"
)

func TestGenerateWithTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"themes\":[]}"}}],"usage":{"prompt_tokens":120,"completion_tokens":8}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.OpenAIConfig{
		APIKey:          "sk-test",
		BaseURL:         srv.URL,
		CompletionModel: "gpt-4o-mini",
	})

	out, inTok, outTok, err := p.GenerateWithTokens(context.Background(), "analyse this")
	if err != nil {
		t.Fatalf("GenerateWithTokens: %v", err)
	}
	if out != `{"themes":[]}` {
		t.Fatalf("content = %q", out)
	}
	if inTok != 120 || outTok != 8 {
		t.Fatalf("tokens = %d/%d", inTok, outTok)
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2],"index":0},{"embedding":[0.3,0.4],"index":1}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, EmbeddingModel: "text-embedding-3-small"})

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 0.3 {
		t.Fatalf("vecs = %v", vecs)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	p := NewOpenAIProvider(config.OpenAIConfig{APIKey: "sk-test"})
	vecs, err := p.Embed(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Fatalf("Embed(nil) = %v, %v", vecs, err)
	}
}

func TestGenerateNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	if _, err := p.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestCalculateCost(t *testing.T) {
	p := NewOpenAIProvider(config.OpenAIConfig{APIKey: "sk-test", CompletionModel: "gpt-4o-mini"})
	got := p.CalculateCost(1000, 1000)
	want := 0.00015 + 0.0006
	if got != want {
		t.Fatalf("cost = %v, want %v", got, want)
	}
}

func TestNewLLMProviderRequiresKey(t *testing.T) {
	if _, err := NewLLMProvider(config.ProvidersConfig{}); err == nil {
		t.Fatal("expected ErrNotConfigured")
	}
}
