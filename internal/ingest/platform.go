package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/callsight/config"
	"github.com/mohammad-safakhou/callsight/models"
)

// Platform is the upstream conversational-AI platform that owns the raw
// conversation recordings. It is an external collaborator: callsight only
// pulls finished conversations from it.
type Platform interface {
	// ListConversations returns conversations started at or after since.
	ListConversations(ctx context.Context, since time.Time) ([]models.ConversationRecord, error)
}

// HTTPPlatform talks to the platform's REST API.
type HTTPPlatform struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPPlatform builds the platform client from sync configuration.
func NewHTTPPlatform(cfg config.SyncConfig) (*HTTPPlatform, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("sync.endpoint required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPPlatform{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type platformTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type platformConversation struct {
	ID           string         `json:"conversation_id"`
	StartedAt    time.Time      `json:"start_time"`
	EndedAt      time.Time      `json:"end_time"`
	Turns        []platformTurn `json:"transcript"`
	Summary      string         `json:"summary"`
	DurationSecs int64          `json:"duration_seconds"`
	Cost         float64        `json:"cost"`
}

// ListConversations pulls conversations from the platform API.
func (p *HTTPPlatform) ListConversations(ctx context.Context, since time.Time) ([]models.ConversationRecord, error) {
	u, err := url.Parse(p.endpoint + "/conversations")
	if err != nil {
		return nil, fmt.Errorf("bad endpoint: %w", err)
	}
	q := u.Query()
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform returned status: %d", resp.StatusCode)
	}

	var payload struct {
		Conversations []platformConversation `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := make([]models.ConversationRecord, 0, len(payload.Conversations))
	for _, pc := range payload.Conversations {
		rec := models.ConversationRecord{
			ID:        pc.ID,
			StartedAt: pc.StartedAt,
			EndedAt:   pc.EndedAt,
			Summary:   pc.Summary,
			Duration:  time.Duration(pc.DurationSecs) * time.Second,
			Cost:      pc.Cost,
		}
		for _, t := range pc.Turns {
			rec.Transcript = append(rec.Transcript, models.Turn{Role: t.Role, Text: t.Message})
		}
		out = append(out, rec)
	}
	return out, nil
}
