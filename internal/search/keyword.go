// Package search maintains a keyword index over conversation transcripts
// for the dashboard's search box. It is separate from semantic retrieval
// and never participates in insight generation.
package search

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/mohammad-safakhou/callsight/models"
)

// indexDoc is the flattened shape stored in the bleve index.
type indexDoc struct {
	Transcript string    `json:"transcript"`
	Summary    string    `json:"summary"`
	StartedAt  time.Time `json:"started_at"`
}

// Hit is one keyword search match.
type Hit struct {
	ConversationID string  `json:"conversation_id"`
	Score          float64 `json:"score"`
	Fragment       string  `json:"fragment,omitempty"`
}

// KeywordIndex wraps a bleve index over transcripts and summaries.
type KeywordIndex struct {
	index bleve.Index
}

// Open opens or creates the index at path.
func Open(path string) (*KeywordIndex, error) {
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open keyword index: %w", err)
		}
		return &KeywordIndex{index: idx}, nil
	}
	idx, err := bleve.New(path, bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &KeywordIndex{index: idx}, nil
}

// OpenInMemory creates an ephemeral index, used in tests.
func OpenInMemory() (*KeywordIndex, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &KeywordIndex{index: idx}, nil
}

// Index adds or replaces one conversation in the index.
func (k *KeywordIndex) Index(rec models.ConversationRecord) error {
	return k.index.Index(rec.ID, indexDoc{
		Transcript: rec.TranscriptText(),
		Summary:    rec.Summary,
		StartedAt:  rec.StartedAt,
	})
}

// Search runs a query-string match and returns up to limit hits with
// transcript fragments for display.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Highlight = bleve.NewHighlight()
	res, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ConversationID: h.ID, Score: h.Score}
		for _, fragments := range h.Fragments {
			if len(fragments) > 0 {
				hit.Fragment = fragments[0]
				break
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete removes a conversation from the index.
func (k *KeywordIndex) Delete(id string) error { return k.index.Delete(id) }

// Close releases the index.
func (k *KeywordIndex) Close() error { return k.index.Close() }
