package insight

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/mohammad-safakhou/callsight/internal/store"
	"github.com/mohammad-safakhou/callsight/models"
)

// Embedder is the slice of the LLM provider the retriever depends on.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// conversationSearcher abstracts the store methods required for retrieval.
type conversationSearcher interface {
	CountConversationsInRange(ctx context.Context, rng models.DateRange) (int, error)
	SearchConversationEmbeddings(ctx context.Context, rng models.DateRange, vector []float32, topK int) ([]store.EmbeddingSearchResult, error)
	GetConversationsByIDs(ctx context.Context, ids []string) ([]models.ConversationRecord, error)
}

// Hit is one retrieved conversation with its similarity score.
type Hit struct {
	ID         string
	Similarity float64
	StartedAt  time.Time
	Record     models.ConversationRecord
}

// RetrievalResult is the ranked, floor-filtered retrieval outcome.
// InRangeCount is the unfiltered number of conversations in the range so
// callers can tell "no data at all" from "nothing relevant enough".
type RetrievalResult struct {
	Hits         []Hit
	InRangeCount int
}

// SourceIDs returns the hit conversation ids in rank order.
func (r RetrievalResult) SourceIDs() []string {
	ids := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

// Retriever selects the semantically closest conversations for a query
// within a date range.
type Retriever struct {
	store    conversationSearcher
	provider Embedder
	logger   *log.Logger
}

// NewRetriever builds a semantic retriever over the conversation store.
func NewRetriever(st conversationSearcher, provider Embedder, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)
	}
	return &Retriever{store: st, provider: provider, logger: logger}
}

// Retrieve embeds queryText, ranks in-range conversations by cosine
// similarity, keeps scores strictly greater than floor and returns at most
// k hits, highest similarity first, ties broken by more recent start time.
// An empty range yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, rng models.DateRange, queryText string, k int, floor float64) (RetrievalResult, error) {
	if strings.TrimSpace(queryText) == "" {
		return RetrievalResult{}, fmt.Errorf("query text required")
	}
	if k <= 0 {
		return RetrievalResult{}, fmt.Errorf("k must be positive")
	}

	total, err := r.store.CountConversationsInRange(ctx, rng)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("count conversations: %w", err)
	}
	if total == 0 {
		return RetrievalResult{InRangeCount: 0}, nil
	}

	vectors, err := r.provider.Embed(ctx, []string{queryText})
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return RetrievalResult{}, fmt.Errorf("embed query: provider returned no vectors")
	}

	rows, err := r.store.SearchConversationEmbeddings(ctx, rng, vectors[0], k)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("search embeddings: %w", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		if row.Similarity <= floor {
			continue
		}
		hits = append(hits, Hit{ID: row.ConversationID, Similarity: row.Similarity, StartedAt: row.StartedAt})
	}
	// The store already orders by distance, but the ordering contract is
	// ours: descending similarity, then more recent first, then id.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if !hits[i].StartedAt.Equal(hits[j].StartedAt) {
			return hits[i].StartedAt.After(hits[j].StartedAt)
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	if len(hits) > 0 {
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.ID
		}
		records, err := r.store.GetConversationsByIDs(ctx, ids)
		if err != nil {
			return RetrievalResult{}, fmt.Errorf("load conversations: %w", err)
		}
		byID := make(map[string]models.ConversationRecord, len(records))
		for _, rec := range records {
			byID[rec.ID] = rec
		}
		for i := range hits {
			hits[i].Record = byID[hits[i].ID]
		}
	}

	return RetrievalResult{Hits: hits, InRangeCount: total}, nil
}
