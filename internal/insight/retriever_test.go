package insight

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mohammad-safakhou/callsight/internal/store"
	"github.com/mohammad-safakhou/callsight/models"
)

type fakeSearcher struct {
	count   int
	countErr error
	rows    []store.EmbeddingSearchResult
	rowsErr error
	records []models.ConversationRecord

	searchCalls int
}

func (f *fakeSearcher) CountConversationsInRange(ctx context.Context, rng models.DateRange) (int, error) {
	return f.count, f.countErr
}

func (f *fakeSearcher) SearchConversationEmbeddings(ctx context.Context, rng models.DateRange, vector []float32, topK int) ([]store.EmbeddingSearchResult, error) {
	f.searchCalls++
	return f.rows, f.rowsErr
}

func (f *fakeSearcher) GetConversationsByIDs(ctx context.Context, ids []string) ([]models.ConversationRecord, error) {
	if f.records != nil {
		return f.records, nil
	}
	out := make([]models.ConversationRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.ConversationRecord{ID: id})
	}
	return out, nil
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(input))
	for i := range input {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testRange() models.DateRange {
	return models.NewDateRange(day("2026-01-01"), day("2026-01-31"))
}

func TestRetrieveEmptyRangeIsNotAnError(t *testing.T) {
	searcher := &fakeSearcher{count: 0}
	emb := &fakeEmbedder{}
	r := NewRetriever(searcher, emb, nil)

	res, err := r.Retrieve(context.Background(), testRange(), "anything", 10, 0.35)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.InRangeCount != 0 || len(res.Hits) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if emb.calls != 0 {
		t.Fatalf("embedder should not be called for an empty range, got %d calls", emb.calls)
	}
	if searcher.searchCalls != 0 {
		t.Fatalf("search should not run for an empty range, got %d calls", searcher.searchCalls)
	}
}

func TestRetrieveFloorIsStrict(t *testing.T) {
	searcher := &fakeSearcher{
		count: 3,
		rows: []store.EmbeddingSearchResult{
			{ConversationID: "a", Similarity: 0.80, StartedAt: day("2026-01-10")},
			{ConversationID: "b", Similarity: 0.35, StartedAt: day("2026-01-11")},
			{ConversationID: "c", Similarity: 0.34, StartedAt: day("2026-01-12")},
		},
	}
	r := NewRetriever(searcher, &fakeEmbedder{}, nil)

	res, err := r.Retrieve(context.Background(), testRange(), "probe", 10, 0.35)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "a" {
		t.Fatalf("expected only the hit above the floor, got %+v", res.Hits)
	}
	if res.InRangeCount != 3 {
		t.Fatalf("InRangeCount = %d, want 3", res.InRangeCount)
	}
}

func TestRetrieveOrderingIsDeterministic(t *testing.T) {
	searcher := &fakeSearcher{
		count: 4,
		rows: []store.EmbeddingSearchResult{
			{ConversationID: "older", Similarity: 0.7, StartedAt: day("2026-01-05")},
			{ConversationID: "zz", Similarity: 0.7, StartedAt: day("2026-01-20")},
			{ConversationID: "aa", Similarity: 0.7, StartedAt: day("2026-01-20")},
			{ConversationID: "best", Similarity: 0.9, StartedAt: day("2026-01-02")},
		},
	}
	r := NewRetriever(searcher, &fakeEmbedder{}, nil)

	res, err := r.Retrieve(context.Background(), testRange(), "probe", 10, 0.35)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	got := res.SourceIDs()
	want := []string{"best", "aa", "zz", "older"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestRetrieveTruncatesToK(t *testing.T) {
	rows := make([]store.EmbeddingSearchResult, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, store.EmbeddingSearchResult{
			ConversationID: fmt.Sprintf("c%d", i),
			Similarity:     0.9 - float64(i)*0.01,
			StartedAt:      day("2026-01-10"),
		})
	}
	searcher := &fakeSearcher{count: 5, rows: rows}
	r := NewRetriever(searcher, &fakeEmbedder{}, nil)

	res, err := r.Retrieve(context.Background(), testRange(), "probe", 3, 0.35)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Hits) != 3 {
		t.Fatalf("len(hits) = %d, want 3", len(res.Hits))
	}
}

func TestRetrieveEmbedErrorSurfs(t *testing.T) {
	searcher := &fakeSearcher{count: 2}
	r := NewRetriever(searcher, &fakeEmbedder{err: fmt.Errorf("quota exceeded")}, nil)

	if _, err := r.Retrieve(context.Background(), testRange(), "probe", 10, 0.35); err == nil {
		t.Fatal("expected an error when embedding fails")
	}
}
