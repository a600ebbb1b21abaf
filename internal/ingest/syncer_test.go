package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/callsight/internal/store"
	"github.com/mohammad-safakhou/callsight/models"
)

type fakePlatform struct {
	records []models.ConversationRecord
	err     error
	since   time.Time
}

func (f *fakePlatform) ListConversations(ctx context.Context, since time.Time) ([]models.ConversationRecord, error) {
	f.since = since
	return f.records, f.err
}

type fakeSyncStore struct {
	existing   map[string]bool
	upserts    int
	embeddings int
	bumps      int
	reports    []models.SyncReport
	upsertErr  error
}

func (f *fakeSyncStore) UpsertConversation(ctx context.Context, rec models.ConversationRecord) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	f.upserts++
	inserted := !f.existing[rec.ID]
	if f.existing == nil {
		f.existing = map[string]bool{}
	}
	f.existing[rec.ID] = true
	return inserted, nil
}

func (f *fakeSyncStore) UpsertConversationEmbedding(ctx context.Context, rec store.EmbeddingRecord) error {
	f.embeddings++
	return nil
}

func (f *fakeSyncStore) LatestConversationTime(ctx context.Context) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (f *fakeSyncStore) BumpDataVersion(ctx context.Context) (int64, error) {
	f.bumps++
	return int64(f.bumps), nil
}

func (f *fakeSyncStore) SaveSyncReport(ctx context.Context, report models.SyncReport) error {
	f.reports = append(f.reports, report)
	return nil
}

type fakeBatchEmbedder struct {
	calls int
	err   error
}

func (f *fakeBatchEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(input))
	for i := range input {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func conv(id string, started time.Time) models.ConversationRecord {
	return models.ConversationRecord{
		ID:         id,
		StartedAt:  started,
		EndedAt:    started.Add(5 * time.Minute),
		Transcript: []models.Turn{{Role: "caller", Text: "hello"}},
	}
}

func TestSyncAddsAndEmbeds(t *testing.T) {
	now := time.Now().UTC()
	platform := &fakePlatform{records: []models.ConversationRecord{
		conv("c1", now),
		conv("c2", now),
	}}
	st := &fakeSyncStore{}
	emb := &fakeBatchEmbedder{}
	syncer := NewSyncer(platform, st, emb, nil, "text-embedding-3-small", 32, nil)

	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Added != 2 || report.TotalChecked != 2 {
		t.Fatalf("report = %+v", report)
	}
	if st.embeddings != 2 {
		t.Fatalf("embeddings stored = %d, want 2", st.embeddings)
	}
	if st.bumps != 1 {
		t.Fatalf("data version bumped %d times, want 1", st.bumps)
	}
	if len(st.reports) != 1 {
		t.Fatalf("reports saved = %d, want 1", len(st.reports))
	}
	if report.JobID == "" {
		t.Fatal("report must carry a job id")
	}
}

func TestSyncNoChangesSkipsVersionBump(t *testing.T) {
	platform := &fakePlatform{}
	st := &fakeSyncStore{}
	syncer := NewSyncer(platform, st, &fakeBatchEmbedder{}, nil, "m", 32, nil)

	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Changed() {
		t.Fatalf("report = %+v, want unchanged", report)
	}
	if st.bumps != 0 {
		t.Fatalf("data version bumped %d times, want 0", st.bumps)
	}
}

func TestSyncSkipsEmptyRecords(t *testing.T) {
	now := time.Now().UTC()
	platform := &fakePlatform{records: []models.ConversationRecord{
		conv("c1", now),
		{ID: "empty", StartedAt: now},
		{StartedAt: now, Transcript: []models.Turn{{Role: "caller", Text: "no id"}}},
	}}
	st := &fakeSyncStore{}
	syncer := NewSyncer(platform, st, &fakeBatchEmbedder{}, nil, "m", 32, nil)

	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Added != 1 || report.Skipped != 2 {
		t.Fatalf("report = %+v, want 1 added / 2 skipped", report)
	}
}

func TestSyncToleratesEmbedFailure(t *testing.T) {
	now := time.Now().UTC()
	platform := &fakePlatform{records: []models.ConversationRecord{conv("c1", now)}}
	st := &fakeSyncStore{}
	syncer := NewSyncer(platform, st, &fakeBatchEmbedder{err: errors.New("embedding api down")}, nil, "m", 32, nil)

	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Added != 1 {
		t.Fatalf("report = %+v, conversations should still be stored", report)
	}
	if st.embeddings != 0 {
		t.Fatalf("embeddings stored = %d, want 0 when embedding fails", st.embeddings)
	}
}

func TestSyncPlatformErrorAborts(t *testing.T) {
	platform := &fakePlatform{err: errors.New("upstream 502")}
	st := &fakeSyncStore{}
	syncer := NewSyncer(platform, st, &fakeBatchEmbedder{}, nil, "m", 32, nil)

	if _, err := syncer.Sync(context.Background()); err == nil {
		t.Fatal("expected error when the platform listing fails")
	}
	if len(st.reports) != 0 {
		t.Fatal("no report should be saved for an aborted sync")
	}
}
