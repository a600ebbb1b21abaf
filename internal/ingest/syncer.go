package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/callsight/internal/store"
	"github.com/mohammad-safakhou/callsight/models"
)

// syncStore is the slice of the conversation store ingestion needs.
type syncStore interface {
	UpsertConversation(ctx context.Context, rec models.ConversationRecord) (bool, error)
	UpsertConversationEmbedding(ctx context.Context, rec store.EmbeddingRecord) error
	LatestConversationTime(ctx context.Context) (time.Time, bool, error)
	BumpDataVersion(ctx context.Context) (int64, error)
	SaveSyncReport(ctx context.Context, report models.SyncReport) error
}

// embedder produces semantic vectors for transcripts at ingestion time.
type embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// transcriptIndexer feeds the keyword index; optional.
type transcriptIndexer interface {
	Index(rec models.ConversationRecord) error
}

// Syncer pulls finished conversations from the platform, embeds them and
// upserts store rows. When anything changed it bumps the store's data
// version, which marks existing insight cache entries stale.
type Syncer struct {
	platform       Platform
	store          syncStore
	provider       embedder
	index          transcriptIndexer
	embeddingModel string
	batchSize      int
	logger         *log.Logger
}

// NewSyncer builds an ingestion syncer. index may be nil.
func NewSyncer(platform Platform, st syncStore, provider embedder, index transcriptIndexer, embeddingModel string, batchSize int, logger *log.Logger) *Syncer {
	if batchSize <= 0 {
		batchSize = 32
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SYNC] ", log.LstdFlags)
	}
	return &Syncer{
		platform:       platform,
		store:          st,
		provider:       provider,
		index:          index,
		embeddingModel: embeddingModel,
		batchSize:      batchSize,
		logger:         logger,
	}
}

// Sync runs one incremental ingestion pass and returns its report.
func (s *Syncer) Sync(ctx context.Context) (models.SyncReport, error) {
	report := models.SyncReport{JobID: uuid.NewString(), StartedAt: time.Now().UTC()}

	since, _, err := s.store.LatestConversationTime(ctx)
	if err != nil {
		return report, fmt.Errorf("latest conversation time: %w", err)
	}
	records, err := s.platform.ListConversations(ctx, since)
	if err != nil {
		return report, fmt.Errorf("list conversations: %w", err)
	}
	report.TotalChecked = len(records)

	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		s.syncBatch(ctx, records[start:end], &report)
	}

	report.FinishedAt = time.Now().UTC()
	if report.Changed() {
		if _, err := s.store.BumpDataVersion(ctx); err != nil {
			s.logger.Printf("warn: bump data version failed: %v", err)
		}
	}
	if err := s.store.SaveSyncReport(ctx, report); err != nil {
		s.logger.Printf("warn: save sync report failed: %v", err)
	}
	s.logger.Printf("sync %s: checked=%d added=%d updated=%d skipped=%d failed=%d",
		report.JobID, report.TotalChecked, report.Added, report.Updated, report.Skipped, report.Failed)
	return report, nil
}

func (s *Syncer) syncBatch(ctx context.Context, records []models.ConversationRecord, report *models.SyncReport) {
	inputs := make([]string, 0, len(records))
	embeddable := make([]int, 0, len(records))
	for i, rec := range records {
		text := rec.TranscriptText()
		if text == "" && rec.Summary == "" {
			continue
		}
		if text == "" {
			text = rec.Summary
		}
		inputs = append(inputs, text)
		embeddable = append(embeddable, i)
	}

	var vectors [][]float32
	if len(inputs) > 0 {
		var err error
		vectors, err = s.provider.Embed(ctx, inputs)
		if err != nil {
			s.logger.Printf("warn: embed batch failed: %v", err)
			vectors = nil
		} else if len(vectors) != len(inputs) {
			s.logger.Printf("warn: expected %d vectors, got %d", len(inputs), len(vectors))
			vectors = nil
		}
	}
	vectorFor := make(map[int][]float32, len(embeddable))
	if vectors != nil {
		for pos, idx := range embeddable {
			vectorFor[idx] = vectors[pos]
		}
	}

	for i, rec := range records {
		if rec.ID == "" || (len(rec.Transcript) == 0 && rec.Summary == "") {
			report.Skipped++
			continue
		}
		inserted, err := s.store.UpsertConversation(ctx, rec)
		if err != nil {
			s.logger.Printf("warn: upsert %s failed: %v", rec.ID, err)
			report.Failed++
			continue
		}
		if vec, ok := vectorFor[i]; ok {
			if err := s.store.UpsertConversationEmbedding(ctx, store.EmbeddingRecord{
				ConversationID: rec.ID,
				Vector:         vec,
				Model:          s.embeddingModel,
			}); err != nil {
				s.logger.Printf("warn: store embedding for %s failed: %v", rec.ID, err)
				report.Failed++
				continue
			}
		}
		if s.index != nil {
			if err := s.index.Index(rec); err != nil {
				s.logger.Printf("warn: keyword index for %s failed: %v", rec.ID, err)
			}
		}
		if inserted {
			report.Added++
		} else {
			report.Updated++
		}
	}
}
