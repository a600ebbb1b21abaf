package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mohammad-safakhou/callsight/models"
)

// Store wraps the Postgres conversation store.
type Store struct {
	DB *sql.DB
}

// DefaultEmbeddingDimensions indicates the expected length of semantic vectors stored in pgvector columns.
const DefaultEmbeddingDimensions = 1536

// NewWithDSN opens a Postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.DB.Close() }

// rangeBounds converts a DateRange into SQL-friendly bounds. The upper bound
// is exclusive (start of the day after End) so the End date is included.
func rangeBounds(rng models.DateRange) (sql.NullTime, time.Time) {
	var start sql.NullTime
	if !rng.IsAllTime() {
		start = sql.NullTime{Time: rng.Start, Valid: true}
	}
	return start, rng.End.AddDate(0, 0, 1)
}

// UpsertConversation inserts or refreshes one conversation. It reports
// whether a new row was created. Notes are operator-owned and never
// overwritten by ingestion.
func (s *Store) UpsertConversation(ctx context.Context, rec models.ConversationRecord) (bool, error) {
	if rec.ID == "" {
		return false, fmt.Errorf("conversation id required")
	}
	transcript, err := json.Marshal(rec.Transcript)
	if err != nil {
		return false, fmt.Errorf("marshal transcript: %w", err)
	}
	var inserted bool
	err = s.DB.QueryRowContext(ctx, `
INSERT INTO conversations (id, started_at, ended_at, transcript, summary, duration_secs, cost, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
ON CONFLICT (id) DO UPDATE SET
  started_at = EXCLUDED.started_at,
  ended_at = EXCLUDED.ended_at,
  transcript = EXCLUDED.transcript,
  summary = EXCLUDED.summary,
  duration_secs = EXCLUDED.duration_secs,
  cost = EXCLUDED.cost,
  updated_at = NOW()
RETURNING (xmax = 0)
`, rec.ID, rec.StartedAt, rec.EndedAt, transcript, rec.Summary, int64(rec.Duration/time.Second), rec.Cost).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// GetConversation loads a single conversation by id.
func (s *Store) GetConversation(ctx context.Context, id string) (models.ConversationRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT id, started_at, ended_at, transcript, summary, duration_secs, cost, notes, created_at, updated_at
FROM conversations WHERE id = $1
`, id)
	rec, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConversationRecord{}, models.ErrConversationNotFound
	}
	return rec, err
}

// GetConversationsByIDs loads the given conversations; missing ids are
// silently dropped so callers can resolve retrieval hits in one round trip.
func (s *Store) GetConversationsByIDs(ctx context.Context, ids []string) ([]models.ConversationRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, started_at, ended_at, transcript, summary, duration_secs, cost, notes, created_at, updated_at
FROM conversations WHERE id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]models.ConversationRecord, len(ids))
	for rows.Next() {
		rec, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// preserve caller ordering
	out := make([]models.ConversationRecord, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListConversationsInRange returns conversations whose start time falls in
// the range, most recent first.
func (s *Store) ListConversationsInRange(ctx context.Context, rng models.DateRange, limit, offset int) ([]models.ConversationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	start, end := rangeBounds(rng)
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, started_at, ended_at, transcript, summary, duration_secs, cost, notes, created_at, updated_at
FROM conversations
WHERE ($1::timestamptz IS NULL OR started_at >= $1) AND started_at < $2
ORDER BY started_at DESC
LIMIT $3 OFFSET $4
`, start, end, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.ConversationRecord
	for rows.Next() {
		rec, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountConversationsInRange returns the unsampled total for the range. The
// dashboard's headline count comes from here, never from a retrieval.
func (s *Store) CountConversationsInRange(ctx context.Context, rng models.DateRange) (int, error) {
	start, end := rangeBounds(rng)
	var n int
	err := s.DB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM conversations
WHERE ($1::timestamptz IS NULL OR started_at >= $1) AND started_at < $2
`, start, end).Scan(&n)
	return n, err
}

// UpdateNotes sets the operator notes on a conversation.
func (s *Store) UpdateNotes(ctx context.Context, id, notes string) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE conversations SET notes = $2, updated_at = NOW() WHERE id = $1
`, id, notes)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrConversationNotFound
	}
	return nil
}

// EmbeddingRecord associates a conversation with its semantic vector.
type EmbeddingRecord struct {
	ConversationID string
	Vector         []float32
	Model          string
}

// EmbeddingSearchResult is one similarity hit against the embedding column.
type EmbeddingSearchResult struct {
	ConversationID string
	Similarity     float64
	StartedAt      time.Time
}

// UpsertConversationEmbedding stores or replaces the vector for a conversation.
func (s *Store) UpsertConversationEmbedding(ctx context.Context, rec EmbeddingRecord) error {
	if rec.ConversationID == "" {
		return fmt.Errorf("conversation_id required")
	}
	vectorLiteral, err := encodeVectorLiteral(rec.Vector)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO conversation_embeddings (conversation_id, embedding, model, created_at)
VALUES ($1,$2::vector,$3,NOW())
ON CONFLICT (conversation_id) DO UPDATE SET
  embedding = EXCLUDED.embedding,
  model = EXCLUDED.model,
  created_at = NOW();
`, rec.ConversationID, vectorLiteral, rec.Model)
	return err
}

// SearchConversationEmbeddings returns the closest in-range conversations
// for the supplied vector, nearest first. Similarity is 1 - cosine distance.
// Ties are broken by more recent start time so results are deterministic
// for identical snapshots.
func (s *Store) SearchConversationEmbeddings(ctx context.Context, rng models.DateRange, vector []float32, topK int) ([]EmbeddingSearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	start, end := rangeBounds(rng)
	rows, err := s.DB.QueryContext(ctx, `
SELECT c.id, c.started_at, e.embedding <=> $1::vector AS distance
FROM conversation_embeddings e
JOIN conversations c ON c.id = e.conversation_id
WHERE ($2::timestamptz IS NULL OR c.started_at >= $2) AND c.started_at < $3
ORDER BY e.embedding <=> $1::vector ASC, c.started_at DESC
LIMIT $4
`, vecLiteral, start, end, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []EmbeddingSearchResult
	for rows.Next() {
		var (
			res      EmbeddingSearchResult
			distance float64
		)
		if err := rows.Scan(&res.ConversationID, &res.StartedAt, &distance); err != nil {
			return nil, err
		}
		res.Similarity = 1 - distance
		results = append(results, res)
	}
	return results, rows.Err()
}

// DataVersion reports the monotonically increasing store version. Insight
// cache entries computed at an older version are stale.
func (s *Store) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := s.DB.QueryRowContext(ctx, `SELECT data_version FROM sync_state WHERE id = 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// BumpDataVersion increments the store version after ingestion changed data.
func (s *Store) BumpDataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO sync_state (id, data_version, updated_at) VALUES (1, 1, NOW())
ON CONFLICT (id) DO UPDATE SET data_version = sync_state.data_version + 1, updated_at = NOW()
RETURNING data_version
`).Scan(&v)
	return v, err
}

// SaveSyncReport stores the latest ingestion report alongside the version row.
func (s *Store) SaveSyncReport(ctx context.Context, report models.SyncReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal sync report: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO sync_state (id, data_version, last_report, updated_at) VALUES (1, 0, $1, NOW())
ON CONFLICT (id) DO UPDATE SET last_report = EXCLUDED.last_report, updated_at = NOW()
`, payload)
	return err
}

// LatestSyncReport returns the last stored ingestion report, if any.
func (s *Store) LatestSyncReport(ctx context.Context) (models.SyncReport, bool, error) {
	var payload []byte
	err := s.DB.QueryRowContext(ctx, `SELECT last_report FROM sync_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && len(payload) == 0) {
		return models.SyncReport{}, false, nil
	}
	if err != nil {
		return models.SyncReport{}, false, err
	}
	var report models.SyncReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return models.SyncReport{}, false, fmt.Errorf("unmarshal sync report: %w", err)
	}
	return report, true, nil
}

// LatestConversationTime returns the newest started_at in the store, used as
// the incremental sync cursor.
func (s *Store) LatestConversationTime(ctx context.Context) (time.Time, bool, error) {
	var ts sql.NullTime
	err := s.DB.QueryRowContext(ctx, `SELECT MAX(started_at) FROM conversations`).Scan(&ts)
	if err != nil {
		return time.Time{}, false, err
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return ts.Time, true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (models.ConversationRecord, error) {
	var (
		rec          models.ConversationRecord
		transcript   []byte
		durationSecs int64
		notes        sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.StartedAt, &rec.EndedAt, &transcript, &rec.Summary, &durationSecs, &rec.Cost, &notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return models.ConversationRecord{}, err
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &rec.Transcript); err != nil {
			return models.ConversationRecord{}, fmt.Errorf("unmarshal transcript: %w", err)
		}
	}
	rec.Duration = time.Duration(durationSecs) * time.Second
	rec.Notes = notes.String
	return rec, nil
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
