package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConversationNotFound is returned when a conversation is not found
var ErrConversationNotFound = errors.New("conversation not found")

// Turn is a single utterance within a conversation transcript.
type Turn struct {
	Role string `json:"role"` // caller or agent
	Text string `json:"text"`
}

// ConversationRecord is one recorded conversation between a caller and the
// automated agent. Immutable once ingested except for Notes.
type ConversationRecord struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Transcript []Turn       `json:"transcript"`
	Summary   string        `json:"summary"`
	Duration  time.Duration `json:"duration"`
	Cost      float64       `json:"cost"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TranscriptText flattens the transcript into "role: text" lines for
// prompting and indexing.
func (c ConversationRecord) TranscriptText() string {
	var b strings.Builder
	for _, t := range c.Transcript {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// DateRange is an inclusive start/end calendar date window, the primary
// partition key for all analysis. A zero Start means "all time".
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a range spanning the given days, truncated to dates.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: dateOnly(start), End: dateOnly(end)}
}

// AllTime returns the sentinel range with no lower bound, ending today.
func AllTime() DateRange {
	return DateRange{End: dateOnly(time.Now().UTC())}
}

// IsAllTime reports whether the range has no lower bound.
func (r DateRange) IsAllTime() bool { return r.Start.IsZero() }

// Key returns the canonical cache-key form of the range. Two ranges are
// equal iff both bounds match exactly, so the key encodes both bounds.
func (r DateRange) Key() string {
	start := "alltime"
	if !r.Start.IsZero() {
		start = r.Start.Format("2006-01-02")
	}
	return fmt.Sprintf("%s..%s", start, r.End.Format("2006-01-02"))
}

// Contains reports whether ts falls inside the range (end date inclusive).
func (r DateRange) Contains(ts time.Time) bool {
	if !r.Start.IsZero() && ts.Before(r.Start) {
		return false
	}
	return ts.Before(r.End.AddDate(0, 0, 1))
}

// Validate rejects inverted ranges.
func (r DateRange) Validate() error {
	if r.End.IsZero() {
		return fmt.Errorf("date range end required")
	}
	if !r.Start.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("date range end %s before start %s", r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	return nil
}

func dateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SyncReport summarises one ingestion pass against the upstream platform.
type SyncReport struct {
	JobID        string    `json:"job_id"`
	Added        int       `json:"added"`
	Updated      int       `json:"updated"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	TotalChecked int       `json:"total_checked"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Changed reports whether the pass altered the conversation store.
func (r SyncReport) Changed() bool { return r.Added > 0 || r.Updated > 0 }
