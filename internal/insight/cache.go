package insight

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/callsight/internal/telemetry"
	"github.com/mohammad-safakhou/callsight/models"
)

// Entry is a stored insight along with staleness bookkeeping.
type Entry struct {
	Result      Result    `json:"result"`
	CreatedAt   time.Time `json:"created_at"`
	DataVersion int64     `json:"data_version"`
}

// EntryStore persists cache entries. Implementations must be safe for
// concurrent use; single-flight coordination stays in the Cache itself.
type EntryStore interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// dataVersioner reports the store's current ingestion version.
type dataVersioner interface {
	DataVersion(ctx context.Context) (int64, error)
}

type flight struct {
	done   chan struct{}
	result Result
	err    error
}

// Cache memoizes insight generations per (range, category) key with
// at-most-one concurrent computation per key. Failures are never cached;
// the next caller gets a fresh attempt.
type Cache struct {
	generator InsightGenerator
	entries   EntryStore
	versions  dataVersioner
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	mu       sync.Mutex
	inflight map[string]*flight
}

// NewCache builds the insight cache. versions may be nil, which disables
// staleness detection (entries are then always considered fresh).
func NewCache(generator InsightGenerator, entries EntryStore, versions dataVersioner, tele *telemetry.Telemetry, logger *log.Logger) *Cache {
	if entries == nil {
		entries = NewMemoryEntryStore()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	return &Cache{
		generator: generator,
		entries:   entries,
		versions:  versions,
		telemetry: tele,
		logger:    logger,
		inflight:  make(map[string]*flight),
	}
}

func cacheKey(rng models.DateRange, category Category) string {
	return rng.Key() + "|" + string(category)
}

func (c *Cache) currentVersion(ctx context.Context) (int64, bool) {
	if c.versions == nil {
		return 0, false
	}
	v, err := c.versions.DataVersion(ctx)
	if err != nil {
		c.logger.Printf("warn: data version lookup failed: %v", err)
		return 0, false
	}
	return v, true
}

// GetOrCompute returns the cached insight for (rng, category), computing it
// at most once across concurrent callers. force bypasses a fresh entry but
// still coalesces into any computation already in flight.
func (c *Cache) GetOrCompute(ctx context.Context, rng models.DateRange, category Category, force bool) (Result, error) {
	key := cacheKey(rng, category)
	version, versionKnown := c.currentVersion(ctx)

	if !force {
		entry, ok, err := c.entries.Get(ctx, key)
		if err != nil {
			c.logger.Printf("warn: cache read for %s failed: %v", key, err)
		} else if ok {
			if !versionKnown || entry.DataVersion == version {
				c.telemetry.RecordCacheLookup("hit")
				entry.Result.Cached = true
				return entry.Result, nil
			}
			// stale: new conversations were ingested since this entry was
			// computed; fall through and recompute
			c.telemetry.RecordCacheLookup("stale")
		} else {
			c.telemetry.RecordCacheLookup("miss")
		}
	}

	c.mu.Lock()
	if f, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		c.telemetry.RecordCacheLookup("coalesced")
		select {
		case <-f.done:
			return f.result, f.err
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	c.inflight[key] = f
	c.mu.Unlock()

	f.result, f.err = c.generator.Generate(ctx, category, rng)
	if f.err == nil {
		entry := Entry{Result: f.result, CreatedAt: time.Now().UTC(), DataVersion: version}
		if err := c.entries.Put(ctx, key, entry); err != nil {
			c.logger.Printf("warn: cache write for %s failed: %v", key, err)
		}
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(f.done)

	return f.result, f.err
}

// Peek returns the cached entry without computing, for staleness display.
func (c *Cache) Peek(ctx context.Context, rng models.DateRange, category Category) (Entry, bool, error) {
	return c.entries.Get(ctx, cacheKey(rng, category))
}

// Invalidate drops the entry for (rng, category). The next lookup recomputes.
func (c *Cache) Invalidate(ctx context.Context, rng models.DateRange, category Category) error {
	return c.entries.Delete(ctx, cacheKey(rng, category))
}
