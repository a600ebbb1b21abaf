package insight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammad-safakhou/callsight/models"
)

// countingGenerator blocks until release is closed so tests can pile up
// concurrent callers on one key.
type countingGenerator struct {
	calls   int64
	err     error
	release chan struct{}
}

func (g *countingGenerator) Generate(ctx context.Context, category Category, rng models.DateRange) (Result, error) {
	atomic.AddInt64(&g.calls, 1)
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return Result{}, g.err
	}
	return Result{Category: category, GeneratedAt: time.Now().UTC()}, nil
}

type fakeVersioner struct {
	version int64
}

func (f *fakeVersioner) DataVersion(ctx context.Context) (int64, error) {
	return atomic.LoadInt64(&f.version), nil
}

func TestCacheSingleFlight(t *testing.T) {
	gen := &countingGenerator{release: make(chan struct{})}
	cache := NewCache(gen, NewMemoryEntryStore(), &fakeVersioner{}, nil, nil)
	rng := testRange()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, false)
			results[i] = err
		}(i)
	}

	// let every caller reach the cache before releasing the computation
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt64(&gen.calls); got != 1 {
		t.Fatalf("generator ran %d times for %d concurrent callers, want 1", got, callers)
	}
}

func TestCacheHitSkipsGenerator(t *testing.T) {
	gen := &countingGenerator{}
	cache := NewCache(gen, NewMemoryEntryStore(), &fakeVersioner{}, nil, nil)
	rng := testRange()

	if _, err := cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, false); err != nil {
		t.Fatalf("first call: %v", err)
	}
	res, err := cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, false)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !res.Cached {
		t.Fatal("second call should be served from cache")
	}
	if gen.calls != 1 {
		t.Fatalf("generator ran %d times, want 1", gen.calls)
	}
}

func TestCacheFailuresAreNotCached(t *testing.T) {
	gen := &countingGenerator{err: errors.New("model down")}
	cache := NewCache(gen, NewMemoryEntryStore(), &fakeVersioner{}, nil, nil)
	rng := testRange()

	for i := 0; i < 3; i++ {
		if _, err := cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, false); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if gen.calls != 3 {
		t.Fatalf("generator ran %d times, want a fresh attempt per call", gen.calls)
	}
}

func TestCacheStaleAfterVersionBump(t *testing.T) {
	gen := &countingGenerator{}
	ver := &fakeVersioner{version: 1}
	cache := NewCache(gen, NewMemoryEntryStore(), ver, nil, nil)
	rng := testRange()

	if _, err := cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, false); err != nil {
		t.Fatalf("first call: %v", err)
	}
	// ingestion changed the store
	atomic.AddInt64(&ver.version, 1)
	res, err := cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, false)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if res.Cached {
		t.Fatal("stale entry must be recomputed, not served")
	}
	if gen.calls != 2 {
		t.Fatalf("generator ran %d times, want 2", gen.calls)
	}
}

func TestCacheForceBypassesFreshEntry(t *testing.T) {
	gen := &countingGenerator{}
	cache := NewCache(gen, NewMemoryEntryStore(), &fakeVersioner{}, nil, nil)
	rng := testRange()

	if _, err := cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, false); err != nil {
		t.Fatalf("prime: %v", err)
	}
	res, err := cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, true)
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if res.Cached {
		t.Fatal("forced refresh must not serve the cached entry")
	}
	if gen.calls != 2 {
		t.Fatalf("generator ran %d times, want 2", gen.calls)
	}
}

func TestCacheKeysAreRangeScoped(t *testing.T) {
	gen := &countingGenerator{}
	cache := NewCache(gen, NewMemoryEntryStore(), &fakeVersioner{}, nil, nil)

	jan := models.NewDateRange(day("2026-01-01"), day("2026-01-31"))
	feb := models.NewDateRange(day("2026-02-01"), day("2026-02-28"))

	if _, err := cache.GetOrCompute(context.Background(), jan, CategoryTopThemes, false); err != nil {
		t.Fatalf("jan: %v", err)
	}
	if _, err := cache.GetOrCompute(context.Background(), feb, CategoryTopThemes, false); err != nil {
		t.Fatalf("feb: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("generator ran %d times, want one per range", gen.calls)
	}
}

func TestCacheWaiterHonoursContext(t *testing.T) {
	gen := &countingGenerator{release: make(chan struct{})}
	cache := NewCache(gen, NewMemoryEntryStore(), &fakeVersioner{}, nil, nil)
	rng := testRange()

	go func() {
		_, _ = cache.GetOrCompute(context.Background(), rng, CategoryTopThemes, false)
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCompute(ctx, rng, CategoryTopThemes, false)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}
	close(gen.release)
}
