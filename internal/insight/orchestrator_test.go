package insight

import (
	"context"
	"testing"

	"github.com/mohammad-safakhou/callsight/models"
)

type fakeCache struct {
	failing map[Category]error
}

func (f *fakeCache) GetOrCompute(ctx context.Context, rng models.DateRange, category Category, force bool) (Result, error) {
	if err, ok := f.failing[category]; ok {
		return Result{}, err
	}
	return Result{Category: category}, nil
}

type fakeCounter struct {
	total int
	err   error
}

func (f *fakeCounter) CountConversationsInRange(ctx context.Context, rng models.DateRange) (int, error) {
	return f.total, f.err
}

func TestDashboardOneFailureDoesNotSinkTheRest(t *testing.T) {
	cache := &fakeCache{failing: map[Category]error{
		CategorySentimentTrends: categoryErr(KindGenerationUnavailable, CategorySentimentTrends, context.DeadlineExceeded),
	}}
	orch := NewOrchestrator(cache, &fakeCounter{total: 42}, "openai/gpt-4o-mini", nil)

	payload, err := orch.Dashboard(context.Background(), testRange(), false)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if payload.TotalConversations != 42 {
		t.Fatalf("total = %d, want the unsampled count", payload.TotalConversations)
	}
	if len(payload.Categories) != len(Categories()) {
		t.Fatalf("categories = %d, want %d", len(payload.Categories), len(Categories()))
	}

	for _, category := range Categories() {
		slot, ok := payload.Categories[category]
		if !ok {
			t.Fatalf("missing slot for %s", category)
		}
		if category == CategorySentimentTrends {
			if slot.Error == nil || slot.Error.Kind != KindGenerationUnavailable {
				t.Fatalf("trends slot = %+v, want a generation_unavailable error", slot)
			}
			if slot.Result != nil {
				t.Fatal("failed slot must not carry a result")
			}
			continue
		}
		if slot.Result == nil || slot.Error != nil {
			t.Fatalf("%s slot = %+v, want a result", category, slot)
		}
	}
}

func TestDashboardErrorReasonsAreUserFacing(t *testing.T) {
	cache := &fakeCache{failing: map[Category]error{
		CategoryTopThemes: categoryErr(KindInsufficientRelevantData, CategoryTopThemes, nil),
	}}
	orch := NewOrchestrator(cache, &fakeCounter{total: 3}, "", nil)

	payload, err := orch.Dashboard(context.Background(), testRange(), false)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	slot := payload.Categories[CategoryTopThemes]
	if slot.Error == nil || slot.Error.Reason != "insufficient data for this analysis" {
		t.Fatalf("slot error = %+v", slot.Error)
	}
}

func TestDashboardInvalidRange(t *testing.T) {
	orch := NewOrchestrator(&fakeCache{}, &fakeCounter{}, "", nil)
	inverted := models.DateRange{Start: day("2026-02-01"), End: day("2026-01-01")}
	if _, err := orch.Dashboard(context.Background(), inverted, false); err == nil {
		t.Fatal("expected error for an inverted range")
	}
}

func TestDashboardCountFailureFailsWholeCall(t *testing.T) {
	orch := NewOrchestrator(&fakeCache{}, &fakeCounter{err: context.DeadlineExceeded}, "", nil)
	if _, err := orch.Dashboard(context.Background(), testRange(), false); err == nil {
		t.Fatal("expected error when the conversation count is unavailable")
	}
}
