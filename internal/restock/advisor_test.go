package restock

import (
	"context"
	"testing"
	"time"

	"modetex/backend/internal/domain"
)

func product(id, name string, quantity, restockLevel, perCarton int, needsRestock bool) domain.Product {
	return domain.Product{
		ID:                id,
		Name:              name,
		Quantity:          quantity,
		RestockLevel:      restockLevel,
		QuantityPerCarton: perCarton,
		NeedsRestock:      needsRestock,
	}
}

func TestSuggestSkipsHealthyProducts(t *testing.T) {
	advisor := NewAdvisor(nil, time.Minute)

	resp := advisor.Suggest(context.Background(), []domain.Product{
		product("p1", "Healthy", 100, 10, 0, false),
	}, nil)
	if len(resp.Suggestions) != 0 {
		t.Fatalf("expected no suggestions, got %+v", resp.Suggestions)
	}
}

func TestSuggestRefillsLowStock(t *testing.T) {
	advisor := NewAdvisor(nil, time.Minute)

	resp := advisor.Suggest(context.Background(), []domain.Product{
		product("p1", "Low", 5, 10, 0, true),
	}, nil)
	if len(resp.Suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(resp.Suggestions))
	}
	s := resp.Suggestions[0]
	// Target is twice the restock level with no sales history.
	if s.SuggestedOrder != 15 {
		t.Fatalf("expected order 15, got %d", s.SuggestedOrder)
	}
	if s.Reason != "below restock level" {
		t.Fatalf("unexpected reason %q", s.Reason)
	}
}

func TestSuggestRoundsUpToCartons(t *testing.T) {
	advisor := NewAdvisor(nil, time.Minute)

	resp := advisor.Suggest(context.Background(), []domain.Product{
		product("p1", "Carton", 5, 10, 12, true),
	}, nil)
	if len(resp.Suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(resp.Suggestions))
	}
	// Raw order of 15 rounds up to two cartons of 12.
	if got := resp.Suggestions[0].SuggestedOrder; got != 24 {
		t.Fatalf("expected order 24, got %d", got)
	}
}

func TestSuggestUsesSalesVelocity(t *testing.T) {
	advisor := NewAdvisor(nil, time.Minute)

	// 70 sold in 7 days is 10 a day, so two weeks of cover needs 140.
	resp := advisor.Suggest(context.Background(), []domain.Product{
		product("p1", "Mover", 50, 10, 0, false),
	}, map[string]int{"p1": 70})
	if len(resp.Suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(resp.Suggestions))
	}
	s := resp.Suggestions[0]
	if s.SuggestedOrder != 90 {
		t.Fatalf("expected order 90, got %d", s.SuggestedOrder)
	}
	if s.Reason != "selling faster than remaining cover" {
		t.Fatalf("unexpected reason %q", s.Reason)
	}
}

func TestSuggestOrdersByVelocityThenName(t *testing.T) {
	advisor := NewAdvisor(nil, time.Minute)

	resp := advisor.Suggest(context.Background(), []domain.Product{
		product("slow", "Beta", 2, 10, 0, true),
		product("fast", "Alpha", 2, 10, 0, true),
		product("also-slow", "Alpha Prime", 2, 10, 0, true),
	}, map[string]int{"fast": 30})
	if len(resp.Suggestions) != 3 {
		t.Fatalf("expected three suggestions, got %d", len(resp.Suggestions))
	}
	if resp.Suggestions[0].ProductID != "fast" {
		t.Fatalf("fastest mover should rank first, got %s", resp.Suggestions[0].ProductID)
	}
	if resp.Suggestions[1].Name != "Alpha Prime" || resp.Suggestions[2].Name != "Beta" {
		t.Fatalf("ties should order by name: %+v", resp.Suggestions)
	}
}
