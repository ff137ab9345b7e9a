package restock

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"modetex/backend/internal/cache"
	"modetex/backend/internal/domain"
)

// Advisor ranks products that are at or approaching their restock level and
// suggests reorder amounts from recent sales velocity.
type Advisor struct {
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewAdvisor(cacheStore cache.Cache, cacheTTL time.Duration) *Advisor {
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &Advisor{cache: cacheStore, cacheTTL: cacheTTL}
}

func (a *Advisor) Suggest(ctx context.Context, products []domain.Product, soldLast7 map[string]int) domain.RestockSuggestionResponse {
	cacheKey := buildCacheKey(products, soldLast7)
	var cached domain.RestockSuggestionResponse
	if ok, err := a.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
		return cached
	}

	suggestions := make([]domain.RestockSuggestion, 0)
	for _, product := range products {
		sold := soldLast7[product.ID]
		// Daily velocity rounded up; a product that sold at all counts
		// for at least one unit per day of cover.
		daily := (sold + 6) / 7

		if !product.NeedsRestock && daily == 0 {
			continue
		}

		// Cover two weeks of demand and refill back above the restock
		// level, in whole cartons when a carton size is known.
		target := product.RestockLevel * 2
		if demand := daily * 14; demand > target {
			target = demand
		}
		order := target - product.Quantity
		if order <= 0 {
			continue
		}
		if product.QuantityPerCarton > 0 {
			cartons := (order + product.QuantityPerCarton - 1) / product.QuantityPerCarton
			order = cartons * product.QuantityPerCarton
		}

		reason := "below restock level"
		if !product.NeedsRestock {
			reason = "selling faster than remaining cover"
		}
		suggestions = append(suggestions, domain.RestockSuggestion{
			ProductID:      product.ID,
			Name:           product.Name,
			CategoryName:   product.CategoryName,
			Quantity:       product.Quantity,
			RestockLevel:   product.RestockLevel,
			SoldLast7Days:  sold,
			SuggestedOrder: order,
			Reason:         reason,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		left, right := suggestions[i], suggestions[j]
		if left.SoldLast7Days != right.SoldLast7Days {
			return left.SoldLast7Days > right.SoldLast7Days
		}
		return left.Name < right.Name
	})

	resp := domain.RestockSuggestionResponse{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Suggestions: suggestions,
	}
	_ = a.cache.Set(ctx, cacheKey, &resp, a.cacheTTL)
	return resp
}

func buildCacheKey(products []domain.Product, soldLast7 map[string]int) string {
	parts := make([]string, 0, len(products))
	for _, p := range products {
		parts = append(parts, fmt.Sprintf("%s:%d:%d:%d", p.ID, p.Quantity, p.RestockLevel, soldLast7[p.ID]))
	}
	sort.Strings(parts)

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "inventory:restock:" + hex.EncodeToString(hash[:])
}
