package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"modetex/backend/internal/domain"
	"modetex/backend/internal/store"
)

func TestCreateSaleValidatesBeforeMutating(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := s.CreateSale(ctx, domain.Sale{
		ID:       "sale-1",
		SaleDate: now,
		Items: []domain.SaleItem{
			{ProductID: "prod-cotton", Quantity: 5, SaleType: domain.SaleTypeRegular, PricePerUnit: decimal.NewFromInt(45)},
			{ProductID: "prod-silk", Quantity: 999, SaleType: domain.SaleTypeRegular, PricePerUnit: decimal.NewFromInt(120)},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	cotton, err := s.GetProduct(ctx, "prod-cotton")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cotton.Quantity != 80 {
		t.Fatalf("cotton mutated by failed sale: %d", cotton.Quantity)
	}
}

func TestCreateSaleWritesLedgerAndTotal(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	now := time.Now().UTC()
	sale, err := s.CreateSale(ctx, domain.Sale{
		ID:       "sale-1",
		SaleDate: now,
		Items: []domain.SaleItem{
			{ProductID: "prod-cotton", Quantity: 3, SaleType: domain.SaleTypeRegular, PricePerUnit: decimal.RequireFromString("45.00")},
		},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if !sale.TotalAmount.Equal(decimal.RequireFromString("135.00")) {
		t.Fatalf("unexpected total %s", sale.TotalAmount)
	}
	if sale.Items[0].ProductName != "Cotton Fabric Roll" {
		t.Fatalf("item name not resolved: %q", sale.Items[0].ProductName)
	}

	entries, err := s.ListStockUpdates(ctx, "prod-cotton", now.Format(domain.DateLayout), 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 1 || entries[0].QuantityChange != -3 {
		t.Fatalf("unexpected ledger entries %+v", entries)
	}
	if !strings.Contains(entries[0].Notes, "sale-1") {
		t.Fatalf("ledger note should reference the sale: %q", entries[0].Notes)
	}
}

func TestSaveStatementCollapsesOnDate(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	first, err := s.SaveStatement(ctx, domain.InventoryStatement{Date: "2026-08-28", PreparedBy: "a"})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := s.SaveStatement(ctx, domain.InventoryStatement{Date: "2026-08-28", PreparedBy: "b"})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("same date produced two statements: %s vs %s", first.ID, second.ID)
	}
	loaded, err := s.GetStatementByDate(ctx, "2026-08-28")
	if err != nil {
		t.Fatalf("get by date failed: %v", err)
	}
	if loaded.PreparedBy != "b" {
		t.Fatalf("latest save should win, got %q", loaded.PreparedBy)
	}
}

func TestUpdateProductPreservesQuantity(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.GetProduct(ctx, "prod-cotton")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	edited := *product
	edited.Quantity = 9999
	edited.RestockLevel = 100

	updated, err := s.UpdateProduct(ctx, edited)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Quantity != 80 {
		t.Fatalf("update must not write quantity, got %d", updated.Quantity)
	}
	if !updated.NeedsRestock {
		t.Fatalf("needs_restock should follow the new restock level")
	}
}

func TestDeleteProductCascades(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	now := time.Now().UTC()
	if _, err := s.CreateSale(ctx, domain.Sale{
		ID:       "sale-1",
		SaleDate: now,
		Items: []domain.SaleItem{
			{ProductID: "prod-cotton", Quantity: 2, PricePerUnit: decimal.RequireFromString("45.00")},
			{ProductID: "prod-linen", Quantity: 1, PricePerUnit: decimal.RequireFromString("62.00")},
		},
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	if _, err := s.DeleteProduct(ctx, "prod-cotton"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	sale, err := s.GetSale(ctx, "sale-1")
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if len(sale.Items) != 1 || sale.Items[0].ProductID != "prod-linen" {
		t.Fatalf("cotton line should be removed, got %+v", sale.Items)
	}
	if !sale.TotalAmount.Equal(decimal.RequireFromString("62.00")) {
		t.Fatalf("total not recomputed after cascade, got %s", sale.TotalAmount)
	}

	entries, err := s.ListStockUpdates(ctx, "prod-cotton", "", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ledger entries for deleted product remain: %+v", entries)
	}
}

func TestAdjustProductQuantityFloorsAtZero(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.AdjustProductQuantity(ctx, "prod-silk", -19)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	updated, err := s.AdjustProductQuantity(ctx, "prod-silk", -18)
	if err != nil {
		t.Fatalf("adjust to zero failed: %v", err)
	}
	if updated.Quantity != 0 || !updated.NeedsRestock {
		t.Fatalf("unexpected product state %+v", updated)
	}
}
