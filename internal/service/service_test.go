package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"modetex/backend/internal/domain"
	"modetex/backend/internal/service"
	"modetex/backend/internal/store"
	"modetex/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*service.Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	return service.New(repo, "Modetex"), repo
}

func mustDec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", v, err)
	}
	return d
}

func TestUpsertProductCreatesThenMerges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := domain.ProductUpsertRequest{
		NewCategory:         "Hand Tools",
		Name:                "Widget",
		RegularPrice:        mustDec(t, "10.00"),
		BulkPrice:           mustDec(t, "8.00"),
		Quantity:            5,
		MinimumBulkQuantity: 10,
		RestockLevel:        2,
		Available:           true,
	}
	first, err := svc.UpsertProduct(ctx, req)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if first.Outcome != domain.UpsertOutcomeCreated {
		t.Fatalf("expected created, got %q", first.Outcome)
	}
	if first.Product.Slug != "widget" {
		t.Fatalf("unexpected slug %q", first.Product.Slug)
	}

	req.Quantity = 3
	req.RegularPrice = mustDec(t, "11.00")
	second, err := svc.UpsertProduct(ctx, req)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if second.Outcome != domain.UpsertOutcomeMerged {
		t.Fatalf("expected merged, got %q", second.Outcome)
	}
	if second.Product.ID != first.Product.ID {
		t.Fatalf("merge created a new product: %s vs %s", second.Product.ID, first.Product.ID)
	}
	if second.Product.Quantity != 8 {
		t.Fatalf("expected merged quantity 8, got %d", second.Product.Quantity)
	}
	if !second.Product.RegularPrice.Equal(mustDec(t, "11.00")) {
		t.Fatalf("merge should overwrite prices, got %s", second.Product.RegularPrice)
	}

	products, err := svc.ListProducts(ctx, domain.ProductFilter{Search: "Widget"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected a single Widget row, got %d", len(products))
	}
}

func TestUpsertProductRejectsBulkAboveRegular(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpsertProduct(context.Background(), domain.ProductUpsertRequest{
		NewCategory:  "Hand Tools",
		Name:         "Overpriced Bulk",
		RegularPrice: mustDec(t, "5.00"),
		BulkPrice:    mustDec(t, "6.00"),
		Quantity:     1,
		Available:    true,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpsertProductRequiresCategory(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpsertProduct(context.Background(), domain.ProductUpsertRequest{
		Name:         "No Category",
		RegularPrice: mustDec(t, "5.00"),
		BulkPrice:    mustDec(t, "4.00"),
		Available:    true,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateSaleComputesTotalAndDecrementsStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items: []domain.SaleLineRequest{
			{ProductID: "prod-cotton", Quantity: 2, SaleType: domain.SaleTypeRegular},
			{ProductID: "prod-thread", Quantity: 24, SaleType: domain.SaleTypeBulk},
		},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	// 2 * 45.00 + 24 * 2.80
	want := mustDec(t, "157.20")
	if !sale.TotalAmount.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, sale.TotalAmount)
	}

	cotton, err := svc.GetProductBySlug(ctx, "cotton-fabric-roll")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if cotton.Quantity != 78 {
		t.Fatalf("expected cotton quantity 78, got %d", cotton.Quantity)
	}
	thread, err := svc.GetProductBySlug(ctx, "polyester-thread-spool")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if thread.Quantity != 216 {
		t.Fatalf("expected thread quantity 216, got %d", thread.Quantity)
	}

	updates, err := svc.ListStockUpdates(ctx, "cotton-fabric-roll", "", 1)
	if err != nil {
		t.Fatalf("list stock updates failed: %v", err)
	}
	if len(updates) != 1 || updates[0].QuantityChange != -2 {
		t.Fatalf("expected a -2 ledger entry, got %+v", updates)
	}
	if !strings.Contains(updates[0].Notes, sale.ID) {
		t.Fatalf("ledger note should reference the sale, got %q", updates[0].Notes)
	}
}

func TestCreateSaleListsEveryShortfall(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items: []domain.SaleLineRequest{
			{ProductID: "prod-silk", Quantity: 100, SaleType: domain.SaleTypeRegular},
			{ProductID: "prod-linen", Quantity: 100, SaleType: domain.SaleTypeRegular},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "Silk Fabric Roll: available 18, needed 100") {
		t.Fatalf("missing silk shortfall in %q", msg)
	}
	if !strings.Contains(msg, "Linen Fabric Roll: available 45, needed 100") {
		t.Fatalf("missing linen shortfall in %q", msg)
	}

	// Nothing may be decremented when any line fails.
	linen, err := svc.GetProductBySlug(ctx, "linen-fabric-roll")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if linen.Quantity != 45 {
		t.Fatalf("linen stock mutated on failed sale: %d", linen.Quantity)
	}
}

func TestCreateSaleAggregatesDuplicateLines(t *testing.T) {
	svc, _ := newTestService(t)

	// 10 + 10 exceeds the 18 on hand even though each line alone fits.
	_, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		SellerName: "Amina",
		Items: []domain.SaleLineRequest{
			{ProductID: "prod-silk", Quantity: 10, SaleType: domain.SaleTypeRegular},
			{ProductID: "prod-silk", Quantity: 10, SaleType: domain.SaleTypeRegular},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestCreateSaleBulkMinimums(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Below the product default of 12.
	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 5, SaleType: domain.SaleTypeBulk}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for below-minimum bulk, got %v", err)
	}

	// A custom minimum may not undercut the product default.
	_, err = svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 12, SaleType: domain.SaleTypeBulk, CustomBulkMinimum: 6}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for undercutting custom minimum, got %v", err)
	}

	// A higher custom minimum raises the floor.
	_, err = svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 15, SaleType: domain.SaleTypeBulk, CustomBulkMinimum: 20}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for quantity below raised floor, got %v", err)
	}

	cotton, err := svc.GetProductBySlug(ctx, "cotton-fabric-roll")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if cotton.Quantity != 80 {
		t.Fatalf("stock mutated by rejected sales: %d", cotton.Quantity)
	}

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 20, SaleType: domain.SaleTypeBulk, CustomBulkMinimum: 20}},
	})
	if err != nil {
		t.Fatalf("valid bulk sale failed: %v", err)
	}
	if !sale.Items[0].PricePerUnit.Equal(mustDec(t, "40.00")) {
		t.Fatalf("bulk line should use the bulk price, got %s", sale.Items[0].PricePerUnit)
	}
}

func TestCreateSaleRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 1, SaleType: "wholesale"}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSalePriceSnapshotSurvivesPriceEdit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 2, SaleType: domain.SaleTypeRegular}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	newPrice := mustDec(t, "99.00")
	if _, err := svc.EditProduct(ctx, "cotton-fabric-roll", domain.ProductUpdateRequest{RegularPrice: &newPrice}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	reloaded, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if !reloaded.Items[0].PricePerUnit.Equal(mustDec(t, "45.00")) {
		t.Fatalf("sale line price changed after product edit: %s", reloaded.Items[0].PricePerUnit)
	}
	if !reloaded.TotalAmount.Equal(mustDec(t, "90.00")) {
		t.Fatalf("sale total changed after product edit: %s", reloaded.TotalAmount)
	}
}

func TestConcurrentSalesOnlyOneWins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.UpsertProduct(ctx, domain.ProductUpsertRequest{
		NewCategory:  "Hand Tools",
		Name:         "Contended Widget",
		RegularPrice: mustDec(t, "10.00"),
		BulkPrice:    mustDec(t, "9.00"),
		Quantity:     10,
		Available:    true,
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.CreateSale(ctx, domain.SaleCreateRequest{
				SellerName: "Amina",
				Items:      []domain.SaleLineRequest{{ProductID: created.Product.ID, Quantity: 6, SaleType: domain.SaleTypeRegular}},
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			if !errors.Is(err, store.ErrInsufficientStock) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one losing sale, got %d failures", failures)
	}

	product, err := svc.GetProductBySlug(ctx, "contended-widget")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Quantity != 4 {
		t.Fatalf("expected quantity 4 after one 6-unit sale, got %d", product.Quantity)
	}
}

func TestAdjustQuantityWritesLedgerAndDefaultNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.AdjustQuantity(ctx, "cotton-fabric-roll", domain.QuantityAdjustRequest{Delta: 5})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if resp.Quantity != 85 {
		t.Fatalf("expected quantity 85, got %d", resp.Quantity)
	}

	updates, err := svc.ListStockUpdates(ctx, "cotton-fabric-roll", "", 1)
	if err != nil {
		t.Fatalf("list stock updates failed: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(updates))
	}
	if updates[0].Notes != "Quantity updated from 80 to 85" {
		t.Fatalf("unexpected ledger note %q", updates[0].Notes)
	}

	_, err = svc.AdjustQuantity(ctx, "cotton-fabric-roll", domain.QuantityAdjustRequest{Delta: -500})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for negative result, got %v", err)
	}
	_, err = svc.AdjustQuantity(ctx, "cotton-fabric-roll", domain.QuantityAdjustRequest{Delta: 0})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero delta, got %v", err)
	}
}

func TestNeedsRestockTracksQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Silk starts at 18 with restock level 8.
	resp, err := svc.AdjustQuantity(ctx, "silk-fabric-roll", domain.QuantityAdjustRequest{Delta: -10})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if !resp.NeedsRestock {
		t.Fatalf("expected needs_restock at quantity %d", resp.Quantity)
	}

	resp, err = svc.AdjustQuantity(ctx, "silk-fabric-roll", domain.QuantityAdjustRequest{Delta: 20})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if resp.NeedsRestock {
		t.Fatalf("needs_restock should clear at quantity %d", resp.Quantity)
	}

	// Raising the restock level above the current quantity flips the flag
	// without any stock movement.
	level := 50
	product, err := svc.EditProduct(ctx, "silk-fabric-roll", domain.ProductUpdateRequest{RestockLevel: &level})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !product.NeedsRestock {
		t.Fatalf("expected needs_restock after raising restock level")
	}
}

func TestDeleteProductCascadesCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.DeleteProduct(ctx, "polyester-thread-spool")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if first.CategoryDeleted {
		t.Fatalf("category deleted while a product remains")
	}

	second, err := svc.DeleteProduct(ctx, "machine-needle-pack")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !second.CategoryDeleted || second.CategoryName != "Sewing Supplies" {
		t.Fatalf("expected Sewing Supplies to be removed, got %+v", second)
	}

	categories, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories failed: %v", err)
	}
	for _, c := range categories {
		if c.ID == "cat-sewing" {
			t.Fatalf("empty category still present")
		}
	}
}

func TestGenerateStatementReconciles(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AdjustQuantity(ctx, "cotton-fabric-roll", domain.QuantityAdjustRequest{Delta: 20, Notes: "Morning delivery"}); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 7, SaleType: domain.SaleTypeRegular}},
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	resp, err := svc.GenerateStatement(ctx, domain.StatementCreateRequest{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.ItemCount != 7 {
		t.Fatalf("expected one line per product, got %d", resp.ItemCount)
	}

	for _, item := range resp.Statement.Items {
		if item.OpeningStock != item.ClosingStock+item.InvoicedStock-item.ReceivedStock {
			t.Fatalf("identity violated for %s: %+v", item.ProductName, item)
		}
	}

	var cotton *domain.StatementItem
	for i := range resp.Statement.Items {
		if resp.Statement.Items[i].ProductID == "prod-cotton" {
			cotton = &resp.Statement.Items[i]
		}
	}
	if cotton == nil {
		t.Fatalf("cotton line missing")
	}
	if cotton.ClosingStock != 93 || cotton.InvoicedStock != 7 || cotton.ReceivedStock != 20 || cotton.OpeningStock != 80 {
		t.Fatalf("unexpected cotton line: %+v", cotton)
	}
	if cotton.Remarks != domain.RemarkNormal {
		t.Fatalf("unexpected remark %q", cotton.Remarks)
	}

	want := mustDec(t, "315.00")
	if !resp.Statement.TotalIncome.Equal(want) {
		t.Fatalf("expected income %s, got %s", want, resp.Statement.TotalIncome)
	}
	if resp.Statement.TotalProductsSold != 7 {
		t.Fatalf("expected 7 units sold, got %d", resp.Statement.TotalProductsSold)
	}
}

func TestGenerateStatementEmptyDay(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.GenerateStatement(context.Background(), domain.StatementCreateRequest{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	for _, item := range resp.Statement.Items {
		if item.ReceivedStock != 0 || item.InvoicedStock != 0 {
			t.Fatalf("expected zero movement for %s, got %+v", item.ProductName, item)
		}
		if item.OpeningStock != item.ClosingStock {
			t.Fatalf("opening must equal closing on an empty day: %+v", item)
		}
	}
	if !resp.Statement.TotalIncome.Equal(decimal.Zero) {
		t.Fatalf("expected zero income, got %s", resp.Statement.TotalIncome)
	}
}

func TestGenerateStatementIdempotentPerDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.GenerateStatement(ctx, domain.StatementCreateRequest{PreparedBy: "amina"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	second, err := svc.GenerateStatement(ctx, domain.StatementCreateRequest{})
	if err != nil {
		t.Fatalf("second generate failed: %v", err)
	}
	if first.Statement.ID != second.Statement.ID {
		t.Fatalf("regeneration minted a new statement: %s vs %s", first.Statement.ID, second.Statement.ID)
	}
	if second.Statement.PreparedBy != "amina" {
		t.Fatalf("regeneration dropped prepared_by, got %q", second.Statement.PreparedBy)
	}
	if second.ItemCount != first.ItemCount {
		t.Fatalf("item count changed: %d vs %d", first.ItemCount, second.ItemCount)
	}

	statements, err := svc.ListStatements(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("expected one statement, got %d", len(statements))
	}
}

func TestRefreshStatementUsesCurrentQuantities(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	generated, err := svc.GenerateStatement(ctx, domain.StatementCreateRequest{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// Mutate stock behind the service's back so the stored closing figure
	// goes stale.
	if _, err := repo.AdjustProductQuantity(ctx, "prod-cotton", -30); err != nil {
		t.Fatalf("direct adjust failed: %v", err)
	}

	refreshed, err := svc.RefreshStatement(ctx, generated.Statement.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	for _, item := range refreshed.Statement.Items {
		if item.ProductID != "prod-cotton" {
			continue
		}
		if item.ClosingStock != 50 {
			t.Fatalf("expected closing 50 after refresh, got %d", item.ClosingStock)
		}
		// Stored invoiced/received are kept, so opening follows closing.
		if item.OpeningStock != 50 {
			t.Fatalf("expected opening 50, got %d", item.OpeningStock)
		}
	}
}

func TestEnsureDailyStatement(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureDailyStatement(ctx)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if first.PreparedBy != "System" {
		t.Fatalf("expected System prepared_by, got %q", first.PreparedBy)
	}
	if first.Notes != "Automatically generated daily statement" {
		t.Fatalf("unexpected notes %q", first.Notes)
	}

	second, err := svc.EnsureDailyStatement(ctx)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("ensure regenerated the statement: %s vs %s", second.ID, first.ID)
	}
}

func TestUpdateStatementReceivedAppliesToProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	generated, err := svc.GenerateStatement(ctx, domain.StatementCreateRequest{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	var line *domain.StatementItem
	for i := range generated.Statement.Items {
		if generated.Statement.Items[i].ProductID == "prod-silk" {
			line = &generated.Statement.Items[i]
		}
	}
	if line == nil {
		t.Fatalf("silk line missing")
	}

	updated, err := svc.UpdateStatementReceived(ctx, generated.Statement.ID, line.ID, domain.ReceivedStockUpdateRequest{
		ReceivedStock:  12,
		ApplyToProduct: true,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ClosingStock != 30 {
		t.Fatalf("expected closing 30, got %d", updated.ClosingStock)
	}

	silk, err := svc.GetProductBySlug(ctx, "silk-fabric-roll")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if silk.Quantity != 30 {
		t.Fatalf("expected product quantity 30 after correction, got %d", silk.Quantity)
	}

	updates, err := svc.ListStockUpdates(ctx, "silk-fabric-roll", "", 1)
	if err != nil {
		t.Fatalf("list stock updates failed: %v", err)
	}
	if len(updates) != 1 || updates[0].QuantityChange != 12 {
		t.Fatalf("expected a +12 correction entry, got %+v", updates)
	}

	_, err = svc.UpdateStatementReceived(ctx, generated.Statement.ID, line.ID, domain.ReceivedStockUpdateRequest{ReceivedStock: -1})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative received, got %v", err)
	}
}

func TestStatementRemarkDerivation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Drop silk to its restock level so the generated line flags it.
	if _, err := svc.AdjustQuantity(ctx, "silk-fabric-roll", domain.QuantityAdjustRequest{Delta: -10, Notes: "shrinkage"}); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	resp, err := svc.GenerateStatement(ctx, domain.StatementCreateRequest{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	for _, item := range resp.Statement.Items {
		if item.ProductID == "prod-silk" && item.Remarks != domain.RemarkRestock {
			t.Fatalf("expected restock remark for silk, got %q", item.Remarks)
		}
		if item.ProductID == "prod-cotton" && item.Remarks != domain.RemarkNormal {
			t.Fatalf("expected normal remark for cotton, got %q", item.Remarks)
		}
	}
}

func TestSaleRecomputesDayStatement(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.EnsureDailyStatement(ctx); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 3, SaleType: domain.SaleTypeRegular}},
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	statement, err := svc.EnsureDailyStatement(ctx)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if statement.TotalProductsSold != 3 {
		t.Fatalf("statement not recomputed after sale: sold %d", statement.TotalProductsSold)
	}
	for _, item := range statement.Items {
		if item.ProductID == "prod-cotton" && item.InvoicedStock != 3 {
			t.Fatalf("expected invoiced 3 for cotton, got %d", item.InvoicedStock)
		}
	}
}

func TestDashboardSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 4, SaleType: domain.SaleTypeRegular}},
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	summary, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if summary.TotalProducts != 7 {
		t.Fatalf("expected 7 products, got %d", summary.TotalProducts)
	}
	if summary.TodaySaleCount != 1 || summary.TodayProductsSold != 4 {
		t.Fatalf("unexpected sale totals: %+v", summary)
	}
	if !summary.TodayIncome.Equal(mustDec(t, "180.00")) {
		t.Fatalf("expected income 180.00, got %s", summary.TodayIncome)
	}
	if summary.StatementID == "" {
		t.Fatalf("dashboard should reference the daily statement")
	}
}

func TestAuditLogRecordsActor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := service.WithActor(context.Background(), domain.Actor{Username: "amina", Role: "staff"})

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		SellerName: "Amina",
		Items:      []domain.SaleLineRequest{{ProductID: "prod-cotton", Quantity: 1, SaleType: domain.SaleTypeRegular}},
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, "", "", 5)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	if len(logs) == 0 {
		t.Fatalf("expected audit entries")
	}
	if logs[0].Action != "sale.create" || logs[0].ActorUsername != "amina" {
		t.Fatalf("unexpected audit entry %+v", logs[0])
	}
}
