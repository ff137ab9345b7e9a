package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"modetex/backend/internal/domain"
	"modetex/backend/internal/store"
	"modetex/backend/internal/xid"
)

type Service struct {
	repo        store.Repository
	companyName string

	// statementSync suppresses re-entrant day-statement recomputation: a
	// regeneration triggered by a sale or quantity change must not trigger
	// itself again through the same update path.
	statementSync int32
}

func New(repo store.Repository, companyName string) *Service {
	if strings.TrimSpace(companyName) == "" {
		companyName = "Modetex"
	}
	return &Service{repo: repo, companyName: companyName}
}

func (s *Service) CompanyName() string {
	return s.companyName
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ---- catalog ----

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", store.ErrInvalidInput)
	}
	return s.repo.GetProductBySlug(ctx, slug)
}

// UpsertProduct creates a product, or merges into an existing product with
// the same name in the same category: the incoming quantity is added to the
// stored stock and every other editable field is overwritten.
func (s *Service) UpsertProduct(ctx context.Context, req domain.ProductUpsertRequest) (*domain.ProductUpsertResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.NewCategory = strings.TrimSpace(req.NewCategory)

	if req.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", store.ErrInvalidInput)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", store.ErrInvalidInput)
	}
	if req.MinimumBulkQuantity < 0 {
		return nil, fmt.Errorf("%w: minimum bulk quantity cannot be negative", store.ErrInvalidInput)
	}
	if req.QuantityPerCarton < 0 {
		return nil, fmt.Errorf("%w: quantity per carton cannot be negative", store.ErrInvalidInput)
	}
	if req.RestockLevel < 0 {
		return nil, fmt.Errorf("%w: restock level cannot be negative", store.ErrInvalidInput)
	}
	if err := validatePrices(req.RegularPrice, req.BulkPrice, req.DozenPrice); err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, req.CategoryID, req.NewCategory)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindProductByName(ctx, category.ID, req.Name)
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		merged := *existing
		merged.Name = req.Name
		merged.Slug = slugify(req.Name)
		merged.RegularPrice = req.RegularPrice
		merged.BulkPrice = req.BulkPrice
		merged.DozenPrice = req.DozenPrice
		merged.QuantityPerCarton = req.QuantityPerCarton
		merged.MinimumBulkQuantity = req.MinimumBulkQuantity
		merged.RestockLevel = req.RestockLevel
		merged.Available = req.Available
		merged.Updated = now

		updated, err := s.repo.UpdateProduct(ctx, merged)
		if err != nil {
			return nil, err
		}
		if req.Quantity > 0 {
			updated, err = s.repo.AdjustProductQuantity(ctx, merged.ID, req.Quantity)
			if err != nil {
				return nil, err
			}
			s.appendLedger(ctx, merged.ID, req.Quantity,
				fmt.Sprintf("Merged %d units into %s", req.Quantity, merged.Name), now)
			s.recomputeDayStatement(ctx, now.Format(domain.DateLayout))
		}

		s.logAudit(ctx, "product.merge", "product", merged.ID,
			fmt.Sprintf("merged %d units, quantity now %d", req.Quantity, updated.Quantity))
		return &domain.ProductUpsertResponse{Outcome: domain.UpsertOutcomeMerged, Product: *updated}, nil
	}

	product := domain.Product{
		ID:                  xid.New("prod"),
		CategoryID:          category.ID,
		Name:                req.Name,
		Slug:                slugify(req.Name),
		RegularPrice:        req.RegularPrice,
		BulkPrice:           req.BulkPrice,
		DozenPrice:          req.DozenPrice,
		Quantity:            req.Quantity,
		QuantityPerCarton:   req.QuantityPerCarton,
		MinimumBulkQuantity: req.MinimumBulkQuantity,
		RestockLevel:        req.RestockLevel,
		Available:           req.Available,
		Created:             now,
		Updated:             now,
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "product.create", "product", created.ID,
		fmt.Sprintf("created with quantity %d", created.Quantity))
	return &domain.ProductUpsertResponse{Outcome: domain.UpsertOutcomeCreated, Product: *created}, nil
}

func (s *Service) EditProduct(ctx context.Context, slug string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	product, err := s.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product name cannot be empty", store.ErrInvalidInput)
		}
		product.Name = name
		product.Slug = slugify(name)
	}
	if req.RegularPrice != nil {
		product.RegularPrice = *req.RegularPrice
	}
	if req.BulkPrice != nil {
		product.BulkPrice = *req.BulkPrice
	}
	if req.DozenPrice != nil {
		product.DozenPrice = *req.DozenPrice
	}
	if req.QuantityPerCarton != nil {
		if *req.QuantityPerCarton < 0 {
			return nil, fmt.Errorf("%w: quantity per carton cannot be negative", store.ErrInvalidInput)
		}
		product.QuantityPerCarton = *req.QuantityPerCarton
	}
	if req.MinimumBulkQuantity != nil {
		if *req.MinimumBulkQuantity < 0 {
			return nil, fmt.Errorf("%w: minimum bulk quantity cannot be negative", store.ErrInvalidInput)
		}
		product.MinimumBulkQuantity = *req.MinimumBulkQuantity
	}
	if req.RestockLevel != nil {
		if *req.RestockLevel < 0 {
			return nil, fmt.Errorf("%w: restock level cannot be negative", store.ErrInvalidInput)
		}
		product.RestockLevel = *req.RestockLevel
	}
	if req.Available != nil {
		product.Available = *req.Available
	}
	if err := validatePrices(product.RegularPrice, product.BulkPrice, product.DozenPrice); err != nil {
		return nil, err
	}

	product.Updated = time.Now().UTC()
	updated, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		return nil, err
	}

	// Restock-level edits change the remark derivation; sync today's
	// statement best-effort.
	s.syncStatementForProduct(ctx, updated)

	s.logAudit(ctx, "product.edit", "product", updated.ID, "fields updated")
	return updated, nil
}

// AdjustQuantity applies a manual stock delta, records the ledger entry, and
// refreshes the day's statement.
func (s *Service) AdjustQuantity(ctx context.Context, slug string, req domain.QuantityAdjustRequest) (*domain.QuantityAdjustResponse, error) {
	if req.Delta == 0 {
		return nil, fmt.Errorf("%w: delta cannot be zero", store.ErrInvalidInput)
	}
	product, err := s.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	before := product.Quantity
	updated, err := s.repo.AdjustProductQuantity(ctx, product.ID, req.Delta)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		notes = fmt.Sprintf("Quantity updated from %d to %d", before, updated.Quantity)
	}
	s.appendLedger(ctx, product.ID, req.Delta, notes, now)
	s.recomputeDayStatement(ctx, now.Format(domain.DateLayout))

	s.logAudit(ctx, "product.adjust", "product", product.ID,
		fmt.Sprintf("delta %+d, quantity now %d", req.Delta, updated.Quantity))
	return &domain.QuantityAdjustResponse{
		ProductID:    updated.ID,
		Quantity:     updated.Quantity,
		NeedsRestock: updated.NeedsRestock,
	}, nil
}

func (s *Service) DeleteProduct(ctx context.Context, slug string) (*domain.ProductDeleteResponse, error) {
	product, err := s.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	categoryName := product.CategoryName

	categoryDeleted, err := s.repo.DeleteProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	resp := &domain.ProductDeleteResponse{ProductName: product.Name, CategoryDeleted: categoryDeleted}
	if categoryDeleted {
		resp.CategoryName = categoryName
	}
	s.logAudit(ctx, "product.delete", "product", product.ID,
		fmt.Sprintf("deleted; category removed: %t", categoryDeleted))
	return resp, nil
}

func (s *Service) resolveCategory(ctx context.Context, categoryID string, newCategory string) (*domain.Category, error) {
	if categoryID != "" {
		return s.repo.GetCategory(ctx, categoryID)
	}
	if newCategory == "" {
		return nil, fmt.Errorf("%w: select an existing category or create a new one", store.ErrInvalidInput)
	}

	existing, err := s.repo.GetCategoryByName(ctx, newCategory)
	if err == nil {
		return existing, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:        xid.New("cat"),
		Name:      newCategory,
		Slug:      slugify(newCategory),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func validatePrices(regular, bulk, dozen decimal.Decimal) error {
	if regular.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("%w: regular price must be positive", store.ErrInvalidInput)
	}
	if bulk.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("%w: bulk price must be positive", store.ErrInvalidInput)
	}
	if dozen.Cmp(decimal.Zero) < 0 {
		return fmt.Errorf("%w: dozen price cannot be negative", store.ErrInvalidInput)
	}
	if bulk.Cmp(regular) > 0 {
		return fmt.Errorf("%w: bulk price cannot be greater than regular price", store.ErrInvalidInput)
	}
	return nil
}

// ---- stock ledger ----

func (s *Service) ListStockUpdates(ctx context.Context, productSlug string, date string, limit int) ([]domain.StockUpdate, error) {
	productID := ""
	if productSlug != "" {
		product, err := s.GetProductBySlug(ctx, productSlug)
		if err != nil {
			return nil, err
		}
		productID = product.ID
	}
	if date != "" {
		if _, err := time.Parse(domain.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
	}
	return s.repo.ListStockUpdates(ctx, productID, date, limit)
}

func (s *Service) appendLedger(ctx context.Context, productID string, delta int, notes string, at time.Time) {
	_, err := s.repo.AppendStockUpdate(ctx, domain.StockUpdate{
		ID:             xid.New("stk"),
		ProductID:      productID,
		Date:           at.Format(domain.DateLayout),
		QuantityChange: delta,
		Notes:          notes,
		CreatedAt:      at,
	})
	if err != nil {
		log.Printf("[service] WARN: failed to append stock ledger entry for %s: %v", productID, err)
	}
}

// ---- sales ----

// CreateSale validates every line item before touching stock. Bulk lines are
// checked against the effective minimum, which is the greater of the product
// default and any per-line override. Prices are snapshotted from the current
// tier price and never recomputed afterwards.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.Sale, error) {
	req.SellerName = strings.TrimSpace(req.SellerName)
	if req.SellerName == "" {
		return nil, fmt.Errorf("%w: seller name is required", store.ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: a sale needs at least one item", store.ErrInvalidInput)
	}

	now := time.Now().UTC()
	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", store.ErrInvalidInput)
		}
		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		saleType := strings.ToLower(strings.TrimSpace(line.SaleType))
		if saleType == "" {
			saleType = domain.SaleTypeRegular
		}

		var price decimal.Decimal
		switch saleType {
		case domain.SaleTypeRegular:
			price = product.RegularPrice
		case domain.SaleTypeDozen:
			price = product.DozenPrice
		case domain.SaleTypeBulk:
			price = product.BulkPrice
			effectiveMin := product.MinimumBulkQuantity
			if line.CustomBulkMinimum > 0 {
				if line.CustomBulkMinimum < product.MinimumBulkQuantity {
					return nil, fmt.Errorf("%w: custom bulk minimum (%d) for %s cannot be less than the product default (%d)",
						store.ErrInvalidInput, line.CustomBulkMinimum, product.Name, product.MinimumBulkQuantity)
				}
				effectiveMin = line.CustomBulkMinimum
			}
			if line.Quantity < effectiveMin {
				return nil, fmt.Errorf("%w: minimum %d items required for bulk purchase of %s",
					store.ErrInvalidInput, effectiveMin, product.Name)
			}
		default:
			return nil, fmt.Errorf("%w: unknown sale type %q", store.ErrInvalidInput, line.SaleType)
		}

		items = append(items, domain.SaleItem{
			ID:                xid.New("itm"),
			ProductID:         product.ID,
			ProductName:       product.Name,
			Quantity:          line.Quantity,
			SaleType:          saleType,
			PricePerUnit:      price,
			CustomBulkMinimum: line.CustomBulkMinimum,
		})
	}

	actor, _ := ActorFromContext(ctx)
	sale := domain.Sale{
		ID:         xid.New("sale"),
		SellerName: req.SellerName,
		Username:   actor.Username,
		SaleDate:   now,
		Created:    now,
		Updated:    now,
		Items:      items,
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, err
	}

	s.recomputeDayStatement(ctx, now.Format(domain.DateLayout))

	s.logAudit(ctx, "sale.create", "sale", created.ID,
		fmt.Sprintf("%d items, total %s", len(created.Items), created.TotalAmount.StringFixed(2)))
	return created, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: sale id is required", store.ErrInvalidInput)
	}
	return s.repo.GetSale(ctx, id)
}

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter, limit int) ([]domain.Sale, error) {
	for _, d := range []string{filter.StartDate, filter.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, d); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
	}
	return s.repo.ListSales(ctx, filter, limit)
}

// ---- statements ----

// GenerateStatement is idempotent per calendar date: existing items for the
// date are discarded and rebuilt from the catalog, the sale history, and the
// stock ledger.
func (s *Service) GenerateStatement(ctx context.Context, req domain.StatementCreateRequest) (*domain.StatementResponse, error) {
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = time.Now().UTC().Format(domain.DateLayout)
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}

	statement := domain.InventoryStatement{
		Date:        date,
		CompanyName: strings.TrimSpace(req.CompanyName),
		PreparedBy:  strings.TrimSpace(req.PreparedBy),
		Notes:       strings.TrimSpace(req.Notes),
	}
	if statement.CompanyName == "" {
		statement.CompanyName = s.companyName
	}
	if statement.PreparedBy == "" {
		if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
			statement.PreparedBy = actor.Username
		} else {
			statement.PreparedBy = "System"
		}
	}

	if existing, err := s.repo.GetStatementByDate(ctx, date); err == nil {
		statement.ID = existing.ID
		if req.CompanyName == "" {
			statement.CompanyName = existing.CompanyName
		}
		if req.PreparedBy == "" && existing.PreparedBy != "" {
			statement.PreparedBy = existing.PreparedBy
		}
		if req.Notes == "" {
			statement.Notes = existing.Notes
		}
	} else if err != store.ErrNotFound {
		return nil, err
	}
	if statement.ID == "" {
		statement.ID = xid.New("stmt")
	}

	if err := s.fillStatement(ctx, &statement); err != nil {
		return nil, err
	}

	saved, err := s.repo.SaveStatement(ctx, statement)
	if err != nil {
		return nil, err
	}
	return &domain.StatementResponse{Statement: *saved, ItemCount: len(saved.Items)}, nil
}

// fillStatement derives the statement items and aggregates for its date.
// For every product: closing = current quantity, invoiced = units sold that
// day, received = positive ledger deltas that day, and
// opening = closing + invoiced - received.
func (s *Service) fillStatement(ctx context.Context, statement *domain.InventoryStatement) error {
	products, err := s.repo.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return err
	}
	sold, err := s.repo.SoldByProduct(ctx, statement.Date)
	if err != nil {
		return err
	}
	received, err := s.repo.ReceivedByProduct(ctx, statement.Date)
	if err != nil {
		return err
	}

	items := make([]domain.StatementItem, 0, len(products))
	for _, product := range products {
		closing := product.Quantity
		invoiced := sold[product.ID]
		rec := received[product.ID]
		opening := closing + invoiced - rec

		// No physical count source exists, so variance is always zero.
		variance := 0
		items = append(items, domain.StatementItem{
			ID:            xid.New("stitem"),
			StatementID:   statement.ID,
			ProductID:     product.ID,
			ProductName:   product.Name,
			OpeningStock:  opening,
			ReceivedStock: rec,
			InvoicedStock: invoiced,
			ClosingStock:  closing,
			Variance:      variance,
			Remarks:       deriveRemarks(variance, closing, product.RestockLevel),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductName < items[j].ProductName })
	statement.Items = items

	totals, err := s.repo.SaleTotalsForDate(ctx, statement.Date)
	if err != nil {
		return err
	}
	stock, err := s.repo.TotalStockOnHand(ctx)
	if err != nil {
		return err
	}
	statement.TotalIncome = totals.Income
	statement.TotalProductsSold = totals.UnitsSold
	statement.TotalProductsInStock = stock
	return nil
}

// RefreshStatement re-derives closing stock from current product quantities
// and recomputes opening from the stored invoiced/received figures. Sale and
// ledger history are not re-queried.
func (s *Service) RefreshStatement(ctx context.Context, id string) (*domain.StatementResponse, error) {
	statement, err := s.repo.GetStatement(ctx, id)
	if err != nil {
		return nil, err
	}

	for i := range statement.Items {
		product, err := s.repo.GetProduct(ctx, statement.Items[i].ProductID)
		if err != nil {
			if err == store.ErrNotFound {
				continue
			}
			return nil, err
		}
		item := &statement.Items[i]
		item.ClosingStock = product.Quantity
		item.OpeningStock = item.ClosingStock + item.InvoicedStock - item.ReceivedStock
		item.Remarks = deriveRemarks(item.Variance, item.ClosingStock, product.RestockLevel)
	}

	stock, err := s.repo.TotalStockOnHand(ctx)
	if err != nil {
		return nil, err
	}
	statement.TotalProductsInStock = stock

	saved, err := s.repo.SaveStatement(ctx, *statement)
	if err != nil {
		return nil, err
	}
	return &domain.StatementResponse{Statement: *saved, ItemCount: len(saved.Items)}, nil
}

func (s *Service) GetStatement(ctx context.Context, id string) (*domain.InventoryStatement, error) {
	return s.repo.GetStatement(ctx, id)
}

func (s *Service) GetStatementByDate(ctx context.Context, date string) (*domain.InventoryStatement, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	return s.repo.GetStatementByDate(ctx, date)
}

func (s *Service) ListStatements(ctx context.Context, limit int) ([]domain.InventoryStatement, error) {
	return s.repo.ListStatements(ctx, limit)
}

// EnsureDailyStatement returns the statement for today, generating it on
// first access of the day.
func (s *Service) EnsureDailyStatement(ctx context.Context) (*domain.InventoryStatement, error) {
	today := time.Now().UTC().Format(domain.DateLayout)
	existing, err := s.repo.GetStatementByDate(ctx, today)
	if err == nil {
		return existing, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}

	resp, err := s.GenerateStatement(ctx, domain.StatementCreateRequest{
		Date:  today,
		Notes: "Automatically generated daily statement",
	})
	if err != nil {
		return nil, err
	}
	return &resp.Statement, nil
}

// UpdateStatementReceived corrects the received figure on one statement line
// and recomputes its closing stock per the reconciling identity. When
// requested, the closing difference is applied back to the product quantity
// as a ledger-recorded adjustment.
func (s *Service) UpdateStatementReceived(ctx context.Context, statementID string, itemID string, req domain.ReceivedStockUpdateRequest) (*domain.StatementItem, error) {
	if req.ReceivedStock < 0 {
		return nil, fmt.Errorf("%w: received stock cannot be negative", store.ErrInvalidInput)
	}
	statement, err := s.repo.GetStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}

	var item *domain.StatementItem
	for i := range statement.Items {
		if statement.Items[i].ID == itemID {
			item = &statement.Items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("%w: statement item %s", store.ErrNotFound, itemID)
	}
	if item.ReceivedStock == req.ReceivedStock {
		copyItem := *item
		return &copyItem, nil
	}

	item.ReceivedStock = req.ReceivedStock
	item.ClosingStock = item.OpeningStock + item.ReceivedStock - item.InvoicedStock
	if item.ClosingStock < 0 {
		return nil, fmt.Errorf("%w: received stock %d would make closing stock negative", store.ErrInvalidInput, req.ReceivedStock)
	}

	product, err := s.repo.GetProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if req.ApplyToProduct && product.Quantity != item.ClosingStock {
		diff := item.ClosingStock - product.Quantity
		product, err = s.repo.AdjustProductQuantity(ctx, product.ID, diff)
		if err != nil {
			return nil, err
		}
		s.appendLedger(ctx, product.ID, diff,
			fmt.Sprintf("Statement correction for %s", statement.Date), time.Now().UTC())
	}
	item.Remarks = deriveRemarks(item.Variance, item.ClosingStock, product.RestockLevel)

	updated, err := s.repo.UpdateStatementItem(ctx, *item)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "statement.correct", "statement_item", itemID,
		fmt.Sprintf("received stock set to %d", req.ReceivedStock))
	return updated, nil
}

func deriveRemarks(variance int, closing int, restockLevel int) string {
	switch {
	case variance != 0:
		return domain.RemarkVariance
	case closing <= restockLevel:
		return domain.RemarkRestock
	default:
		return domain.RemarkNormal
	}
}

// recomputeDayStatement regenerates the statement for the given date after a
// stock mutation. Failures are logged, never returned: statement sync must
// not fail the sale or adjustment that triggered it.
func (s *Service) recomputeDayStatement(ctx context.Context, date string) {
	if !atomic.CompareAndSwapInt32(&s.statementSync, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&s.statementSync, 0)

	if _, err := s.GenerateStatement(ctx, domain.StatementCreateRequest{Date: date}); err != nil {
		log.Printf("[service] WARN: failed to recompute statement for %s: %v", date, err)
	}
}

// syncStatementForProduct refreshes today's statement line for a product
// whose non-quantity fields changed. Best effort.
func (s *Service) syncStatementForProduct(ctx context.Context, product *domain.Product) {
	if !atomic.CompareAndSwapInt32(&s.statementSync, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&s.statementSync, 0)

	today := time.Now().UTC().Format(domain.DateLayout)
	statement, err := s.repo.GetStatementByDate(ctx, today)
	if err != nil {
		if err != store.ErrNotFound {
			log.Printf("[service] WARN: failed to load statement for %s: %v", today, err)
		}
		return
	}
	for _, item := range statement.Items {
		if item.ProductID != product.ID {
			continue
		}
		item.ClosingStock = product.Quantity
		item.OpeningStock = item.ClosingStock + item.InvoicedStock - item.ReceivedStock
		item.ProductName = product.Name
		item.Remarks = deriveRemarks(item.Variance, item.ClosingStock, product.RestockLevel)
		if _, err := s.repo.UpdateStatementItem(ctx, item); err != nil {
			log.Printf("[service] WARN: failed to sync statement item for %s: %v", product.ID, err)
		}
		return
	}
}

// ---- dashboard ----

func (s *Service) Dashboard(ctx context.Context) (*domain.DashboardSummary, error) {
	today := time.Now().UTC().Format(domain.DateLayout)

	statement, err := s.EnsureDailyStatement(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return nil, err
	}
	lowStock := 0
	totalStock := 0
	for _, p := range products {
		if p.NeedsRestock {
			lowStock++
		}
		totalStock += p.Quantity
	}
	totals, err := s.repo.SaleTotalsForDate(ctx, today)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardSummary{
		Date:              today,
		TotalProducts:     len(products),
		LowStockCount:     lowStock,
		TotalStock:        totalStock,
		TodaySaleCount:    totals.SaleCount,
		TodayIncome:       totals.Income,
		TodayProductsSold: totals.UnitsSold,
		StatementID:       statement.ID,
	}, nil
}

// ProductsWithRecentSales returns the full catalog together with per-product
// units sold over the trailing seven days, for the restock advisor.
func (s *Service) ProductsWithRecentSales(ctx context.Context) ([]domain.Product, map[string]int, error) {
	products, err := s.repo.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -6).Format(domain.DateLayout)
	sold, err := s.repo.SoldByProductRange(ctx, start, now.Format(domain.DateLayout))
	if err != nil {
		return nil, nil, err
	}
	return products, sold, nil
}

// ---- audit ----

func (s *Service) ListAuditLogs(ctx context.Context, from string, to string, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to record audit log for %s: %v", action, err)
	}
}

func slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	lastDash := true
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
