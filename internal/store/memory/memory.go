package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"modetex/backend/internal/domain"
	"modetex/backend/internal/store"
	"modetex/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	categories      map[string]domain.Category
	products        map[string]domain.Product
	stockUpdates    []domain.StockUpdate
	salesByID       map[string]domain.Sale
	statementsByID  map[string]domain.InventoryStatement
	statementByDate map[string]string
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD. If
// unset, hardcoded dev defaults are used with a warning printed to stdout.
// These credentials are never used in production (the backend uses
// PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		categories:      make(map[string]domain.Category),
		products:        make(map[string]domain.Product),
		stockUpdates:    make([]domain.StockUpdate, 0, 128),
		salesByID:       make(map[string]domain.Sale),
		statementsByID:  make(map[string]domain.InventoryStatement),
		statementByDate: make(map[string]string),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	categories := []domain.Category{
		{ID: "cat-fabrics", Name: "Fabrics", Slug: "fabrics", CreatedAt: now},
		{ID: "cat-sewing", Name: "Sewing Supplies", Slug: "sewing-supplies", CreatedAt: now},
		{ID: "cat-accessories", Name: "Accessories", Slug: "accessories", CreatedAt: now},
	}

	products := []domain.Product{
		{ID: "prod-cotton", CategoryID: "cat-fabrics", Name: "Cotton Fabric Roll", Slug: "cotton-fabric-roll", RegularPrice: dec("45.00"), BulkPrice: dec("40.00"), DozenPrice: dec("42.50"), Quantity: 80, QuantityPerCarton: 10, MinimumBulkQuantity: 12, RestockLevel: 15},
		{ID: "prod-linen", CategoryID: "cat-fabrics", Name: "Linen Fabric Roll", Slug: "linen-fabric-roll", RegularPrice: dec("62.00"), BulkPrice: dec("55.00"), DozenPrice: dec("58.00"), Quantity: 45, QuantityPerCarton: 8, MinimumBulkQuantity: 10, RestockLevel: 10},
		{ID: "prod-silk", CategoryID: "cat-fabrics", Name: "Silk Fabric Roll", Slug: "silk-fabric-roll", RegularPrice: dec("120.00"), BulkPrice: dec("108.00"), DozenPrice: dec("114.00"), Quantity: 18, QuantityPerCarton: 6, MinimumBulkQuantity: 6, RestockLevel: 8},
		{ID: "prod-thread", CategoryID: "cat-sewing", Name: "Polyester Thread Spool", Slug: "polyester-thread-spool", RegularPrice: dec("3.50"), BulkPrice: dec("2.80"), DozenPrice: dec("3.00"), Quantity: 240, QuantityPerCarton: 48, MinimumBulkQuantity: 24, RestockLevel: 60},
		{ID: "prod-needles", CategoryID: "cat-sewing", Name: "Machine Needle Pack", Slug: "machine-needle-pack", RegularPrice: dec("6.00"), BulkPrice: dec("5.20"), DozenPrice: dec("5.50"), Quantity: 96, QuantityPerCarton: 24, MinimumBulkQuantity: 12, RestockLevel: 24},
		{ID: "prod-buttons", CategoryID: "cat-accessories", Name: "Button Assortment Box", Slug: "button-assortment-box", RegularPrice: dec("9.75"), BulkPrice: dec("8.50"), DozenPrice: dec("9.00"), Quantity: 60, QuantityPerCarton: 12, MinimumBulkQuantity: 12, RestockLevel: 20},
		{ID: "prod-zippers", CategoryID: "cat-accessories", Name: "Zipper 30cm", Slug: "zipper-30cm", RegularPrice: dec("1.80"), BulkPrice: dec("1.40"), DozenPrice: dec("1.60"), Quantity: 300, QuantityPerCarton: 50, MinimumBulkQuantity: 50, RestockLevel: 80},
	}

	for _, c := range categories {
		s.categories[c.ID] = c
	}
	for _, p := range products {
		p.Available = true
		p.NeedsRestock = p.Quantity <= p.RestockLevel
		p.Created = now
		p.Updated = now
		s.products[p.ID] = p
	}
	return s
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(fmt.Sprintf("bad seed decimal %q: %v", v, err))
	}
	return d
}

// ---- categories ----

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categories[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCategory := category
	return &copyCategory, nil
}

func (s *Store) GetCategoryByName(_ context.Context, name string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	for _, c := range s.categories {
		if strings.ToLower(c.Name) == needle {
			copyCategory := c
			return &copyCategory, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" || category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	needle := strings.ToLower(category.Name)
	for _, existing := range s.categories {
		if strings.ToLower(existing.Name) == needle {
			return nil, fmt.Errorf("%w: category %q already exists", store.ErrConflict, existing.Name)
		}
	}

	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

// ---- products ----

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Available && !p.Available {
			continue
		}
		if filter.NeedsRestock && !p.NeedsRestock {
			continue
		}
		categoryName := s.categories[p.CategoryID].Name
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(categoryName), search) {
			continue
		}
		p.CategoryName = categoryName
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProductLocked(id)
}

func (s *Store) getProductLocked(id string) (*domain.Product, error) {
	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.CategoryName = s.categories[product.CategoryID].Name
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductBySlug(_ context.Context, slug string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Slug == slug {
			p.CategoryName = s.categories[p.CategoryID].Name
			copyProduct := p
			return &copyProduct, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindProductByName(_ context.Context, categoryID string, name string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	for _, p := range s.products {
		if p.CategoryID == categoryID && strings.ToLower(p.Name) == needle {
			p.CategoryName = s.categories[p.CategoryID].Name
			copyProduct := p
			return &copyProduct, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.CategoryID == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.categories[product.CategoryID]; !exists {
		return nil, fmt.Errorf("%w: category %s", store.ErrNotFound, product.CategoryID)
	}
	needle := strings.ToLower(product.Name)
	for _, existing := range s.products {
		if existing.CategoryID == product.CategoryID && strings.ToLower(existing.Name) == needle {
			return nil, fmt.Errorf("%w: product %q already exists in category", store.ErrConflict, existing.Name)
		}
	}

	product.NeedsRestock = product.Quantity <= product.RestockLevel
	s.products[product.ID] = product
	created := product
	created.CategoryName = s.categories[product.CategoryID].Name
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Quantity is owned by AdjustProductQuantity and the sale path.
	product.Quantity = existing.Quantity
	product.NeedsRestock = product.Quantity <= product.RestockLevel
	s.products[product.ID] = product
	updated := product
	updated.CategoryName = s.categories[product.CategoryID].Name
	return &updated, nil
}

func (s *Store) AdjustProductQuantity(_ context.Context, id string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	next := product.Quantity + delta
	if next < 0 {
		return nil, fmt.Errorf("%w: %s has %d, requested change %d", store.ErrInsufficientStock, product.Name, product.Quantity, delta)
	}
	product.Quantity = next
	product.NeedsRestock = next <= product.RestockLevel
	product.Updated = time.Now().UTC()
	s.products[id] = product

	updated := product
	updated.CategoryName = s.categories[product.CategoryID].Name
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return false, store.ErrNotFound
	}
	delete(s.products, id)

	// Cascade: drop the product's sale lines and re-derive affected totals.
	for saleID, sale := range s.salesByID {
		kept := sale.Items[:0:0]
		changed := false
		for _, item := range sale.Items {
			if item.ProductID == id {
				changed = true
				continue
			}
			kept = append(kept, item)
		}
		if changed {
			sale.Items = kept
			total := decimal.Zero
			for _, item := range kept {
				total = total.Add(item.TotalPrice())
			}
			sale.TotalAmount = total
			s.salesByID[saleID] = sale
		}
	}

	kept := s.stockUpdates[:0:0]
	for _, entry := range s.stockUpdates {
		if entry.ProductID == id {
			continue
		}
		kept = append(kept, entry)
	}
	s.stockUpdates = kept

	for stID, st := range s.statementsByID {
		items := st.Items[:0:0]
		for _, item := range st.Items {
			if item.ProductID == id {
				continue
			}
			items = append(items, item)
		}
		st.Items = items
		s.statementsByID[stID] = st
	}

	categoryDeleted := false
	remaining := 0
	for _, p := range s.products {
		if p.CategoryID == product.CategoryID {
			remaining++
		}
	}
	if remaining == 0 {
		delete(s.categories, product.CategoryID)
		categoryDeleted = true
	}
	return categoryDeleted, nil
}

func (s *Store) TotalStockOnHand(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, p := range s.products {
		total += p.Quantity
	}
	return total, nil
}

// ---- stock ledger ----

func (s *Store) AppendStockUpdate(_ context.Context, entry domain.StockUpdate) (*domain.StockUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ProductID == "" || entry.Date == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[entry.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if entry.ID == "" {
		entry.ID = xid.New("stk")
	}
	s.stockUpdates = append(s.stockUpdates, entry)
	created := entry
	return &created, nil
}

func (s *Store) ListStockUpdates(_ context.Context, productID string, date string, limit int) ([]domain.StockUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockUpdate, 0, 32)
	for i := len(s.stockUpdates) - 1; i >= 0; i-- {
		entry := s.stockUpdates[i]
		if productID != "" && entry.ProductID != productID {
			continue
		}
		if date != "" && entry.Date != date {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ReceivedByProduct(_ context.Context, date string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	received := make(map[string]int)
	for _, entry := range s.stockUpdates {
		if entry.Date != date || entry.QuantityChange <= 0 {
			continue
		}
		received[entry.ProductID] += entry.QuantityChange
	}
	return received, nil
}

// ---- sales ----

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	// Aggregate demand per product first; a sale may reference the same
	// product on more than one line.
	demand := make(map[string]int, len(sale.Items))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
		}
		demand[item.ProductID] += item.Quantity
	}

	shortfalls := make([]string, 0)
	for productID, needed := range demand {
		product, exists := s.products[productID]
		if !exists {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
		}
		if product.Quantity < needed {
			shortfalls = append(shortfalls, fmt.Sprintf("%s: available %d, needed %d", product.Name, product.Quantity, needed))
		}
	}
	if len(shortfalls) > 0 {
		sort.Strings(shortfalls)
		return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, strings.Join(shortfalls, "; "))
	}

	saleDay := sale.SaleDate.Format(domain.DateLayout)
	for productID, needed := range demand {
		product := s.products[productID]
		product.Quantity -= needed
		product.NeedsRestock = product.Quantity <= product.RestockLevel
		product.Updated = sale.SaleDate
		s.products[productID] = product

		s.stockUpdates = append(s.stockUpdates, domain.StockUpdate{
			ID:             xid.New("stk"),
			ProductID:      productID,
			Date:           saleDay,
			QuantityChange: -needed,
			Notes:          fmt.Sprintf("Sale %s - reduced stock by %d", sale.ID, needed),
			CreatedAt:      sale.SaleDate,
		})
	}

	total := decimal.Zero
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
		if sale.Items[i].ID == "" {
			sale.Items[i].ID = xid.New("itm")
		}
		if name, ok := s.products[sale.Items[i].ProductID]; ok {
			sale.Items[i].ProductName = name.Name
		}
		total = total.Add(sale.Items[i].TotalPrice())
	}
	sale.TotalAmount = total
	s.salesByID[sale.ID] = cloneSale(sale)

	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := cloneSale(sale)
	return &copySale, nil
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seller := strings.ToLower(strings.TrimSpace(filter.Seller))
	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if seller != "" && !strings.Contains(strings.ToLower(sale.SellerName), seller) {
			continue
		}
		day := sale.SaleDate.Format(domain.DateLayout)
		if filter.StartDate != "" && day < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && day > filter.EndDate {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}

	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.SaleDate.Compare(a.SaleDate)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) SoldByProduct(ctx context.Context, date string) (map[string]int, error) {
	return s.SoldByProductRange(ctx, date, date)
}

func (s *Store) SoldByProductRange(_ context.Context, startDate string, endDate string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sold := make(map[string]int)
	for _, sale := range s.salesByID {
		day := sale.SaleDate.Format(domain.DateLayout)
		if (startDate != "" && day < startDate) || (endDate != "" && day > endDate) {
			continue
		}
		for _, item := range sale.Items {
			sold[item.ProductID] += item.Quantity
		}
	}
	return sold, nil
}

func (s *Store) SaleTotalsForDate(_ context.Context, date string) (store.SaleTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := store.SaleTotals{Income: decimal.Zero}
	for _, sale := range s.salesByID {
		if sale.SaleDate.Format(domain.DateLayout) != date {
			continue
		}
		totals.Income = totals.Income.Add(sale.TotalAmount)
		totals.SaleCount++
		for _, item := range sale.Items {
			totals.UnitsSold += item.Quantity
		}
	}
	return totals, nil
}

// ---- statements ----

func (s *Store) GetStatement(_ context.Context, id string) (*domain.InventoryStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statement, exists := s.statementsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyStatement := cloneStatement(statement)
	return &copyStatement, nil
}

func (s *Store) GetStatementByDate(_ context.Context, date string) (*domain.InventoryStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.statementByDate[date]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyStatement := cloneStatement(s.statementsByID[id])
	return &copyStatement, nil
}

func (s *Store) ListStatements(_ context.Context, limit int) ([]domain.InventoryStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statements := make([]domain.InventoryStatement, 0, len(s.statementsByID))
	for _, st := range s.statementsByID {
		statements = append(statements, cloneStatement(st))
	}
	slices.SortFunc(statements, func(a, b domain.InventoryStatement) int {
		return cmpString(b.Date, a.Date)
	})
	if limit > 0 && len(statements) > limit {
		statements = statements[:limit]
	}
	return statements, nil
}

func (s *Store) SaveStatement(_ context.Context, statement domain.InventoryStatement) (*domain.InventoryStatement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if statement.Date == "" {
		return nil, store.ErrInvalidInput
	}
	if existingID, exists := s.statementByDate[statement.Date]; exists && existingID != statement.ID {
		// One statement per calendar date; the stored row wins.
		statement.ID = existingID
	}
	if statement.ID == "" {
		statement.ID = xid.New("stmt")
	}
	for i := range statement.Items {
		statement.Items[i].StatementID = statement.ID
		if statement.Items[i].ID == "" {
			statement.Items[i].ID = xid.New("stitem")
		}
	}

	s.statementsByID[statement.ID] = cloneStatement(statement)
	s.statementByDate[statement.Date] = statement.ID

	saved := cloneStatement(statement)
	return &saved, nil
}

func (s *Store) UpdateStatementItem(_ context.Context, item domain.StatementItem) (*domain.StatementItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	statement, exists := s.statementsByID[item.StatementID]
	if !exists {
		return nil, store.ErrNotFound
	}
	for i := range statement.Items {
		if statement.Items[i].ID == item.ID {
			statement.Items[i] = item
			s.statementsByID[item.StatementID] = statement
			copyItem := item
			return &copyItem, nil
		}
	}
	return nil, store.ErrNotFound
}

// ---- audit log ----

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from string, to string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 32)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		day := entry.CreatedAt.Format(domain.DateLayout)
		if (from != "" && day < from) || (to != "" && day > to) {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("%w: username %s", store.ErrConflict, username)
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// ---- helpers ----

func cloneSale(sale domain.Sale) domain.Sale {
	copySale := sale
	copySale.Items = make([]domain.SaleItem, len(sale.Items))
	copy(copySale.Items, sale.Items)
	return copySale
}

func cloneStatement(statement domain.InventoryStatement) domain.InventoryStatement {
	copyStatement := statement
	copyStatement.Items = make([]domain.StatementItem, len(statement.Items))
	copy(copyStatement.Items, statement.Items)
	return copyStatement
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
