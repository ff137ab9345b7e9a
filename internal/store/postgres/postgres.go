package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"modetex/backend/internal/domain"
	"modetex/backend/internal/store"
	"modetex/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS categories_name_ci ON categories (lower(name))`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL REFERENCES categories(id),
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			regular_price NUMERIC(10,2) NOT NULL,
			bulk_price NUMERIC(10,2) NOT NULL,
			dozen_price NUMERIC(10,2) NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			quantity_per_carton INTEGER NOT NULL DEFAULT 0,
			minimum_bulk_quantity INTEGER NOT NULL DEFAULT 0,
			restock_level INTEGER NOT NULL DEFAULT 0,
			needs_restock BOOLEAN NOT NULL DEFAULT FALSE,
			available BOOLEAN NOT NULL DEFAULT TRUE,
			created TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_category_name_ci ON products (category_id, lower(name))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_slug ON products (slug)`,
		`CREATE TABLE IF NOT EXISTS stock_updates (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			quantity_change INTEGER NOT NULL,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS stock_updates_product_date ON stock_updates (product_id, date)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			seller_name TEXT NOT NULL,
			username TEXT,
			total_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
			sale_date TIMESTAMPTZ NOT NULL,
			created TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS sales_sale_date ON sales (sale_date)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id TEXT PRIMARY KEY,
			sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
			product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			sale_type TEXT NOT NULL,
			price_per_unit NUMERIC(10,2) NOT NULL,
			custom_bulk_minimum INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS sale_items_product ON sale_items (product_id)`,
		`CREATE TABLE IF NOT EXISTS inventory_statements (
			id TEXT PRIMARY KEY,
			date DATE NOT NULL UNIQUE,
			company_name TEXT,
			prepared_by TEXT,
			notes TEXT,
			total_income NUMERIC(10,2) NOT NULL DEFAULT 0,
			total_products_sold INTEGER NOT NULL DEFAULT 0,
			total_products_in_stock INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_statement_items (
			id TEXT PRIMARY KEY,
			statement_id TEXT NOT NULL REFERENCES inventory_statements(id) ON DELETE CASCADE,
			product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			opening_stock INTEGER NOT NULL DEFAULT 0,
			received_stock INTEGER NOT NULL DEFAULT 0,
			invoiced_stock INTEGER NOT NULL DEFAULT 0,
			closing_stock INTEGER NOT NULL DEFAULT 0,
			variance INTEGER NOT NULL DEFAULT 0,
			remarks TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS statement_items_statement ON inventory_statement_items (statement_id)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			actor_username TEXT,
			actor_role TEXT,
			action TEXT NOT NULL,
			entity_type TEXT,
			entity_id TEXT,
			detail TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ---- categories ----

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.scanCategory(s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM categories WHERE id = $1`, id))
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	return s.scanCategory(s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM categories WHERE lower(name) = lower($1)`, strings.TrimSpace(name)))
}

func (s *Store) scanCategory(row *sql.Row) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.ID == "" || category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.Slug, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: category %q already exists", store.ErrConflict, category.Name)
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- products ----

const productColumns = `p.id, p.category_id, c.name, p.name, p.slug,
	p.regular_price, p.bulk_price, p.dozen_price, p.quantity, p.quantity_per_carton,
	p.minimum_bulk_quantity, p.restock_level, p.needs_restock, p.available, p.created, p.updated`

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p JOIN categories c ON c.id = p.category_id`
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR c.name ILIKE $%d)", len(args), len(args)))
	}
	if filter.Available {
		conditions = append(conditions, "p.available")
	}
	if filter.NeedsRestock {
		conditions = append(conditions, "p.needs_restock")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Slug,
		&p.RegularPrice, &p.BulkPrice, &p.DozenPrice, &p.Quantity, &p.QuantityPerCarton,
		&p.MinimumBulkQuantity, &p.RestockLevel, &p.NeedsRestock, &p.Available, &p.Created, &p.Updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products p JOIN categories c ON c.id = p.category_id WHERE p.id = $1`, id))
}

func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products p JOIN categories c ON c.id = p.category_id WHERE p.slug = $1`, slug))
}

func (s *Store) FindProductByName(ctx context.Context, categoryID string, name string) (*domain.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products p JOIN categories c ON c.id = p.category_id
		 WHERE p.category_id = $1 AND lower(p.name) = lower($2)`, categoryID, strings.TrimSpace(name)))
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.CategoryID == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, category_id, name, slug, regular_price, bulk_price, dozen_price,
			quantity, quantity_per_carton, minimum_bulk_quantity, restock_level, needs_restock, available, created, updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $8 <= $11, $12, $13, $14)`,
		product.ID, product.CategoryID, product.Name, product.Slug,
		product.RegularPrice, product.BulkPrice, product.DozenPrice,
		product.Quantity, product.QuantityPerCarton, product.MinimumBulkQuantity,
		product.RestockLevel, product.Available, product.Created, product.Updated)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product %q already exists in category", store.ErrConflict, product.Name)
		}
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	// Quantity is deliberately not written here; it belongs to
	// AdjustProductQuantity and the sale path.
	result, err := s.db.ExecContext(ctx,
		`UPDATE products SET
			name = $2, slug = $3, regular_price = $4, bulk_price = $5, dozen_price = $6,
			quantity_per_carton = $7, minimum_bulk_quantity = $8, restock_level = $9,
			needs_restock = quantity <= $9, available = $10, updated = $11
		 WHERE id = $1`,
		product.ID, product.Name, product.Slug,
		product.RegularPrice, product.BulkPrice, product.DozenPrice,
		product.QuantityPerCarton, product.MinimumBulkQuantity, product.RestockLevel,
		product.Available, product.Updated)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: product %q already exists in category", store.ErrConflict, product.Name)
		}
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) AdjustProductQuantity(ctx context.Context, id string, delta int) (*domain.Product, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE products SET
			quantity = quantity + $2,
			needs_restock = (quantity + $2) <= restock_level,
			updated = now()
		 WHERE id = $1 AND quantity + $2 >= 0`,
		id, delta)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		product, err := s.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s has %d, requested change %d",
			store.ErrInsufficientStock, product.Name, product.Quantity, delta)
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var categoryID string
	err = tx.QueryRowContext(ctx, `SELECT category_id FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, store.ErrNotFound
		}
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return false, err
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&remaining); err != nil {
		return false, err
	}
	categoryDeleted := false
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, categoryID); err != nil {
			return false, err
		}
		categoryDeleted = true
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return categoryDeleted, nil
}

func (s *Store) TotalStockOnHand(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM products`).Scan(&total)
	return total, err
}

// ---- stock ledger ----

func (s *Store) AppendStockUpdate(ctx context.Context, entry domain.StockUpdate) (*domain.StockUpdate, error) {
	if entry.ProductID == "" || entry.Date == "" {
		return nil, store.ErrInvalidInput
	}
	if entry.ID == "" {
		entry.ID = xid.New("stk")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stock_updates (id, product_id, date, quantity_change, notes, created_at)
		 VALUES ($1, $2, $3::date, $4, $5, $6)`,
		entry.ID, entry.ProductID, entry.Date, entry.QuantityChange, nullIfEmpty(entry.Notes), entry.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := entry
	return &created, nil
}

func (s *Store) ListStockUpdates(ctx context.Context, productID string, date string, limit int) ([]domain.StockUpdate, error) {
	query := `SELECT id, product_id, to_char(date, 'YYYY-MM-DD'), quantity_change, COALESCE(notes, ''), created_at
		FROM stock_updates`
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if productID != "" {
		args = append(args, productID)
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if date != "" {
		args = append(args, date)
		conditions = append(conditions, fmt.Sprintf("date = $%d::date", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.StockUpdate
	for rows.Next() {
		var e domain.StockUpdate
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Date, &e.QuantityChange, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) ReceivedByProduct(ctx context.Context, date string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, COALESCE(SUM(quantity_change), 0)
		 FROM stock_updates
		 WHERE date = $1::date AND quantity_change > 0
		 GROUP BY product_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	received := make(map[string]int)
	for rows.Next() {
		var productID string
		var total int
		if err := rows.Scan(&productID, &total); err != nil {
			return nil, err
		}
		received[productID] = total
	}
	return received, rows.Err()
}

// ---- sales ----

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	demand := make(map[string]int, len(sale.Items))
	productIDs := make([]string, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
		}
		if _, seen := demand[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		demand[item.ProductID] += item.Quantity
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock every affected product row before validating, so concurrent
	// sales of the same products serialize on the locks.
	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, quantity, restock_level FROM products WHERE id = ANY($1) FOR UPDATE`, productIDs)
	if err != nil {
		return nil, err
	}
	type lockedProduct struct {
		name         string
		quantity     int
		restockLevel int
	}
	locked := make(map[string]lockedProduct, len(productIDs))
	for rows.Next() {
		var id string
		var p lockedProduct
		if err := rows.Scan(&id, &p.name, &p.quantity, &p.restockLevel); err != nil {
			rows.Close()
			return nil, err
		}
		locked[id] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	shortfalls := make([]string, 0)
	for _, productID := range productIDs {
		product, ok := locked[productID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
		}
		if product.quantity < demand[productID] {
			shortfalls = append(shortfalls, fmt.Sprintf("%s: available %d, needed %d",
				product.name, product.quantity, demand[productID]))
		}
	}
	if len(shortfalls) > 0 {
		sort.Strings(shortfalls)
		return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, strings.Join(shortfalls, "; "))
	}

	saleDay := sale.SaleDate.Format(domain.DateLayout)
	for _, productID := range productIDs {
		needed := demand[productID]
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET
				quantity = quantity - $2,
				needs_restock = (quantity - $2) <= restock_level,
				updated = $3
			 WHERE id = $1`,
			productID, needed, sale.SaleDate); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stock_updates (id, product_id, date, quantity_change, notes, created_at)
			 VALUES ($1, $2, $3::date, $4, $5, $6)`,
			xid.New("stk"), productID, saleDay, -needed,
			fmt.Sprintf("Sale %s - reduced stock by %d", sale.ID, needed), sale.SaleDate); err != nil {
			return nil, err
		}
	}

	total := decimal.Zero
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
		if sale.Items[i].ID == "" {
			sale.Items[i].ID = xid.New("itm")
		}
		if sale.Items[i].ProductName == "" {
			sale.Items[i].ProductName = locked[sale.Items[i].ProductID].name
		}
		total = total.Add(sale.Items[i].TotalPrice())
	}
	sale.TotalAmount = total

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sales (id, seller_name, username, total_amount, sale_date, created, updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sale.ID, sale.SellerName, nullIfEmpty(sale.Username), sale.TotalAmount,
		sale.SaleDate, sale.Created, sale.Updated); err != nil {
		return nil, err
	}
	for _, item := range sale.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, sale_type, price_per_unit, custom_bulk_minimum)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, item.SaleID, item.ProductID, item.ProductName,
			item.Quantity, item.SaleType, item.PricePerUnit, item.CustomBulkMinimum); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	var username sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, seller_name, username, total_amount, sale_date, created, updated FROM sales WHERE id = $1`, id).
		Scan(&sale.ID, &sale.SellerName, &username, &sale.TotalAmount, &sale.SaleDate, &sale.Created, &sale.Updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.Username = username.String

	items, err := s.saleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

func (s *Store) saleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sale_id, product_id, product_name, quantity, sale_type, price_per_unit, custom_bulk_minimum
		 FROM sale_items WHERE sale_id = $1 ORDER BY product_name`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.SaleItem
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.SaleType, &item.PricePerUnit, &item.CustomBulkMinimum); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter, limit int) ([]domain.Sale, error) {
	query := `SELECT id, seller_name, username, total_amount, sale_date, created, updated FROM sales`
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if seller := strings.TrimSpace(filter.Seller); seller != "" {
		args = append(args, "%"+seller+"%")
		conditions = append(conditions, fmt.Sprintf("seller_name ILIKE $%d", len(args)))
	}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("sale_date::date >= $%d::date", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("sale_date::date <= $%d::date", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sale_date DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		var sale domain.Sale
		var username sql.NullString
		if err := rows.Scan(&sale.ID, &sale.SellerName, &username, &sale.TotalAmount,
			&sale.SaleDate, &sale.Created, &sale.Updated); err != nil {
			return nil, err
		}
		sale.Username = username.String
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		items, err := s.saleItems(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

func (s *Store) SoldByProduct(ctx context.Context, date string) (map[string]int, error) {
	return s.SoldByProductRange(ctx, date, date)
}

func (s *Store) SoldByProductRange(ctx context.Context, startDate string, endDate string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT si.product_id, COALESCE(SUM(si.quantity), 0)
		 FROM sale_items si
		 JOIN sales sa ON sa.id = si.sale_id
		 WHERE sa.sale_date::date >= $1::date AND sa.sale_date::date <= $2::date
		 GROUP BY si.product_id`, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sold := make(map[string]int)
	for rows.Next() {
		var productID string
		var total int
		if err := rows.Scan(&productID, &total); err != nil {
			return nil, err
		}
		sold[productID] = total
	}
	return sold, rows.Err()
}

func (s *Store) SaleTotalsForDate(ctx context.Context, date string) (store.SaleTotals, error) {
	totals := store.SaleTotals{Income: decimal.Zero}
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_amount), 0), COUNT(*) FROM sales WHERE sale_date::date = $1::date`, date).
		Scan(&totals.Income, &totals.SaleCount)
	if err != nil {
		return totals, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(si.quantity), 0)
		 FROM sale_items si JOIN sales sa ON sa.id = si.sale_id
		 WHERE sa.sale_date::date = $1::date`, date).
		Scan(&totals.UnitsSold)
	return totals, err
}

// ---- statements ----

func (s *Store) GetStatement(ctx context.Context, id string) (*domain.InventoryStatement, error) {
	return s.loadStatement(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetStatementByDate(ctx context.Context, date string) (*domain.InventoryStatement, error) {
	return s.loadStatement(ctx, `WHERE date = $1::date`, date)
}

func (s *Store) loadStatement(ctx context.Context, where string, arg any) (*domain.InventoryStatement, error) {
	var st domain.InventoryStatement
	var companyName, preparedBy, notes sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, to_char(date, 'YYYY-MM-DD'), company_name, prepared_by, notes,
			total_income, total_products_sold, total_products_in_stock
		 FROM inventory_statements `+where, arg).
		Scan(&st.ID, &st.Date, &companyName, &preparedBy, &notes,
			&st.TotalIncome, &st.TotalProductsSold, &st.TotalProductsInStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	st.CompanyName = companyName.String
	st.PreparedBy = preparedBy.String
	st.Notes = notes.String

	items, err := s.statementItems(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	st.Items = items
	return &st, nil
}

func (s *Store) statementItems(ctx context.Context, statementID string) ([]domain.StatementItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, statement_id, product_id, product_name, opening_stock, received_stock,
			invoiced_stock, closing_stock, variance, COALESCE(remarks, '')
		 FROM inventory_statement_items WHERE statement_id = $1 ORDER BY product_name`, statementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.StatementItem
	for rows.Next() {
		var item domain.StatementItem
		if err := rows.Scan(&item.ID, &item.StatementID, &item.ProductID, &item.ProductName,
			&item.OpeningStock, &item.ReceivedStock, &item.InvoicedStock, &item.ClosingStock,
			&item.Variance, &item.Remarks); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) ListStatements(ctx context.Context, limit int) ([]domain.InventoryStatement, error) {
	query := `SELECT id, to_char(date, 'YYYY-MM-DD'), company_name, prepared_by, notes,
		total_income, total_products_sold, total_products_in_stock
		FROM inventory_statements ORDER BY date DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statements []domain.InventoryStatement
	for rows.Next() {
		var st domain.InventoryStatement
		var companyName, preparedBy, notes sql.NullString
		if err := rows.Scan(&st.ID, &st.Date, &companyName, &preparedBy, &notes,
			&st.TotalIncome, &st.TotalProductsSold, &st.TotalProductsInStock); err != nil {
			return nil, err
		}
		st.CompanyName = companyName.String
		st.PreparedBy = preparedBy.String
		st.Notes = notes.String
		statements = append(statements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range statements {
		items, err := s.statementItems(ctx, statements[i].ID)
		if err != nil {
			return nil, err
		}
		statements[i].Items = items
	}
	return statements, nil
}

func (s *Store) SaveStatement(ctx context.Context, statement domain.InventoryStatement) (*domain.InventoryStatement, error) {
	if statement.Date == "" {
		return nil, store.ErrInvalidInput
	}
	if statement.ID == "" {
		statement.ID = xid.New("stmt")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// The date carries the uniqueness constraint; a concurrent insert for
	// the same day collapses onto the stored row.
	var storedID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO inventory_statements (id, date, company_name, prepared_by, notes,
			total_income, total_products_sold, total_products_in_stock)
		 VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (date) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			prepared_by = EXCLUDED.prepared_by,
			notes = EXCLUDED.notes,
			total_income = EXCLUDED.total_income,
			total_products_sold = EXCLUDED.total_products_sold,
			total_products_in_stock = EXCLUDED.total_products_in_stock
		 RETURNING id`,
		statement.ID, statement.Date, nullIfEmpty(statement.CompanyName), nullIfEmpty(statement.PreparedBy),
		nullIfEmpty(statement.Notes), statement.TotalIncome, statement.TotalProductsSold,
		statement.TotalProductsInStock).Scan(&storedID)
	if err != nil {
		return nil, err
	}
	statement.ID = storedID

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM inventory_statement_items WHERE statement_id = $1`, statement.ID); err != nil {
		return nil, err
	}
	for i := range statement.Items {
		item := &statement.Items[i]
		item.StatementID = statement.ID
		if item.ID == "" {
			item.ID = xid.New("stitem")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_statement_items (id, statement_id, product_id, product_name,
				opening_stock, received_stock, invoiced_stock, closing_stock, variance, remarks)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, item.StatementID, item.ProductID, item.ProductName,
			item.OpeningStock, item.ReceivedStock, item.InvoicedStock, item.ClosingStock,
			item.Variance, nullIfEmpty(item.Remarks)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	saved := statement
	return &saved, nil
}

func (s *Store) UpdateStatementItem(ctx context.Context, item domain.StatementItem) (*domain.StatementItem, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE inventory_statement_items SET
			product_name = $3, opening_stock = $4, received_stock = $5,
			invoiced_stock = $6, closing_stock = $7, variance = $8, remarks = $9
		 WHERE id = $1 AND statement_id = $2`,
		item.ID, item.StatementID, item.ProductName,
		item.OpeningStock, item.ReceivedStock, item.InvoicedStock, item.ClosingStock,
		item.Variance, nullIfEmpty(item.Remarks))
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := item
	return &updated, nil
}

// ---- audit log ----

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, nullIfEmpty(entry.ActorUsername), nullIfEmpty(entry.ActorRole), entry.Action,
		nullIfEmpty(entry.EntityType), nullIfEmpty(entry.EntityID), nullIfEmpty(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from string, to string, limit int) ([]domain.AuditLog, error) {
	query := `SELECT id, COALESCE(actor_username, ''), COALESCE(actor_role, ''), action,
		COALESCE(entity_type, ''), COALESCE(entity_id, ''), COALESCE(detail, ''), created_at
		FROM audit_logs`
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if from != "" {
		args = append(args, from)
		conditions = append(conditions, fmt.Sprintf("created_at::date >= $%d::date", len(args)))
	}
	if to != "" {
		args = append(args, to)
		conditions = append(conditions, fmt.Sprintf("created_at::date <= $%d::date", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, role, active, created_at) VALUES ($1, $2, $3, $4, $5)`,
		username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %s", store.ErrConflict, username)
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, password, role, active, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.UserAccount
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- helpers ----

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
