package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"modetex/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
)

// SaleTotals aggregates one calendar day of committed sales.
type SaleTotals struct {
	Income    decimal.Decimal
	UnitsSold int
	SaleCount int
}

type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	FindProductByName(ctx context.Context, categoryID string, name string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// AdjustProductQuantity applies delta as a single conditional update and
	// recomputes needs_restock from the post-update quantity. The resulting
	// quantity must never go negative.
	AdjustProductQuantity(ctx context.Context, id string, delta int) (*domain.Product, error)
	// DeleteProduct removes the product and its sale history. When the owning
	// category has no products left it is removed too.
	DeleteProduct(ctx context.Context, id string) (categoryDeleted bool, err error)
	TotalStockOnHand(ctx context.Context) (int, error)

	AppendStockUpdate(ctx context.Context, entry domain.StockUpdate) (*domain.StockUpdate, error)
	ListStockUpdates(ctx context.Context, productID string, date string, limit int) ([]domain.StockUpdate, error)
	ReceivedByProduct(ctx context.Context, date string) (map[string]int, error)

	// CreateSale validates aggregate per-product demand against current stock
	// under exclusive row ownership, decrements quantities, persists the sale
	// with its items, and appends one negative ledger entry per product. On
	// any failure nothing is mutated.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter, limit int) ([]domain.Sale, error)
	SoldByProduct(ctx context.Context, date string) (map[string]int, error)
	SoldByProductRange(ctx context.Context, startDate string, endDate string) (map[string]int, error)
	SaleTotalsForDate(ctx context.Context, date string) (SaleTotals, error)

	GetStatement(ctx context.Context, id string) (*domain.InventoryStatement, error)
	GetStatementByDate(ctx context.Context, date string) (*domain.InventoryStatement, error)
	ListStatements(ctx context.Context, limit int) ([]domain.InventoryStatement, error)
	// SaveStatement upserts the statement row keyed by date and replaces its
	// items wholesale.
	SaveStatement(ctx context.Context, statement domain.InventoryStatement) (*domain.InventoryStatement, error)
	UpdateStatementItem(ctx context.Context, item domain.StatementItem) (*domain.StatementItem, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from string, to string, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
