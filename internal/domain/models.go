package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID                  string          `json:"id"`
	CategoryID          string          `json:"category_id"`
	CategoryName        string          `json:"category_name"`
	Name                string          `json:"name"`
	Slug                string          `json:"slug"`
	RegularPrice        decimal.Decimal `json:"regular_price"`
	BulkPrice           decimal.Decimal `json:"bulk_price"`
	DozenPrice          decimal.Decimal `json:"dozen_price"`
	Quantity            int             `json:"quantity"`
	QuantityPerCarton   int             `json:"quantity_per_carton"`
	MinimumBulkQuantity int             `json:"minimum_bulk_quantity"`
	RestockLevel        int             `json:"restock_level"`
	NeedsRestock        bool            `json:"needs_restock"`
	Available           bool            `json:"available"`
	Created             time.Time       `json:"created"`
	Updated             time.Time       `json:"updated"`
}

type ProductUpsertRequest struct {
	CategoryID          string          `json:"category_id,omitempty"`
	NewCategory         string          `json:"new_category,omitempty"`
	Name                string          `json:"name"`
	RegularPrice        decimal.Decimal `json:"regular_price"`
	BulkPrice           decimal.Decimal `json:"bulk_price"`
	DozenPrice          decimal.Decimal `json:"dozen_price"`
	Quantity            int             `json:"quantity"`
	QuantityPerCarton   int             `json:"quantity_per_carton"`
	MinimumBulkQuantity int             `json:"minimum_bulk_quantity"`
	RestockLevel        int             `json:"restock_level"`
	Available           bool            `json:"available"`
}

const (
	UpsertOutcomeCreated = "created"
	UpsertOutcomeMerged  = "merged"
)

type ProductUpsertResponse struct {
	Outcome string  `json:"outcome"`
	Product Product `json:"product"`
}

type ProductUpdateRequest struct {
	Name                *string          `json:"name,omitempty"`
	RegularPrice        *decimal.Decimal `json:"regular_price,omitempty"`
	BulkPrice           *decimal.Decimal `json:"bulk_price,omitempty"`
	DozenPrice          *decimal.Decimal `json:"dozen_price,omitempty"`
	QuantityPerCarton   *int             `json:"quantity_per_carton,omitempty"`
	MinimumBulkQuantity *int             `json:"minimum_bulk_quantity,omitempty"`
	RestockLevel        *int             `json:"restock_level,omitempty"`
	Available           *bool            `json:"available,omitempty"`
}

type ProductFilter struct {
	CategoryID   string
	Search       string
	Available    bool
	NeedsRestock bool
}

type ProductDeleteResponse struct {
	ProductName     string `json:"product_name"`
	CategoryDeleted bool   `json:"category_deleted"`
	CategoryName    string `json:"category_name,omitempty"`
}

type QuantityAdjustRequest struct {
	Delta int    `json:"delta"`
	Notes string `json:"notes,omitempty"`
}

type QuantityAdjustResponse struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	NeedsRestock bool   `json:"needs_restock"`
}

// StockUpdate is an append-only ledger entry. Positive deltas are received
// stock, negative deltas are sold or adjusted stock.
type StockUpdate struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Date           string    `json:"date"`
	QuantityChange int       `json:"quantity_change"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	SaleTypeRegular = "regular"
	SaleTypeBulk    = "bulk"
	SaleTypeDozen   = "dozen"
)

type Sale struct {
	ID          string          `json:"id"`
	SellerName  string          `json:"seller_name"`
	Username    string          `json:"username,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	SaleDate    time.Time       `json:"sale_date"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
	Items       []SaleItem      `json:"items"`
}

type SaleItem struct {
	ID                string          `json:"id"`
	SaleID            string          `json:"sale_id"`
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          int             `json:"quantity"`
	SaleType          string          `json:"sale_type"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	CustomBulkMinimum int             `json:"custom_bulk_minimum,omitempty"`
}

func (i SaleItem) TotalPrice() decimal.Decimal {
	return i.PricePerUnit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type SaleLineRequest struct {
	ProductID         string `json:"product_id"`
	Quantity          int    `json:"quantity"`
	SaleType          string `json:"sale_type"`
	CustomBulkMinimum int    `json:"custom_bulk_minimum,omitempty"`
}

type SaleCreateRequest struct {
	SellerName string            `json:"seller_name"`
	Items      []SaleLineRequest `json:"items"`
}

type SaleFilter struct {
	Seller    string
	StartDate string
	EndDate   string
}

type InventoryStatement struct {
	ID                   string          `json:"id"`
	Date                 string          `json:"date"`
	CompanyName          string          `json:"company_name,omitempty"`
	PreparedBy           string          `json:"prepared_by,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	TotalIncome          decimal.Decimal `json:"total_income"`
	TotalProductsSold    int             `json:"total_products_sold"`
	TotalProductsInStock int             `json:"total_products_in_stock"`
	Items                []StatementItem `json:"items"`
}

type StatementItem struct {
	ID            string `json:"id"`
	StatementID   string `json:"statement_id"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	OpeningStock  int    `json:"opening_stock"`
	ReceivedStock int    `json:"received_stock"`
	InvoicedStock int    `json:"invoiced_stock"`
	ClosingStock  int    `json:"closing_stock"`
	Variance      int    `json:"variance"`
	Remarks       string `json:"remarks"`
}

const (
	RemarkVariance = "Variance detected"
	RemarkRestock  = "Restock needed"
	RemarkNormal   = "Normal"
)

type StatementCreateRequest struct {
	Date        string `json:"date,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	PreparedBy  string `json:"prepared_by,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type StatementResponse struct {
	Statement InventoryStatement `json:"statement"`
	ItemCount int                `json:"item_count"`
}

// ReceivedStockUpdateRequest corrects a statement line's received figure.
// When ApplyToProduct is set the resulting closing/quantity difference is
// pushed back onto the product as a ledger-recorded adjustment.
type ReceivedStockUpdateRequest struct {
	ReceivedStock  int  `json:"received_stock"`
	ApplyToProduct bool `json:"apply_to_product"`
}

type DashboardSummary struct {
	Date              string          `json:"date"`
	TotalProducts     int             `json:"total_products"`
	LowStockCount     int             `json:"low_stock_count"`
	TotalStock        int             `json:"total_stock"`
	TodaySaleCount    int             `json:"today_sale_count"`
	TodayIncome       decimal.Decimal `json:"today_income"`
	TodayProductsSold int             `json:"today_products_sold"`
	StatementID       string          `json:"statement_id"`
}

type RestockSuggestion struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	CategoryName   string `json:"category_name"`
	Quantity       int    `json:"quantity"`
	RestockLevel   int    `json:"restock_level"`
	SoldLast7Days  int    `json:"sold_last_7_days"`
	SuggestedOrder int    `json:"suggested_order"`
	Reason         string `json:"reason"`
}

type RestockSuggestionResponse struct {
	GeneratedAt string              `json:"generated_at"`
	Suggestions []RestockSuggestion `json:"suggestions"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const DateLayout = "2006-01-02"
