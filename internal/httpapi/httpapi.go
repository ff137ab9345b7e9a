package httpapi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"

	"modetex/backend/internal/cache"
	"modetex/backend/internal/domain"
	"modetex/backend/internal/restock"
	"modetex/backend/internal/service"
	"modetex/backend/internal/store"
)

const dashboardCacheKey = "inventory:dashboard"

type API struct {
	svc           *service.Service
	auth          *AuthManager
	advisor       *restock.Advisor
	cache         cache.Cache
	dashboardTTL  time.Duration
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, advisor *restock.Advisor, cacheStore cache.Cache, dashboardTTL time.Duration, allowedOrigin string) *API {
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	if dashboardTTL <= 0 {
		dashboardTTL = 30 * time.Second
	}
	return &API{
		svc:           svc,
		auth:          auth,
		advisor:       advisor,
		cache:         cacheStore,
		dashboardTTL:  dashboardTTL,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(8, time.Minute),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/dashboard", a.requireAuth(a.handleDashboard))
	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductSubtree))
	mux.HandleFunc("/api/v1/stock-updates", a.requireAuth(a.handleStockUpdates))
	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(a.handleSaleSubtree))
	mux.HandleFunc("/api/v1/statements", a.requireAuth(a.handleStatements))
	mux.HandleFunc("/api/v1/statements/", a.requireAuth(a.handleStatementSubtree))
	mux.HandleFunc("/api/v1/restock-suggestions", a.requireAuth(a.handleRestockSuggestions))

	mux.HandleFunc("/api/v1/staff", a.requireAuth(a.handleStaff, "admin"))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, "admin"))

	return a.withMiddleware(mux)
}

// ---- auth ----

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		actor, err := a.auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if actor.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
		}
		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

// ---- dashboard ----

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	var cached domain.DashboardSummary
	if ok, err := a.cache.Get(r.Context(), dashboardCacheKey, &cached); err == nil && ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := a.svc.Dashboard(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if err := a.cache.Set(r.Context(), dashboardCacheKey, summary, a.dashboardTTL); err != nil {
		log.Printf("[httpapi] WARN: failed to cache dashboard summary: %v", err)
	}
	writeJSON(w, http.StatusOK, summary)
}

// ---- catalog ----

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	categories, err := a.svc.ListCategories(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := domain.ProductFilter{
			CategoryID:   r.URL.Query().Get("category_id"),
			Search:       r.URL.Query().Get("q"),
			Available:    r.URL.Query().Get("available_only") == "true",
			NeedsRestock: r.URL.Query().Get("needs_restock") == "true",
		}
		products, err := a.svc.ListProducts(r.Context(), filter)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		if r.URL.Query().Get("export") == "csv" {
			writeProductsCSV(w, products)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		var req domain.ProductUpsertRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp, err := a.svc.UpsertProduct(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		status := http.StatusOK
		if resp.Outcome == domain.UpsertOutcomeCreated {
			status = http.StatusCreated
		}
		writeJSON(w, status, resp)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/products/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	slug := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			product, err := a.svc.GetProductBySlug(r.Context(), slug)
			if err != nil {
				a.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, product)
		case http.MethodPatch:
			var req domain.ProductUpdateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			product, err := a.svc.EditProduct(r.Context(), slug, req)
			if err != nil {
				a.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, product)
		case http.MethodDelete:
			resp, err := a.svc.DeleteProduct(r.Context(), slug)
			if err != nil {
				a.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	switch parts[1] {
	case "adjust":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.QuantityAdjustRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp, err := a.svc.AdjustQuantity(r.Context(), slug, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case "stock-updates":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		entries, err := a.svc.ListStockUpdates(r.Context(), slug, r.URL.Query().Get("date"), parsePositiveLimit(r, 100))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stock_updates": entries})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// ---- stock ledger ----

func (a *API) handleStockUpdates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	entries, err := a.svc.ListStockUpdates(r.Context(), "", r.URL.Query().Get("date"), parsePositiveLimit(r, 100))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_updates": entries})
}

// ---- sales ----

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := domain.SaleFilter{
			Seller:    r.URL.Query().Get("seller"),
			StartDate: r.URL.Query().Get("start_date"),
			EndDate:   r.URL.Query().Get("end_date"),
		}
		sales, err := a.svc.ListSales(r.Context(), filter, parsePositiveLimit(r, 50))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sale, err := a.svc.CreateSale(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sales/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	saleID := parts[0]

	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	sale, err := a.svc.GetSale(r.Context(), saleID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	if len(parts) == 1 {
		writeJSON(w, http.StatusOK, sale)
		return
	}
	if parts[1] == "receipt" {
		a.writeReceiptPDF(w, sale)
		return
	}
	writeError(w, http.StatusNotFound, "not found")
}

// ---- statements ----

func (a *API) handleStatements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		statements, err := a.svc.ListStatements(r.Context(), parsePositiveLimit(r, 50))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"statements": statements})
	case http.MethodPost:
		var req domain.StatementCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp, err := a.svc.GenerateStatement(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleStatementSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/statements/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	statementID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		statement, err := a.statementByIDOrDate(r, statementID)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		filtered := filterStatementItems(statement.Items, r.URL.Query().Get("filter"))
		writeJSON(w, http.StatusOK, map[string]any{
			"statement": statement,
			"items":     filtered,
		})
		return
	}

	switch parts[1] {
	case "refresh":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		resp, err := a.svc.RefreshStatement(r.Context(), statementID)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case "export":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		statement, err := a.statementByIDOrDate(r, statementID)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeStatementCSV(w, statement)
	case "items":
		if len(parts) != 3 {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if r.Method != http.MethodPatch {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.ReceivedStockUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		item, err := a.svc.UpdateStatementReceived(r.Context(), statementID, parts[2], req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// statementByIDOrDate accepts either a statement id or a YYYY-MM-DD date in
// the path segment.
func (a *API) statementByIDOrDate(r *http.Request, key string) (*domain.InventoryStatement, error) {
	if _, err := time.Parse(domain.DateLayout, key); err == nil {
		return a.svc.GetStatementByDate(r.Context(), key)
	}
	return a.svc.GetStatement(r.Context(), key)
}

func filterStatementItems(items []domain.StatementItem, filter string) []domain.StatementItem {
	if filter == "" {
		return items
	}
	filtered := make([]domain.StatementItem, 0, len(items))
	for _, item := range items {
		switch filter {
		case "sold":
			if item.InvoicedStock > 0 {
				filtered = append(filtered, item)
			}
		case "no_sales":
			if item.InvoicedStock == 0 {
				filtered = append(filtered, item)
			}
		case "restock":
			if item.Remarks == domain.RemarkRestock {
				filtered = append(filtered, item)
			}
		case "low_stock":
			if item.ClosingStock <= 10 {
				filtered = append(filtered, item)
			}
		default:
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// ---- restock suggestions ----

func (a *API) handleRestockSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	products, sold, err := a.svc.ProductsWithRecentSales(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.advisor.Suggest(r.Context(), products, sold))
}

// ---- staff & audit ----

func (a *API) handleStaff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"staff": a.auth.ListStaff()})
	case http.MethodPost:
		var req domain.StaffCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.auth.CreateStaff(req)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	logs, err := a.svc.ListAuditLogs(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"), parsePositiveLimit(r, 100))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- exports ----

func writeProductsCSV(w http.ResponseWriter, products []domain.Product) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Name", "Regular Price", "Bulk Price", "Dozen Price", "Quantity", "Stock Level"})
	for _, p := range products {
		stockLevel := "In Stock"
		if p.Quantity <= p.RestockLevel {
			stockLevel = "Low Stock"
		}
		_ = cw.Write([]string{
			p.Name,
			p.RegularPrice.StringFixed(2),
			p.BulkPrice.StringFixed(2),
			p.DozenPrice.StringFixed(2),
			strconv.Itoa(p.Quantity),
			stockLevel,
		})
	}
	cw.Flush()
}

func writeStatementCSV(w http.ResponseWriter, statement *domain.InventoryStatement) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="inventory_statement_%s.csv"`, statement.Date))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Item Code", "Item Name", "Opening Stock", "Received Stock", "Invoiced Stock", "Closing Stock", "Variance", "Remarks"})
	for _, item := range statement.Items {
		_ = cw.Write([]string{
			item.ProductID,
			item.ProductName,
			strconv.Itoa(item.OpeningStock),
			strconv.Itoa(item.ReceivedStock),
			strconv.Itoa(item.InvoicedStock),
			strconv.Itoa(item.ClosingStock),
			strconv.Itoa(item.Variance),
			item.Remarks,
		})
	}
	cw.Flush()
}

func (a *API) writeReceiptPDF(w http.ResponseWriter, sale *domain.Sale) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Receipt %s", sale.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, a.svc.CompanyName(), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Receipt %s", sale.ID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, sale.SaleDate.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Seller: %s", sale.SellerName), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(70, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(25, 8, "Type", "B", 0, "L", false, 0, "")
	pdf.CellFormat(35, 8, "Unit Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range sale.Items {
		pdf.CellFormat(70, 7, item.ProductName, "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, strconv.Itoa(item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, item.SaleType, "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, item.PricePerUnit.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, item.TotalPrice().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(150, 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, sale.TotalAmount.StringFixed(2), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Printf("[httpapi] failed to render receipt for %s: %v", sale.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt_%s.pdf"`, sale.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ---- middleware ----

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		origin := r.Header.Get("Origin")
		if origin != "" && origin == a.allowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Cross-origin state changes are rejected outright; bearer auth
		// plus this check stands in for CSRF tokens.
		if origin != "" && origin != a.allowedOrigin && r.Method != http.MethodGet {
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

type attemptLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
}

func newAttemptLimiter(limit int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (l *attemptLimiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.attempts[key][:0:0]
	for _, at := range l.attempts[key] {
		if now.Sub(at) < l.window {
			recent = append(recent, at)
		}
	}
	if len(recent) >= l.limit {
		l.attempts[key] = recent
		return false
	}
	l.attempts[key] = append(recent, now)
	return true
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

// ---- helpers ----

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[httpapi] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[httpapi] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parsePositiveLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	return limit
}
