package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/crm/backend/internal/infrastructure/config"
)

// StorefrontAPIPath is the REST prefix served by FakeStorefront
const StorefrontAPIPath = "/wp-json/wc/v3"

// Fake storefront credentials
const (
	FakeConsumerKey    = "ck_test"
	FakeConsumerSecret = "cs_test"
)

// StoreCategory is a category as served by the fake storefront
type StoreCategory struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Parent int64  `json:"parent"`
}

// StoreCategoryRef links a product to a category
type StoreCategoryRef struct {
	ID int64 `json:"id"`
}

// StoreProduct is a product as served by the fake storefront
type StoreProduct struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Type          string             `json:"type"`
	Status        string             `json:"status"`
	SKU           string             `json:"sku"`
	Price         string             `json:"price"`
	RegularPrice  string             `json:"regular_price"`
	StockQuantity *int               `json:"stock_quantity"`
	Permalink     string             `json:"permalink"`
	Categories    []StoreCategoryRef `json:"categories"`
}

// StoreAddress is a billing or shipping address
type StoreAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// StoreLineItem is an order line
type StoreLineItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
	Total     string `json:"total"`
}

// StoreMeta is one meta_data entry
type StoreMeta struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// StoreOrder is an order as served by the fake storefront
type StoreOrder struct {
	ID             int64           `json:"id"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	Total          string          `json:"total"`
	PaymentMethod  string          `json:"payment_method_title"`
	DateCreatedGMT string          `json:"date_created_gmt"`
	DatePaidGMT    *string         `json:"date_paid_gmt"`
	Billing        StoreAddress    `json:"billing"`
	Shipping       StoreAddress    `json:"shipping"`
	LineItems      []StoreLineItem `json:"line_items"`
	MetaData       []StoreMeta     `json:"meta_data"`
}

// StockWrite is one recorded stock update
type StockWrite struct {
	ProductID     int64
	StockQuantity int
	ManageStock   bool
}

// FakeStorefront is an in-process storefront REST API. It pages results
// with the X-WP-TotalPages and X-WP-Total headers, filters orders by status
// and creation time and records stock writes.
type FakeStorefront struct {
	Server *httptest.Server

	mu         sync.Mutex
	categories []StoreCategory
	products   []StoreProduct
	orders     []StoreOrder
	stock      []StockWrite
	failures   map[string]int
	requests   []string
	faker      *gofakeit.Faker
}

// NewFakeStorefront starts a fake storefront that is shut down when the test ends
func NewFakeStorefront(t *testing.T) *FakeStorefront {
	t.Helper()

	s := &FakeStorefront{
		failures: make(map[string]int),
		faker:    gofakeit.New(42),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

// PlatformConfig returns client settings pointing at the fake
func (s *FakeStorefront) PlatformConfig() config.PlatformConfig {
	return config.PlatformConfig{
		URL:            s.Server.URL,
		ConsumerKey:    FakeConsumerKey,
		ConsumerSecret: FakeConsumerSecret,
		APIPath:        StorefrontAPIPath,
		Timeout:        5 * time.Second,
		RateLimit:      1000,
		RateBurst:      100,
		UserAgent:      "crm-sync-test",
	}
}

// AddCategories appends categories to the catalog
func (s *FakeStorefront) AddCategories(categories ...StoreCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, categories...)
}

// AddProducts appends products to the catalog
func (s *FakeStorefront) AddProducts(products ...StoreProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, products...)
}

// AddOrders appends orders, replacing any with the same id
func (s *FakeStorefront) AddOrders(orders ...StoreOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		replaced := false
		for i := range s.orders {
			if s.orders[i].ID == o.ID {
				s.orders[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			s.orders = append(s.orders, o)
		}
	}
}

// SetOrderStatus changes the remote status of an order
func (s *FakeStorefront) SetOrderStatus(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
		}
	}
}

// Fail makes every request for method and resource path (relative to the
// API prefix, e.g. "/orders") answer with status until cleared with 0.
func (s *FakeStorefront) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// StockWrites returns the recorded stock updates in arrival order
func (s *FakeStorefront) StockWrites() []StockWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StockWrite(nil), s.stock...)
}

// Requests returns "METHOD path?query" for every request received
func (s *FakeStorefront) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Contact returns a billing address with generated names and email and the given phone
func (s *FakeStorefront) Contact(phone string) StoreAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.faker.FirstName()
	last := s.faker.LastName()
	return StoreAddress{
		FirstName: first,
		LastName:  last,
		Address1:  s.faker.Street(),
		City:      s.faker.City(),
		State:     s.faker.State(),
		Postcode:  s.faker.Zip(),
		Country:   "CO",
		Email:     strings.ToLower(s.faker.Email()),
		Phone:     phone,
	}
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

func (s *FakeStorefront) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
	s.mu.Unlock()

	if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") ||
		!strings.Contains(r.Header.Get("Authorization"), `oauth_consumer_key="`+FakeConsumerKey+`"`) {
		writeStoreError(w, http.StatusUnauthorized, "woocommerce_rest_cannot_view")
		return
	}

	path, ok := strings.CutPrefix(r.URL.Path, StorefrontAPIPath)
	if !ok {
		writeStoreError(w, http.StatusNotFound, "rest_no_route")
		return
	}

	s.mu.Lock()
	status, failing := s.failures[r.Method+" "+path]
	s.mu.Unlock()
	if failing {
		writeStoreError(w, status, "injected_failure")
		return
	}

	switch {
	case r.Method == http.MethodGet && path == "/products/categories":
		s.mu.Lock()
		items := append([]StoreCategory(nil), s.categories...)
		s.mu.Unlock()
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		writePage(w, r, items)
	case r.Method == http.MethodGet && path == "/products":
		s.mu.Lock()
		items := append([]StoreProduct(nil), s.products...)
		s.mu.Unlock()
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		writePage(w, r, items)
	case r.Method == http.MethodGet && path == "/orders":
		writePage(w, r, s.filterOrders(r))
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/products/"):
		s.updateStock(w, r, strings.TrimPrefix(path, "/products/"))
	default:
		writeStoreError(w, http.StatusNotFound, "rest_no_route")
	}
}

func (s *FakeStorefront) filterOrders(r *http.Request) []StoreOrder {
	var statuses []string
	if v := r.URL.Query().Get("status"); v != "" {
		statuses = strings.Split(v, ",")
	}
	var after time.Time
	if v := r.URL.Query().Get("after"); v != "" {
		after, _ = time.Parse(time.RFC3339, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StoreOrder, 0, len(s.orders))
	for _, o := range s.orders {
		if len(statuses) > 0 && !containsString(statuses, o.Status) {
			continue
		}
		if !after.IsZero() {
			created, err := time.ParseInLocation("2006-01-02T15:04:05", o.DateCreatedGMT, time.UTC)
			if err == nil && !created.After(after) {
				continue
			}
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *FakeStorefront) updateStock(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeStoreError(w, http.StatusBadRequest, "rest_invalid_param")
		return
	}
	var body struct {
		StockQuantity int  `json:"stock_quantity"`
		ManageStock   bool `json:"manage_stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeStoreError(w, http.StatusBadRequest, "rest_invalid_json")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID != id {
			continue
		}
		qty := body.StockQuantity
		s.products[i].StockQuantity = &qty
		s.stock = append(s.stock, StockWrite{ProductID: id, StockQuantity: qty, ManageStock: body.ManageStock})
		writeJSON(w, http.StatusOK, s.products[i])
		return
	}
	writeStoreError(w, http.StatusNotFound, "woocommerce_rest_product_invalid_id")
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = 10
	}

	if items == nil {
		items = []T{}
	}
	totalPages := (len(items) + perPage - 1) / perPage
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	w.Header().Set("X-WP-Total", strconv.Itoa(len(items)))
	w.Header().Set("X-WP-TotalPages", strconv.Itoa(totalPages))
	writeJSON(w, http.StatusOK, items[start:end])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStoreError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{
		"code":    code,
		"message": http.StatusText(status),
		"data":    map[string]int{"status": status},
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
