package integration

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/shared/valueobject"
)

// ---------------------------------------------------------------------------
// Remote value objects
// ---------------------------------------------------------------------------

// ProductTypeSimple is the only remote product type mirrored locally
const ProductTypeSimple = "simple"

// RemoteCategory is a category as reported by the platform
type RemoteCategory struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	ParentID    int64 // 0 means top level
}

// RemoteProduct is a product as reported by the platform
type RemoteProduct struct {
	ID            int64
	Name          string
	Type          string
	Status        string
	SKU           string
	Description   string
	Price         string
	StockQuantity *int
	Permalink     string
	CategoryIDs   []int64
	Images        []catalog.Image
	Attributes    catalog.Attributes
}

// IsSimple reports whether the product is a plain single-variant item
func (p RemoteProduct) IsSimple() bool {
	return p.Type == "" || p.Type == ProductTypeSimple
}

// IsPublished reports whether the product is live on the storefront
func (p RemoteProduct) IsPublished() bool {
	return p.Status == "publish"
}

// RemoteLineItem is one line of a remote order
type RemoteLineItem struct {
	ID        int64
	ProductID int64
	Name      string
	SKU       string
	Quantity  int
	Price     string
	Total     string
	Meta      map[string]string
}

// RemoteOrder is an order as reported by the platform
type RemoteOrder struct {
	ID            int64
	Status        string
	Currency      string
	Total         string
	PaymentMethod string
	CustomerNote  string
	DateCreated   *time.Time
	DateModified  *time.Time
	DatePaid      *time.Time
	Billing       valueobject.Address
	Shipping      valueobject.Address
	LineItems     []RemoteLineItem
	Meta          map[string]string
}

// ---------------------------------------------------------------------------
// Paging
// ---------------------------------------------------------------------------

const (
	// DefaultPageSize is the default remote page size
	DefaultPageSize = 100
	// MaxPageSize is the largest page size the platform accepts
	MaxPageSize = 100
)

// PageRequest selects one page of a remote listing
type PageRequest struct {
	Page    int
	PerPage int
}

// Validate clamps page and page size into the accepted range
func (r *PageRequest) Validate() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage <= 0 {
		r.PerPage = DefaultPageSize
	}
	if r.PerPage > MaxPageSize {
		r.PerPage = MaxPageSize
	}
}

// Page is one page of a remote listing
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
}

// HasMore reports whether another page follows. When the platform does not
// report a page count, a full page is taken to mean more may follow.
func (p *Page[T]) HasMore(perPage int) bool {
	if len(p.Items) == 0 {
		return false
	}
	if p.TotalPages > 0 {
		return p.Page < p.TotalPages
	}
	return len(p.Items) >= perPage
}

// ImportableOrderStatuses are the remote statuses pulled by the order importer
var ImportableOrderStatuses = []string{"processing", "completed", "on-hold"}

// OrderQuery selects remote orders, ascending by id
type OrderQuery struct {
	PageRequest
	Statuses []string
	// After restricts to orders created strictly after this instant
	After *time.Time
}

// ---------------------------------------------------------------------------
// Platform port
// ---------------------------------------------------------------------------

// Platform is the port to the external storefront
type Platform interface {
	ListCategories(ctx context.Context, req PageRequest) (*Page[RemoteCategory], error)
	ListProducts(ctx context.Context, req PageRequest) (*Page[RemoteProduct], error)
	ListOrders(ctx context.Context, query OrderQuery) (*Page[RemoteOrder], error)
	UpdateProductStock(ctx context.Context, externalID int64, quantity int) error
}
