package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crm/backend/internal/domain/shared"
)

// Image is a product picture reference
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Attributes maps an attribute name to its option values
type Attributes map[string][]string

// Product is a sellable item. Products without an ExternalID are local-only
// and never touched by the sync engine.
type Product struct {
	shared.BaseEntity
	Name        string
	SKU         string
	Description string
	Price       decimal.Decimal
	Stock       int
	Brand       Brand
	CategoryID  *uuid.UUID
	ExternalID  *int64
	URL         string
	Active      bool
	Images      []Image
	Attributes  Attributes
}

// FallbackSKU is the SKU given to mirrored products that have none
func FallbackSKU(externalID int64) string {
	return fmt.Sprintf("WC-%d", externalID)
}

// ProductSnapshot carries the remote fields refreshed on every sync
type ProductSnapshot struct {
	ExternalID  int64
	Name        string
	SKU         string
	Description string
	Price       decimal.Decimal
	Stock       int
	Brand       Brand
	CategoryID  *uuid.UUID
	URL         string
	Active      bool
	Images      []Image
	Attributes  Attributes
}

// NewExternalProduct creates a local mirror of a remote product
func NewExternalProduct(s ProductSnapshot) (*Product, error) {
	p := &Product{
		BaseEntity: shared.NewBaseEntity(),
		ExternalID: &s.ExternalID,
	}
	if err := p.ApplySnapshot(s); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplySnapshot overwrites the synced fields. The SKU falls back to the
// existing SKU, then to WC-{id}, so the unique SKU column is never blank.
func (p *Product) ApplySnapshot(s ProductSnapshot) error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if s.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRODUCT_PRICE", "Product price cannot be negative")
	}

	sku := strings.TrimSpace(s.SKU)
	if sku == "" {
		sku = p.SKU
	}
	if sku == "" {
		sku = FallbackSKU(s.ExternalID)
	}

	brand := s.Brand
	if brand == "" {
		brand = DefaultBrand
	}

	p.Name = name
	p.SKU = sku
	p.Description = s.Description
	p.Price = s.Price
	p.Stock = s.Stock
	p.Brand = brand
	p.CategoryID = s.CategoryID
	p.URL = s.URL
	p.Active = s.Active
	p.Images = s.Images
	p.Attributes = s.Attributes
	p.UpdatedAt = time.Now()
	return nil
}

// IsMapped reports whether the product mirrors a remote product
func (p *Product) IsMapped() bool {
	return p.ExternalID != nil
}
