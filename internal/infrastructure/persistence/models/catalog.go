package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crm/backend/internal/domain/catalog"
)

// CategoryModel is the persistence model for the Category domain entity.
type CategoryModel struct {
	BaseModel
	Name        string     `gorm:"type:varchar(200);not null"`
	Slug        string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_product_categories_slug"`
	Description string     `gorm:"type:text"`
	Brand       string     `gorm:"type:varchar(50);not null"`
	ExternalID  *int64     `gorm:"uniqueIndex:idx_product_categories_external_id"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "product_categories"
}

// ToDomain converts the persistence model to a domain Category entity.
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		Brand:       catalog.Brand(m.Brand),
		ExternalID:  m.ExternalID,
		ParentID:    m.ParentID,
	}
}

// FromDomain populates the persistence model from a domain Category entity.
func (m *CategoryModel) FromDomain(c *catalog.Category) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.Slug = c.Slug
	m.Description = c.Description
	m.Brand = string(c.Brand)
	m.ExternalID = c.ExternalID
	m.ParentID = c.ParentID
}

// ProductModel is the persistence model for the Product domain entity.
// Images and attributes are stored as JSON text.
type ProductModel struct {
	BaseModel
	Name           string          `gorm:"type:varchar(255);not null"`
	SKU            string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_sku"`
	Description    string          `gorm:"type:text"`
	Price          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Stock          int             `gorm:"not null;default:0"`
	Brand          string          `gorm:"type:varchar(50);not null"`
	CategoryID     *uuid.UUID      `gorm:"type:uuid;index"`
	ExternalID     *int64          `gorm:"uniqueIndex:idx_products_external_id"`
	URL            string          `gorm:"type:varchar(500)"`
	Active         bool            `gorm:"not null;default:true"`
	ImagesJSON     string          `gorm:"type:jsonb;column:images"`
	AttributesJSON string          `gorm:"type:jsonb;column:attributes"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		SKU:         m.SKU,
		Description: m.Description,
		Price:       m.Price,
		Stock:       m.Stock,
		Brand:       catalog.Brand(m.Brand),
		CategoryID:  m.CategoryID,
		ExternalID:  m.ExternalID,
		URL:         m.URL,
		Active:      m.Active,
		Images:      make([]catalog.Image, 0),
		Attributes:  make(catalog.Attributes),
	}
	if m.ImagesJSON != "" {
		_ = json.Unmarshal([]byte(m.ImagesJSON), &p.Images)
	}
	if m.AttributesJSON != "" {
		_ = json.Unmarshal([]byte(m.AttributesJSON), &p.Attributes)
	}
	return p
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Name = p.Name
	m.SKU = p.SKU
	m.Description = p.Description
	m.Price = p.Price
	m.Stock = p.Stock
	m.Brand = string(p.Brand)
	m.CategoryID = p.CategoryID
	m.ExternalID = p.ExternalID
	m.URL = p.URL
	m.Active = p.Active
	m.ImagesJSON = marshalJSON(p.Images, "[]")
	m.AttributesJSON = marshalJSON(p.Attributes, "{}")
}

func marshalJSON(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}
