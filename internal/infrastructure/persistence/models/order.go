package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/crm/backend/internal/domain/trade"
)

// OrderModel is the persistence model for the Order aggregate root.
// Items are stored separately and inserted by the repository.
type OrderModel struct {
	BaseModel
	CustomerID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	OrderNumber       string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_order_number"`
	TotalAmount       decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Currency          string              `gorm:"type:varchar(3)"`
	Status            string              `gorm:"type:varchar(20);not null;default:'new';index"`
	PaymentStatus     string              `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentMethod     string              `gorm:"type:varchar(100)"`
	Brand             string              `gorm:"type:varchar(50)"`
	Source            string              `gorm:"type:varchar(20);not null;default:'manual'"`
	ExternalID        *int64              `gorm:"uniqueIndex:idx_orders_external_id"`
	ShippingAddress   valueobject.Address `gorm:"type:jsonb"`
	BillingAddress    valueobject.Address `gorm:"type:jsonb"`
	Notes             string              `gorm:"type:text"`
	ExternalCreatedAt *time.Time
	ExternalUpdatedAt *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order. Items are
// attached by the caller.
func (m *OrderModel) ToDomain() *trade.Order {
	return &trade.Order{
		BaseEntity:        m.BaseModel.ToDomain(),
		CustomerID:        m.CustomerID,
		OrderNumber:       m.OrderNumber,
		TotalAmount:       m.TotalAmount,
		Currency:          m.Currency,
		Status:            trade.OrderStatus(m.Status),
		PaymentStatus:     trade.PaymentStatus(m.PaymentStatus),
		PaymentMethod:     m.PaymentMethod,
		Brand:             m.Brand,
		Source:            trade.OrderSource(m.Source),
		ExternalID:        m.ExternalID,
		ShippingAddress:   m.ShippingAddress,
		BillingAddress:    m.BillingAddress,
		Notes:             m.Notes,
		ExternalCreatedAt: m.ExternalCreatedAt,
		ExternalUpdatedAt: m.ExternalUpdatedAt,
		Items:             make([]trade.OrderItem, 0),
	}
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.CustomerID = o.CustomerID
	m.OrderNumber = o.OrderNumber
	m.TotalAmount = o.TotalAmount
	m.Currency = o.Currency
	m.Status = string(o.Status)
	m.PaymentStatus = string(o.PaymentStatus)
	m.PaymentMethod = o.PaymentMethod
	m.Brand = o.Brand
	m.Source = string(o.Source)
	m.ExternalID = o.ExternalID
	m.ShippingAddress = o.ShippingAddress
	m.BillingAddress = o.BillingAddress
	m.Notes = o.Notes
	m.ExternalCreatedAt = o.ExternalCreatedAt
	m.ExternalUpdatedAt = o.ExternalUpdatedAt
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      *uuid.UUID      `gorm:"type:uuid;index"`
	ProductName    string          `gorm:"type:varchar(255);not null"`
	SKU            string          `gorm:"type:varchar(100)"`
	Quantity       int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AttributesJSON string          `gorm:"type:jsonb;column:attributes"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() trade.OrderItem {
	item := trade.OrderItem{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		SKU:         m.SKU,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Subtotal:    m.Subtotal,
		CreatedAt:   m.CreatedAt,
	}
	if m.AttributesJSON != "" {
		_ = json.Unmarshal([]byte(m.AttributesJSON), &item.Attributes)
	}
	return item
}

// OrderItemModelFromDomain creates a persistence model from a domain OrderItem.
func OrderItemModelFromDomain(orderID uuid.UUID, it trade.OrderItem) *OrderItemModel {
	return &OrderItemModel{
		ID:             it.ID,
		OrderID:        orderID,
		ProductID:      it.ProductID,
		ProductName:    it.ProductName,
		SKU:            it.SKU,
		Quantity:       it.Quantity,
		UnitPrice:      it.UnitPrice,
		Subtotal:       it.Subtotal,
		AttributesJSON: marshalJSON(it.Attributes, "{}"),
		CreatedAt:      it.CreatedAt,
	}
}
