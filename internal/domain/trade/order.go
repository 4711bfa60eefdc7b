package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
)

// OrderStatus is the local order lifecycle vocabulary
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// IsValid checks if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// PaymentStatus tracks whether an order has been paid
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// OrderSource tags where an order was created
type OrderSource string

const (
	OrderSourceManual    OrderSource = "manual"
	OrderSourceEcommerce OrderSource = "ecommerce"
	OrderSourceWeb       OrderSource = "web"
)

// ExternalOrderNumber is the order number given to imported orders
func ExternalOrderNumber(externalID int64) string {
	return fmt.Sprintf("EXT-%d", externalID)
}

// Order is a customer order. Imported orders carry the remote id in
// ExternalID; at most one local order exists per external id.
type Order struct {
	shared.BaseEntity
	CustomerID        uuid.UUID
	OrderNumber       string
	TotalAmount       decimal.Decimal
	Currency          string
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	PaymentMethod     string
	Brand             string
	Source            OrderSource
	ExternalID        *int64
	ShippingAddress   valueobject.Address
	BillingAddress    valueobject.Address
	Notes             string
	ExternalCreatedAt *time.Time
	ExternalUpdatedAt *time.Time
	Items             []OrderItem
}

// OrderItem is an immutable line snapshot. ProductID is nil when the line
// referenced a product with no local mirror.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   *uuid.UUID
	ProductName string
	SKU         string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	Attributes  map[string]string
	CreatedAt   time.Time
}

// NewOrder creates an order for a customer
func NewOrder(customerID uuid.UUID, orderNumber string, source OrderSource) (*Order, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Order requires a customer")
	}
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}

	return &Order{
		BaseEntity:    shared.NewBaseEntity(),
		CustomerID:    customerID,
		OrderNumber:   orderNumber,
		TotalAmount:   decimal.Zero,
		Status:        OrderStatusNew,
		PaymentStatus: PaymentStatusPending,
		Source:        source,
		Items:         make([]OrderItem, 0),
	}, nil
}

// NewExternalOrder creates an order imported from the external platform.
// Remote timestamps are kept as the order's own creation/update times.
func NewExternalOrder(customerID uuid.UUID, externalID int64, createdAt, updatedAt *time.Time) (*Order, error) {
	o, err := NewOrder(customerID, ExternalOrderNumber(externalID), OrderSourceEcommerce)
	if err != nil {
		return nil, err
	}
	o.ExternalID = &externalID
	o.ExternalCreatedAt = createdAt
	o.ExternalUpdatedAt = updatedAt
	if createdAt != nil {
		o.CreatedAt = *createdAt
	}
	if updatedAt != nil {
		o.UpdatedAt = *updatedAt
	}
	return o, nil
}

// AddItem appends a line. A zero subtotal is computed from quantity and unit price.
func (o *Order) AddItem(productID *uuid.UUID, name, sku string, quantity int, unitPrice, subtotal decimal.Decimal, attrs map[string]string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ITEM_NAME", "Order item needs a product name")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Order item quantity must be positive")
	}
	if subtotal.IsZero() {
		subtotal = unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	}

	o.Items = append(o.Items, OrderItem{
		ID:          uuid.New(),
		OrderID:     o.ID,
		ProductID:   productID,
		ProductName: name,
		SKU:         sku,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    subtotal,
		Attributes:  attrs,
		CreatedAt:   o.CreatedAt,
	})
	return nil
}

// ItemsTotal sums the item subtotals
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal)
	}
	return total
}

// RefreshStatus updates status fields only. Returns whether anything changed.
func (o *Order) RefreshStatus(status OrderStatus, payment PaymentStatus) bool {
	if o.Status == status && o.PaymentStatus == payment {
		return false
	}
	o.Status = status
	o.PaymentStatus = payment
	o.UpdatedAt = time.Now()
	return true
}
