package integration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/trade"
	"github.com/crm/backend/internal/infrastructure/logger"
)

const (
	webOrderPrefix   = "WEB"
	defaultCurrency  = "COP"
	orderSuffixBytes = 3
)

// ShippingOrderService creates local web orders for a contact, resolving the
// contact with all three identifiers before creating a customer.
type ShippingOrderService struct {
	scope   TransactionScope
	matcher *IdentityMatcher
	now     func() time.Time
	logger  *zap.Logger
}

// NewShippingOrderService creates a new ShippingOrderService
func NewShippingOrderService(scope TransactionScope, matcher *IdentityMatcher, logger *zap.Logger) *ShippingOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShippingOrderService{
		scope:   scope,
		matcher: matcher,
		now:     time.Now,
		logger:  logger,
	}
}

// Create matches or creates the customer and stores a pending order, all in
// one transaction.
func (s *ShippingOrderService) Create(ctx context.Context, req ShippingOrderRequest) (*ShippingOrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("INVALID_ITEMS", "Shipping order needs at least one item")
	}
	ids := req.Contact.Identifiers()
	if ids.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Contact needs an ID number, phone or email")
	}

	number, err := s.orderNumber()
	if err != nil {
		return nil, err
	}

	resp := &ShippingOrderResponse{OrderNumber: number}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		match, err := s.matcher.Match(ctx, repos.Customers(), repos.Conflicts(), partner.WebConflictSource(number), ids)
		if err != nil {
			return err
		}

		items, err := resolveShippingItems(ctx, repos.Products(), req.Items)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, it.name)
		}
		brand := catalog.InferBrand(names...)

		address := req.ToAddress()
		customer := match.Customer
		if match.Matched() {
			changed := customer.RefreshAddress(address)
			if customer.FillMissingContact(ids) {
				changed = true
			}
			if changed {
				if err := repos.Customers().Update(ctx, customer); err != nil {
					return fmt.Errorf("refresh customer: %w", err)
				}
			}
		} else {
			customer, err = partner.NewCustomer(req.Contact.FirstName, req.Contact.LastName, ids, partner.CustomerSourceWeb)
			if err != nil {
				return err
			}
			customer.Brand = brand.String()
			customer.RefreshAddress(address)
			if err := repos.Customers().Create(ctx, customer); err != nil {
				return fmt.Errorf("create customer: %w", err)
			}
		}

		order, err := trade.NewOrder(customer.ID, number, trade.OrderSourceWeb)
		if err != nil {
			return err
		}
		order.Status = trade.OrderStatusPending
		order.Currency = req.Currency
		if order.Currency == "" {
			order.Currency = defaultCurrency
		}
		order.PaymentMethod = req.PaymentMethod
		order.Brand = brand.String()
		order.ShippingAddress = address
		order.BillingAddress = address
		order.Notes = req.Notes
		for _, it := range items {
			if err := order.AddItem(it.productID, it.name, it.sku, it.quantity, it.unitPrice, decimal.Zero, nil); err != nil {
				return err
			}
		}
		order.TotalAmount = order.ItemsTotal()

		if err := repos.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		resp.CustomerID = customer.ID
		resp.OrderID = order.ID
		resp.Total = order.TotalAmount
		resp.Matched = match.Matched()
		resp.MatchedBy = match.MatchedBy
		resp.Conflict = match.Conflict != nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx, s.logger).Info("Shipping order created",
		zap.String("order_number", resp.OrderNumber),
		zap.String("customer_id", resp.CustomerID.String()),
		zap.Bool("matched", resp.Matched),
		zap.String("matched_by", string(resp.MatchedBy)),
	)
	return resp, nil
}

// orderNumber returns WEB-{yyyymmdd}-{6 hex}
func (s *ShippingOrderService) orderNumber() (string, error) {
	b := make([]byte, orderSuffixBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("order number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", webOrderPrefix, s.now().Format("20060102"), strings.ToUpper(hex.EncodeToString(b))), nil
}

type shippingItem struct {
	productID *uuid.UUID
	name      string
	sku       string
	quantity  int
	unitPrice decimal.Decimal
}

// resolveShippingItems fills item fields from the referenced products
func resolveShippingItems(ctx context.Context, products catalog.ProductRepository, in []ShippingOrderItemRequest) ([]shippingItem, error) {
	out := make([]shippingItem, 0, len(in))
	for idx, req := range in {
		it := shippingItem{
			productID: req.ProductID,
			name:      strings.TrimSpace(req.Name),
			sku:       strings.TrimSpace(req.SKU),
			quantity:  req.Quantity,
			unitPrice: decimal.Zero,
		}
		if req.UnitPrice != nil {
			it.unitPrice = *req.UnitPrice
		}
		if req.ProductID != nil {
			product, err := products.FindByID(ctx, *req.ProductID)
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", fmt.Sprintf("Item %d references an unknown product", idx+1))
			}
			if err != nil {
				return nil, err
			}
			if it.name == "" {
				it.name = product.Name
			}
			if it.sku == "" {
				it.sku = product.SKU
			}
			if req.UnitPrice == nil {
				it.unitPrice = product.Price
			}
		}
		if it.unitPrice.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE", fmt.Sprintf("Item %d has a negative price", idx+1))
		}
		out = append(out, it)
	}
	return out, nil
}
