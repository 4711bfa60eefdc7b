package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/integration"
)

// WooCommerceAdapter implements integration.Platform on top of the signed client
type WooCommerceAdapter struct {
	client *WooCommerceClient
}

// NewWooCommerceAdapter creates a new adapter
func NewWooCommerceAdapter(client *WooCommerceClient) *WooCommerceAdapter {
	return &WooCommerceAdapter{client: client}
}

// ListCategories fetches one page of product categories
func (a *WooCommerceAdapter) ListCategories(ctx context.Context, req integration.PageRequest) (*integration.Page[integration.RemoteCategory], error) {
	req.Validate()
	var payload []WooCommerceCategory
	meta, err := a.client.Do(ctx, http.MethodGet, "/products/categories", pageQuery(req), nil, &payload)
	if err != nil {
		return nil, err
	}

	page := &integration.Page[integration.RemoteCategory]{
		Items:      make([]integration.RemoteCategory, 0, len(payload)),
		Page:       req.Page,
		TotalPages: meta.TotalPages,
	}
	for _, c := range payload {
		page.Items = append(page.Items, c.toRemote())
	}
	return page, nil
}

// ListProducts fetches one page of products, ascending by id
func (a *WooCommerceAdapter) ListProducts(ctx context.Context, req integration.PageRequest) (*integration.Page[integration.RemoteProduct], error) {
	req.Validate()
	var payload []WooCommerceProduct
	meta, err := a.client.Do(ctx, http.MethodGet, "/products", pageQuery(req), nil, &payload)
	if err != nil {
		return nil, err
	}

	page := &integration.Page[integration.RemoteProduct]{
		Items:      make([]integration.RemoteProduct, 0, len(payload)),
		Page:       req.Page,
		TotalPages: meta.TotalPages,
	}
	for _, p := range payload {
		page.Items = append(page.Items, p.toRemote())
	}
	return page, nil
}

// ListOrders fetches one page of orders, ascending by id
func (a *WooCommerceAdapter) ListOrders(ctx context.Context, q integration.OrderQuery) (*integration.Page[integration.RemoteOrder], error) {
	q.Validate()
	query := pageQuery(q.PageRequest)
	if len(q.Statuses) > 0 {
		query.Set("status", strings.Join(q.Statuses, ","))
	}
	if q.After != nil {
		query.Set("after", q.After.UTC().Format(time.RFC3339))
	}

	var payload []WooCommerceOrder
	meta, err := a.client.Do(ctx, http.MethodGet, "/orders", query, nil, &payload)
	if err != nil {
		return nil, err
	}

	page := &integration.Page[integration.RemoteOrder]{
		Items:      make([]integration.RemoteOrder, 0, len(payload)),
		Page:       q.Page,
		TotalPages: meta.TotalPages,
	}
	for _, o := range payload {
		page.Items = append(page.Items, o.toRemote())
	}
	return page, nil
}

// UpdateProductStock overwrites the remote stock level of a product
func (a *WooCommerceAdapter) UpdateProductStock(ctx context.Context, externalID int64, quantity int) error {
	if externalID <= 0 {
		return fmt.Errorf("%w: invalid product id %d", integration.ErrRemoteRequestFailed, externalID)
	}
	body := WooCommerceStockUpdate{StockQuantity: quantity, ManageStock: true}
	_, err := a.client.Do(ctx, http.MethodPut, "/products/"+strconv.FormatInt(externalID, 10), nil, body, nil)
	return err
}

func pageQuery(req integration.PageRequest) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("per_page", strconv.Itoa(req.PerPage))
	q.Set("orderby", "id")
	q.Set("order", "asc")
	return q
}

// Ensure WooCommerceAdapter implements Platform
var _ integration.Platform = (*WooCommerceAdapter)(nil)
