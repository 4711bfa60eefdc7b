package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appintegration "github.com/crm/backend/internal/application/integration"
)

// ShippingOrderCreator creates local web orders
type ShippingOrderCreator interface {
	Create(ctx context.Context, req appintegration.ShippingOrderRequest) (*appintegration.ShippingOrderResponse, error)
}

// ShippingOrderHandler handles web shipping order endpoints
type ShippingOrderHandler struct {
	BaseHandler
	orders ShippingOrderCreator
}

// NewShippingOrderHandler creates a new ShippingOrderHandler
func NewShippingOrderHandler(orders ShippingOrderCreator) *ShippingOrderHandler {
	return &ShippingOrderHandler{orders: orders}
}

// Create godoc
// @Summary      Create a shipping order
// @Description  Matches the contact to an existing customer by ID number, phone or email, creating one when none matches, and stores a pending web order
// @Tags         shipping-orders
// @Accept       json
// @Produce      json
// @Param        request body appintegration.ShippingOrderRequest true "Shipping order"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /shipping-orders [post]
func (h *ShippingOrderHandler) Create(c *gin.Context) {
	var req appintegration.ShippingOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
