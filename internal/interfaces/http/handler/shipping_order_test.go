package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appintegration "github.com/crm/backend/internal/application/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/interfaces/http/dto"
)

// MockShippingOrderCreator is a mock implementation of ShippingOrderCreator
type MockShippingOrderCreator struct {
	mock.Mock
}

func (m *MockShippingOrderCreator) Create(ctx context.Context, req appintegration.ShippingOrderRequest) (*appintegration.ShippingOrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.ShippingOrderResponse), args.Error(1)
}

const validShippingOrder = `{
	"contact": {"first_name": "Ana", "last_name": "Gomez", "phone": "300 123 4567"},
	"address": {"street": "Calle 10 # 5-20", "city": "Bogota", "country": "CO"},
	"items": [{"name": "Bride Veil", "quantity": 1, "unit_price": "150000"}]
}`

func postShippingOrder(h *ShippingOrderHandler, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/shipping-orders", h.Create)
	req := httptest.NewRequest(http.MethodPost, "/shipping-orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestShippingOrderHandler_Create(t *testing.T) {
	orders := new(MockShippingOrderCreator)
	created := &appintegration.ShippingOrderResponse{
		CustomerID:  uuid.New(),
		OrderID:     uuid.New(),
		OrderNumber: "WEB-20261019-A1B2C3",
		Total:       decimal.NewFromInt(150000),
		Matched:     true,
		MatchedBy:   partner.MatchKeyPhone,
	}
	orders.On("Create", mock.Anything, mock.MatchedBy(func(req appintegration.ShippingOrderRequest) bool {
		return req.Contact.Phone == "300 123 4567" &&
			len(req.Items) == 1 &&
			req.Items[0].UnitPrice != nil && req.Items[0].UnitPrice.Equal(decimal.NewFromInt(150000))
	})).Return(created, nil).Once()

	w := postShippingOrder(NewShippingOrderHandler(orders), validShippingOrder)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "WEB-20261019-A1B2C3", data["order_number"])
	assert.Equal(t, "phone", data["matched_by"])
	assert.Equal(t, true, data["matched"])
	orders.AssertExpectations(t)
}

func TestShippingOrderHandler_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "missing items",
			body:      `{"contact":{"first_name":"Ana","phone":"3001234567"},"address":{"street":"x","city":"y"},"items":[]}`,
			wantField: "items",
		},
		{
			name:      "no phone or email",
			body:      `{"contact":{"first_name":"Ana"},"address":{"street":"x","city":"y"},"items":[{"name":"a","quantity":1}]}`,
			wantField: "contact.phone",
		},
		{
			name:      "zero quantity",
			body:      `{"contact":{"first_name":"Ana","email":"ana@example.com"},"address":{"street":"x","city":"y"},"items":[{"name":"a","quantity":0}]}`,
			wantField: "items[0].quantity",
		},
		{
			name:      "bad email",
			body:      `{"contact":{"first_name":"Ana","email":"nope"},"address":{"street":"x","city":"y"},"items":[{"name":"a","quantity":1}]}`,
			wantField: "contact.email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockShippingOrderCreator)

			w := postShippingOrder(NewShippingOrderHandler(orders), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			fields := make([]string, 0, len(resp.Error.Details))
			for _, d := range resp.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.wantField)
			orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestShippingOrderHandler_UnknownProduct(t *testing.T) {
	orders := new(MockShippingOrderCreator)
	orders.On("Create", mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")).Once()

	w := postShippingOrder(NewShippingOrderHandler(orders), validShippingOrder)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}
