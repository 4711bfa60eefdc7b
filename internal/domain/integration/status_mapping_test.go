package integration

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/crm/backend/internal/domain/trade"
)

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		remote string
		want   trade.OrderStatus
	}{
		{"pending", trade.OrderStatusPending},
		{"processing", trade.OrderStatusProcessing},
		{"on-hold", trade.OrderStatusPending},
		{"ON-HOLD", trade.OrderStatusPending},
		{"completed", trade.OrderStatusDelivered},
		{"cancelled", trade.OrderStatusCancelled},
		{"failed", trade.OrderStatusCancelled},
		{"refunded", trade.OrderStatusRefunded},
		{"checkout-draft", trade.OrderStatusNew},
		{"", trade.OrderStatusNew},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			assert.Equal(t, tt.want, MapOrderStatus(tt.remote))
		})
	}
}

func TestMapOrderStatus_Deterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t, trade.OrderStatusPending, MapOrderStatus("on-hold"))
		assert.Equal(t, trade.OrderStatusNew, MapOrderStatus("mystery"))
	}
}

func TestMapPaymentStatus(t *testing.T) {
	paid := time.Now()

	assert.Equal(t, trade.PaymentStatusPaid, MapPaymentStatus("completed", &paid))
	assert.Equal(t, trade.PaymentStatusPending, MapPaymentStatus("on-hold", nil))
	assert.Equal(t, trade.PaymentStatusPending, MapPaymentStatus("processing", &time.Time{}))
	assert.Equal(t, trade.PaymentStatusRefunded, MapPaymentStatus("refunded", &paid))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"89.90", "89.9"},
		{" 12 ", "12"},
		{"", "0"},
		{"abc", "0"},
		{"-5", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(ParseAmount(tt.in)))
		})
	}
}
