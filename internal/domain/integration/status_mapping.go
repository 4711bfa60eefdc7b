package integration

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crm/backend/internal/domain/trade"
)

// MapOrderStatus converts a remote order status into the local vocabulary.
// Unknown statuses map to trade.OrderStatusNew.
func MapOrderStatus(remote string) trade.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "pending":
		return trade.OrderStatusPending
	case "processing":
		return trade.OrderStatusProcessing
	case "on-hold":
		return trade.OrderStatusPending
	case "completed":
		return trade.OrderStatusDelivered
	case "cancelled", "failed":
		return trade.OrderStatusCancelled
	case "refunded":
		return trade.OrderStatusRefunded
	default:
		return trade.OrderStatusNew
	}
}

// MapPaymentStatus derives the local payment status of a remote order
func MapPaymentStatus(remoteStatus string, datePaid *time.Time) trade.PaymentStatus {
	if strings.EqualFold(strings.TrimSpace(remoteStatus), "refunded") {
		return trade.PaymentStatusRefunded
	}
	if datePaid != nil && !datePaid.IsZero() {
		return trade.PaymentStatusPaid
	}
	return trade.PaymentStatusPending
}

// ParseAmount parses a remote money string. Malformed or negative values
// become zero so a bad price never fails an item.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
