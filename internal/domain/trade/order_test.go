package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalOrderNumber(t *testing.T) {
	assert.Equal(t, "EXT-999", ExternalOrderNumber(999))
}

func TestNewExternalOrder(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	o, err := NewExternalOrder(uuid.New(), 999, &created, &updated)
	require.NoError(t, err)

	assert.Equal(t, "EXT-999", o.OrderNumber)
	assert.Equal(t, OrderSourceEcommerce, o.Source)
	assert.Equal(t, OrderStatusNew, o.Status)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, created, o.CreatedAt, "remote creation time is preserved")
	assert.Equal(t, updated, o.UpdatedAt)
	require.NotNil(t, o.ExternalID)
	assert.Equal(t, int64(999), *o.ExternalID)
}

func TestNewOrder_RequiresCustomer(t *testing.T) {
	_, err := NewOrder(uuid.Nil, "X-1", OrderSourceWeb)
	assert.Error(t, err)

	_, err = NewOrder(uuid.New(), " ", OrderSourceWeb)
	assert.Error(t, err)
}

func TestOrder_AddItem(t *testing.T) {
	o, err := NewOrder(uuid.New(), "X-1", OrderSourceWeb)
	require.NoError(t, err)

	require.NoError(t, o.AddItem(nil, "Robe", "R-1", 2, decimal.NewFromInt(50), decimal.Zero, nil))
	require.NoError(t, o.AddItem(nil, "Set", "", 1, decimal.NewFromInt(30), decimal.NewFromInt(25), nil))

	assert.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].Subtotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, o.Items[1].Subtotal.Equal(decimal.NewFromInt(25)), "remote subtotal wins")
	assert.True(t, o.ItemsTotal().Equal(decimal.NewFromInt(125)))
	assert.Equal(t, o.ID, o.Items[0].OrderID)

	assert.Error(t, o.AddItem(nil, "Bad", "", 0, decimal.Zero, decimal.Zero, nil))
	assert.Error(t, o.AddItem(nil, "", "", 1, decimal.Zero, decimal.Zero, nil))
}

func TestOrder_RefreshStatus(t *testing.T) {
	o, err := NewOrder(uuid.New(), "X-1", OrderSourceWeb)
	require.NoError(t, err)

	assert.True(t, o.RefreshStatus(OrderStatusDelivered, PaymentStatusPaid))
	assert.False(t, o.RefreshStatus(OrderStatusDelivered, PaymentStatusPaid))
	assert.Equal(t, OrderStatusDelivered, o.Status)
}

func TestOrderStatus_IsValid(t *testing.T) {
	assert.True(t, OrderStatusPending.IsValid())
	assert.False(t, OrderStatus("on-hold").IsValid())
}
