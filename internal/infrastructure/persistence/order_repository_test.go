package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/crm/backend/internal/domain/trade"
)

func newImportedOrder(t *testing.T, externalID int64) *trade.Order {
	t.Helper()
	created := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	order, err := trade.NewExternalOrder(uuid.New(), externalID, &created, &created)
	require.NoError(t, err)
	order.Status = trade.OrderStatusProcessing
	order.ShippingAddress = valueobject.Address{FirstName: "Ana", Street: "Calle 10", City: "Bogota", Country: "CO"}
	productID := uuid.New()
	require.NoError(t, order.AddItem(&productID, "Lace Veil", "VEIL-1", 1, decimal.NewFromInt(150000), decimal.Zero, map[string]string{"size": "M"}))
	require.NoError(t, order.AddItem(nil, "Gift Card", "", 2, decimal.NewFromInt(10000), decimal.Zero, nil))
	order.TotalAmount = order.ItemsTotal()
	return order
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	order := newImportedOrder(t, 999)

	require.NoError(t, repo.Create(ctx, order))

	byExternal, err := repo.FindByExternalID(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byExternal.ID)
	assert.Equal(t, "EXT-999", byExternal.OrderNumber)
	assert.Empty(t, byExternal.Items)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bogota", found.ShippingAddress.City)
	assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(170000)))
	require.Len(t, found.Items, 2)

	var mapped, unmapped int
	for _, item := range found.Items {
		if item.ProductID == nil {
			unmapped++
			assert.True(t, item.Subtotal.Equal(decimal.NewFromInt(20000)))
		} else {
			mapped++
			assert.Equal(t, "M", item.Attributes["size"])
		}
	}
	assert.Equal(t, 1, mapped)
	assert.Equal(t, 1, unmapped)

	_, err = repo.FindByExternalID(ctx, 1000)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_DuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	require.NoError(t, repo.Create(ctx, newImportedOrder(t, 999)))

	err := repo.Create(ctx, newImportedOrder(t, 999))

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormOrderRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	order := newImportedOrder(t, 999)
	require.NoError(t, repo.Create(ctx, order))

	require.True(t, order.RefreshStatus(trade.OrderStatusDelivered, trade.PaymentStatusPaid))
	require.NoError(t, repo.UpdateStatus(ctx, order))

	found, err := repo.FindByExternalID(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusDelivered, found.Status)
	assert.Equal(t, trade.PaymentStatusPaid, found.PaymentStatus)

	order.ID = uuid.New()
	assert.ErrorIs(t, repo.UpdateStatus(ctx, order), shared.ErrNotFound)
}
