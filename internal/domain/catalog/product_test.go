package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExternalProduct(t *testing.T) {
	p, err := NewExternalProduct(ProductSnapshot{
		ExternalID: 42,
		Name:       "Silk Robe",
		Price:      decimal.RequireFromString("89.90"),
		Stock:      3,
		Active:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "WC-42", p.SKU)
	assert.Equal(t, DefaultBrand, p.Brand)
	assert.True(t, p.IsMapped())
	assert.True(t, p.Price.Equal(decimal.RequireFromString("89.9")))
}

func TestProduct_ApplySnapshot(t *testing.T) {
	p, err := NewExternalProduct(ProductSnapshot{ExternalID: 1, Name: "A", SKU: "SKU-A"})
	require.NoError(t, err)

	t.Run("blank sku keeps existing", func(t *testing.T) {
		require.NoError(t, p.ApplySnapshot(ProductSnapshot{ExternalID: 1, Name: "A2"}))
		assert.Equal(t, "SKU-A", p.SKU)
		assert.Equal(t, "A2", p.Name)
	})

	t.Run("negative price rejected", func(t *testing.T) {
		err := p.ApplySnapshot(ProductSnapshot{ExternalID: 1, Name: "A", Price: decimal.NewFromInt(-1)})
		assert.Error(t, err)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := p.ApplySnapshot(ProductSnapshot{ExternalID: 1})
		assert.Error(t, err)
	})
}
