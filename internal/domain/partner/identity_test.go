package partner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifiers_Normalize(t *testing.T) {
	ids := Identifiers{IDNumber: " 1020 ", Phone: " 300 ", Email: "  Ana@Example.COM "}.Normalize()

	assert.Equal(t, "1020", ids.IDNumber)
	assert.Equal(t, "300", ids.Phone)
	assert.Equal(t, "ana@example.com", ids.Email)
}

func TestIdentifiers_IsEmpty(t *testing.T) {
	assert.True(t, Identifiers{}.IsEmpty())
	assert.True(t, Identifiers{Email: "  "}.IsEmpty())
	assert.False(t, Identifiers{Phone: "3001234567"}.IsEmpty())
}

func TestIdentifiers_Only(t *testing.T) {
	ids := Identifiers{IDNumber: "1", Phone: "2", Email: "3"}

	assert.Equal(t, Identifiers{Email: "3"}, ids.Only(MatchKeyEmail))
	assert.Equal(t, Identifiers{IDNumber: "1", Phone: "2"}, ids.Only(MatchKeyIDNumber, MatchKeyPhone))
}

func TestNewIdentityConflict(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("same customer is not a conflict", func(t *testing.T) {
		c := NewIdentityConflict("order:1", Identifiers{}, map[MatchKey]uuid.UUID{
			MatchKeyIDNumber: a,
			MatchKeyEmail:    a,
		}, a)
		assert.Nil(t, c)
	})

	t.Run("different customers are recorded", func(t *testing.T) {
		c := NewIdentityConflict("order:1", Identifiers{Email: "X@y.z"}, map[MatchKey]uuid.UUID{
			MatchKeyIDNumber: a,
			MatchKeyPhone:    b,
		}, a)
		require.NotNil(t, c)
		assert.Equal(t, a, *c.IDNumberCustomerID)
		assert.Equal(t, b, *c.PhoneCustomerID)
		assert.Nil(t, c.EmailCustomerID)
		assert.Equal(t, a, c.ChosenCustomerID)
		assert.Equal(t, "x@y.z", c.Identifiers.Email)
		assert.False(t, c.Resolved)
	})
}

func TestConflictSources(t *testing.T) {
	assert.Equal(t, "order:999", OrderConflictSource(999))
	assert.Equal(t, "web:WEB-20261019-0A1B2C", WebConflictSource("WEB-20261019-0A1B2C"))
}
