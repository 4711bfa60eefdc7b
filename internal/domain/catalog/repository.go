package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/crm/backend/internal/domain/shared"
)

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	FindByExternalID(ctx context.Context, externalID int64) (*Category, error)
	Create(ctx context.Context, category *Category) error
	Update(ctx context.Context, category *Category) error
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByExternalID(ctx context.Context, externalID int64) (*Product, error)

	// FindIDsByExternalIDs maps external ids to local ids; unmapped ids are absent
	FindIDsByExternalIDs(ctx context.Context, externalIDs []int64) (map[int64]uuid.UUID, error)

	// FindMapped lists products carrying an external id, ordered by external id
	FindMapped(ctx context.Context, filter shared.Filter) ([]Product, error)

	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
}
