package trade

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByExternalID returns the imported order without its items
	FindByExternalID(ctx context.Context, externalID int64) (*Order, error)

	// Create inserts the order row followed by its items
	Create(ctx context.Context, order *Order) error

	// UpdateStatus writes only status and payment status
	UpdateStatus(ctx context.Context, order *Order) error
}
