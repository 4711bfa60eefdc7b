package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByIDNumber finds a customer by national ID number
	FindByIDNumber(ctx context.Context, idNumber string) (*Customer, error)

	// FindByAnyPhone finds the oldest customer whose phone equals any of the candidates
	FindByAnyPhone(ctx context.Context, candidates []string) (*Customer, error)

	// FindByEmail finds a customer by email, case-insensitive
	FindByEmail(ctx context.Context, email string) (*Customer, error)

	// Create inserts a new customer
	Create(ctx context.Context, customer *Customer) error

	// Update saves changes to an existing customer
	Update(ctx context.Context, customer *Customer) error
}

// IdentityConflictRepository persists identity conflicts for manual review
type IdentityConflictRepository interface {
	Create(ctx context.Context, conflict *IdentityConflict) error
	ListUnresolved(ctx context.Context, limit int) ([]IdentityConflict, error)
}
