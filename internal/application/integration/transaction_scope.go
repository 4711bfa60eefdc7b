package integration

import (
	"context"

	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to the sync repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all sync repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	Customers() partner.CustomerRepository
	Conflicts() partner.IdentityConflictRepository
	Categories() catalog.CategoryRepository
	Products() catalog.ProductRepository
	Orders() trade.OrderRepository
	Cursors() integration.CursorRepository
}
