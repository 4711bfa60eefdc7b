package persistence

import (
	"context"

	"gorm.io/gorm"

	appintegration "github.com/crm/backend/internal/application/integration"
	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/trade"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. An error returned by fn
// rolls the transaction back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appintegration.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Repositories returns repositories bound to the scope's connection, outside any transaction
func (s *GormTransactionScope) Repositories() appintegration.TransactionalRepositories {
	return &gormTransactionalRepositories{tx: s.db}
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Customers() partner.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Conflicts() partner.IdentityConflictRepository {
	return NewGormIdentityConflictRepository(r.tx)
}

func (r *gormTransactionalRepositories) Categories() catalog.CategoryRepository {
	return NewGormCategoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Orders() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Cursors() integration.CursorRepository {
	return NewGormCursorRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appintegration.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appintegration.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
