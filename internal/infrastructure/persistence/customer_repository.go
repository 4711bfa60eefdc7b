package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDNumber finds the oldest customer with the given national ID number
func (r *GormCustomerRepository) FindByIDNumber(ctx context.Context, idNumber string) (*partner.Customer, error) {
	idNumber = strings.TrimSpace(idNumber)
	if idNumber == "" {
		return nil, shared.NewDomainError("INVALID_ID_NUMBER", "ID number cannot be empty")
	}
	return r.first(ctx, r.db.WithContext(ctx).Where("id_number = ?", idNumber))
}

// FindByAnyPhone finds the oldest customer whose stored phone equals one of
// the candidate spellings
func (r *GormCustomerRepository) FindByAnyPhone(ctx context.Context, candidates []string) (*partner.Customer, error) {
	if len(candidates) == 0 {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone cannot be empty")
	}
	return r.first(ctx, r.db.WithContext(ctx).Where("phone IN ?", candidates))
}

// FindByEmail finds the oldest customer by email, case-insensitive
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, email string) (*partner.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	return r.first(ctx, r.db.WithContext(ctx).Where("LOWER(email) = ?", email))
}

func (r *GormCustomerRepository) first(ctx context.Context, query *gorm.DB) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := query.Order("created_at ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new customer
func (r *GormCustomerRepository) Create(ctx context.Context, customer *partner.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update saves changes to an existing customer
func (r *GormCustomerRepository) Update(ctx context.Context, customer *partner.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	result := r.db.WithContext(ctx).Model(&models.CustomerModel{}).
		Where("id = ?", customer.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
