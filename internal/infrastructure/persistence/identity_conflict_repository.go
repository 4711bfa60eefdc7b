package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
)

// GormIdentityConflictRepository implements IdentityConflictRepository using GORM
type GormIdentityConflictRepository struct {
	db *gorm.DB
}

// NewGormIdentityConflictRepository creates a new GormIdentityConflictRepository
func NewGormIdentityConflictRepository(db *gorm.DB) *GormIdentityConflictRepository {
	return &GormIdentityConflictRepository{db: db}
}

// Create queues a conflict for review
func (r *GormIdentityConflictRepository) Create(ctx context.Context, conflict *partner.IdentityConflict) error {
	return r.db.WithContext(ctx).Create(models.IdentityConflictModelFromDomain(conflict)).Error
}

// ListUnresolved returns the newest unresolved conflicts first
func (r *GormIdentityConflictRepository) ListUnresolved(ctx context.Context, limit int) ([]partner.IdentityConflict, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.IdentityConflictModel
	if err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	conflicts := make([]partner.IdentityConflict, len(rows))
	for i, m := range rows {
		conflicts[i] = m.ToDomain()
	}
	return conflicts, nil
}

var _ partner.IdentityConflictRepository = (*GormIdentityConflictRepository)(nil)
