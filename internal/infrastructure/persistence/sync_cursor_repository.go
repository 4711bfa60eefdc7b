package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
)

// GormCursorRepository implements CursorRepository using GORM
type GormCursorRepository struct {
	db *gorm.DB
}

// NewGormCursorRepository creates a new GormCursorRepository
func NewGormCursorRepository(db *gorm.DB) *GormCursorRepository {
	return &GormCursorRepository{db: db}
}

// Get returns the named cursor, or an empty one when it was never saved
func (r *GormCursorRepository) Get(ctx context.Context, name string) (*integration.SyncCursor, error) {
	var model models.SyncCursorModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &integration.SyncCursor{Name: name}, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the cursor by name
func (r *GormCursorRepository) Save(ctx context.Context, cursor *integration.SyncCursor) error {
	if cursor.UpdatedAt.IsZero() {
		cursor.UpdatedAt = time.Now()
	}
	model := models.SyncCursorModelFromDomain(cursor)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_external_id", "last_synced_at", "updated_at"}),
	}).Create(model).Error
}

var _ integration.CursorRepository = (*GormCursorRepository)(nil)
