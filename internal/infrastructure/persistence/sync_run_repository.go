package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
)

// GormRunRepository implements RunRepository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Start records a run as in progress
func (r *GormRunRepository) Start(ctx context.Context, summary *integration.RunSummary) error {
	return r.db.WithContext(ctx).Create(models.SyncRunModelFromDomain(summary)).Error
}

// Finish stores the final status and phase results of a run
func (r *GormRunRepository) Finish(ctx context.Context, summary *integration.RunSummary) error {
	model := models.SyncRunModelFromDomain(summary)
	result := r.db.WithContext(ctx).Model(&models.SyncRunModel{}).
		Where("id = ?", summary.RunID).
		Updates(map[string]any{
			"status":      model.Status,
			"finished_at": model.FinishedAt,
			"phases":      model.PhasesJSON,
			"error":       model.Error,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListRecent returns the latest runs, newest first
func (r *GormRunRepository) ListRecent(ctx context.Context, limit int) ([]integration.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	runs := make([]integration.RunSummary, len(rows))
	for i, m := range rows {
		runs[i] = m.ToDomain()
	}
	return runs, nil
}

var _ integration.RunRepository = (*GormRunRepository)(nil)
