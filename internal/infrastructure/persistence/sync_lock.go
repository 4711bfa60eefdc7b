package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
)

// GormRunLock implements RunLock with a leased row in sync_locks.
// An expired lease is taken over by the next caller.
type GormRunLock struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRunLock creates a new GormRunLock
func NewGormRunLock(db *gorm.DB) *GormRunLock {
	return &GormRunLock{db: db, now: time.Now}
}

// Acquire takes the named lock for ttl and returns the holder token
func (l *GormRunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	now := l.now()

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.SyncLockModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).
			First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.SyncLockModel{
				Name:       name,
				Token:      token,
				AcquiredAt: now,
				ExpiresAt:  now.Add(ttl),
			}).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return integration.ErrSyncAlreadyInProgress
				}
				return err
			}
			return nil
		case err != nil:
			return err
		case current.ExpiresAt.After(now):
			return integration.ErrSyncAlreadyInProgress
		}

		return tx.Model(&models.SyncLockModel{}).
			Where("name = ? AND token = ?", name, current.Token).
			Updates(map[string]any{
				"token":       token,
				"acquired_at": now,
				"expires_at":  now.Add(ttl),
			}).Error
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Release drops the lock if token still holds it
func (l *GormRunLock) Release(ctx context.Context, name, token string) error {
	result := l.db.WithContext(ctx).
		Where("name = ? AND token = ?", name, token).
		Delete(&models.SyncLockModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrSyncLockNotHeld
	}
	return nil
}

var _ integration.RunLock = (*GormRunLock)(nil)
