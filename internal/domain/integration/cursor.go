package integration

import (
	"context"
	"time"
)

// OrderCursorName is the cursor used by the order importer
const OrderCursorName = "orders"

// SyncCursor is the persisted import watermark. It replaces deriving
// "last imported order" from the business tables.
type SyncCursor struct {
	Name           string
	LastExternalID int64
	LastSyncedAt   *time.Time
	UpdatedAt      time.Time
}

// IsZero reports whether the cursor has never advanced
func (c *SyncCursor) IsZero() bool {
	return c == nil || c.LastSyncedAt == nil
}

// Advance moves the watermark forward. Older positions are ignored so a
// cursor never moves backwards.
func (c *SyncCursor) Advance(externalID int64, createdAt time.Time) bool {
	if c.LastSyncedAt != nil {
		if createdAt.Before(*c.LastSyncedAt) {
			return false
		}
		if createdAt.Equal(*c.LastSyncedAt) && externalID <= c.LastExternalID {
			return false
		}
	}
	t := createdAt
	c.LastSyncedAt = &t
	c.LastExternalID = externalID
	c.UpdatedAt = time.Now()
	return true
}

// CursorRepository persists sync cursors
type CursorRepository interface {
	// Get returns the named cursor, or an empty cursor when none is stored
	Get(ctx context.Context, name string) (*SyncCursor, error)
	// Save upserts the cursor
	Save(ctx context.Context, cursor *SyncCursor) error
}
