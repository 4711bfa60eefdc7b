package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
)

// SyncCursorModel stores the import watermark of a named cursor.
type SyncCursorModel struct {
	Name           string `gorm:"type:varchar(50);primary_key"`
	LastExternalID int64  `gorm:"not null;default:0"`
	LastSyncedAt   *time.Time
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncCursorModel) TableName() string {
	return "sync_cursors"
}

// ToDomain converts the persistence model to a domain SyncCursor.
func (m *SyncCursorModel) ToDomain() *integration.SyncCursor {
	return &integration.SyncCursor{
		Name:           m.Name,
		LastExternalID: m.LastExternalID,
		LastSyncedAt:   m.LastSyncedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// SyncCursorModelFromDomain creates a persistence model from a domain SyncCursor.
func SyncCursorModelFromDomain(c *integration.SyncCursor) *SyncCursorModel {
	return &SyncCursorModel{
		Name:           c.Name,
		LastExternalID: c.LastExternalID,
		LastSyncedAt:   c.LastSyncedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// SyncLockModel is a leased run lock row.
type SyncLockModel struct {
	Name       string    `gorm:"type:varchar(100);primary_key"`
	Token      string    `gorm:"type:varchar(64);not null"`
	AcquiredAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLockModel) TableName() string {
	return "sync_locks"
}

// SyncRunModel records one sync run. Phase results are kept as JSON.
type SyncRunModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Trigger    string    `gorm:"type:varchar(20);not null"`
	Status     string    `gorm:"type:varchar(20);not null;index"`
	StartedAt  time.Time `gorm:"not null;index"`
	FinishedAt *time.Time
	PhasesJSON string `gorm:"type:jsonb;column:phases"`
	Error      string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain RunSummary.
func (m *SyncRunModel) ToDomain() integration.RunSummary {
	s := integration.RunSummary{
		RunID:      m.ID,
		Trigger:    integration.Trigger(m.Trigger),
		Status:     integration.SyncStatus(m.Status),
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Phases:     make([]*integration.PhaseResult, 0),
		Error:      m.Error,
	}
	if m.PhasesJSON != "" {
		_ = json.Unmarshal([]byte(m.PhasesJSON), &s.Phases)
	}
	return s
}

// SyncRunModelFromDomain creates a persistence model from a domain RunSummary.
func SyncRunModelFromDomain(s *integration.RunSummary) *SyncRunModel {
	return &SyncRunModel{
		ID:         s.RunID,
		Trigger:    string(s.Trigger),
		Status:     string(s.Status),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		PhasesJSON: marshalJSON(s.Phases, "[]"),
		Error:      s.Error,
	}
}

// IdentityConflictModel is a queued identity conflict.
type IdentityConflictModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key"`
	Source             string     `gorm:"type:varchar(50);not null"`
	IDNumber           string     `gorm:"type:varchar(50)"`
	Phone              string     `gorm:"type:varchar(50)"`
	Email              string     `gorm:"type:varchar(200)"`
	IDNumberCustomerID *uuid.UUID `gorm:"type:uuid"`
	PhoneCustomerID    *uuid.UUID `gorm:"type:uuid"`
	EmailCustomerID    *uuid.UUID `gorm:"type:uuid"`
	ChosenCustomerID   uuid.UUID  `gorm:"type:uuid;not null"`
	Resolved           bool       `gorm:"not null;default:false;index"`
	CreatedAt          time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IdentityConflictModel) TableName() string {
	return "identity_conflicts"
}

// ToDomain converts the persistence model to a domain IdentityConflict.
func (m *IdentityConflictModel) ToDomain() partner.IdentityConflict {
	return partner.IdentityConflict{
		ID:     m.ID,
		Source: m.Source,
		Identifiers: partner.Identifiers{
			IDNumber: m.IDNumber,
			Phone:    m.Phone,
			Email:    m.Email,
		},
		IDNumberCustomerID: m.IDNumberCustomerID,
		PhoneCustomerID:    m.PhoneCustomerID,
		EmailCustomerID:    m.EmailCustomerID,
		ChosenCustomerID:   m.ChosenCustomerID,
		Resolved:           m.Resolved,
		CreatedAt:          m.CreatedAt,
	}
}

// IdentityConflictModelFromDomain creates a persistence model from a domain IdentityConflict.
func IdentityConflictModelFromDomain(c *partner.IdentityConflict) *IdentityConflictModel {
	return &IdentityConflictModel{
		ID:                 c.ID,
		Source:             c.Source,
		IDNumber:           c.Identifiers.IDNumber,
		Phone:              c.Identifiers.Phone,
		Email:              c.Identifiers.Email,
		IDNumberCustomerID: c.IDNumberCustomerID,
		PhoneCustomerID:    c.PhoneCustomerID,
		EmailCustomerID:    c.EmailCustomerID,
		ChosenCustomerID:   c.ChosenCustomerID,
		Resolved:           c.Resolved,
		CreatedAt:          c.CreatedAt,
	}
}
