package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/shared"
)

func TestGormCursorRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCursorRepository(newTestDB(t))

	cursor, err := repo.Get(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, cursor.IsZero())
	assert.Equal(t, "orders", cursor.Name)

	first := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	require.True(t, cursor.Advance(999, first))
	require.NoError(t, repo.Save(ctx, cursor))

	second := first.Add(time.Hour)
	require.True(t, cursor.Advance(1003, second))
	require.NoError(t, repo.Save(ctx, cursor))

	stored, err := repo.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(1003), stored.LastExternalID)
	require.NotNil(t, stored.LastSyncedAt)
	assert.True(t, stored.LastSyncedAt.Equal(second))
}

func TestGormRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRunRepository(newTestDB(t))

	older := integration.NewRunSummary(integration.TriggerCLI)
	older.StartedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Start(ctx, older))

	run := integration.NewRunSummary(integration.TriggerHTTP)
	require.NoError(t, repo.Start(ctx, run))

	orders := integration.NewPhaseResult(integration.PhaseOrders)
	orders.RecordCreated()
	orders.RecordFailure("1002", errors.New("invalid quantity"))
	orders.Complete(nil)
	run.AddPhase(orders)
	run.Finish(nil)
	require.NoError(t, repo.Finish(ctx, run))

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest := runs[0]
	assert.Equal(t, run.RunID, latest.RunID)
	assert.Equal(t, integration.TriggerHTTP, latest.Trigger)
	assert.Equal(t, integration.SyncStatusPartial, latest.Status)
	assert.NotNil(t, latest.FinishedAt)
	require.Len(t, latest.Phases, 1)
	assert.Equal(t, 1, latest.Phases[0].Created)
	assert.Equal(t, "1002", latest.Phases[0].Failures[0].ItemID)

	assert.Equal(t, integration.SyncStatusInProgress, runs[1].Status)

	missing := integration.NewRunSummary(integration.TriggerCLI)
	assert.ErrorIs(t, repo.Finish(ctx, missing), shared.ErrNotFound)
}

func TestGormIdentityConflictRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormIdentityConflictRepository(newTestDB(t))
	phoneOwner, emailOwner := uuid.New(), uuid.New()

	conflict := partner.NewIdentityConflict("order:999",
		partner.Identifiers{Phone: "3001234567", Email: "Ana@Example.com"},
		map[partner.MatchKey]uuid.UUID{partner.MatchKeyPhone: phoneOwner, partner.MatchKeyEmail: emailOwner},
		phoneOwner)
	require.NotNil(t, conflict)
	require.NoError(t, repo.Create(ctx, conflict))

	conflicts, err := repo.ListUnresolved(ctx, 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	got := conflicts[0]
	assert.Equal(t, "order:999", got.Source)
	assert.Equal(t, "ana@example.com", got.Identifiers.Email)
	assert.Equal(t, phoneOwner, got.ChosenCustomerID)
	require.NotNil(t, got.EmailCustomerID)
	assert.Equal(t, emailOwner, *got.EmailCustomerID)
	assert.Nil(t, got.IDNumberCustomerID)
	assert.False(t, got.Resolved)
}
