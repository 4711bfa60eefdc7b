package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appintegration "github.com/crm/backend/internal/application/integration"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/persistence"
)

func TestParsePhases(t *testing.T) {
	phases, err := ParsePhases([]string{"orders", "inventory"})
	require.NoError(t, err)
	assert.Equal(t, []integration.Phase{integration.PhaseOrders, integration.PhaseInventory}, phases)

	phases, err = ParsePhases(nil)
	require.NoError(t, err)
	assert.Empty(t, phases)

	_, err = ParsePhases([]string{"orders", "payments"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestParseMatchKeys(t *testing.T) {
	keys, err := ParseMatchKeys([]string{"phone", "email"})
	require.NoError(t, err)
	assert.Equal(t, []partner.MatchKey{partner.MatchKeyPhone, partner.MatchKeyEmail}, keys)

	_, err = ParseMatchKeys([]string{"passport"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewRunLock(t *testing.T) {
	t.Run("database", func(t *testing.T) {
		cfg := &config.Config{Sync: config.SyncConfig{LockBackend: LockBackendDatabase}}

		lock, closer, err := NewRunLock(cfg, nil)

		require.NoError(t, err)
		assert.IsType(t, &persistence.GormRunLock{}, lock)
		assert.Nil(t, closer)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &config.Config{Sync: config.SyncConfig{LockBackend: "etcd"}}

		_, _, err := NewRunLock(cfg, nil)

		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := &config.Config{
			Sync:  config.SyncConfig{LockBackend: LockBackendRedis},
			Redis: config.RedisConfig{Host: "127.0.0.1", Port: 1},
		}

		_, _, err := NewRunLock(cfg, nil)

		assert.ErrorContains(t, err, "redis run lock")
	})
}

func TestNewServices_WithoutPlatform(t *testing.T) {
	services, err := NewServices(&config.Config{}, nil, Options{})

	require.NoError(t, err)
	assert.Nil(t, services.Orchestrator)
	assert.NotNil(t, services.ShippingOrders)
	assert.NotNil(t, services.Conflicts)
	assert.Len(t, services.HealthChecks(nil), 1)
	assert.NoError(t, services.Close())
}

func TestNewServices_InvalidPhase(t *testing.T) {
	cfg := &config.Config{
		Platform: config.PlatformConfig{URL: "https://shop.example.com", ConsumerKey: "ck", ConsumerSecret: "cs"},
		Sync:     config.SyncConfig{Phases: []string{"refunds"}},
	}

	_, err := NewServices(cfg, nil, Options{Platform: stubPlatform{}})

	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

type stubPlatform struct{}

func (stubPlatform) ListCategories(context.Context, integration.PageRequest) (*integration.Page[integration.RemoteCategory], error) {
	return &integration.Page[integration.RemoteCategory]{}, nil
}

func (stubPlatform) ListProducts(context.Context, integration.PageRequest) (*integration.Page[integration.RemoteProduct], error) {
	return &integration.Page[integration.RemoteProduct]{}, nil
}

func (stubPlatform) ListOrders(context.Context, integration.OrderQuery) (*integration.Page[integration.RemoteOrder], error) {
	return &integration.Page[integration.RemoteOrder]{}, nil
}

func (stubPlatform) UpdateProductStock(context.Context, int64, int) error {
	return nil
}

func TestNewSyncScheduler(t *testing.T) {
	cfg := &config.Config{Sync: config.SyncConfig{ScheduleInterval: time.Minute, RetryAttempts: 1, RetryDelay: time.Second}}

	sched, err := NewSyncScheduler(cfg, &Services{}, nil)
	require.NoError(t, err)
	assert.Nil(t, sched, "no platform configured")

	cfg.Sync.ScheduleInterval = 0
	sched, err = NewSyncScheduler(cfg, &Services{Orchestrator: &appintegration.Orchestrator{}}, nil)
	require.NoError(t, err)
	assert.Nil(t, sched, "interval disabled")

	cfg.Sync.ScheduleInterval = time.Minute
	sched, err = NewSyncScheduler(cfg, &Services{Orchestrator: &appintegration.Orchestrator{}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, sched)
}
