// Package bootstrap builds the sync services from configuration. It is shared
// by the sync command and the HTTP server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gorm.io/gorm"

	appintegration "github.com/crm/backend/internal/application/integration"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/ecommerce"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/router"
)

// Lock backends accepted in sync.lock_backend
const (
	LockBackendDatabase = "database"
	LockBackendRedis    = "redis"
)

// Options replace pieces that would otherwise be built from configuration
type Options struct {
	// Platform replaces the storefront client built from the platform section
	Platform integration.Platform
	// RunLock replaces the lock selected by sync.lock_backend
	RunLock integration.RunLock
	Metrics *telemetry.SyncMetrics
	Logger  *zap.Logger
}

// Services are the application services of the sync engine
type Services struct {
	// Orchestrator is nil when no storefront platform is configured
	Orchestrator   *appintegration.Orchestrator
	ShippingOrders *appintegration.ShippingOrderService
	Conflicts      *appintegration.ConflictReviewService

	lock    integration.RunLock
	closers []io.Closer
}

// NewServices wires repositories, the identity matcher and the sync phases
// over db. Without platform credentials only the local services are built.
func NewServices(cfg *config.Config, db *gorm.DB, opts Options) (*Services, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	scope := persistence.NewGormTransactionScope(db)
	matcher := appintegration.NewIdentityMatcher(cfg.Sync.CountryCallingCode, opts.Metrics, log)

	s := &Services{
		ShippingOrders: appintegration.NewShippingOrderService(scope, matcher, log),
		Conflicts:      appintegration.NewConflictReviewService(persistence.NewGormIdentityConflictRepository(db)),
	}

	platform := opts.Platform
	if platform == nil {
		if err := cfg.RequirePlatform(); err != nil {
			log.Info("Storefront platform not configured, sync disabled", zap.Error(err))
			return s, nil
		}
		p, err := NewPlatform(cfg.Platform, opts.Metrics, log)
		if err != nil {
			return nil, err
		}
		platform = p
	}

	lock := opts.RunLock
	if lock == nil {
		l, closer, err := NewRunLock(cfg, db)
		if err != nil {
			return nil, err
		}
		lock = l
		if closer != nil {
			s.closers = append(s.closers, closer)
		}
	}

	s.lock = lock

	matchKeys, err := ParseMatchKeys(cfg.Sync.OrderMatchKeys)
	if err != nil {
		return nil, err
	}
	phases, err := ParsePhases(cfg.Sync.Phases)
	if err != nil {
		return nil, err
	}

	catalogSync := appintegration.NewCatalogSynchronizer(platform, scope, cfg.Sync.PageSize, log)
	orders := appintegration.NewOrderImporter(platform, scope, matcher, appintegration.OrderImporterConfig{
		PageSize:        cfg.Sync.PageSize,
		MaxPages:        cfg.Sync.MaxOrderPages,
		MatchKeys:       matchKeys,
		IDNumberMetaKey: cfg.Sync.IDNumberMetaKey,
	}, log)
	inventory := appintegration.NewInventoryReconciler(platform, persistence.NewGormProductRepository(db), log)

	s.Orchestrator = appintegration.NewOrchestrator(
		catalogSync, orders, inventory,
		lock,
		persistence.NewGormRunRepository(db),
		opts.Metrics,
		appintegration.OrchestratorConfig{
			RunTimeout: cfg.Sync.RunTimeout,
			LockTTL:    cfg.Sync.LockTTL,
			Phases:     phases,
		},
		log,
	)
	return s, nil
}

// Close waits for background runs and releases owned connections
func (s *Services) Close() error {
	if s.Orchestrator != nil {
		s.Orchestrator.Wait()
	}
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HTTPHandlers builds the API handlers over the services. Sync endpoints
// answer 503 while no platform is configured.
func (s *Services) HTTPHandlers(version string, checks ...handler.HealthCheck) router.Handlers {
	var runner handler.SyncRunner
	if s.Orchestrator != nil {
		runner = s.Orchestrator
	}
	return router.Handlers{
		Health:         handler.NewHealthHandler(version, checks...),
		ShippingOrders: handler.NewShippingOrderHandler(s.ShippingOrders),
		Sync:           handler.NewSyncHandler(runner, s.Conflicts),
	}
}

// NewPlatform creates the signed storefront client
func NewPlatform(cfg config.PlatformConfig, metrics *telemetry.SyncMetrics, log *zap.Logger) (*ecommerce.WooCommerceAdapter, error) {
	client, err := ecommerce.NewWooCommerceClient(
		ecommerce.NewWooCommerceConfig(cfg),
		ecommerce.WithMetrics(metrics),
		ecommerce.WithLogger(log.Named("storefront")),
	)
	if err != nil {
		return nil, err
	}
	return ecommerce.NewWooCommerceAdapter(client), nil
}

// NewRunLock selects the run lock backend. The returned closer, when not
// nil, owns a connection that must be closed on shutdown.
func NewRunLock(cfg *config.Config, db *gorm.DB) (integration.RunLock, io.Closer, error) {
	switch cfg.Sync.LockBackend {
	case "", LockBackendDatabase:
		return persistence.NewGormRunLock(db), nil, nil
	case LockBackendRedis:
		lock, err := cache.NewRedisRunLock(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("redis run lock: %w", err)
		}
		return lock, lock, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown sync.lock_backend %q", config.ErrInvalidConfig, cfg.Sync.LockBackend)
	}
}

// ParseMatchKeys converts configured match key names
func ParseMatchKeys(names []string) ([]partner.MatchKey, error) {
	keys := make([]partner.MatchKey, 0, len(names))
	for _, name := range names {
		key := partner.MatchKey(name)
		if !key.IsValid() {
			return nil, fmt.Errorf("%w: unknown match key %q", config.ErrInvalidConfig, name)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ParsePhases converts configured phase names. An empty list enables all phases.
func ParsePhases(names []string) ([]integration.Phase, error) {
	phases := make([]integration.Phase, 0, len(names))
	for _, name := range names {
		phase := integration.Phase(name)
		if !isPhase(phase) {
			return nil, fmt.Errorf("%w: unknown phase %q", config.ErrInvalidConfig, name)
		}
		phases = append(phases, phase)
	}
	return phases, nil
}

func isPhase(p integration.Phase) bool {
	for _, known := range integration.AllPhases {
		if p == known {
			return true
		}
	}
	return false
}

// OpenDatabase connects with a zap-backed GORM logger, installs query
// tracing and, when configured, creates the schema from the models.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log.Named("gorm"), logger.MapGormLogLevel(cfg.Log.GormLevel), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem:        dbSystem,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register database tracing: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// NewMetrics creates the sync instruments on the telemetry meter. Metrics are
// optional, so a failure is logged and a nil recorder returned.
func NewMetrics(providers *telemetry.Providers, log *zap.Logger) *telemetry.SyncMetrics {
	metrics, err := telemetry.NewSyncMetrics(providers.Meter())
	if err != nil {
		log.Warn("Sync metrics disabled", zap.Error(err))
		return nil
	}
	return metrics
}

// HealthChecks returns the probes served on /health: the database and, with
// the redis backend, the lock connection.
func (s *Services) HealthChecks(db *gorm.DB) []handler.HealthCheck {
	checks := []handler.HealthCheck{{Name: "database", Check: PingDatabase(db)}}
	if p, ok := s.lock.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: p.Ping})
	}
	return checks
}

// PingDatabase is a health probe for db
func PingDatabase(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
