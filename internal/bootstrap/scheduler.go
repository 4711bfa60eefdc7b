package bootstrap

import (
	"go.uber.org/zap"

	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/scheduler"
)

// NewSyncScheduler returns the in-process sync scheduler, or nil when
// sync.schedule_interval is zero or no storefront platform is configured.
func NewSyncScheduler(cfg *config.Config, services *Services, logger *zap.Logger) (*scheduler.SyncScheduler, error) {
	if cfg.Sync.ScheduleInterval <= 0 || services.Orchestrator == nil {
		return nil, nil
	}
	schedCfg := scheduler.DefaultSyncSchedulerConfig()
	schedCfg.Interval = cfg.Sync.ScheduleInterval
	schedCfg.RetryAttempts = cfg.Sync.RetryAttempts
	schedCfg.RetryDelay = cfg.Sync.RetryDelay
	if schedCfg.MaxRetryDelay < schedCfg.RetryDelay {
		schedCfg.MaxRetryDelay = schedCfg.RetryDelay
	}
	return scheduler.NewSyncScheduler(schedCfg, services.Orchestrator, logger)
}
