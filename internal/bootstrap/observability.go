package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

// Observability is the logger plus the telemetry providers behind it
type Observability struct {
	Logger    *zap.Logger
	Providers *telemetry.Providers
}

// SetupObservability builds the zap logger from the log section and starts
// the OpenTelemetry providers. With log export enabled the logger is rebuilt
// so entries are also shipped to the collector.
func SetupObservability(ctx context.Context, cfg *config.Config) (*Observability, error) {
	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	if core := providers.ZapCore(logger.ParseLevel(cfg.Log.Level)); core != nil {
		teed, err := logger.New(logCfg, core)
		if err != nil {
			_ = providers.Shutdown(ctx)
			return nil, fmt.Errorf("create logger: %w", err)
		}
		log = teed
	}

	return &Observability{
		Logger:    log.With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env)),
		Providers: providers,
	}, nil
}

// Shutdown flushes telemetry and the logger
func (o *Observability) Shutdown(ctx context.Context) {
	if err := o.Providers.Shutdown(ctx); err != nil {
		o.Logger.Warn("Telemetry shutdown failed", zap.Error(err))
	}
	_ = o.Logger.Sync()
}
