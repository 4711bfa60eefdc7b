// Package scheduler runs storefront syncs on a fixed interval inside the
// HTTP server process.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/integration"
)

// SyncRunner runs one synchronous sync
type SyncRunner interface {
	Run(ctx context.Context, trigger integration.Trigger) (*integration.RunSummary, error)
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// Interval between the end of one scheduled run and the start of the next
	Interval time.Duration
	// RetryAttempts is how many times a failed run is retried before waiting for the next tick
	RetryAttempts int
	// RetryDelay is the base delay between retries, doubled on each attempt
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff
	MaxRetryDelay time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Interval:      15 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    time.Minute,
		MaxRetryDelay: 10 * time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts > 0 && c.RetryDelay <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxRetryDelay > 0 && c.MaxRetryDelay < c.RetryDelay {
		return ErrInvalidConfig
	}
	return nil
}

// retryDelay returns the backoff before retry number attempt (1-based)
func (c *SyncSchedulerConfig) retryDelay(attempt int) time.Duration {
	delay := c.RetryDelay * time.Duration(1<<(attempt-1))
	if c.MaxRetryDelay > 0 && delay > c.MaxRetryDelay {
		delay = c.MaxRetryDelay
	}
	return delay
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler triggers a sync run every Interval. A run that fails is
// retried with exponential backoff; a run skipped because another one holds
// the lock is not retried.
type SyncScheduler struct {
	config SyncSchedulerConfig
	runner SyncRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, runner SyncRunner, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		config: config,
		runner: runner,
		logger: logger.Named("sync_scheduler"),
	}, nil
}

// Start launches the schedule loop. The first run happens one interval
// after Start. Calling Start twice is a no-op.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("retry_attempts", s.config.RetryAttempts),
	)
	return nil
}

// Stop cancels the loop, which aborts an in-flight run, and waits for it
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *SyncScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.runWithRetry(ctx)
			timer.Reset(s.config.Interval)
		}
	}
}

func (s *SyncScheduler) runWithRetry(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		summary, err := s.runner.Run(ctx, integration.TriggerSchedule)
		switch {
		case errors.Is(err, integration.ErrSyncAlreadyInProgress):
			s.logger.Info("Scheduled sync skipped, another run holds the lock")
			return
		case err == nil && summary.Succeeded():
			s.logger.Info("Scheduled sync finished",
				zap.String("run_id", summary.RunID.String()),
				zap.String("status", summary.Status.String()),
			)
			return
		case ctx.Err() != nil:
			return
		}

		fields := []zap.Field{zap.Int("attempt", attempt+1)}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.String("run_id", summary.RunID.String()), zap.String("error", summary.Error))
		}
		if attempt >= s.config.RetryAttempts {
			s.logger.Error("Scheduled sync failed, waiting for next interval", fields...)
			return
		}

		delay := s.config.retryDelay(attempt + 1)
		s.logger.Warn("Scheduled sync failed, retrying", append(fields, zap.Duration("retry_in", delay))...)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
