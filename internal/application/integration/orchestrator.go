package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

const (
	// DefaultRunTimeout is the overall deadline of a run
	DefaultRunTimeout = 30 * time.Minute

	// bookkeepingTimeout bounds writes made after the run deadline (run row, lock release)
	bookkeepingTimeout = 10 * time.Second
)

// PhaseFunc runs one phase and reports its outcome
type PhaseFunc func(ctx context.Context) *integration.PhaseResult

// OrchestratorConfig holds run-level settings
type OrchestratorConfig struct {
	RunTimeout time.Duration
	LockTTL    time.Duration
	// Phases lists the enabled phases; empty enables all of them
	Phases []integration.Phase
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.RunTimeout <= 0 {
		c.RunTimeout = DefaultRunTimeout
	}
	if c.LockTTL < c.RunTimeout {
		c.LockTTL = c.RunTimeout + 5*time.Minute
	}
}

func (c *OrchestratorConfig) enabled(p integration.Phase) bool {
	if len(c.Phases) == 0 {
		return true
	}
	for _, e := range c.Phases {
		if e == p {
			return true
		}
	}
	return false
}

// Orchestrator runs the sync phases in order under a run lock and a deadline,
// recording every run in the run history.
type Orchestrator struct {
	runners map[integration.Phase]PhaseFunc
	lock    integration.RunLock
	runs    integration.RunRepository
	metrics *telemetry.SyncMetrics
	config  OrchestratorConfig
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	catalogSync *CatalogSynchronizer,
	orders *OrderImporter,
	inventory *InventoryReconciler,
	lock integration.RunLock,
	runs integration.RunRepository,
	metrics *telemetry.SyncMetrics,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runners: map[integration.Phase]PhaseFunc{
			integration.PhaseCategories: catalogSync.SyncCategories,
			integration.PhaseProducts:   catalogSync.SyncProducts,
			integration.PhaseOrders:     orders.Import,
			integration.PhaseInventory:  inventory.Reconcile,
		},
		lock:    lock,
		runs:    runs,
		metrics: metrics,
		config:  cfg,
		logger:  logger,
	}
}

// Run executes a full run and blocks until it ends. The returned error covers
// orchestration failures only: a held lock, an expired deadline or a run row
// that could not be written. Item and phase failures live in the summary.
func (o *Orchestrator) Run(ctx context.Context, trigger integration.Trigger) (*integration.RunSummary, error) {
	summary, token, err := o.begin(ctx, trigger)
	if err != nil {
		return nil, err
	}
	err = o.execute(ctx, summary, token)
	return summary, err
}

// Start begins a run in the background and returns as soon as the lock is
// held and the run is recorded. The returned summary is a snapshot of the
// run at start. Use Wait to block until background runs finish.
func (o *Orchestrator) Start(ctx context.Context, trigger integration.Trigger) (*integration.RunSummary, error) {
	summary, token, err := o.begin(ctx, trigger)
	if err != nil {
		return nil, err
	}
	snapshot := *summary
	snapshot.Phases = make([]*integration.PhaseResult, 0)

	runCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = o.execute(runCtx, summary, token)
	}()
	return &snapshot, nil
}

// Wait blocks until every run started with Start has finished
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// History lists recent runs, newest first
func (o *Orchestrator) History(ctx context.Context, limit int) ([]integration.RunSummary, error) {
	return o.runs.ListRecent(ctx, limit)
}

func (o *Orchestrator) begin(ctx context.Context, trigger integration.Trigger) (*integration.RunSummary, string, error) {
	token, err := o.lock.Acquire(ctx, integration.RunLockName, o.config.LockTTL)
	if err != nil {
		return nil, "", err
	}

	summary := integration.NewRunSummary(trigger)
	if err := o.runs.Start(ctx, summary); err != nil {
		o.release(ctx, token)
		return nil, "", fmt.Errorf("record run start: %w", err)
	}
	return summary, token, nil
}

func (o *Orchestrator) execute(ctx context.Context, summary *integration.RunSummary, token string) error {
	defer o.release(ctx, token)

	ctx, log := logger.WithRunID(ctx, o.logger, summary.RunID.String())
	ctx, span := telemetry.StartSpan(ctx, "sync.run",
		telemetry.WithAttribute(telemetry.SpanAttrRunID, summary.RunID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, string(summary.Trigger)),
	)
	defer span.End()

	log.Info("Sync run started",
		zap.String("trigger", string(summary.Trigger)),
		zap.Duration("timeout", o.config.RunTimeout),
	)

	runCtx, cancel := context.WithTimeout(ctx, o.config.RunTimeout)
	defer cancel()

	for _, phase := range integration.AllPhases {
		summary.AddPhase(o.runPhase(runCtx, phase))
	}

	var runErr error
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		runErr = integration.ErrSyncDeadlineExceeded
	case ctx.Err() != nil:
		runErr = ctx.Err()
	}
	summary.Finish(runErr)

	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancelPersist()
	if err := o.runs.Finish(persistCtx, summary); err != nil {
		log.Error("Failed to record run result", zap.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("record run result: %w", err)
		}
	}

	o.metrics.RecordRun(ctx, string(summary.Trigger), summary.Status.String())
	if runErr != nil {
		telemetry.RecordError(span, runErr)
	} else {
		telemetry.SetOK(span)
	}

	fields := []zap.Field{
		zap.String("status", summary.Status.String()),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	}
	if runErr != nil {
		log.Error("Sync run finished with error", append(fields, zap.Error(runErr))...)
	} else {
		log.Info("Sync run finished", fields...)
	}
	return runErr
}

func (o *Orchestrator) runPhase(ctx context.Context, phase integration.Phase) *integration.PhaseResult {
	log := logger.Ctx(ctx, o.logger)
	run, ok := o.runners[phase]
	if !ok || !o.config.enabled(phase) {
		result := integration.NewPhaseResult(phase)
		result.Skip()
		log.Info("Phase skipped", zap.String("phase", string(phase)))
		return result
	}

	ctx, span := telemetry.StartSpan(ctx, "sync."+string(phase),
		telemetry.WithAttribute(telemetry.SpanAttrPhase, string(phase)),
	)
	defer span.End()

	result := run(ctx)
	telemetry.SetAttributes(span,
		"sync.total", result.Total,
		"sync.created", result.Created,
		"sync.updated", result.Updated,
		"sync.failed", result.Failed,
		"sync.skipped", result.Skipped,
	)
	if result.Status == integration.SyncStatusFailed {
		telemetry.RecordError(span, errors.New(phaseErrorMessage(result)))
	} else {
		telemetry.SetOK(span)
	}

	o.metrics.RecordPhase(ctx, string(phase), result.Status.String(), telemetry.PhaseCounts{
		Created: result.Created,
		Updated: result.Updated,
		Failed:  result.Failed,
		Skipped: result.Skipped,
	}, result.Duration)

	log.Info("Phase finished",
		zap.String("phase", string(phase)),
		zap.String("status", result.Status.String()),
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Int("conflicts", result.Conflicts),
		zap.Duration("duration", result.Duration),
	)
	return result
}

func (o *Orchestrator) release(ctx context.Context, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()
	if err := o.lock.Release(ctx, integration.RunLockName, token); err != nil {
		logger.Ctx(ctx, o.logger).Warn("Failed to release run lock", zap.Error(err))
	}
}

func phaseErrorMessage(r *integration.PhaseResult) string {
	if r.Error != "" {
		return r.Error
	}
	return fmt.Sprintf("%s: %d of %d items failed", r.Phase, r.Failed, r.Total)
}
