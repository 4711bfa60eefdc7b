// Command sync runs one storefront synchronization and exits.
//
// Exit codes: 0 when the run succeeded or partially succeeded, 1 when it
// failed, 2 when the configuration is missing or invalid.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/bootstrap"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/infrastructure/config"
)

const (
	exitOK          = 0
	exitRunFailed   = 1
	exitConfigError = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		phases  string
		timeout time.Duration
	)
	flag.StringVar(&phases, "phases", "", "Comma separated phases to run (default: sync.phases or all)")
	flag.DurationVar(&timeout, "timeout", 0, "Overall run deadline (default: sync.run_timeout)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return exitConfigError
	}
	if phases != "" {
		cfg.Sync.Phases = strings.Split(phases, ",")
	}
	if timeout > 0 {
		cfg.Sync.RunTimeout = timeout
		if cfg.Sync.LockTTL < timeout {
			cfg.Sync.LockTTL = timeout + 5*time.Minute
		}
	}
	if err := cfg.RequirePlatform(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitConfigError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := bootstrap.SetupObservability(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return exitConfigError
	}
	defer obs.Shutdown(context.Background())
	log := obs.Logger

	db, err := bootstrap.OpenDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return exitRunFailed
	}
	defer func() { _ = db.Close() }()

	services, err := bootstrap.NewServices(cfg, db.DB, bootstrap.Options{
		Metrics: bootstrap.NewMetrics(obs.Providers, log),
		Logger:  log,
	})
	if err != nil {
		log.Error("Failed to build sync services", zap.Error(err))
		if errors.Is(err, config.ErrInvalidConfig) {
			return exitConfigError
		}
		return exitRunFailed
	}
	defer func() { _ = services.Close() }()

	summary, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	if err != nil {
		log.Error("Sync run failed", zap.Error(err))
		return exitRunFailed
	}

	for _, phase := range summary.Phases {
		fmt.Println(phase.String())
	}
	fmt.Printf("run %s: %s\n", summary.RunID, summary.Status)

	return exitCode(summary)
}

func exitCode(summary *integration.RunSummary) int {
	if summary.Succeeded() {
		return exitOK
	}
	return exitRunFailed
}
