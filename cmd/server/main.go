package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/bootstrap"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	obs, err := bootstrap.SetupObservability(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer obs.Shutdown(ctx)
	log := obs.Logger

	log.Info("Starting CRM sync server",
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("lock_backend", cfg.Sync.LockBackend),
	)

	db, err := bootstrap.OpenDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	services, err := bootstrap.NewServices(cfg, db.DB, bootstrap.Options{
		Metrics: bootstrap.NewMetrics(obs.Providers, log),
		Logger:  log,
	})
	if err != nil {
		log.Fatal("Failed to build services", zap.Error(err))
	}

	syncScheduler, err := bootstrap.NewSyncScheduler(cfg, services, log)
	if err != nil {
		log.Fatal("Failed to build sync scheduler", zap.Error(err))
	}
	if syncScheduler != nil {
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
	}

	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
	}, services.HTTPHandlers(version, services.HealthChecks(db.DB)...), log)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if syncScheduler != nil {
		if err := syncScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop sync scheduler", zap.Error(err))
		}
	}

	// background runs started over HTTP finish before the database closes
	if err := services.Close(); err != nil {
		log.Error("Failed to close services", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
