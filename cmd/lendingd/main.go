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

	"github.com/bibbank/lendcore/internal/app"
	"github.com/bibbank/lendcore/internal/infrastructure/config"
	"github.com/bibbank/lendcore/internal/presentation/rest"
	"github.com/bibbank/lendcore/pkg/observability"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Initialize structured logger via shared observability package.
	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.ServiceName,
	})

	logger.Info("starting lending-service",
		"http_port", cfg.HTTPPort,
		"storage_driver", cfg.StorageDriver,
	)

	metrics, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.ServiceName,
		WithRuntime: true,
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() { _ = metrics.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush

	// Run database migrations before serving.
	if cfg.StorageDriver == config.DriverPostgres {
		if err := pkgpostgres.RunMigrations(cfg.Postgres().DSN(), cfg.DB.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied", "path", cfg.DB.MigrationsPath)
	}

	lending, err := app.New(ctx, cfg, logger, metrics.Meter(cfg.ServiceName))
	if err != nil {
		logger.Error("failed to wire application", "error", err)
		os.Exit(1)
	}
	defer lending.Close()

	// HTTP server (health checks and metrics).
	mux := http.NewServeMux()
	rest.NewHealthHandler(logger, cfg.ServiceName, lending.Pinger(), metrics.Handler()).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		lending.RunSweeps(ctx, cfg.Lending.SweepInterval, cfg.Lending.SweepBatchSize)
	}()

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
		cancel()
	}

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	<-sweepDone

	logger.Info("lending-service stopped")
}
