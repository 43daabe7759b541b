// Package app wires configuration, storage and use cases into one value
// shared by the daemon and the operator CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/application/outbox"
	"github.com/bibbank/lendcore/internal/application/usecase"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/service"
	"github.com/bibbank/lendcore/internal/infrastructure/adapter"
	"github.com/bibbank/lendcore/internal/infrastructure/config"
	"github.com/bibbank/lendcore/internal/infrastructure/persistence/memory"
	pgpersistence "github.com/bibbank/lendcore/internal/infrastructure/persistence/postgres"
	"github.com/bibbank/lendcore/internal/presentation/rest"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

const connectTimeout = 10 * time.Second

// App holds the wired use cases.
type App struct {
	Lifecycle *usecase.LoanLifecycle
	Apply     *usecase.ApplyForLoanUseCase
	Scorer    *usecase.ComputeCreditScoreUseCase
	Reconcile *usecase.ReconcilePaymentUseCase
	Sweep     *usecase.SweepDelinquencyUseCase
	GetLoan   *usecase.GetLoanUseCase

	uow    port.UnitOfWork
	pinger rest.Pinger
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New builds the storage selected by cfg.StorageDriver and the use cases on
// top of it. A nil meter records nothing.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, meter metric.Meter) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{logger: logger}
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		dbCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		pool, err := pkgpostgres.NewPool(dbCtx, cfg.Postgres())
		if err != nil {
			return nil, fmt.Errorf("app: connect database: %w", err)
		}
		uow := pgpersistence.NewUnitOfWork(pool)
		a.pool, a.uow, a.pinger = pool, uow, uow
	case config.DriverMemory:
		a.uow = memory.NewStore()
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.StorageDriver)
	}

	policy, err := cfg.ScoringPolicy()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: load scoring policy: %w", err)
	}
	engine, err := service.NewCreditScoringEngine(policy)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: build scoring engine: %w", err)
	}
	metrics, err := usecase.NewMetrics(meter)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: create metrics: %w", err)
	}

	publisher := outbox.NewPublisher()
	gateway := adapter.NewStubDisbursementGateway()

	a.Lifecycle = usecase.NewLoanLifecycle(a.uow, gateway, publisher, nil, metrics, logger)
	a.Scorer = usecase.NewComputeCreditScoreUseCase(a.uow, engine, publisher, nil, metrics, logger)
	a.Apply = usecase.NewApplyForLoanUseCase(a.uow, a.Lifecycle, a.Scorer, cfg.Lending.AutoApprovalThreshold, logger)
	a.Reconcile = usecase.NewReconcilePaymentUseCase(a.uow, a.Lifecycle, logger)
	a.Sweep = usecase.NewSweepDelinquencyUseCase(a.uow, a.Lifecycle, logger)
	a.GetLoan = usecase.NewGetLoanUseCase(a.uow)
	return a, nil
}

// Repos returns auto-commit repositories on the configured storage.
func (a *App) Repos() port.Repos {
	return a.uow.Repos()
}

// Pinger reports database reachability, or nil for in-memory storage.
func (a *App) Pinger() rest.Pinger {
	return a.pinger
}

// Close releases the connection pool.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// RunSweeps runs a delinquency sweep every interval until ctx ends. A failed
// sweep is logged and retried on the next tick.
func (a *App) RunSweeps(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Sweep.Execute(ctx, dto.SweepRequest{BatchSize: batchSize}); err != nil && ctx.Err() == nil {
				a.logger.Error("delinquency sweep failed", "error", err)
			}
		}
	}
}
