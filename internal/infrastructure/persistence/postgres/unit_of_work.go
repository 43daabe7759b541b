package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/lendcore/internal/domain/port"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

var _ port.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs use-case work in one READ COMMITTED transaction. Row locks
// come from LockByID; the unique indexes carry idempotency and gateway-ref
// uniqueness.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repos) error) error {
	return pkgpostgres.WithTransaction(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewRepos(tx))
	})
}

// Repos returns auto-commit repositories on the pool.
func (u *UnitOfWork) Repos() port.Repos {
	return NewRepos(u.pool)
}

// Ping reports whether the database is reachable.
func (u *UnitOfWork) Ping(ctx context.Context) error {
	return pkgpostgres.HealthCheck(ctx, u.pool)
}

// NewRepos binds every repository to db.
func NewRepos(db pkgpostgres.Querier) port.Repos {
	return port.Repos{
		Loans:       NewLoanRepo(db),
		Payments:    NewPaymentRepo(db),
		Borrowers:   NewBorrowerRepo(db),
		Idempotency: NewIdempotencyStore(db),
		Outbox:      NewOutboxStore(db),
		ScoreEvents: NewScoreEventRepo(db),
		Scoring:     NewScoringQuery(db),
	}
}
