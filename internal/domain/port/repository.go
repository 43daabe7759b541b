package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
	"github.com/bibbank/lendcore/pkg/events"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// LoanRepository persists and retrieves loans. Lookups of a missing loan
// return an error matching model.ErrNotFound.
type LoanRepository interface {
	Create(ctx context.Context, loan model.Loan) error
	Update(ctx context.Context, loan model.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Loan, error)
	// LockByID reads the loan and holds an exclusive row lock on it until the
	// enclosing transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (model.Loan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Loan, error)
	HasOverdueLoans(ctx context.Context, userID uuid.UUID) (bool, error)
	// ListPastDue returns ids of loans in one of states whose due date is more
	// than minDaysPastDue days before asOf's date, oldest due date first.
	ListPastDue(ctx context.Context, states []valueobject.LoanState, asOf time.Time, minDaysPastDue, limit int) ([]uuid.UUID, error)
}

// PaymentRepository persists payments. Gateway references are unique.
type PaymentRepository interface {
	Create(ctx context.Context, payment model.Payment) error
	Update(ctx context.Context, payment model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Payment, error)
	LockByID(ctx context.Context, id uuid.UUID) (model.Payment, error)
	// FindDisbursement returns the disbursement payment of a loan.
	FindDisbursement(ctx context.Context, loanID uuid.UUID) (model.Payment, error)
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]model.Payment, error)
}

// BorrowerRepository persists the lending view of users.
type BorrowerRepository interface {
	Create(ctx context.Context, borrower model.Borrower) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Borrower, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int) error
}

// CreditScoreEventRepository appends score audit records.
type CreditScoreEventRepository interface {
	Append(ctx context.Context, ev model.CreditScoreEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.CreditScoreEvent, error)
}

// ScoringHistoryQuery gathers the raw facts a credit score is computed from.
type ScoringHistoryQuery interface {
	Facts(ctx context.Context, userID uuid.UUID, asOf time.Time) (model.ScoringFacts, error)
}

// ---------------------------------------------------------------------------
// Idempotency port
// ---------------------------------------------------------------------------

// Reservation is the outcome of IdempotencyStore.Reserve.
type Reservation struct {
	BoundResource uuid.UUID
	// Created is false when the key was already bound to the same resource.
	Created bool
}

// IdempotencyStore reserves (key, scope) pairs. Atomicity comes from the
// store's uniqueness enforcement, never from a read followed by a write.
type IdempotencyStore interface {
	// Reserve binds key to its resource. A pre-existing reservation bound to
	// the same resource yields Created=false; one bound elsewhere yields an
	// error matching model.ErrIdempotencyConflict.
	Reserve(ctx context.Context, key model.IdempotencyKey) (Reservation, error)
	Find(ctx context.Context, key, scope string) (model.IdempotencyKey, error)
}

// ---------------------------------------------------------------------------
// Unit of work
// ---------------------------------------------------------------------------

// Repos is the set of repositories bound to one transaction (or to no
// transaction, for plain reads).
type Repos struct {
	Loans       LoanRepository
	Payments    PaymentRepository
	Borrowers   BorrowerRepository
	Idempotency IdempotencyStore
	Outbox      events.OutboxRepository
	ScoreEvents CreditScoreEventRepository
	Scoring     ScoringHistoryQuery
}

// UnitOfWork runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise, taking every write made through the
// given Repos with it.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
	// Repos returns repositories outside any transaction, for unlocked reads.
	Repos() Repos
}

// ---------------------------------------------------------------------------
// External service ports
// ---------------------------------------------------------------------------

// Recipient identifies who receives a disbursement.
type Recipient struct {
	UserID uuid.UUID
	LoanID uuid.UUID
}

// DisbursementGateway moves money to a borrower and returns the gateway's
// reference for the transfer. It offers no idempotency of its own.
type DisbursementGateway interface {
	Disburse(ctx context.Context, amountCents int64, recipient Recipient) (string, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })
