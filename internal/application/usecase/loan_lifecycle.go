package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/application/outbox"
	"github.com/bibbank/lendcore/internal/domain/event"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// step computes a loan's next state inside a transaction that already holds
// the loan's row lock.
type step func(ctx context.Context, repos port.Repos, loan model.Loan, now time.Time) (model.Loan, error)

// LoanLifecycle runs loan state transitions. Every transition locks the loan
// row, applies the aggregate's guarded edge, saves the loan and appends its
// events to the outbox in one transaction.
type LoanLifecycle struct {
	uow       port.UnitOfWork
	gateway   port.DisbursementGateway
	publisher *outbox.Publisher
	clock     port.Clock
	metrics   *Metrics
	logger    *slog.Logger
}

// NewLoanLifecycle wires dependencies. A nil clock reads the wall clock and a
// nil logger uses slog's default.
func NewLoanLifecycle(
	uow port.UnitOfWork,
	gateway port.DisbursementGateway,
	publisher *outbox.Publisher,
	clock port.Clock,
	metrics *Metrics,
	logger *slog.Logger,
) *LoanLifecycle {
	if clock == nil {
		clock = port.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoanLifecycle{
		uow:       uow,
		gateway:   gateway,
		publisher: publisher,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Approve moves a pending loan to approved when the borrower passed KYC and
// holds no overdue loan.
func (lc *LoanLifecycle) Approve(ctx context.Context, req dto.LoanTransitionRequest) (dto.LoanResponse, error) {
	return lc.run(ctx, model.ActionApprove, req.Meta, req.LoanID, lc.approve)
}

// Reject moves a pending loan to rejected.
func (lc *LoanLifecycle) Reject(ctx context.Context, req dto.RejectLoanRequest) (dto.LoanResponse, error) {
	return lc.run(ctx, model.ActionReject, req.Meta, req.LoanID,
		func(_ context.Context, _ port.Repos, loan model.Loan, now time.Time) (model.Loan, error) {
			return loan.Reject(req.Reason, now)
		})
}

// MarkPaid moves a loan with nothing outstanding to paid.
func (lc *LoanLifecycle) MarkPaid(ctx context.Context, req dto.LoanTransitionRequest) (dto.LoanResponse, error) {
	return lc.run(ctx, model.ActionMarkPaid, req.Meta, req.LoanID, markPaid)
}

// MarkOverdue moves a disbursed loan past its due date to overdue.
func (lc *LoanLifecycle) MarkOverdue(ctx context.Context, req dto.LoanTransitionRequest) (dto.LoanResponse, error) {
	return lc.run(ctx, model.ActionMarkOverdue, req.Meta, req.LoanID,
		func(_ context.Context, _ port.Repos, loan model.Loan, now time.Time) (model.Loan, error) {
			return loan.MarkOverdue(now)
		})
}

// MarkDefaulted moves an overdue or disbursed loan more than 30 days past due
// to defaulted.
func (lc *LoanLifecycle) MarkDefaulted(ctx context.Context, req dto.LoanTransitionRequest) (dto.LoanResponse, error) {
	return lc.run(ctx, model.ActionMarkDefaulted, req.Meta, req.LoanID,
		func(_ context.Context, _ port.Repos, loan model.Loan, now time.Time) (model.Loan, error) {
			return loan.MarkDefaulted(now)
		})
}

// Disburse pays out an approved loan at most once per idempotency key.
//
// The loan lock is taken before the key is reserved, so concurrent calls for
// one loan serialize. A call whose key is already bound to this loan replays
// the stored outcome without touching the gateway or the outbox. A key bound
// to another loan fails with an idempotency conflict. Any failure, including a
// gateway error, rolls the reservation back so the key can be retried.
func (lc *LoanLifecycle) Disburse(ctx context.Context, req dto.DisburseLoanRequest) (dto.DisbursementResponse, error) {
	meta := withCorrelation(req.Meta)
	var (
		resp     dto.DisbursementResponse
		from, to valueobject.LoanState
	)

	err := lc.uow.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		now := lc.clock.Now()

		loan, err := repos.Loans.LockByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("lock loan: %w", err)
		}
		from, to = loan.State(), loan.State()

		key, err := model.NewIdempotencyKey(req.IdempotencyKey, model.ScopeLoanDisburse, event.AggregateLoan, loan.ID(), now)
		if err != nil {
			return err
		}
		reservation, err := repos.Idempotency.Reserve(ctx, key)
		if err != nil {
			return fmt.Errorf("reserve idempotency key: %w", err)
		}

		if !reservation.Created {
			payment, err := repos.Payments.FindDisbursement(ctx, loan.ID())
			if err != nil {
				return fmt.Errorf("find disbursement: %w", err)
			}
			resp = dto.DisbursementResponse{
				Loan:     toLoanResponse(loan),
				Payment:  toPaymentResponse(payment),
				Replayed: true,
			}
			return nil
		}

		if err := loan.CanDisburse(); err != nil {
			return err
		}

		ref, err := lc.gateway.Disburse(ctx, loan.AmountCents(), port.Recipient{UserID: loan.UserID(), LoanID: loan.ID()})
		if err != nil {
			return fmt.Errorf("disbursement gateway: %w", err)
		}

		payment, err := model.NewDisbursementPayment(loan.ID(), loan.AmountCents(), ref, now)
		if err != nil {
			return err
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("create disbursement payment: %w", err)
		}

		next, err := loan.Disburse(payment, now)
		if err != nil {
			return err
		}
		if next, err = lc.save(ctx, repos, meta, next); err != nil {
			return err
		}
		to = next.State()

		resp = dto.DisbursementResponse{
			Loan:    toLoanResponse(next),
			Payment: toPaymentResponse(payment),
		}
		return nil
	})

	if err == nil && resp.Replayed {
		lc.logger.InfoContext(ctx, "loan disbursement replayed",
			"loan_id", req.LoanID,
			"payment_id", resp.Payment.ID,
			"correlation_id", meta.CorrelationID,
		)
		return resp, nil
	}
	lc.observe(ctx, model.ActionDisburse, meta, req.LoanID, from, to, err)
	if err != nil {
		return dto.DisbursementResponse{}, err
	}
	return resp, nil
}

// run executes one locked transition in its own transaction.
func (lc *LoanLifecycle) run(ctx context.Context, action string, meta dto.Meta, loanID uuid.UUID, apply step) (dto.LoanResponse, error) {
	meta = withCorrelation(meta)
	var (
		result   model.Loan
		from, to valueobject.LoanState
	)

	err := lc.uow.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		loan, err := repos.Loans.LockByID(ctx, loanID)
		if err != nil {
			return fmt.Errorf("lock loan: %w", err)
		}
		from = loan.State()

		if result, err = lc.apply(ctx, repos, meta, loan, apply); err != nil {
			return err
		}
		to = result.State()
		return nil
	})

	lc.observe(ctx, action, meta, loanID, from, to, err)
	if err != nil {
		return dto.LoanResponse{}, err
	}
	return toLoanResponse(result), nil
}

// apply runs a step on a loan the caller has locked and persists the result.
// Callers that compose a transition into a larger transaction use it directly
// and report the outcome through observe once that transaction ends.
func (lc *LoanLifecycle) apply(ctx context.Context, repos port.Repos, meta dto.Meta, loan model.Loan, fn step) (model.Loan, error) {
	next, err := fn(ctx, repos, loan, lc.clock.Now())
	if err != nil {
		return loan, err
	}
	return lc.save(ctx, repos, meta, next)
}

func (lc *LoanLifecycle) save(ctx context.Context, repos port.Repos, meta dto.Meta, loan model.Loan) (model.Loan, error) {
	if err := loan.Validate(); err != nil {
		return loan, err
	}
	if err := repos.Loans.Update(ctx, loan); err != nil {
		return loan, fmt.Errorf("update loan: %w", err)
	}
	if err := lc.publisher.Publish(ctx, repos.Outbox, outboxHeaders(meta), loan.DomainEvents()...); err != nil {
		return loan, fmt.Errorf("publish events: %w", err)
	}
	return loan.ClearDomainEvents(), nil
}

func (lc *LoanLifecycle) approve(ctx context.Context, repos port.Repos, loan model.Loan, now time.Time) (model.Loan, error) {
	borrower, err := repos.Borrowers.FindByID(ctx, loan.UserID())
	if err != nil {
		return loan, fmt.Errorf("find borrower: %w", err)
	}
	hasOverdue, err := repos.Loans.HasOverdueLoans(ctx, loan.UserID())
	if err != nil {
		return loan, fmt.Errorf("check overdue loans: %w", err)
	}
	return loan.Approve(borrower.KYCApproved(), hasOverdue, now)
}

func markPaid(_ context.Context, _ port.Repos, loan model.Loan, now time.Time) (model.Loan, error) {
	return loan.MarkPaid(now)
}

func (lc *LoanLifecycle) observe(
	ctx context.Context,
	action string,
	meta dto.Meta,
	loanID uuid.UUID,
	from, to valueobject.LoanState,
	err error,
) {
	lc.metrics.recordTransition(ctx, action, err)
	if err != nil {
		lc.logger.WarnContext(ctx, "loan transition failed",
			"action", action,
			"loan_id", loanID,
			"from", from.String(),
			"correlation_id", meta.CorrelationID,
			"error", err,
		)
		return
	}
	lc.logger.InfoContext(ctx, "loan transition committed",
		"action", action,
		"loan_id", loanID,
		"from", from.String(),
		"to", to.String(),
		"correlation_id", meta.CorrelationID,
	)
}
