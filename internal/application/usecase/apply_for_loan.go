package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/domain/event"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/service"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// DefaultAutoApprovalThreshold is the minimum score for automatic approval of
// micro loans.
const DefaultAutoApprovalThreshold = 640

// Decision reasons reported by ApplyForLoanUseCase.
const (
	ReasonAutoApproved        = "auto_approved_micro_loan"
	ReasonAutoApprovalFailed  = "auto_approval_failed"
	ReasonKYCNotApproved      = "kyc_not_approved"
	ReasonHasOverdueLoans     = "user_has_overdue_loans"
	ReasonBelowScoreThreshold = "below_score_threshold"
	ReasonManualReview        = "pending_manual_review"
)

// ApplyForLoanUseCase originates loans idempotently and auto-approves micro
// loans for borrowers in good standing.
type ApplyForLoanUseCase struct {
	uow       port.UnitOfWork
	lifecycle *LoanLifecycle
	scorer    *ComputeCreditScoreUseCase
	threshold int
	logger    *slog.Logger
}

// NewApplyForLoanUseCase wires dependencies. A non-positive threshold falls
// back to DefaultAutoApprovalThreshold.
func NewApplyForLoanUseCase(
	uow port.UnitOfWork,
	lifecycle *LoanLifecycle,
	scorer *ComputeCreditScoreUseCase,
	threshold int,
	logger *slog.Logger,
) *ApplyForLoanUseCase {
	if threshold <= 0 {
		threshold = DefaultAutoApprovalThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplyForLoanUseCase{
		uow:       uow,
		lifecycle: lifecycle,
		scorer:    scorer,
		threshold: threshold,
		logger:    logger,
	}
}

// Execute creates a pending loan, rescoring the borrower with persist and
// emit, and approves it in the same transaction when the product is micro,
// KYC is approved, the score meets the threshold and no loan is overdue.
// Repeating a request with the same key returns the loan created first.
func (uc *ApplyForLoanUseCase) Execute(ctx context.Context, req dto.ApplyForLoanRequest) (dto.ApplyForLoanResponse, error) {
	meta := withCorrelation(req.Meta)

	quote, err := service.CalculateInterest(req.AmountCents, req.TermDays)
	if err != nil {
		return dto.ApplyForLoanResponse{}, err
	}

	var (
		resp     dto.ApplyForLoanResponse
		approved bool
		loanID   uuid.UUID
	)
	err = uc.uow.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		now := uc.lifecycle.clock.Now()

		borrower, err := repos.Borrowers.FindByID(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("find borrower: %w", err)
		}

		loan, err := model.NewLoan(req.UserID, req.AmountCents, req.TermDays, quote.Product, quote.InterestCents, quote.APR, now)
		if err != nil {
			return err
		}
		loanID = loan.ID()

		key, err := model.NewIdempotencyKey(req.IdempotencyKey, model.LoanCreateScope(req.UserID), event.AggregateLoan, loan.ID(), now)
		if err != nil {
			return err
		}
		reservation, err := repos.Idempotency.Reserve(ctx, key)
		var conflict *model.IdempotencyConflictError
		switch {
		case errors.As(err, &conflict):
			resp, err = uc.replay(ctx, repos, borrower, conflict.BoundTo)
			return err
		case err != nil:
			return fmt.Errorf("reserve idempotency key: %w", err)
		case !reservation.Created:
			resp, err = uc.replay(ctx, repos, borrower, reservation.BoundResource)
			return err
		}

		if err := repos.Loans.Create(ctx, loan); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}

		score, err := uc.scorer.compute(ctx, repos, meta, req.UserID, true, true, now)
		if err != nil {
			return err
		}
		hasOverdue, err := repos.Loans.HasOverdueLoans(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("check overdue loans: %w", err)
		}

		decision := dto.ApplicationDecision{UserScore: score.Score, ScoreThreshold: uc.threshold}
		switch {
		case loan.Product().IsMicro() && borrower.KYCApproved() && score.Score >= uc.threshold && !hasOverdue:
			next, err := uc.lifecycle.apply(ctx, repos, meta, loan, uc.lifecycle.approve)
			switch {
			case errors.Is(err, model.ErrGuardFailed), errors.Is(err, model.ErrInvalidStateTransition):
				decision.Reason = ReasonAutoApprovalFailed
			case err != nil:
				return err
			default:
				loan = next
				approved = true
				decision.Approved = true
				decision.Reason = ReasonAutoApproved
			}
		case !borrower.KYCApproved():
			decision.Reason = ReasonKYCNotApproved
		case hasOverdue:
			decision.Reason = ReasonHasOverdueLoans
		case score.Score < uc.threshold:
			decision.Reason = ReasonBelowScoreThreshold
		default:
			decision.Reason = ReasonManualReview
		}

		resp = dto.ApplyForLoanResponse{Loan: toLoanResponse(loan), Decision: decision}
		return nil
	})
	if err != nil {
		uc.logger.WarnContext(ctx, "loan application failed",
			"user_id", req.UserID,
			"correlation_id", meta.CorrelationID,
			"error", err,
		)
		return dto.ApplyForLoanResponse{}, err
	}

	if approved {
		uc.lifecycle.observe(ctx, model.ActionApprove, meta, loanID,
			valueobject.LoanStatePending, valueobject.LoanStateApproved, nil)
	}
	uc.logger.InfoContext(ctx, "loan application decided",
		"loan_id", resp.Loan.ID,
		"user_id", req.UserID,
		"replayed", resp.Replayed,
		"approved", resp.Decision.Approved,
		"reason", resp.Decision.Reason,
		"correlation_id", meta.CorrelationID,
	)
	return resp, nil
}

// replay rebuilds the response for a loan created by an earlier request.
func (uc *ApplyForLoanUseCase) replay(ctx context.Context, repos port.Repos, borrower model.Borrower, loanID uuid.UUID) (dto.ApplyForLoanResponse, error) {
	loan, err := repos.Loans.FindByID(ctx, loanID)
	if err != nil {
		return dto.ApplyForLoanResponse{}, fmt.Errorf("find replayed loan: %w", err)
	}

	decision := dto.ApplicationDecision{
		UserScore:      borrower.CurrentScore(),
		ScoreThreshold: uc.threshold,
		Reason:         ReasonManualReview,
	}
	if loan.State().IsApproved() {
		decision.Approved = true
		decision.Reason = ReasonAutoApproved
	}
	return dto.ApplyForLoanResponse{Loan: toLoanResponse(loan), Decision: decision, Replayed: true}, nil
}
