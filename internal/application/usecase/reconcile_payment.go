package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// ReconcilePaymentUseCase records repayments and settles pending payments
// reported by the payment gateway's reconciliation feed.
type ReconcilePaymentUseCase struct {
	uow       port.UnitOfWork
	lifecycle *LoanLifecycle
	logger    *slog.Logger
}

// NewReconcilePaymentUseCase wires dependencies.
func NewReconcilePaymentUseCase(uow port.UnitOfWork, lifecycle *LoanLifecycle, logger *slog.Logger) *ReconcilePaymentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcilePaymentUseCase{uow: uow, lifecycle: lifecycle, logger: logger}
}

// RecordRepayment stores a pending repayment against an active or defaulted loan.
func (uc *ReconcilePaymentUseCase) RecordRepayment(ctx context.Context, req dto.RecordRepaymentRequest) (dto.PaymentResponse, error) {
	var payment model.Payment
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		loan, err := repos.Loans.LockByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("lock loan: %w", err)
		}
		if !loan.State().IsActive() && !loan.State().IsDefaulted() {
			return &model.InvalidStateTransitionError{Entity: "loan", Action: model.ActionRepay, From: loan.State().String()}
		}

		payment, err = model.NewRepaymentPayment(loan.ID(), req.AmountCents, req.GatewayRef, uc.lifecycle.clock.Now())
		if err != nil {
			return err
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("create repayment: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	uc.logger.InfoContext(ctx, "repayment recorded",
		"loan_id", req.LoanID,
		"payment_id", payment.ID(),
		"amount_cents", payment.AmountCents(),
	)
	return toPaymentResponse(payment), nil
}

// Clear settles a pending payment. A cleared repayment is applied to penalty,
// then interest, then principal, and a loan left with nothing outstanding is
// marked paid in the same transaction. Clearing a disbursement moves no
// balance.
func (uc *ReconcilePaymentUseCase) Clear(ctx context.Context, req dto.SettlePaymentRequest) (dto.RepaymentResponse, error) {
	meta := withCorrelation(req.Meta)
	var (
		resp     dto.RepaymentResponse
		paid     bool
		from     valueobject.LoanState
		paidLoan model.Loan
	)

	err := uc.uow.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		now := uc.lifecycle.clock.Now()

		loan, payment, err := lockPaymentWithLoan(ctx, repos, req)
		if err != nil {
			return err
		}
		if payment, err = payment.Clear(now); err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		resp.Payment = toPaymentResponse(payment)
		if !payment.Kind().IsRepayment() {
			resp.Loan = toLoanResponse(loan)
			return nil
		}

		next, alloc, err := loan.ApplyRepayment(payment.AmountCents(), now)
		if err != nil {
			return err
		}
		resp.Penalty, resp.Interest, resp.Principal, resp.Unapplied = alloc.Penalty, alloc.Interest, alloc.Principal, alloc.Unapplied

		if next.OutstandingBalance() == 0 {
			from = next.State()
			if next, err = uc.lifecycle.apply(ctx, repos, meta, next, markPaid); err != nil {
				return err
			}
			paid, paidLoan = true, next
		} else if next, err = uc.lifecycle.save(ctx, repos, meta, next); err != nil {
			return err
		}

		resp.Loan = toLoanResponse(next)
		return nil
	})
	if err != nil {
		uc.logger.WarnContext(ctx, "payment clearing failed",
			"payment_id", req.PaymentID,
			"correlation_id", meta.CorrelationID,
			"error", err,
		)
		return dto.RepaymentResponse{}, err
	}

	if paid {
		uc.lifecycle.observe(ctx, model.ActionMarkPaid, meta, paidLoan.ID(), from, paidLoan.State(), nil)
	}
	uc.logger.InfoContext(ctx, "payment cleared",
		"payment_id", req.PaymentID,
		"loan_id", resp.Loan.ID,
		"unapplied_cents", resp.Unapplied,
		"correlation_id", meta.CorrelationID,
	)
	return resp, nil
}

// Fail settles a pending payment as failed. No balance changes.
func (uc *ReconcilePaymentUseCase) Fail(ctx context.Context, req dto.SettlePaymentRequest) (dto.PaymentResponse, error) {
	var payment model.Payment
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		_, locked, err := lockPaymentWithLoan(ctx, repos, req)
		if err != nil {
			return err
		}
		if payment, err = locked.Fail(uc.lifecycle.clock.Now()); err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	uc.logger.InfoContext(ctx, "payment failed", "payment_id", payment.ID(), "loan_id", payment.LoanID())
	return toPaymentResponse(payment), nil
}

// lockPaymentWithLoan locks the payment's loan before the payment itself, the
// same order every loan transition uses.
func lockPaymentWithLoan(ctx context.Context, repos port.Repos, req dto.SettlePaymentRequest) (model.Loan, model.Payment, error) {
	unlocked, err := repos.Payments.FindByID(ctx, req.PaymentID)
	if err != nil {
		return model.Loan{}, model.Payment{}, fmt.Errorf("find payment: %w", err)
	}
	loan, err := repos.Loans.LockByID(ctx, unlocked.LoanID())
	if err != nil {
		return model.Loan{}, model.Payment{}, fmt.Errorf("lock loan: %w", err)
	}
	payment, err := repos.Payments.LockByID(ctx, req.PaymentID)
	if err != nil {
		return model.Loan{}, model.Payment{}, fmt.Errorf("lock payment: %w", err)
	}
	return loan, payment, nil
}
