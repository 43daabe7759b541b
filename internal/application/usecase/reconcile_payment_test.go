package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/domain/event"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
	"github.com/bibbank/lendcore/pkg/testutil"
)

func TestReconcilePayment_ClearRepayment(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		state         valueobject.LoanState
		amount        int64
		wantInterest  int64
		wantPrincipal int64
		wantUnapplied int64
		wantState     string
		wantOutbox    []string
	}{
		{
			name:          "partial repayment pays interest first",
			state:         valueobject.LoanStateDisbursed,
			amount:        500,
			wantInterest:  411,
			wantPrincipal: 89,
			wantState:     "disbursed",
		},
		{
			name:          "exact repayment settles the loan",
			state:         valueobject.LoanStateDisbursed,
			amount:        1_000_411,
			wantInterest:  411,
			wantPrincipal: 1_000_000,
			wantState:     "paid",
			wantOutbox:    []string{event.NameLoanPaid},
		},
		{
			name:          "overpayment reports the excess",
			state:         valueobject.LoanStateOverdue,
			amount:        1_000_500,
			wantInterest:  411,
			wantPrincipal: 1_000_000,
			wantUnapplied: 89,
			wantState:     "paid",
			wantOutbox:    []string{event.NameLoanPaid},
		},
		{
			name:          "defaulted loans still accept money",
			state:         valueobject.LoanStateDefaulted,
			amount:        300,
			wantInterest:  300,
			wantState:     "defaulted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			borrower := h.seedBorrower(t, valueobject.KYCStatusApproved, 5_000_000, testutil.TestNow)
			loan := h.seedLoan(t, borrower.ID(), tt.state, 1_000_000, 30, testutil.TestNow)

			payment, err := h.reconcile.RecordRepayment(ctx, dto.RecordRepaymentRequest{LoanID: loan.ID(), AmountCents: tt.amount, GatewayRef: "r-1"})
			require.NoError(t, err)
			assert.Equal(t, "pending", payment.State)
			assert.Equal(t, "repayment", payment.Kind)

			resp, err := h.reconcile.Clear(ctx, dto.SettlePaymentRequest{PaymentID: payment.ID})
			require.NoError(t, err)

			assert.Equal(t, "cleared", resp.Payment.State)
			assert.Zero(t, resp.Penalty)
			assert.Equal(t, tt.wantInterest, resp.Interest)
			assert.Equal(t, tt.wantPrincipal, resp.Principal)
			assert.Equal(t, tt.wantUnapplied, resp.Unapplied)
			assert.Equal(t, tt.wantState, resp.Loan.State)
			assert.Equal(t, tt.amount-tt.wantUnapplied, 1_000_411-resp.Loan.OutstandingBalanceCents)

			if tt.wantOutbox == nil {
				assert.Empty(t, h.store.OutboxEntries())
			} else {
				assert.Equal(t, tt.wantOutbox, h.outboxNames())
			}
		})
	}
}

func TestReconcilePayment_SettlementIsFinal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	borrower := h.seedBorrower(t, valueobject.KYCStatusApproved, 5_000_000, testutil.TestNow)
	loan := h.seedLoan(t, borrower.ID(), valueobject.LoanStateDisbursed, 1_000_000, 30, testutil.TestNow)

	cleared, err := h.reconcile.RecordRepayment(ctx, dto.RecordRepaymentRequest{LoanID: loan.ID(), AmountCents: 100, GatewayRef: "r-1"})
	require.NoError(t, err)
	_, err = h.reconcile.Clear(ctx, dto.SettlePaymentRequest{PaymentID: cleared.ID})
	require.NoError(t, err)

	_, err = h.reconcile.Clear(ctx, dto.SettlePaymentRequest{PaymentID: cleared.ID})
	testutil.AssertErrorIs(t, err, model.ErrInvalidStateTransition)
	assert.EqualError(t, err, "cannot clear payment in state: cleared")
	_, err = h.reconcile.Fail(ctx, dto.SettlePaymentRequest{PaymentID: cleared.ID})
	testutil.AssertErrorIs(t, err, model.ErrInvalidStateTransition)

	failed, err := h.reconcile.RecordRepayment(ctx, dto.RecordRepaymentRequest{LoanID: loan.ID(), AmountCents: 200, GatewayRef: "r-2"})
	require.NoError(t, err)
	resp, err := h.reconcile.Fail(ctx, dto.SettlePaymentRequest{PaymentID: failed.ID})
	require.NoError(t, err)
	assert.Equal(t, "failed", resp.State)

	_, err = h.reconcile.Clear(ctx, dto.SettlePaymentRequest{PaymentID: failed.ID})
	testutil.AssertErrorIs(t, err, model.ErrInvalidStateTransition)

	stored := h.loan(t, loan.ID())
	assert.Equal(t, int64(1_000_000), stored.PrincipalOutstanding())
	assert.Equal(t, int64(311), stored.InterestAccrued(), "only the cleared repayment moved balances")
}

func TestReconcilePayment_ClearDisbursementMovesNoBalance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	borrower := h.seedBorrower(t, valueobject.KYCStatusApproved, 5_000_000, testutil.TestNow)
	loan := h.seedLoan(t, borrower.ID(), valueobject.LoanStateApproved, 1_000_000, 30, testutil.TestNow)

	disbursed, err := h.lifecycle.Disburse(ctx, dto.DisburseLoanRequest{LoanID: loan.ID(), IdempotencyKey: "K1"})
	require.NoError(t, err)

	resp, err := h.reconcile.Clear(ctx, dto.SettlePaymentRequest{PaymentID: disbursed.Payment.ID})
	require.NoError(t, err)
	assert.Equal(t, "cleared", resp.Payment.State)
	assert.Equal(t, disbursed.Loan.OutstandingBalanceCents, resp.Loan.OutstandingBalanceCents)
	assert.Equal(t, "disbursed", resp.Loan.State)
	assert.Zero(t, resp.Interest+resp.Principal+resp.Unapplied)
}

func TestReconcilePayment_RecordRepaymentErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	borrower := h.seedBorrower(t, valueobject.KYCStatusApproved, 5_000_000, testutil.TestNow)
	pending := h.seedLoan(t, borrower.ID(), valueobject.LoanStatePending, 1_000_000, 30, testutil.TestNow)
	active := h.seedLoan(t, borrower.ID(), valueobject.LoanStateDisbursed, 1_000_000, 30, testutil.TestNow)

	_, err := h.reconcile.RecordRepayment(ctx, dto.RecordRepaymentRequest{LoanID: pending.ID(), AmountCents: 100, GatewayRef: "r-1"})
	testutil.AssertErrorIs(t, err, model.ErrInvalidStateTransition)

	_, err = h.reconcile.RecordRepayment(ctx, dto.RecordRepaymentRequest{LoanID: active.ID(), AmountCents: 0, GatewayRef: "r-1"})
	testutil.AssertErrorIs(t, err, model.ErrValidation)

	_, err = h.reconcile.RecordRepayment(ctx, dto.RecordRepaymentRequest{LoanID: active.ID(), AmountCents: 100, GatewayRef: "r-1"})
	require.NoError(t, err)
	_, err = h.reconcile.RecordRepayment(ctx, dto.RecordRepaymentRequest{LoanID: active.ID(), AmountCents: 100, GatewayRef: "r-1"})
	testutil.AssertErrorIs(t, err, model.ErrValidation)

	_, err = h.reconcile.RecordRepayment(ctx, dto.RecordRepaymentRequest{LoanID: uuid.New(), AmountCents: 100, GatewayRef: "r-9"})
	testutil.AssertErrorIs(t, err, model.ErrNotFound)

	_, err = h.reconcile.Clear(ctx, dto.SettlePaymentRequest{PaymentID: uuid.New()})
	testutil.AssertErrorIs(t, err, model.ErrNotFound)
}
