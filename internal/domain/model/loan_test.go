package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/lendcore/internal/domain/event"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

var originated = time.Date(2025, time.September, 1, 9, 30, 0, 0, time.UTC)

func newTestLoan(t *testing.T) model.Loan {
	t.Helper()
	loan, err := model.NewLoan(uuid.New(), 1_000_000, 30, valueobject.ProductMicro, 411, decimal.RequireFromString("5.00"), originated)
	require.NoError(t, err)
	return loan
}

// loanIn rebuilds a loan in the given state with due date dueOn and the given balances.
func loanIn(state valueobject.LoanState, dueOn time.Time, principal, interest, penalty int64) model.Loan {
	return model.ReconstructLoan(
		uuid.New(), uuid.New(), 1_000_000, 30, valueobject.ProductMicro, state, dueOn,
		principal, interest, penalty, decimal.Zero, originated, originated,
	)
}

func TestLoan_Creation(t *testing.T) {
	loan := newTestLoan(t)

	assert.NotEqual(t, uuid.Nil, loan.ID())
	assert.True(t, loan.State().IsPending())
	assert.True(t, loan.Product().IsMicro())
	assert.Equal(t, int64(1_000_000), loan.PrincipalOutstanding())
	assert.Equal(t, int64(411), loan.InterestAccrued())
	assert.Equal(t, int64(0), loan.PenaltyAccrued())
	assert.Equal(t, int64(1_000_411), loan.OutstandingBalance())
	assert.Equal(t, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), loan.DueOn())
	assert.Empty(t, loan.DomainEvents())
}

func TestLoan_CreationValidation(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		term    int
		product valueobject.Product
		field   string
	}{
		{name: "zero amount", amount: 0, term: 30, product: valueobject.ProductMicro, field: "amount_cents"},
		{name: "negative amount", amount: -5, term: 30, product: valueobject.ProductMicro, field: "amount_cents"},
		{name: "above micro bound", amount: 25_000_01, term: 30, product: valueobject.ProductMicro, field: "amount_cents"},
		{name: "below extended bound", amount: 1_000_00, term: 90, product: valueobject.ProductExtended, field: "amount_cents"},
		{name: "longterm wrong term", amount: 30_000_00, term: 300, product: valueobject.ProductLongterm, field: "term_days"},
		{name: "product does not match term", amount: 10_000_00, term: 90, product: valueobject.ProductMicro, field: "term_days"},
		{name: "missing product", amount: 10_000_00, term: 30, field: "product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.NewLoan(uuid.New(), tt.amount, tt.term, tt.product, 0, decimal.Zero, originated)
			require.ErrorIs(t, err, model.ErrValidation)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoan_LongtermTermsAccepted(t *testing.T) {
	for _, term := range []int{270, 365} {
		_, err := model.NewLoan(uuid.New(), 30_000_00, term, valueobject.ProductLongterm, 0, decimal.Zero, originated)
		assert.NoError(t, err, "term %d", term)
	}
}

func TestLoan_Approve(t *testing.T) {
	loan := newTestLoan(t)
	now := originated.Add(time.Hour)

	approved, err := loan.Approve(true, false, now)
	require.NoError(t, err)

	assert.True(t, approved.State().IsApproved())
	assert.True(t, loan.State().IsPending(), "original is not mutated")
	require.Len(t, approved.DomainEvents(), 1)

	ev, ok := approved.DomainEvents()[0].(event.LoanApproved)
	require.True(t, ok)
	assert.Equal(t, event.NameLoanApproved, ev.EventType())

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	for _, key := range []string{"loan_id", "user_id", "amount", "term_days", "product"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "micro", fields["product"])
	assert.EqualValues(t, 1_000_000, fields["amount"])
}

func TestLoan_ApproveGuards(t *testing.T) {
	tests := []struct {
		name       string
		kyc        bool
		hasOverdue bool
		condition  string
	}{
		{name: "kyc not approved", kyc: false, condition: model.GuardKYCNotApproved},
		{name: "user has overdue loans", kyc: true, hasOverdue: true, condition: model.GuardUserHasOverdueLoans},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := newTestLoan(t)
			_, err := loan.Approve(tt.kyc, tt.hasOverdue, originated)
			require.ErrorIs(t, err, model.ErrGuardFailed)
			assert.NotErrorIs(t, err, model.ErrInvalidStateTransition)

			var gerr *model.GuardFailedError
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, tt.condition, gerr.Condition)
		})
	}
}

func TestLoan_InvalidTransitionsNameCurrentState(t *testing.T) {
	due := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	now := due.AddDate(0, 0, 45)

	tests := []struct {
		name  string
		state valueobject.LoanState
		do    func(l model.Loan) (model.Loan, error)
	}{
		{name: "approve approved", state: valueobject.LoanStateApproved, do: func(l model.Loan) (model.Loan, error) { return l.Approve(true, false, now) }},
		{name: "approve disbursed", state: valueobject.LoanStateDisbursed, do: func(l model.Loan) (model.Loan, error) { return l.Approve(true, false, now) }},
		{name: "reject approved", state: valueobject.LoanStateApproved, do: func(l model.Loan) (model.Loan, error) { return l.Reject("late", now) }},
		{name: "overdue from approved", state: valueobject.LoanStateApproved, do: func(l model.Loan) (model.Loan, error) { return l.MarkOverdue(now) }},
		{name: "default from pending", state: valueobject.LoanStatePending, do: func(l model.Loan) (model.Loan, error) { return l.MarkDefaulted(now) }},
		{name: "default from paid", state: valueobject.LoanStatePaid, do: func(l model.Loan) (model.Loan, error) { return l.MarkDefaulted(now) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := loanIn(tt.state, due, 1_000_000, 0, 0)
			got, err := tt.do(loan)
			require.ErrorIs(t, err, model.ErrInvalidStateTransition)
			assert.Contains(t, err.Error(), tt.state.String())
			assert.Empty(t, got.DomainEvents())
		})
	}
}

func TestLoan_Reject(t *testing.T) {
	rejected, err := newTestLoan(t).Reject("insufficient income", originated)
	require.NoError(t, err)
	assert.True(t, rejected.State().IsRejected())

	require.Len(t, rejected.DomainEvents(), 1)
	ev := rejected.DomainEvents()[0].(event.LoanRejected)
	assert.Equal(t, "insufficient income", ev.Reason)
}

func TestLoan_Disburse(t *testing.T) {
	loan := loanIn(valueobject.LoanStateApproved, originated.AddDate(0, 0, 30), 1_000_000, 411, 0)
	payment, err := model.NewDisbursementPayment(loan.ID(), loan.AmountCents(), "stub-ref", originated)
	require.NoError(t, err)

	disbursed, err := loan.Disburse(payment, originated)
	require.NoError(t, err)
	assert.True(t, disbursed.State().IsDisbursed())

	evs := disbursed.DomainEvents()
	require.Len(t, evs, 2)
	assert.Equal(t, event.NameLoanDisbursementRequested, evs[0].EventType())
	assert.Equal(t, event.NameLoanDisbursed, evs[1].EventType())
}

func TestLoan_DisburseRejectsForeignPayment(t *testing.T) {
	loan := loanIn(valueobject.LoanStateApproved, originated, 1_000_000, 0, 0)
	payment, err := model.NewDisbursementPayment(uuid.New(), loan.AmountCents(), "stub-ref", originated)
	require.NoError(t, err)

	_, err = loan.Disburse(payment, originated)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestLoan_MarkPaid(t *testing.T) {
	t.Run("zero balance", func(t *testing.T) {
		paid, err := loanIn(valueobject.LoanStateOverdue, originated, 0, 0, 0).MarkPaid(originated)
		require.NoError(t, err)
		assert.True(t, paid.State().IsPaid())
		require.Len(t, paid.DomainEvents(), 1)
		assert.Equal(t, event.NameLoanPaid, paid.DomainEvents()[0].EventType())
	})

	t.Run("non-zero balance", func(t *testing.T) {
		_, err := loanIn(valueobject.LoanStateDisbursed, originated, 0, 1, 0).MarkPaid(originated)
		require.ErrorIs(t, err, model.ErrGuardFailed)
		assert.Contains(t, err.Error(), "1 cents outstanding")
	})

	t.Run("already paid", func(t *testing.T) {
		_, err := loanIn(valueobject.LoanStatePaid, originated, 0, 0, 0).MarkPaid(originated)
		assert.ErrorIs(t, err, model.ErrInvalidStateTransition)
	})
}

func TestLoan_MarkOverdue(t *testing.T) {
	due := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		now       time.Time
		principal int64
		wantDays  int
		condition string
	}{
		{name: "one day late", now: due.AddDate(0, 0, 1).Add(8 * time.Hour), principal: 100, wantDays: 1},
		{name: "on due date", now: due.Add(23 * time.Hour), principal: 100, condition: model.GuardNotPastDue},
		{name: "before due date", now: due.AddDate(0, 0, -3), principal: 100, condition: model.GuardNotPastDue},
		{name: "nothing owed", now: due.AddDate(0, 0, 5), principal: 0, condition: model.GuardNothingOutstanding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := loanIn(valueobject.LoanStateDisbursed, due, tt.principal, 0, 0)
			got, err := loan.MarkOverdue(tt.now)
			if tt.condition != "" {
				var gerr *model.GuardFailedError
				require.ErrorAs(t, err, &gerr)
				assert.Equal(t, tt.condition, gerr.Condition)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.State().IsOverdue())
			ev := got.DomainEvents()[0].(event.LoanOverdue)
			assert.Equal(t, tt.wantDays, ev.DaysOverdue)
		})
	}
}

func TestLoan_MarkDefaulted(t *testing.T) {
	due := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		state   valueobject.LoanState
		daysDue int
		wantErr error
	}{
		{name: "overdue 31 days", state: valueobject.LoanStateOverdue, daysDue: 31},
		{name: "disbursed 45 days", state: valueobject.LoanStateDisbursed, daysDue: 45},
		{name: "overdue exactly 30 days", state: valueobject.LoanStateOverdue, daysDue: 30, wantErr: model.ErrGuardFailed},
		{name: "overdue 10 days", state: valueobject.LoanStateOverdue, daysDue: 10, wantErr: model.ErrGuardFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := loanIn(tt.state, due, 500, 0, 0)
			got, err := loan.MarkDefaulted(due.AddDate(0, 0, tt.daysDue))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got.DomainEvents())
				return
			}
			require.NoError(t, err)
			assert.True(t, got.State().IsDefaulted())
			ev := got.DomainEvents()[0].(event.LoanDefaulted)
			assert.Equal(t, tt.daysDue, ev.DaysPastDue)
		})
	}
}

func TestLoan_ApplyRepayment(t *testing.T) {
	// Starting balances: principal 1,000, interest 100, penalty 50.
	tests := []struct {
		name        string
		amount      int64
		want        model.Allocation
		wantBalance [3]int64 // principal, interest, penalty
	}{
		{name: "covers penalty only", amount: 50, want: model.Allocation{Penalty: 50}, wantBalance: [3]int64{1_000, 100, 0}},
		{name: "spills into interest", amount: 120, want: model.Allocation{Penalty: 50, Interest: 70}, wantBalance: [3]int64{1_000, 30, 0}},
		{name: "reaches principal", amount: 500, want: model.Allocation{Penalty: 50, Interest: 100, Principal: 350}, wantBalance: [3]int64{650, 0, 0}},
		{name: "overpayment is unapplied", amount: 1_300, want: model.Allocation{Penalty: 50, Interest: 100, Principal: 1_000, Unapplied: 150}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := loanIn(valueobject.LoanStateDisbursed, originated, 1_000, 100, 50)
			got, alloc, err := loan.ApplyRepayment(tt.amount, originated)
			require.NoError(t, err)
			assert.Equal(t, tt.want, alloc)
			assert.Equal(t, tt.wantBalance, [3]int64{got.PrincipalOutstanding(), got.InterestAccrued(), got.PenaltyAccrued()})
			assert.True(t, got.State().IsDisbursed(), "repayment alone never changes state")
		})
	}
}

func TestLoan_ApplyRepaymentRejected(t *testing.T) {
	_, _, err := loanIn(valueobject.LoanStatePending, originated, 1_000, 0, 0).ApplyRepayment(100, originated)
	assert.ErrorIs(t, err, model.ErrInvalidStateTransition)

	_, _, err = loanIn(valueobject.LoanStateDisbursed, originated, 1_000, 0, 0).ApplyRepayment(0, originated)
	assert.ErrorIs(t, err, model.ErrValidation)
}
