package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/lendcore/internal/domain/event"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// DefaultThresholdDays is how far past due a loan must be before it may default.
const DefaultThresholdDays = 30

// Transition actions, used in errors, logs and metric attributes.
const (
	ActionApprove       = "approve"
	ActionReject        = "reject"
	ActionDisburse      = "disburse"
	ActionMarkPaid      = "mark_paid"
	ActionMarkOverdue   = "mark_overdue"
	ActionMarkDefaulted = "mark_defaulted"
	ActionRepay         = "apply_repayment"
)

// ---------------------------------------------------------------------------
// Loan aggregate root
// ---------------------------------------------------------------------------

// Loan is an immutable aggregate. Transitions return a new copy carrying the
// events they raised.
type Loan struct {
	createdAt            time.Time
	updatedAt            time.Time
	dueOn                time.Time
	apr                  decimal.Decimal
	product              valueobject.Product
	state                valueobject.LoanState
	domainEvents         []event.DomainEvent
	amountCents          int64
	principalOutstanding int64
	interestAccrued      int64
	penaltyAccrued       int64
	termDays             int
	id                   uuid.UUID
	userID               uuid.UUID
}

// NewLoan originates a pending loan. The product must be the one selected for
// termDays; interestCents and apr come from the interest calculator.
func NewLoan(
	userID uuid.UUID,
	amountCents int64,
	termDays int,
	product valueobject.Product,
	interestCents int64,
	apr decimal.Decimal,
	now time.Time,
) (Loan, error) {
	if userID == uuid.Nil {
		return Loan{}, &ValidationError{Field: "user_id", Reason: "is required"}
	}

	loan := Loan{
		id:                   uuid.New(),
		userID:               userID,
		amountCents:          amountCents,
		termDays:             termDays,
		product:              product,
		state:                valueobject.LoanStatePending,
		dueOn:                DateOf(now).AddDate(0, 0, termDays),
		principalOutstanding: amountCents,
		interestAccrued:      interestCents,
		apr:                  apr,
		createdAt:            now,
		updatedAt:            now,
	}
	if err := loan.Validate(); err != nil {
		return Loan{}, err
	}
	return loan, nil
}

// ReconstructLoan rebuilds a Loan aggregate from persistence.
func ReconstructLoan(
	id, userID uuid.UUID,
	amountCents int64,
	termDays int,
	product valueobject.Product,
	state valueobject.LoanState,
	dueOn time.Time,
	principalOutstanding, interestAccrued, penaltyAccrued int64,
	apr decimal.Decimal,
	createdAt, updatedAt time.Time,
) Loan {
	return Loan{
		id:                   id,
		userID:               userID,
		amountCents:          amountCents,
		termDays:             termDays,
		product:              product,
		state:                state,
		dueOn:                DateOf(dueOn),
		principalOutstanding: principalOutstanding,
		interestAccrued:      interestAccrued,
		penaltyAccrued:       penaltyAccrued,
		apr:                  apr,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
}

// Validate checks the entity invariants enforced on every save.
func (l Loan) Validate() error {
	switch {
	case l.amountCents <= 0:
		return &ValidationError{Field: "amount_cents", Reason: "must be greater than 0"}
	case l.termDays <= 0:
		return &ValidationError{Field: "term_days", Reason: "must be greater than 0"}
	case l.product.IsZero():
		return &ValidationError{Field: "product", Reason: "is required"}
	case l.product.IsLongterm() && !l.product.AllowsTerm(l.termDays):
		return &ValidationError{Field: "term_days", Reason: "must be 270 or 365 days for longterm loans"}
	case !l.product.AllowsTerm(l.termDays):
		return &ValidationError{Field: "term_days", Reason: "invalid for product type " + l.product.String()}
	case !l.product.AmountBounds().Contains(l.amountCents):
		return &ValidationError{Field: "amount_cents", Reason: "out of bounds for product " + l.product.String()}
	case l.principalOutstanding < 0, l.interestAccrued < 0, l.penaltyAccrued < 0:
		return &ValidationError{Field: "balance", Reason: "must not be negative"}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l Loan) ID() uuid.UUID                     { return l.id }
func (l Loan) UserID() uuid.UUID                 { return l.userID }
func (l Loan) AmountCents() int64                { return l.amountCents }
func (l Loan) TermDays() int                     { return l.termDays }
func (l Loan) Product() valueobject.Product      { return l.product }
func (l Loan) State() valueobject.LoanState      { return l.state }
func (l Loan) DueOn() time.Time                  { return l.dueOn }
func (l Loan) PrincipalOutstanding() int64       { return l.principalOutstanding }
func (l Loan) InterestAccrued() int64            { return l.interestAccrued }
func (l Loan) PenaltyAccrued() int64             { return l.penaltyAccrued }
func (l Loan) APR() decimal.Decimal              { return l.apr }
func (l Loan) CreatedAt() time.Time              { return l.createdAt }
func (l Loan) UpdatedAt() time.Time              { return l.updatedAt }
func (l Loan) DomainEvents() []event.DomainEvent { return copyEvents(l.domainEvents) }

// OutstandingBalance is the amount owed: principal plus interest plus penalty.
func (l Loan) OutstandingBalance() int64 {
	return l.principalOutstanding + l.interestAccrued + l.penaltyAccrued
}

// DaysPastDue is the number of whole days between the due date and today's
// date. It is zero or negative before the due date has passed.
func (l Loan) DaysPastDue(now time.Time) int {
	return DaysBetween(l.dueOn, now)
}

// IsPastDue reports a disbursed loan with money owed after its due date.
func (l Loan) IsPastDue(now time.Time) bool {
	return l.state.IsDisbursed() && l.DaysPastDue(now) > 0 && l.OutstandingBalance() > 0
}

// ClearDomainEvents returns a copy of the loan without pending events.
func (l Loan) ClearDomainEvents() Loan {
	next := l
	next.domainEvents = nil
	return next
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// Approve transitions pending -> approved. The borrower's KYC must be approved
// and the borrower must hold no overdue loan.
func (l Loan) Approve(kycApproved, hasOverdueLoans bool, now time.Time) (Loan, error) {
	if !l.state.IsPending() {
		return l, loanTransitionError(ActionApprove, l.state)
	}
	if !kycApproved {
		return l, &GuardFailedError{Action: ActionApprove, Condition: GuardKYCNotApproved}
	}
	if hasOverdueLoans {
		return l, &GuardFailedError{Action: ActionApprove, Condition: GuardUserHasOverdueLoans}
	}

	next := l.transition(valueobject.LoanStateApproved, now)
	next.domainEvents = append(next.domainEvents, event.NewLoanApproved(
		l.id, l.userID, l.amountCents, l.termDays, l.product.String(), now,
	))
	return next, nil
}

// Reject transitions pending -> rejected.
func (l Loan) Reject(reason string, now time.Time) (Loan, error) {
	if !l.state.IsPending() {
		return l, loanTransitionError(ActionReject, l.state)
	}

	next := l.transition(valueobject.LoanStateRejected, now)
	next.domainEvents = append(next.domainEvents, event.NewLoanRejected(
		l.id, l.userID, l.amountCents, l.termDays, l.product.String(), reason, now,
	))
	return next, nil
}

// CanDisburse reports whether the disburse edge exists from the current state.
func (l Loan) CanDisburse() error {
	if !l.state.IsApproved() {
		return loanTransitionError(ActionDisburse, l.state)
	}
	return nil
}

// Disburse transitions approved -> disbursed once the gateway has accepted the
// transfer recorded by payment.
func (l Loan) Disburse(payment Payment, now time.Time) (Loan, error) {
	if err := l.CanDisburse(); err != nil {
		return l, err
	}
	if payment.LoanID() != l.id || !payment.Kind().IsDisbursement() {
		return l, &ValidationError{Field: "payment", Reason: "must be a disbursement of this loan"}
	}

	next := l.transition(valueobject.LoanStateDisbursed, now)
	next.domainEvents = append(next.domainEvents,
		event.NewLoanDisbursementRequested(l.id, l.userID, l.amountCents, payment.ID(), payment.GatewayRef(), now),
		event.NewLoanDisbursed(l.id, l.userID, l.amountCents, payment.GatewayRef(), l.dueOn, now),
	)
	return next, nil
}

// MarkPaid transitions any unpaid state -> paid. The outstanding balance must
// be exactly zero.
func (l Loan) MarkPaid(now time.Time) (Loan, error) {
	if l.state.IsPaid() {
		return l, loanTransitionError(ActionMarkPaid, l.state)
	}
	if balance := l.OutstandingBalance(); balance != 0 {
		return l, &GuardFailedError{
			Action:    ActionMarkPaid,
			Condition: GuardOutstandingBalance,
			Detail:    formatCents(balance),
		}
	}

	next := l.transition(valueobject.LoanStatePaid, now)
	next.domainEvents = append(next.domainEvents, event.NewLoanPaid(l.id, l.userID, l.amountCents, now))
	return next, nil
}

// MarkOverdue transitions disbursed -> overdue once the due date has passed
// with money still owed.
func (l Loan) MarkOverdue(now time.Time) (Loan, error) {
	if !l.state.IsDisbursed() {
		return l, loanTransitionError(ActionMarkOverdue, l.state)
	}
	days := l.DaysPastDue(now)
	if days <= 0 {
		return l, &GuardFailedError{Action: ActionMarkOverdue, Condition: GuardNotPastDue}
	}
	if l.OutstandingBalance() <= 0 {
		return l, &GuardFailedError{Action: ActionMarkOverdue, Condition: GuardNothingOutstanding}
	}

	next := l.transition(valueobject.LoanStateOverdue, now)
	next.domainEvents = append(next.domainEvents, event.NewLoanOverdue(
		l.id, l.userID, l.amountCents, l.OutstandingBalance(), days, now,
	))
	return next, nil
}

// MarkDefaulted transitions overdue or disbursed -> defaulted when the loan is
// more than DefaultThresholdDays past due.
func (l Loan) MarkDefaulted(now time.Time) (Loan, error) {
	if !l.state.IsOverdue() && !l.state.IsDisbursed() {
		return l, loanTransitionError(ActionMarkDefaulted, l.state)
	}
	days := l.DaysPastDue(now)
	if days <= DefaultThresholdDays {
		return l, &GuardFailedError{
			Action:    ActionMarkDefaulted,
			Condition: GuardDefaultThresholdNotMet,
			Detail:    formatDays(days),
		}
	}

	next := l.transition(valueobject.LoanStateDefaulted, now)
	next.domainEvents = append(next.domainEvents, event.NewLoanDefaulted(
		l.id, l.userID, l.amountCents, l.OutstandingBalance(), days, now,
	))
	return next, nil
}

// Allocation is how a cleared repayment was split across balances.
type Allocation struct {
	Penalty   int64
	Interest  int64
	Principal int64
	Unapplied int64
}

// ApplyRepayment reduces penalty, then interest, then principal by amount.
// Any excess over the outstanding balance is reported as unapplied. The loan
// state is untouched; callers move a settled loan to paid through MarkPaid.
func (l Loan) ApplyRepayment(amountCents int64, now time.Time) (Loan, Allocation, error) {
	if !l.state.IsActive() && !l.state.IsDefaulted() {
		return l, Allocation{}, loanTransitionError(ActionRepay, l.state)
	}
	if amountCents <= 0 {
		return l, Allocation{}, &ValidationError{Field: "amount_cents", Reason: "must be greater than 0"}
	}

	remaining := amountCents
	var alloc Allocation

	alloc.Penalty = min(remaining, l.penaltyAccrued)
	remaining -= alloc.Penalty
	alloc.Interest = min(remaining, l.interestAccrued)
	remaining -= alloc.Interest
	alloc.Principal = min(remaining, l.principalOutstanding)
	alloc.Unapplied = remaining - alloc.Principal

	next := l
	next.penaltyAccrued -= alloc.Penalty
	next.interestAccrued -= alloc.Interest
	next.principalOutstanding -= alloc.Principal
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	return next, alloc, nil
}

func (l Loan) transition(to valueobject.LoanState, now time.Time) Loan {
	next := l
	next.state = to
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	return next
}

func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if len(src) == 0 {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}
