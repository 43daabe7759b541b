package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// Payment is a money movement against a loan. Only its state changes after
// creation, and only out of pending.
type Payment struct {
	postedAt    time.Time
	createdAt   time.Time
	updatedAt   time.Time
	kind        valueobject.PaymentKind
	state       valueobject.PaymentState
	gatewayRef  string
	amountCents int64
	id          uuid.UUID
	loanID      uuid.UUID
}

// NewDisbursementPayment records the transfer of the principal to the borrower.
func NewDisbursementPayment(loanID uuid.UUID, amountCents int64, gatewayRef string, now time.Time) (Payment, error) {
	return newPayment(loanID, valueobject.PaymentKindDisbursement, amountCents, gatewayRef, now)
}

// NewRepaymentPayment records money received from the borrower, pending reconciliation.
func NewRepaymentPayment(loanID uuid.UUID, amountCents int64, gatewayRef string, now time.Time) (Payment, error) {
	return newPayment(loanID, valueobject.PaymentKindRepayment, amountCents, gatewayRef, now)
}

func newPayment(loanID uuid.UUID, kind valueobject.PaymentKind, amountCents int64, gatewayRef string, now time.Time) (Payment, error) {
	if loanID == uuid.Nil {
		return Payment{}, &ValidationError{Field: "loan_id", Reason: "is required"}
	}
	if amountCents <= 0 {
		return Payment{}, &ValidationError{Field: "amount_cents", Reason: "must be greater than 0"}
	}
	return Payment{
		id:          uuid.New(),
		loanID:      loanID,
		kind:        kind,
		amountCents: amountCents,
		state:       valueobject.PaymentStatePending,
		gatewayRef:  gatewayRef,
		postedAt:    now,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructPayment rebuilds a Payment from persistence.
func ReconstructPayment(
	id, loanID uuid.UUID,
	kind valueobject.PaymentKind,
	amountCents int64,
	state valueobject.PaymentState,
	gatewayRef string,
	postedAt, createdAt, updatedAt time.Time,
) Payment {
	return Payment{
		id:          id,
		loanID:      loanID,
		kind:        kind,
		amountCents: amountCents,
		state:       state,
		gatewayRef:  gatewayRef,
		postedAt:    postedAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (p Payment) ID() uuid.UUID                   { return p.id }
func (p Payment) LoanID() uuid.UUID               { return p.loanID }
func (p Payment) Kind() valueobject.PaymentKind   { return p.kind }
func (p Payment) AmountCents() int64              { return p.amountCents }
func (p Payment) State() valueobject.PaymentState { return p.state }
func (p Payment) GatewayRef() string              { return p.gatewayRef }
func (p Payment) PostedAt() time.Time             { return p.postedAt }
func (p Payment) CreatedAt() time.Time            { return p.createdAt }
func (p Payment) UpdatedAt() time.Time            { return p.updatedAt }

// Clear transitions pending -> cleared.
func (p Payment) Clear(now time.Time) (Payment, error) {
	return p.settle("clear", valueobject.PaymentStateCleared, now)
}

// Fail transitions pending -> failed.
func (p Payment) Fail(now time.Time) (Payment, error) {
	return p.settle("fail", valueobject.PaymentStateFailed, now)
}

func (p Payment) settle(action string, to valueobject.PaymentState, now time.Time) (Payment, error) {
	if !p.state.IsPending() {
		return p, &InvalidStateTransitionError{Entity: "payment", Action: action, From: p.state.String()}
	}
	next := p
	next.state = to
	next.updatedAt = now
	return next, nil
}
