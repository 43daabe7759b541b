package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// Sentinel errors for broad classification. Every typed error below matches
// exactly one of these through errors.Is.
var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrGuardFailed            = errors.New("guard failed")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")
	ErrInvalidTerm            = errors.New("invalid term")
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
)

// ErrorKind is a stable label for boundary layers and metric attributes.
type ErrorKind string

const (
	KindOK                     ErrorKind = "ok"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindGuardFailed            ErrorKind = "guard_failed"
	KindIdempotencyConflict    ErrorKind = "idempotency_conflict"
	KindInvalidTerm            ErrorKind = "invalid_term"
	KindValidation             ErrorKind = "validation"
	KindNotFound               ErrorKind = "not_found"
	KindInternal               ErrorKind = "internal"
)

// Kind classifies err. Unknown errors are internal.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrInvalidStateTransition):
		return KindInvalidStateTransition
	case errors.Is(err, ErrGuardFailed):
		return KindGuardFailed
	case errors.Is(err, ErrIdempotencyConflict):
		return KindIdempotencyConflict
	case errors.Is(err, ErrInvalidTerm):
		return KindInvalidTerm
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Guard conditions reported by GuardFailedError.
const (
	GuardKYCNotApproved         = "kyc_not_approved"
	GuardUserHasOverdueLoans    = "user_has_overdue_loans"
	GuardOutstandingBalance     = "outstanding_balance_not_zero"
	GuardNotPastDue             = "not_past_due"
	GuardNothingOutstanding     = "nothing_outstanding"
	GuardDefaultThresholdNotMet = "default_threshold_not_reached"
)

// InvalidStateTransitionError is returned when an entity has no edge for
// action out of its current state.
type InvalidStateTransitionError struct {
	Entity string
	Action string
	From   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in state: %s", e.Action, e.Entity, e.From)
}

func loanTransitionError(action string, from valueobject.LoanState) error {
	return &InvalidStateTransitionError{Entity: "loan", Action: action, From: from.String()}
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// GuardFailedError is returned when an edge exists but its business
// precondition does not hold.
type GuardFailedError struct {
	Action    string
	Condition string
	Detail    string
}

func (e *GuardFailedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cannot %s loan: %s (%s)", e.Action, e.Condition, e.Detail)
	}
	return fmt.Sprintf("cannot %s loan: %s", e.Action, e.Condition)
}

func (e *GuardFailedError) Is(target error) bool {
	return target == ErrGuardFailed
}

// IdempotencyConflictError is returned when a key is already bound to another resource.
type IdempotencyConflictError struct {
	Key       string
	Scope     string
	BoundTo   uuid.UUID
	Requested uuid.UUID
}

func (e *IdempotencyConflictError) Error() string {
	return fmt.Sprintf("idempotency key %q in scope %q is bound to %s, not %s", e.Key, e.Scope, e.BoundTo, e.Requested)
}

func (e *IdempotencyConflictError) Is(target error) bool {
	return target == ErrIdempotencyConflict
}

// InvalidTermError is returned for a term length that maps to no product.
type InvalidTermError struct {
	TermDays int
}

func (e *InvalidTermError) Error() string {
	return fmt.Sprintf("invalid term: %d days does not map to a product", e.TermDays)
}

func (e *InvalidTermError) Is(target error) bool {
	return target == ErrInvalidTerm
}

// ValidationError is an entity invariant violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
