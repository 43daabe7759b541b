package valueobject

import "fmt"

// LoanState is the lifecycle stage of a loan. The set is closed: the only
// values are the package-level LoanState* variables.
type LoanState struct {
	value string
}

const (
	loanStatePending   = "pending"
	loanStateApproved  = "approved"
	loanStateRejected  = "rejected"
	loanStateDisbursed = "disbursed"
	loanStatePaid      = "paid"
	loanStateOverdue   = "overdue"
	loanStateDefaulted = "defaulted"
)

var (
	LoanStatePending   = LoanState{value: loanStatePending}
	LoanStateApproved  = LoanState{value: loanStateApproved}
	LoanStateRejected  = LoanState{value: loanStateRejected}
	LoanStateDisbursed = LoanState{value: loanStateDisbursed}
	LoanStatePaid      = LoanState{value: loanStatePaid}
	LoanStateOverdue   = LoanState{value: loanStateOverdue}
	LoanStateDefaulted = LoanState{value: loanStateDefaulted}
)

var validLoanStates = map[string]LoanState{
	loanStatePending:   LoanStatePending,
	loanStateApproved:  LoanStateApproved,
	loanStateRejected:  LoanStateRejected,
	loanStateDisbursed: LoanStateDisbursed,
	loanStatePaid:      LoanStatePaid,
	loanStateOverdue:   LoanStateOverdue,
	loanStateDefaulted: LoanStateDefaulted,
}

// NewLoanState parses a persisted state string.
func NewLoanState(s string) (LoanState, error) {
	v, ok := validLoanStates[s]
	if !ok {
		return LoanState{}, fmt.Errorf("invalid loan state: %q", s)
	}
	return v, nil
}

// AllLoanStates lists every state in lifecycle order.
func AllLoanStates() []LoanState {
	return []LoanState{
		LoanStatePending, LoanStateApproved, LoanStateRejected, LoanStateDisbursed,
		LoanStatePaid, LoanStateOverdue, LoanStateDefaulted,
	}
}

func (s LoanState) String() string { return s.value }

func (s LoanState) IsZero() bool { return s.value == "" }

func (s LoanState) Equal(other LoanState) bool { return s.value == other.value }

func (s LoanState) IsPending() bool   { return s.value == loanStatePending }
func (s LoanState) IsApproved() bool  { return s.value == loanStateApproved }
func (s LoanState) IsRejected() bool  { return s.value == loanStateRejected }
func (s LoanState) IsDisbursed() bool { return s.value == loanStateDisbursed }
func (s LoanState) IsPaid() bool      { return s.value == loanStatePaid }
func (s LoanState) IsOverdue() bool   { return s.value == loanStateOverdue }
func (s LoanState) IsDefaulted() bool { return s.value == loanStateDefaulted }

// IsActive reports whether the loan has money out with the borrower.
// Active loans count toward credit utilization.
func (s LoanState) IsActive() bool {
	return s.value == loanStateDisbursed || s.value == loanStateOverdue
}

// IsDelinquent reports overdue or defaulted.
func (s LoanState) IsDelinquent() bool {
	return s.value == loanStateOverdue || s.value == loanStateDefaulted
}
