package model

import "time"

// ScoringFacts is a borrower's history as of one instant, gathered in a
// single read so a score can be recomputed from it deterministically.
type ScoringFacts struct {
	AccountCreatedAt time.Time
	// RepaymentsLast12Months counts repayments posted in the trailing year;
	// OnTimeRepaymentsLast12Months those posted on or before their loan's due date.
	RepaymentsLast12Months       int
	OnTimeRepaymentsLast12Months int
	// ActivePrincipalCents sums principal outstanding on disbursed and overdue loans.
	ActivePrincipalCents int64
	CreditLimitCents     int64
	// DelinquentWithin90Days is set when an overdue or defaulted loan changed
	// within the last 90 days.
	DelinquentWithin90Days bool
	// OnTimePaidLoansWithin90Days counts distinct paid loans with an on-time
	// repayment in the last 90 days.
	OnTimePaidLoansWithin90Days int
	KYCApproved                 bool
}
