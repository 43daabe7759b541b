package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/model"
)

type scoringQuery struct {
	a access
}

// Facts gathers the scoring inputs for one borrower. Failed payments and
// disbursements never count as repayment history.
func (q scoringQuery) Facts(_ context.Context, userID uuid.UUID, asOf time.Time) (model.ScoringFacts, error) {
	var facts model.ScoringFacts
	err := q.a.read(func(t *tables) error {
		borrower, ok := t.borrowers[userID]
		if !ok {
			return borrowerNotFound(userID)
		}
		facts.AccountCreatedAt = borrower.CreatedAt()
		facts.CreditLimitCents = borrower.CreditLimitCents()
		facts.KYCApproved = borrower.KYCApproved()

		yearAgo := asOf.AddDate(-1, 0, 0)
		quarterAgo := asOf.AddDate(0, 0, -90)
		onTimePaid := make(map[uuid.UUID]struct{})

		for _, l := range t.loans {
			if l.UserID() != userID {
				continue
			}
			if l.State().IsActive() {
				facts.ActivePrincipalCents += l.PrincipalOutstanding()
			}
			if l.State().IsDelinquent() && !l.UpdatedAt().Before(quarterAgo) {
				facts.DelinquentWithin90Days = true
			}

			for _, p := range t.payments {
				if p.LoanID() != l.ID() || !p.Kind().IsRepayment() || p.State().IsFailed() {
					continue
				}
				posted := p.PostedAt()
				if posted.After(asOf) || posted.Before(yearAgo) {
					continue
				}
				onTime := !model.DateOf(posted).After(l.DueOn())
				facts.RepaymentsLast12Months++
				if onTime {
					facts.OnTimeRepaymentsLast12Months++
				}
				if onTime && l.State().IsPaid() && !posted.Before(quarterAgo) {
					onTimePaid[l.ID()] = struct{}{}
				}
			}
		}
		facts.OnTimePaidLoansWithin90Days = len(onTimePaid)
		return nil
	})
	return facts, err
}
