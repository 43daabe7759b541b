package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

var _ port.ScoringHistoryQuery = (*ScoringQuery)(nil)

// ScoringQuery aggregates one borrower's loans and payments into scoring
// facts. It takes no locks.
type ScoringQuery struct {
	db pkgpostgres.Querier
}

func NewScoringQuery(db pkgpostgres.Querier) *ScoringQuery {
	return &ScoringQuery{db: db}
}

// Facts counts repayments that were not failed. A repayment is on time when
// its UTC posting date is on or before the loan's due date.
func (q *ScoringQuery) Facts(ctx context.Context, userID uuid.UUID, asOf time.Time) (model.ScoringFacts, error) {
	var (
		facts     model.ScoringFacts
		kycStr    string
		createdAt time.Time
	)
	err := q.db.QueryRow(ctx, `
		SELECT created_at, credit_limit_cents, kyc_status FROM borrowers WHERE id = $1
	`, userID).Scan(&createdAt, &facts.CreditLimitCents, &kycStr)
	if err != nil {
		return model.ScoringFacts{}, notFound(err, "user", userID.String(), "query borrower")
	}
	facts.AccountCreatedAt = createdAt.UTC()
	facts.KYCApproved = kycStr == valueobject.KYCStatusApproved.String()

	yearAgo := asOf.AddDate(-1, 0, 0)
	quarterAgo := asOf.AddDate(0, 0, -90)

	err = q.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(principal_outstanding_cents) FILTER (WHERE state IN ('disbursed', 'overdue')), 0)::bigint,
			COALESCE(bool_or(state IN ('overdue', 'defaulted') AND updated_at >= $2), false)
		FROM loans
		WHERE user_id = $1
	`, userID, quarterAgo).Scan(&facts.ActivePrincipalCents, &facts.DelinquentWithin90Days)
	if err != nil {
		return model.ScoringFacts{}, fmt.Errorf("aggregate loans: %w", err)
	}

	err = q.db.QueryRow(ctx, `
		WITH repayments AS (
			SELECT l.id AS loan_id,
			       l.state,
			       p.posted_at,
			       (p.posted_at AT TIME ZONE 'UTC')::date <= l.due_on AS on_time
			FROM payments p
			JOIN loans l ON l.id = p.loan_id
			WHERE l.user_id = $1
			  AND p.kind = 'repayment'
			  AND p.state <> 'failed'
			  AND p.posted_at BETWEEN $2 AND $3
		)
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE on_time),
			COUNT(DISTINCT loan_id) FILTER (WHERE on_time AND state = 'paid' AND posted_at >= $4)
		FROM repayments
	`, userID, yearAgo, asOf, quarterAgo).Scan(
		&facts.RepaymentsLast12Months,
		&facts.OnTimeRepaymentsLast12Months,
		&facts.OnTimePaidLoansWithin90Days,
	)
	if err != nil {
		return model.ScoringFacts{}, fmt.Errorf("aggregate repayments: %w", err)
	}
	return facts, nil
}
