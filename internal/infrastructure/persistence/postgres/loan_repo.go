package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

// Compile-time interface check.
var _ port.LoanRepository = (*LoanRepo)(nil)

const loanColumns = `
	id, user_id, amount_cents, term_days, product, state, due_on,
	principal_outstanding_cents, interest_accrued_cents, penalty_accrued_cents,
	apr, created_at, updated_at`

// LoanRepo implements port.LoanRepository on a pool or a transaction.
type LoanRepo struct {
	db pkgpostgres.Querier
}

// NewLoanRepo creates a new PostgreSQL-backed loan repository.
func NewLoanRepo(db pkgpostgres.Querier) *LoanRepo {
	return &LoanRepo{db: db}
}

func (r *LoanRepo) Create(ctx context.Context, loan model.Loan) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO loans (`+loanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		loan.ID(), loan.UserID(), loan.AmountCents(), loan.TermDays(),
		loan.Product().String(), loan.State().String(), loan.DueOn(),
		loan.PrincipalOutstanding(), loan.InterestAccrued(), loan.PenaltyAccrued(),
		loan.APR(), loan.CreatedAt(), loan.UpdatedAt(),
	)
	switch {
	case err == nil:
		return nil
	case pkgpostgres.IsUniqueViolation(err, "loans_pkey"):
		return &model.ValidationError{Field: "id", Reason: "already exists"}
	case pkgpostgres.IsForeignKeyViolation(err, ""):
		return &model.NotFoundError{Entity: "user", ID: loan.UserID().String()}
	default:
		return fmt.Errorf("insert loan: %w", err)
	}
}

// Update writes the mutable columns. Amount, term, product and due date are
// fixed at origination.
func (r *LoanRepo) Update(ctx context.Context, loan model.Loan) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE loans SET
			state                       = $2,
			principal_outstanding_cents = $3,
			interest_accrued_cents      = $4,
			penalty_accrued_cents       = $5,
			updated_at                  = $6
		WHERE id = $1
	`,
		loan.ID(), loan.State().String(),
		loan.PrincipalOutstanding(), loan.InterestAccrued(), loan.PenaltyAccrued(),
		loan.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Entity: "loan", ID: loan.ID().String()}
	}
	return nil
}

func (r *LoanRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	loan, err := scanLoanRow(row)
	if err != nil {
		return model.Loan{}, notFound(err, "loan", id.String(), "query loan")
	}
	return loan, nil
}

// LockByID reads the loan with SELECT ... FOR UPDATE. Outside a transaction
// the lock is released as soon as the statement completes.
func (r *LoanRepo) LockByID(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id)
	loan, err := scanLoanRow(row)
	if err != nil {
		return model.Loan{}, notFound(err, "loan", id.String(), "lock loan")
	}
	return loan, nil
}

func (r *LoanRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Loan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+loanColumns+`
		FROM loans
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

func (r *LoanRepo) HasOverdueLoans(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM loans WHERE user_id = $1 AND state = $2)
	`, userID, valueobject.LoanStateOverdue.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query overdue loans: %w", err)
	}
	return exists, nil
}

// ListPastDue relies on date arithmetic: a loan is more than minDaysPastDue
// days past due when due_on < asOf - minDaysPastDue.
func (r *LoanRepo) ListPastDue(ctx context.Context, states []valueobject.LoanState, asOf time.Time, minDaysPastDue, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id
		FROM loans
		WHERE state = ANY($1)
		  AND due_on < $2::date - $3::int
		ORDER BY due_on, id
		LIMIT $4
	`, stateValues(states), model.DateOf(asOf), minDaysPastDue, noLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query past due loans: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan loan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---------------------------------------------------------------------------
// internal helpers
// ---------------------------------------------------------------------------

func scanLoanRow(s scannable) (model.Loan, error) {
	var (
		id, userID                   uuid.UUID
		amountCents                  int64
		termDays                     int
		productStr, stateStr         string
		dueOn                        time.Time
		principal, interest, penalty int64
		apr                          decimal.NullDecimal
		createdAt, updatedAt         time.Time
	)

	err := s.Scan(
		&id, &userID, &amountCents, &termDays, &productStr, &stateStr, &dueOn,
		&principal, &interest, &penalty,
		&apr, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Loan{}, err
	}

	product, err := valueobject.NewProduct(productStr)
	if err != nil {
		return model.Loan{}, fmt.Errorf("parse loan product: %w", err)
	}
	state, err := valueobject.NewLoanState(stateStr)
	if err != nil {
		return model.Loan{}, fmt.Errorf("parse loan state: %w", err)
	}

	return model.ReconstructLoan(
		id, userID, amountCents, termDays, product, state, dueOn,
		principal, interest, penalty,
		apr.Decimal, createdAt.UTC(), updatedAt.UTC(),
	), nil
}
