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

// Compile-time interface check.
var _ port.PaymentRepository = (*PaymentRepo)(nil)

const (
	paymentColumns       = `id, loan_id, kind, amount_cents, state, gateway_ref, posted_at, created_at, updated_at`
	gatewayRefConstraint = "payments_gateway_ref_key"
)

// PaymentRepo implements port.PaymentRepository.
type PaymentRepo struct {
	db pkgpostgres.Querier
}

func NewPaymentRepo(db pkgpostgres.Querier) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) Create(ctx context.Context, payment model.Payment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		payment.ID(), payment.LoanID(), payment.Kind().String(), payment.AmountCents(),
		payment.State().String(), nullIfEmpty(payment.GatewayRef()),
		payment.PostedAt(), payment.CreatedAt(), payment.UpdatedAt(),
	)
	switch {
	case err == nil:
		return nil
	case pkgpostgres.IsUniqueViolation(err, gatewayRefConstraint):
		return &model.ValidationError{Field: "gateway_ref", Reason: "already recorded"}
	case pkgpostgres.IsUniqueViolation(err, "payments_pkey"):
		return &model.ValidationError{Field: "id", Reason: "already exists"}
	case pkgpostgres.IsForeignKeyViolation(err, ""):
		return &model.NotFoundError{Entity: "loan", ID: payment.LoanID().String()}
	default:
		return fmt.Errorf("insert payment: %w", err)
	}
}

func (r *PaymentRepo) Update(ctx context.Context, payment model.Payment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET state = $2, updated_at = $3 WHERE id = $1
	`, payment.ID(), payment.State().String(), payment.UpdatedAt())
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Entity: "payment", ID: payment.ID().String()}
	}
	return nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	payment, err := scanPaymentRow(row)
	if err != nil {
		return model.Payment{}, notFound(err, "payment", id.String(), "query payment")
	}
	return payment, nil
}

func (r *PaymentRepo) LockByID(ctx context.Context, id uuid.UUID) (model.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
	payment, err := scanPaymentRow(row)
	if err != nil {
		return model.Payment{}, notFound(err, "payment", id.String(), "lock payment")
	}
	return payment, nil
}

func (r *PaymentRepo) FindDisbursement(ctx context.Context, loanID uuid.UUID) (model.Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE loan_id = $1 AND kind = $2
		ORDER BY created_at
		LIMIT 1
	`, loanID, valueobject.PaymentKindDisbursement.String())
	payment, err := scanPaymentRow(row)
	if err != nil {
		return model.Payment{}, notFound(err, "payment", "disbursement of loan "+loanID.String(), "query disbursement")
	}
	return payment, nil
}

func (r *PaymentRepo) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]model.Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE loan_id = $1
		ORDER BY posted_at, id
	`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		payment, err := scanPaymentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPaymentRow(s scannable) (model.Payment, error) {
	var (
		id, loanID                     uuid.UUID
		kindStr, stateStr              string
		amountCents                    int64
		gatewayRef                     *string
		postedAt, createdAt, updatedAt time.Time
	)
	if err := s.Scan(&id, &loanID, &kindStr, &amountCents, &stateStr, &gatewayRef, &postedAt, &createdAt, &updatedAt); err != nil {
		return model.Payment{}, err
	}

	kind, err := valueobject.NewPaymentKind(kindStr)
	if err != nil {
		return model.Payment{}, fmt.Errorf("parse payment kind: %w", err)
	}
	state, err := valueobject.NewPaymentState(stateStr)
	if err != nil {
		return model.Payment{}, fmt.Errorf("parse payment state: %w", err)
	}

	var ref string
	if gatewayRef != nil {
		ref = *gatewayRef
	}
	return model.ReconstructPayment(id, loanID, kind, amountCents, state, ref,
		postedAt.UTC(), createdAt.UTC(), updatedAt.UTC()), nil
}
