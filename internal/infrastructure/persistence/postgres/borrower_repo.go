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

var _ port.BorrowerRepository = (*BorrowerRepo)(nil)

// BorrowerRepo implements port.BorrowerRepository.
type BorrowerRepo struct {
	db pkgpostgres.Querier
}

func NewBorrowerRepo(db pkgpostgres.Querier) *BorrowerRepo {
	return &BorrowerRepo{db: db}
}

func (r *BorrowerRepo) Create(ctx context.Context, borrower model.Borrower) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO borrowers (id, kyc_status, credit_limit_cents, current_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`,
		borrower.ID(), borrower.KYCStatus().String(), borrower.CreditLimitCents(),
		borrower.CurrentScore(), borrower.CreatedAt(),
	)
	if pkgpostgres.IsUniqueViolation(err, "borrowers_pkey") {
		return &model.ValidationError{Field: "id", Reason: "already exists"}
	}
	if err != nil {
		return fmt.Errorf("insert borrower: %w", err)
	}
	return nil
}

func (r *BorrowerRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Borrower, error) {
	var (
		kycStr           string
		creditLimitCents int64
		currentScore     int
		createdAt        time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT kyc_status, credit_limit_cents, current_score, created_at
		FROM borrowers
		WHERE id = $1
	`, id).Scan(&kycStr, &creditLimitCents, &currentScore, &createdAt)
	if err != nil {
		return model.Borrower{}, notFound(err, "user", id.String(), "query borrower")
	}

	kyc, err := valueobject.NewKYCStatus(kycStr)
	if err != nil {
		return model.Borrower{}, fmt.Errorf("parse kyc status: %w", err)
	}
	return model.ReconstructBorrower(id, kyc, creditLimitCents, currentScore, createdAt.UTC()), nil
}

func (r *BorrowerRepo) UpdateScore(ctx context.Context, id uuid.UUID, score int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE borrowers SET current_score = $2, updated_at = now() WHERE id = $1
	`, id, score)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Entity: "user", ID: id.String()}
	}
	return nil
}
