package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// DefaultCreditScore is the score every borrower starts with.
const DefaultCreditScore = 600

// Borrower is the lending view of a user: identity verification, limit and
// the last persisted credit score.
type Borrower struct {
	createdAt        time.Time
	kycStatus        valueobject.KYCStatus
	creditLimitCents int64
	currentScore     int
	id               uuid.UUID
}

// NewBorrower registers a borrower with the default score.
func NewBorrower(id uuid.UUID, kyc valueobject.KYCStatus, creditLimitCents int64, now time.Time) (Borrower, error) {
	if id == uuid.Nil {
		return Borrower{}, &ValidationError{Field: "id", Reason: "is required"}
	}
	if creditLimitCents < 0 {
		return Borrower{}, &ValidationError{Field: "credit_limit_cents", Reason: "must not be negative"}
	}
	return Borrower{
		id:               id,
		kycStatus:        kyc,
		creditLimitCents: creditLimitCents,
		currentScore:     DefaultCreditScore,
		createdAt:        now,
	}, nil
}

// ReconstructBorrower rebuilds a Borrower from persistence.
func ReconstructBorrower(id uuid.UUID, kyc valueobject.KYCStatus, creditLimitCents int64, currentScore int, createdAt time.Time) Borrower {
	return Borrower{
		id:               id,
		kycStatus:        kyc,
		creditLimitCents: creditLimitCents,
		currentScore:     currentScore,
		createdAt:        createdAt,
	}
}

func (b Borrower) ID() uuid.UUID                    { return b.id }
func (b Borrower) KYCStatus() valueobject.KYCStatus { return b.kycStatus }
func (b Borrower) KYCApproved() bool                { return b.kycStatus.IsApproved() }
func (b Borrower) CreditLimitCents() int64          { return b.creditLimitCents }
func (b Borrower) CurrentScore() int                { return b.currentScore }
func (b Borrower) CreatedAt() time.Time             { return b.createdAt }

// WithScore returns a copy carrying score.
func (b Borrower) WithScore(score int) Borrower {
	next := b
	next.currentScore = score
	return next
}

// WithKYCStatus returns a copy with the verification outcome replaced.
func (b Borrower) WithKYCStatus(status valueobject.KYCStatus) Borrower {
	next := b
	next.kycStatus = status
	return next
}
