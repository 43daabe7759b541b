package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// Meta is request metadata threaded into outbox headers.
type Meta struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	ActorID       string `json:"actor_id,omitempty"`
}

// LoanTransitionRequest identifies a loan for a transition that needs no
// extra input (approve, mark paid, mark overdue, mark defaulted).
type LoanTransitionRequest struct {
	Meta
	LoanID uuid.UUID `json:"loan_id"`
}

// RejectLoanRequest carries the reason recorded on loan.rejected.
type RejectLoanRequest struct {
	Meta
	Reason string    `json:"reason"`
	LoanID uuid.UUID `json:"loan_id"`
}

// DisburseLoanRequest carries the caller-chosen idempotency key.
type DisburseLoanRequest struct {
	Meta
	IdempotencyKey string    `json:"idempotency_key"`
	LoanID         uuid.UUID `json:"loan_id"`
}

// ApplyForLoanRequest originates a loan.
type ApplyForLoanRequest struct {
	Meta
	IdempotencyKey string    `json:"idempotency_key"`
	AmountCents    int64     `json:"amount_cents"`
	TermDays       int       `json:"term_days"`
	UserID         uuid.UUID `json:"user_id"`
}

// ComputeScoreRequest recomputes one borrower's score.
type ComputeScoreRequest struct {
	Meta
	UserID  uuid.UUID `json:"user_id"`
	Persist bool      `json:"persist"`
	Emit    bool      `json:"emit"`
}

// RecordRepaymentRequest registers money received against a loan.
type RecordRepaymentRequest struct {
	GatewayRef  string    `json:"gateway_ref"`
	AmountCents int64     `json:"amount_cents"`
	LoanID      uuid.UUID `json:"loan_id"`
}

// SettlePaymentRequest clears or fails a pending payment.
type SettlePaymentRequest struct {
	Meta
	PaymentID uuid.UUID `json:"payment_id"`
}

// SweepRequest bounds one delinquency sweep.
type SweepRequest struct {
	Meta
	BatchSize int `json:"batch_size"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// LoanResponse is the external representation of a loan.
type LoanResponse struct {
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
	APR                       decimal.Decimal `json:"apr"`
	State                     string          `json:"state"`
	Product                   string          `json:"product"`
	DueOn                     string          `json:"due_on"`
	Amount                    string          `json:"amount"`
	AmountCents               int64           `json:"amount_cents"`
	PrincipalOutstandingCents int64           `json:"principal_outstanding_cents"`
	InterestAccruedCents      int64           `json:"interest_accrued_cents"`
	PenaltyAccruedCents       int64           `json:"penalty_accrued_cents"`
	OutstandingBalanceCents   int64           `json:"outstanding_balance_cents"`
	TermDays                  int             `json:"term_days"`
	ID                        uuid.UUID       `json:"id"`
	UserID                    uuid.UUID       `json:"user_id"`
}

// PaymentResponse is the external representation of a payment.
type PaymentResponse struct {
	PostedAt    time.Time `json:"posted_at"`
	Kind        string    `json:"kind"`
	State       string    `json:"state"`
	GatewayRef  string    `json:"gateway_ref,omitempty"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	ID          uuid.UUID `json:"id"`
	LoanID      uuid.UUID `json:"loan_id"`
}

// DisbursementResponse is the observable result of a disburse call. A replay
// returns the same loan and payment as the first call.
type DisbursementResponse struct {
	Payment  PaymentResponse `json:"payment"`
	Loan     LoanResponse    `json:"loan"`
	Replayed bool            `json:"replayed"`
}

// ApplicationDecision explains the origination outcome.
type ApplicationDecision struct {
	Reason         string `json:"reason"`
	UserScore      int    `json:"user_score"`
	ScoreThreshold int    `json:"score_threshold"`
	Approved       bool   `json:"approved"`
}

// ApplyForLoanResponse is the created (or replayed) loan with its decision.
type ApplyForLoanResponse struct {
	Decision ApplicationDecision `json:"decision"`
	Loan     LoanResponse        `json:"loan"`
	Replayed bool                `json:"replayed"`
}

// ScoreComponentResponse is one line of a score breakdown.
type ScoreComponentResponse struct {
	Name         string          `json:"name"`
	Raw          decimal.Decimal `json:"raw"`
	Normalized   decimal.Decimal `json:"normalized"`
	Weight       decimal.Decimal `json:"weight"`
	Contribution decimal.Decimal `json:"contribution"`
}

// ScoreResponse is a computed score and what it was made of.
type ScoreResponse struct {
	Components []ScoreComponentResponse `json:"components"`
	UserID     uuid.UUID                `json:"user_id"`
	OldScore   int                      `json:"old_score"`
	Score      int                      `json:"score"`
	Changed    bool                     `json:"changed"`
	Persisted  bool                     `json:"persisted"`
	Emitted    bool                     `json:"emitted"`
}

// RepaymentResponse reports a settled payment and its effect on the loan.
type RepaymentResponse struct {
	Payment   PaymentResponse `json:"payment"`
	Loan      LoanResponse    `json:"loan"`
	Penalty   int64           `json:"applied_penalty_cents"`
	Interest  int64           `json:"applied_interest_cents"`
	Principal int64           `json:"applied_principal_cents"`
	Unapplied int64           `json:"unapplied_cents"`
}

// SweepResponse counts the outcome of one delinquency sweep.
type SweepResponse struct {
	MarkedOverdue   int `json:"marked_overdue"`
	MarkedDefaulted int `json:"marked_defaulted"`
	Skipped         int `json:"skipped"`
}

// GetLoanRequest identifies a loan to read.
type GetLoanRequest struct {
	LoanID uuid.UUID `json:"loan_id"`
}

// LoanDetailResponse is a loan with its payments, oldest first.
type LoanDetailResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Loan     LoanResponse      `json:"loan"`
}
