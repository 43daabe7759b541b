package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

// Aggregate type names recorded on outbox rows.
const (
	AggregateLoan = "Loan"
	AggregateUser = "User"
)

// Event names.
const (
	NameLoanApproved              = "loan.approved"
	NameLoanRejected              = "loan.rejected"
	NameLoanDisbursementRequested = "loan.disbursement_requested"
	NameLoanDisbursed             = "loan.disbursed"
	NameLoanPaid                  = "loan.paid"
	NameLoanOverdue               = "loan.overdue"
	NameLoanDefaulted             = "loan.defaulted"
	NameUserScoreChanged          = "user.score_changed"
)

// ---------------------------------------------------------------------------
// Loan lifecycle events
// ---------------------------------------------------------------------------

// LoanApproved is raised when a pending loan passes underwriting guards.
type LoanApproved struct {
	events.BaseEvent
	LoanID     uuid.UUID `json:"loan_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int64     `json:"amount"`
	TermDays   int       `json:"term_days"`
	Product    string    `json:"product"`
	ApprovedAt time.Time `json:"approved_at"`
}

func NewLoanApproved(loanID, userID uuid.UUID, amount int64, termDays int, product string, now time.Time) LoanApproved {
	return LoanApproved{
		BaseEvent:  events.NewBaseEvent(NameLoanApproved, loanID, AggregateLoan, now),
		LoanID:     loanID,
		UserID:     userID,
		Amount:     amount,
		TermDays:   termDays,
		Product:    product,
		ApprovedAt: now.UTC(),
	}
}

// LoanRejected is raised when a pending loan is declined.
type LoanRejected struct {
	events.BaseEvent
	LoanID     uuid.UUID `json:"loan_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int64     `json:"amount"`
	TermDays   int       `json:"term_days"`
	Product    string    `json:"product"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
}

func NewLoanRejected(loanID, userID uuid.UUID, amount int64, termDays int, product, reason string, now time.Time) LoanRejected {
	return LoanRejected{
		BaseEvent:  events.NewBaseEvent(NameLoanRejected, loanID, AggregateLoan, now),
		LoanID:     loanID,
		UserID:     userID,
		Amount:     amount,
		TermDays:   termDays,
		Product:    product,
		Reason:     reason,
		RejectedAt: now.UTC(),
	}
}

// LoanDisbursementRequested records that the gateway accepted a transfer.
type LoanDisbursementRequested struct {
	events.BaseEvent
	LoanID     uuid.UUID `json:"loan_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int64     `json:"amount"`
	PaymentID  uuid.UUID `json:"payment_id"`
	GatewayRef string    `json:"gateway_ref"`
}

func NewLoanDisbursementRequested(loanID, userID uuid.UUID, amount int64, paymentID uuid.UUID, gatewayRef string, now time.Time) LoanDisbursementRequested {
	return LoanDisbursementRequested{
		BaseEvent:  events.NewBaseEvent(NameLoanDisbursementRequested, loanID, AggregateLoan, now),
		LoanID:     loanID,
		UserID:     userID,
		Amount:     amount,
		PaymentID:  paymentID,
		GatewayRef: gatewayRef,
	}
}

// LoanDisbursed is raised when the loan moves to disbursed.
type LoanDisbursed struct {
	events.BaseEvent
	LoanID      uuid.UUID `json:"loan_id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int64     `json:"amount"`
	GatewayRef  string    `json:"gateway_ref"`
	DueOn       string    `json:"due_on"`
	DisbursedAt time.Time `json:"disbursed_at"`
}

func NewLoanDisbursed(loanID, userID uuid.UUID, amount int64, gatewayRef string, dueOn, now time.Time) LoanDisbursed {
	return LoanDisbursed{
		BaseEvent:   events.NewBaseEvent(NameLoanDisbursed, loanID, AggregateLoan, now),
		LoanID:      loanID,
		UserID:      userID,
		Amount:      amount,
		GatewayRef:  gatewayRef,
		DueOn:       dueOn.Format(time.DateOnly),
		DisbursedAt: now.UTC(),
	}
}

// LoanPaid is raised when the outstanding balance reaches zero.
type LoanPaid struct {
	events.BaseEvent
	LoanID    uuid.UUID `json:"loan_id"`
	UserID    uuid.UUID `json:"user_id"`
	Principal int64     `json:"principal"`
	PaidAt    time.Time `json:"paid_at"`
}

func NewLoanPaid(loanID, userID uuid.UUID, principal int64, now time.Time) LoanPaid {
	return LoanPaid{
		BaseEvent: events.NewBaseEvent(NameLoanPaid, loanID, AggregateLoan, now),
		LoanID:    loanID,
		UserID:    userID,
		Principal: principal,
		PaidAt:    now.UTC(),
	}
}

// LoanOverdue is raised when a disbursed loan passes its due date unpaid.
type LoanOverdue struct {
	events.BaseEvent
	LoanID             uuid.UUID `json:"loan_id"`
	UserID             uuid.UUID `json:"user_id"`
	Principal          int64     `json:"principal"`
	OutstandingBalance int64     `json:"outstanding_balance"`
	DaysOverdue        int       `json:"days_overdue"`
	OverdueAt          time.Time `json:"overdue_at"`
}

func NewLoanOverdue(loanID, userID uuid.UUID, principal, outstanding int64, daysOverdue int, now time.Time) LoanOverdue {
	return LoanOverdue{
		BaseEvent:          events.NewBaseEvent(NameLoanOverdue, loanID, AggregateLoan, now),
		LoanID:             loanID,
		UserID:             userID,
		Principal:          principal,
		OutstandingBalance: outstanding,
		DaysOverdue:        daysOverdue,
		OverdueAt:          now.UTC(),
	}
}

// LoanDefaulted is raised once a loan is more than 30 days past due.
type LoanDefaulted struct {
	events.BaseEvent
	LoanID             uuid.UUID `json:"loan_id"`
	UserID             uuid.UUID `json:"user_id"`
	Principal          int64     `json:"principal"`
	OutstandingBalance int64     `json:"outstanding_balance"`
	DaysPastDue        int       `json:"days_past_due"`
	DefaultedAt        time.Time `json:"defaulted_at"`
}

func NewLoanDefaulted(loanID, userID uuid.UUID, principal, outstanding int64, daysPastDue int, now time.Time) LoanDefaulted {
	return LoanDefaulted{
		BaseEvent:          events.NewBaseEvent(NameLoanDefaulted, loanID, AggregateLoan, now),
		LoanID:             loanID,
		UserID:             userID,
		Principal:          principal,
		OutstandingBalance: outstanding,
		DaysPastDue:        daysPastDue,
		DefaultedAt:        now.UTC(),
	}
}

// ---------------------------------------------------------------------------
// Scoring events
// ---------------------------------------------------------------------------

// UserScoreChanged is raised when a persisted credit score changes value.
type UserScoreChanged struct {
	events.BaseEvent
	UserID   uuid.UUID `json:"user_id"`
	OldScore int       `json:"old_score"`
	NewScore int       `json:"new_score"`
}

func NewUserScoreChanged(userID uuid.UUID, oldScore, newScore int, now time.Time) UserScoreChanged {
	return UserScoreChanged{
		BaseEvent: events.NewBaseEvent(NameUserScoreChanged, userID, AggregateUser, now),
		UserID:    userID,
		OldScore:  oldScore,
		NewScore:  newScore,
	}
}
