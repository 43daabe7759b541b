package valueobject

import "fmt"

// PaymentState is the settlement stage of a payment.
type PaymentState struct {
	value string
}

const (
	paymentStatePending = "pending"
	paymentStateCleared = "cleared"
	paymentStateFailed  = "failed"
)

var (
	PaymentStatePending = PaymentState{value: paymentStatePending}
	PaymentStateCleared = PaymentState{value: paymentStateCleared}
	PaymentStateFailed  = PaymentState{value: paymentStateFailed}
)

var validPaymentStates = map[string]PaymentState{
	paymentStatePending: PaymentStatePending,
	paymentStateCleared: PaymentStateCleared,
	paymentStateFailed:  PaymentStateFailed,
}

func NewPaymentState(s string) (PaymentState, error) {
	v, ok := validPaymentStates[s]
	if !ok {
		return PaymentState{}, fmt.Errorf("invalid payment state: %q", s)
	}
	return v, nil
}

func (s PaymentState) String() string { return s.value }

func (s PaymentState) IsZero() bool { return s.value == "" }

func (s PaymentState) Equal(other PaymentState) bool { return s.value == other.value }

func (s PaymentState) IsPending() bool { return s.value == paymentStatePending }
func (s PaymentState) IsCleared() bool { return s.value == paymentStateCleared }
func (s PaymentState) IsFailed() bool  { return s.value == paymentStateFailed }

// PaymentKind distinguishes money sent to the borrower from money received.
type PaymentKind struct {
	value string
}

const (
	paymentKindDisbursement = "disbursement"
	paymentKindRepayment    = "repayment"
)

var (
	PaymentKindDisbursement = PaymentKind{value: paymentKindDisbursement}
	PaymentKindRepayment    = PaymentKind{value: paymentKindRepayment}
)

func NewPaymentKind(s string) (PaymentKind, error) {
	switch s {
	case paymentKindDisbursement:
		return PaymentKindDisbursement, nil
	case paymentKindRepayment:
		return PaymentKindRepayment, nil
	default:
		return PaymentKind{}, fmt.Errorf("invalid payment kind: %q", s)
	}
}

func (k PaymentKind) String() string { return k.value }

func (k PaymentKind) IsZero() bool { return k.value == "" }

func (k PaymentKind) IsDisbursement() bool { return k.value == paymentKindDisbursement }
func (k PaymentKind) IsRepayment() bool    { return k.value == paymentKindRepayment }
