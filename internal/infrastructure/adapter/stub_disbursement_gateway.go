package adapter

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/port"
)

var _ port.DisbursementGateway = (*StubDisbursementGateway)(nil)

// StubDisbursementGateway is a development adapter that accepts every payout
// and returns a unique reference of the form stub-<user id>-<uuid>.
// It implements port.DisbursementGateway.
type StubDisbursementGateway struct {
	calls atomic.Int64
}

// NewStubDisbursementGateway creates a new stub adapter.
func NewStubDisbursementGateway() *StubDisbursementGateway {
	return &StubDisbursementGateway{}
}

func (g *StubDisbursementGateway) Disburse(ctx context.Context, amountCents int64, recipient port.Recipient) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amountCents <= 0 {
		return "", fmt.Errorf("stub gateway: amount must be positive, got %d", amountCents)
	}
	if recipient.UserID == uuid.Nil {
		return "", fmt.Errorf("stub gateway: recipient user is required")
	}

	g.calls.Add(1)
	return fmt.Sprintf("stub-%s-%s", recipient.UserID, uuid.NewString()), nil
}

// Calls reports how many payouts the stub accepted.
func (g *StubDisbursementGateway) Calls() int64 {
	return g.calls.Load()
}
