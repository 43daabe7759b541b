package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/lendcore/internal/application/outbox"
	"github.com/bibbank/lendcore/internal/application/usecase"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/service"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
	"github.com/bibbank/lendcore/internal/infrastructure/persistence/memory"
	"github.com/bibbank/lendcore/pkg/events"
	"github.com/bibbank/lendcore/pkg/testutil"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockDisbursementGateway struct {
	disburseFunc func(ctx context.Context, amountCents int64, recipient port.Recipient) (string, error)
	calls        atomic.Int32
}

func (m *mockDisbursementGateway) Disburse(ctx context.Context, amountCents int64, recipient port.Recipient) (string, error) {
	n := m.calls.Add(1)
	if m.disburseFunc != nil {
		return m.disburseFunc(ctx, amountCents, recipient)
	}
	return fmt.Sprintf("gw-%d", n), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	store     *memory.Store
	clock     *testClock
	gateway   *mockDisbursementGateway
	lifecycle *usecase.LoanLifecycle
	scorer    *usecase.ComputeCreditScoreUseCase
	apply     *usecase.ApplyForLoanUseCase
	reconcile *usecase.ReconcilePaymentUseCase
	sweep     *usecase.SweepDelinquencyUseCase
	get       *usecase.GetLoanUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewStore()
	clock := &testClock{now: testutil.TestNow}
	gateway := &mockDisbursementGateway{}
	publisher := outbox.NewPublisher()
	engine, err := service.NewCreditScoringEngine(service.DefaultScoringPolicy())
	require.NoError(t, err)

	lifecycle := usecase.NewLoanLifecycle(store, gateway, publisher, clock, nil, nil)
	scorer := usecase.NewComputeCreditScoreUseCase(store, engine, publisher, clock, nil, nil)

	return &harness{
		store:     store,
		clock:     clock,
		gateway:   gateway,
		lifecycle: lifecycle,
		scorer:    scorer,
		apply:     usecase.NewApplyForLoanUseCase(store, lifecycle, scorer, 0, nil),
		reconcile: usecase.NewReconcilePaymentUseCase(store, lifecycle, nil),
		sweep:     usecase.NewSweepDelinquencyUseCase(store, lifecycle, nil),
		get:       usecase.NewGetLoanUseCase(store),
	}
}

func (h *harness) seedBorrower(t *testing.T, kyc valueobject.KYCStatus, creditLimit int64, createdAt time.Time) model.Borrower {
	t.Helper()
	b, err := model.NewBorrower(uuid.New(), kyc, creditLimit, createdAt)
	require.NoError(t, err)
	require.NoError(t, h.store.Repos().Borrowers.Create(context.Background(), b))
	return b
}

// seedLoan stores a loan originated at createdAt and forced into state.
func (h *harness) seedLoan(t *testing.T, userID uuid.UUID, state valueobject.LoanState, amount int64, termDays int, createdAt time.Time) model.Loan {
	t.Helper()
	quote, err := service.CalculateInterest(amount, termDays)
	require.NoError(t, err)
	fresh, err := model.NewLoan(userID, amount, termDays, quote.Product, quote.InterestCents, quote.APR, createdAt)
	require.NoError(t, err)

	loan := model.ReconstructLoan(
		fresh.ID(), userID, amount, termDays, quote.Product, state, fresh.DueOn(),
		amount, quote.InterestCents, 0, quote.APR, createdAt, createdAt,
	)
	require.NoError(t, h.store.Repos().Loans.Create(context.Background(), loan))
	return loan
}

func (h *harness) loan(t *testing.T, id uuid.UUID) model.Loan {
	t.Helper()
	loan, err := h.store.Repos().Loans.FindByID(context.Background(), id)
	require.NoError(t, err)
	return loan
}

func (h *harness) outboxNames() []string {
	entries := h.store.OutboxEntries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func (h *harness) outboxFor(aggregateID uuid.UUID) []events.OutboxEntry {
	var out []events.OutboxEntry
	for _, e := range h.store.OutboxEntries() {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out
}
