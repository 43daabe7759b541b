package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
	"github.com/bibbank/lendcore/pkg/events"
)

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

type loanRepo struct {
	a access
}

func (r loanRepo) Create(_ context.Context, loan model.Loan) error {
	return r.a.write(func(t *tables) error {
		if _, ok := t.loans[loan.ID()]; ok {
			return &model.ValidationError{Field: "id", Reason: "already exists"}
		}
		t.loans[loan.ID()] = loan.ClearDomainEvents()
		return nil
	})
}

func (r loanRepo) Update(_ context.Context, loan model.Loan) error {
	return r.a.write(func(t *tables) error {
		if _, ok := t.loans[loan.ID()]; !ok {
			return loanNotFound(loan.ID())
		}
		t.loans[loan.ID()] = loan.ClearDomainEvents()
		return nil
	})
}

func (r loanRepo) FindByID(_ context.Context, id uuid.UUID) (model.Loan, error) {
	var loan model.Loan
	err := r.a.read(func(t *tables) error {
		found, ok := t.loans[id]
		if !ok {
			return loanNotFound(id)
		}
		loan = found
		return nil
	})
	return loan, err
}

// LockByID is a plain read: the enclosing transaction already excludes every
// other writer.
func (r loanRepo) LockByID(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	return r.FindByID(ctx, id)
}

func (r loanRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Loan, error) {
	var loans []model.Loan
	err := r.a.read(func(t *tables) error {
		for _, l := range t.loans {
			if l.UserID() == userID {
				loans = append(loans, l)
			}
		}
		return nil
	})
	slices.SortFunc(loans, func(a, b model.Loan) int {
		return cmp.Or(b.CreatedAt().Compare(a.CreatedAt()), cmp.Compare(a.ID().String(), b.ID().String()))
	})
	return loans, err
}

func (r loanRepo) HasOverdueLoans(_ context.Context, userID uuid.UUID) (bool, error) {
	var found bool
	err := r.a.read(func(t *tables) error {
		for _, l := range t.loans {
			if l.UserID() == userID && l.State().IsOverdue() {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r loanRepo) ListPastDue(
	_ context.Context,
	states []valueobject.LoanState,
	asOf time.Time,
	minDaysPastDue, limit int,
) ([]uuid.UUID, error) {
	var due []model.Loan
	err := r.a.read(func(t *tables) error {
		for _, l := range t.loans {
			if slices.Contains(states, l.State()) && l.DaysPastDue(asOf) > minDaysPastDue {
				due = append(due, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(due, func(a, b model.Loan) int {
		return cmp.Or(a.DueOn().Compare(b.DueOn()), cmp.Compare(a.ID().String(), b.ID().String()))
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	ids := make([]uuid.UUID, len(due))
	for i, l := range due {
		ids[i] = l.ID()
	}
	return ids, nil
}

func loanNotFound(id uuid.UUID) error {
	return &model.NotFoundError{Entity: "loan", ID: id.String()}
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

type paymentRepo struct {
	a access
}

func (r paymentRepo) Create(_ context.Context, payment model.Payment) error {
	return r.a.write(func(t *tables) error {
		if _, ok := t.payments[payment.ID()]; ok {
			return &model.ValidationError{Field: "id", Reason: "already exists"}
		}
		if _, ok := t.loans[payment.LoanID()]; !ok {
			return loanNotFound(payment.LoanID())
		}
		if ref := payment.GatewayRef(); ref != "" {
			for _, p := range t.payments {
				if p.GatewayRef() == ref {
					return &model.ValidationError{Field: "gateway_ref", Reason: "already recorded"}
				}
			}
		}
		t.payments[payment.ID()] = payment
		return nil
	})
}

func (r paymentRepo) Update(_ context.Context, payment model.Payment) error {
	return r.a.write(func(t *tables) error {
		if _, ok := t.payments[payment.ID()]; !ok {
			return paymentNotFound(payment.ID().String())
		}
		t.payments[payment.ID()] = payment
		return nil
	})
}

func (r paymentRepo) FindByID(_ context.Context, id uuid.UUID) (model.Payment, error) {
	var payment model.Payment
	err := r.a.read(func(t *tables) error {
		found, ok := t.payments[id]
		if !ok {
			return paymentNotFound(id.String())
		}
		payment = found
		return nil
	})
	return payment, err
}

func (r paymentRepo) LockByID(ctx context.Context, id uuid.UUID) (model.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r paymentRepo) FindDisbursement(_ context.Context, loanID uuid.UUID) (model.Payment, error) {
	var payment model.Payment
	err := r.a.read(func(t *tables) error {
		for _, p := range t.payments {
			if p.LoanID() == loanID && p.Kind().IsDisbursement() {
				payment = p
				return nil
			}
		}
		return paymentNotFound("disbursement of loan " + loanID.String())
	})
	return payment, err
}

func (r paymentRepo) ListByLoan(_ context.Context, loanID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.a.read(func(t *tables) error {
		for _, p := range t.payments {
			if p.LoanID() == loanID {
				payments = append(payments, p)
			}
		}
		return nil
	})
	slices.SortFunc(payments, func(a, b model.Payment) int {
		return cmp.Or(a.PostedAt().Compare(b.PostedAt()), cmp.Compare(a.ID().String(), b.ID().String()))
	})
	return payments, err
}

func paymentNotFound(id string) error {
	return &model.NotFoundError{Entity: "payment", ID: id}
}

// ---------------------------------------------------------------------------
// Borrowers
// ---------------------------------------------------------------------------

type borrowerRepo struct {
	a access
}

func (r borrowerRepo) Create(_ context.Context, borrower model.Borrower) error {
	return r.a.write(func(t *tables) error {
		if _, ok := t.borrowers[borrower.ID()]; ok {
			return &model.ValidationError{Field: "id", Reason: "already exists"}
		}
		t.borrowers[borrower.ID()] = borrower
		return nil
	})
}

func (r borrowerRepo) FindByID(_ context.Context, id uuid.UUID) (model.Borrower, error) {
	var borrower model.Borrower
	err := r.a.read(func(t *tables) error {
		found, ok := t.borrowers[id]
		if !ok {
			return borrowerNotFound(id)
		}
		borrower = found
		return nil
	})
	return borrower, err
}

func (r borrowerRepo) UpdateScore(_ context.Context, id uuid.UUID, score int) error {
	return r.a.write(func(t *tables) error {
		found, ok := t.borrowers[id]
		if !ok {
			return borrowerNotFound(id)
		}
		t.borrowers[id] = found.WithScore(score)
		return nil
	})
}

func borrowerNotFound(id uuid.UUID) error {
	return &model.NotFoundError{Entity: "user", ID: id.String()}
}

// ---------------------------------------------------------------------------
// Idempotency keys
// ---------------------------------------------------------------------------

type idempotencyStore struct {
	a access
}

// Reserve checks and inserts under the same exclusive access, standing in for
// the unique (key, scope) index.
func (s idempotencyStore) Reserve(_ context.Context, key model.IdempotencyKey) (port.Reservation, error) {
	var res port.Reservation
	err := s.a.write(func(t *tables) error {
		sk := scopedKey{key: key.Key(), scope: key.Scope()}
		if existing, ok := t.keys[sk]; ok {
			if err := existing.Resolve(key.ResourceID()); err != nil {
				return err
			}
			res = port.Reservation{BoundResource: existing.ResourceID()}
			return nil
		}
		t.keys[sk] = key
		res = port.Reservation{BoundResource: key.ResourceID(), Created: true}
		return nil
	})
	return res, err
}

func (s idempotencyStore) Find(_ context.Context, key, scope string) (model.IdempotencyKey, error) {
	var found model.IdempotencyKey
	err := s.a.read(func(t *tables) error {
		k, ok := t.keys[scopedKey{key: key, scope: scope}]
		if !ok {
			return &model.NotFoundError{Entity: "idempotency key", ID: scope + "/" + key}
		}
		found = k
		return nil
	})
	return found, err
}

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

type outboxStore struct {
	a access
}

func (s outboxStore) Append(_ context.Context, entries ...events.OutboxEntry) error {
	return s.a.write(func(t *tables) error {
		for _, e := range entries {
			e.Processed = false
			e.Attempts = 0
			t.outbox = append(t.outbox, e)
		}
		return nil
	})
}

func (s outboxStore) ReadyForRetry(_ context.Context, limit int) ([]events.OutboxEntry, error) {
	return s.filter(limit, events.OutboxEntry.ReadyForRetry)
}

func (s outboxStore) DeadLettered(_ context.Context, limit int) ([]events.OutboxEntry, error) {
	return s.filter(limit, events.OutboxEntry.DeadLettered)
}

func (s outboxStore) MarkProcessed(_ context.Context, ids ...uuid.UUID) error {
	return s.update(ids, func(e *events.OutboxEntry) { e.Processed = true })
}

func (s outboxStore) IncrementAttempts(_ context.Context, ids ...uuid.UUID) error {
	return s.update(ids, func(e *events.OutboxEntry) { e.Attempts++ })
}

func (s outboxStore) filter(limit int, keep func(events.OutboxEntry) bool) ([]events.OutboxEntry, error) {
	var out []events.OutboxEntry
	err := s.a.read(func(t *tables) error {
		for _, e := range t.outbox {
			if limit > 0 && len(out) == limit {
				break
			}
			if keep(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (s outboxStore) update(ids []uuid.UUID, fn func(e *events.OutboxEntry)) error {
	return s.a.write(func(t *tables) error {
		for i := range t.outbox {
			if slices.Contains(ids, t.outbox[i].ID) {
				fn(&t.outbox[i])
			}
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Credit score events
// ---------------------------------------------------------------------------

type scoreEventRepo struct {
	a access
}

func (r scoreEventRepo) Append(_ context.Context, ev model.CreditScoreEvent) error {
	return r.a.write(func(t *tables) error {
		t.scoreEvents = append(t.scoreEvents, ev)
		return nil
	})
}

// ListByUser returns the newest events first.
func (r scoreEventRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]model.CreditScoreEvent, error) {
	var out []model.CreditScoreEvent
	err := r.a.read(func(t *tables) error {
		for i := len(t.scoreEvents) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				break
			}
			if ev := t.scoreEvents[i]; ev.UserID() == userID {
				out = append(out, ev)
			}
		}
		return nil
	})
	return out, err
}
