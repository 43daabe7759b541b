// Package memory implements the persistence ports on process memory. A Store
// serializes its transactions and commits by swapping in a private copy, so a
// failed transaction leaves no trace. It backs unit tests and local runs.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	"github.com/bibbank/lendcore/pkg/events"
)

var _ port.UnitOfWork = (*Store)(nil)

type scopedKey struct {
	key   string
	scope string
}

type tables struct {
	loans       map[uuid.UUID]model.Loan
	payments    map[uuid.UUID]model.Payment
	borrowers   map[uuid.UUID]model.Borrower
	keys        map[scopedKey]model.IdempotencyKey
	outbox      []events.OutboxEntry
	scoreEvents []model.CreditScoreEvent
}

func newTables() *tables {
	return &tables{
		loans:     make(map[uuid.UUID]model.Loan),
		payments:  make(map[uuid.UUID]model.Payment),
		borrowers: make(map[uuid.UUID]model.Borrower),
		keys:      make(map[scopedKey]model.IdempotencyKey),
	}
}

func (t *tables) clone() *tables {
	return &tables{
		loans:       maps.Clone(t.loans),
		payments:    maps.Clone(t.payments),
		borrowers:   maps.Clone(t.borrowers),
		keys:        maps.Clone(t.keys),
		outbox:      slices.Clone(t.outbox),
		scoreEvents: slices.Clone(t.scoreEvents),
	}
}

// Store is an in-memory unit of work.
type Store struct {
	// txMu is held for the whole of a transaction, which subsumes row locks.
	txMu sync.Mutex
	// mu guards the committed pointer.
	mu   sync.RWMutex
	data *tables
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newTables()}
}

// WithinTx runs fn against a private copy of the committed data and publishes
// the copy only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(func(work *tables) error {
		return fn(ctx, newRepos(txAccess{t: work}))
	})
}

// Repos returns auto-committing repositories. They must not be used from
// inside a WithinTx callback for writes.
func (s *Store) Repos() port.Repos {
	return newRepos(autocommit{s: s})
}

// OutboxEntries returns every committed outbox row in insertion order.
func (s *Store) OutboxEntries() []events.OutboxEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.outbox)
}

func (s *Store) commit(fn func(work *tables) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	if err := fn(work); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

// access abstracts over a transaction's working copy and auto-commit mode.
type access interface {
	read(fn func(t *tables) error) error
	write(fn func(t *tables) error) error
}

type txAccess struct {
	t *tables
}

func (a txAccess) read(fn func(t *tables) error) error  { return fn(a.t) }
func (a txAccess) write(fn func(t *tables) error) error { return fn(a.t) }

type autocommit struct {
	s *Store
}

func (a autocommit) read(fn func(t *tables) error) error {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return fn(a.s.data)
}

func (a autocommit) write(fn func(t *tables) error) error {
	return a.s.commit(fn)
}

func newRepos(a access) port.Repos {
	return port.Repos{
		Loans:       loanRepo{a: a},
		Payments:    paymentRepo{a: a},
		Borrowers:   borrowerRepo{a: a},
		Idempotency: idempotencyStore{a: a},
		Outbox:      outboxStore{a: a},
		ScoreEvents: scoreEventRepo{a: a},
		Scoring:     scoringQuery{a: a},
	}
}
