package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// scannable is satisfied by pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// notFound maps pgx.ErrNoRows to a domain NotFoundError and wraps anything
// else with the failed step.
func notFound(err error, entity, id, step string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("%s: %w", step, err)
}

// noLimit turns a non-positive limit into NULL, which Postgres reads as
// "LIMIT ALL".
func noLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

// nullIfEmpty stores the empty string as NULL so optional unique columns do
// not collide.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stateValues(states []valueobject.LoanState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.String()
	}
	return out
}
