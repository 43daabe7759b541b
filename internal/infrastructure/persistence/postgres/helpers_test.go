package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

func TestNotFound(t *testing.T) {
	err := notFound(pgx.ErrNoRows, "loan", "abc", "query loan")
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.EqualError(t, err, "loan abc not found")

	boom := errors.New("connection reset")
	err = notFound(boom, "loan", "abc", "query loan")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrNotFound)
	assert.EqualError(t, err, "query loan: connection reset")
}

func TestNoLimit(t *testing.T) {
	assert.Nil(t, noLimit(0))
	assert.Nil(t, noLimit(-1))
	require.NotNil(t, noLimit(25))
	assert.Equal(t, 25, *noLimit(25))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	require.NotNil(t, nullIfEmpty("gw-1"))
	assert.Equal(t, "gw-1", *nullIfEmpty("gw-1"))
}

func TestStateValues(t *testing.T) {
	got := stateValues([]valueobject.LoanState{valueobject.LoanStateOverdue, valueobject.LoanStateDisbursed})
	assert.Equal(t, []string{"overdue", "disbursed"}, got)
}

func TestNewRepos_BindsEveryPort(t *testing.T) {
	repos := NewRepos(nil)
	assert.NotNil(t, repos.Loans)
	assert.NotNil(t, repos.Payments)
	assert.NotNil(t, repos.Borrowers)
	assert.NotNil(t, repos.Idempotency)
	assert.NotNil(t, repos.Outbox)
	assert.NotNil(t, repos.ScoreEvents)
	assert.NotNil(t, repos.Scoring)
}
