package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScoreReasonRecompute marks deltas produced by a scoring run.
const ScoreReasonRecompute = "recompute"

// ScoreComponent is one weighted input of a credit score.
type ScoreComponent struct {
	Name         string          `json:"name"`
	Raw          decimal.Decimal `json:"raw"`
	Normalized   decimal.Decimal `json:"normalized"`
	Weight       decimal.Decimal `json:"weight"`
	Contribution decimal.Decimal `json:"contribution"`
}

// ScoreEventMeta is the snapshot stored alongside a score delta.
type ScoreEventMeta struct {
	OldScore          int              `json:"old_score"`
	NewScore          int              `json:"new_score"`
	ScoringComponents []ScoreComponent `json:"scoring_components"`
}

// CreditScoreEvent is an append-only audit record of a score change.
type CreditScoreEvent struct {
	createdAt time.Time
	reason    string
	meta      ScoreEventMeta
	delta     int
	id        uuid.UUID
	userID    uuid.UUID
}

// NewCreditScoreEvent records the move from oldScore to newScore.
func NewCreditScoreEvent(userID uuid.UUID, reason string, oldScore, newScore int, components []ScoreComponent, now time.Time) CreditScoreEvent {
	snapshot := make([]ScoreComponent, len(components))
	copy(snapshot, components)
	return CreditScoreEvent{
		id:     uuid.New(),
		userID: userID,
		reason: reason,
		delta:  newScore - oldScore,
		meta: ScoreEventMeta{
			OldScore:          oldScore,
			NewScore:          newScore,
			ScoringComponents: snapshot,
		},
		createdAt: now,
	}
}

// ReconstructCreditScoreEvent rebuilds an audit record from persistence.
func ReconstructCreditScoreEvent(id, userID uuid.UUID, reason string, delta int, meta ScoreEventMeta, createdAt time.Time) CreditScoreEvent {
	return CreditScoreEvent{id: id, userID: userID, reason: reason, delta: delta, meta: meta, createdAt: createdAt}
}

func (e CreditScoreEvent) ID() uuid.UUID        { return e.id }
func (e CreditScoreEvent) UserID() uuid.UUID    { return e.userID }
func (e CreditScoreEvent) Reason() string       { return e.reason }
func (e CreditScoreEvent) Delta() int           { return e.delta }
func (e CreditScoreEvent) Meta() ScoreEventMeta { return e.meta }
func (e CreditScoreEvent) CreatedAt() time.Time { return e.createdAt }
