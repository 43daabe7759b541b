package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

var _ port.CreditScoreEventRepository = (*ScoreEventRepo)(nil)

// ScoreEventRepo appends to credit_score_events. Rows are never updated.
type ScoreEventRepo struct {
	db pkgpostgres.Querier
}

func NewScoreEventRepo(db pkgpostgres.Querier) *ScoreEventRepo {
	return &ScoreEventRepo{db: db}
}

func (r *ScoreEventRepo) Append(ctx context.Context, ev model.CreditScoreEvent) error {
	meta, err := json.Marshal(ev.Meta())
	if err != nil {
		return fmt.Errorf("marshal score event meta: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO credit_score_events (id, user_id, reason, delta, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.ID(), ev.UserID(), ev.Reason(), ev.Delta(), meta, ev.CreatedAt())
	if pkgpostgres.IsForeignKeyViolation(err, "") {
		return &model.NotFoundError{Entity: "user", ID: ev.UserID().String()}
	}
	if err != nil {
		return fmt.Errorf("insert score event: %w", err)
	}
	return nil
}

// ListByUser returns the newest events first.
func (r *ScoreEventRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.CreditScoreEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, reason, delta, meta, created_at
		FROM credit_score_events
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, userID, noLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query score events: %w", err)
	}
	defer rows.Close()

	var out []model.CreditScoreEvent
	for rows.Next() {
		var (
			id        uuid.UUID
			reason    string
			delta     int
			raw       []byte
			createdAt time.Time
		)
		if err := rows.Scan(&id, &reason, &delta, &raw, &createdAt); err != nil {
			return nil, fmt.Errorf("scan score event: %w", err)
		}
		var meta model.ScoreEventMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("decode score event meta: %w", err)
		}
		out = append(out, model.ReconstructCreditScoreEvent(id, userID, reason, delta, meta, createdAt.UTC()))
	}
	return out, rows.Err()
}
