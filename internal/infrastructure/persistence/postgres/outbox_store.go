package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bibbank/lendcore/pkg/events"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

var _ events.OutboxRepository = (*OutboxStore)(nil)

const outboxColumns = `id, name, aggregate_id, aggregate_type, payload, headers, processed, attempts, created_at`

// OutboxStore implements events.OutboxRepository on outbox_events.
type OutboxStore struct {
	db pkgpostgres.Querier
}

func NewOutboxStore(db pkgpostgres.Querier) *OutboxStore {
	return &OutboxStore{db: db}
}

// Append writes every entry as an unprocessed row with zero attempts. The
// entries are sent as one batch; any failed insert fails the call.
func (s *OutboxStore) Append(ctx context.Context, entries ...events.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		headers, err := json.Marshal(e.Headers)
		if err != nil {
			return fmt.Errorf("marshal outbox headers %s: %w", e.Name, err)
		}
		batch.Queue(`
			INSERT INTO outbox_events (`+outboxColumns+`, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, false, 0, $7, $7)
		`, e.ID, e.Name, e.AggregateID, e.AggregateType, []byte(e.Payload), headers, e.CreatedAt)
	}

	results := s.db.SendBatch(ctx, batch)
	for _, e := range entries {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert outbox event %s: %w", e.Name, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close outbox batch: %w", err)
	}
	return nil
}

func (s *OutboxStore) ReadyForRetry(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	return s.list(ctx, `processed = false AND attempts < $1`, limit)
}

func (s *OutboxStore) DeadLettered(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	return s.list(ctx, `processed = false AND attempts >= $1`, limit)
}

func (s *OutboxStore) MarkProcessed(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE outbox_events SET processed = true, updated_at = now() WHERE id = ANY($1)
	`, ids); err != nil {
		return fmt.Errorf("mark outbox processed: %w", err)
	}
	return nil
}

func (s *OutboxStore) IncrementAttempts(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE outbox_events SET attempts = attempts + 1, updated_at = now() WHERE id = ANY($1)
	`, ids); err != nil {
		return fmt.Errorf("increment outbox attempts: %w", err)
	}
	return nil
}

func (s *OutboxStore) list(ctx context.Context, where string, limit int) ([]events.OutboxEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE `+where+`
		ORDER BY created_at, id
		LIMIT $2
	`, events.DeadLetterThreshold, noLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var out []events.OutboxEntry
	for rows.Next() {
		var (
			e       events.OutboxEntry
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.AggregateID, &e.AggregateType, &payload,
			&e.Headers, &e.Processed, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Payload = payload
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
