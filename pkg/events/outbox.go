package events

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// DeadLetterThreshold is the attempt count at which a drainer stops retrying
// an unprocessed outbox row.
const DeadLetterThreshold = 10

// Well-known outbox header keys.
const (
	HeaderCorrelationID = "correlation_id"
	HeaderPublishedAt   = "published_at"
	HeaderEventVersion  = "event_version"
	HeaderActorID       = "actor_id"
)

// Headers is the string map stored next to every outbox payload.
type Headers map[string]string

// OutboxEntry is one row of the outbox table. Name, aggregate and payload are
// immutable once written; only Processed and Attempts change, and only by the
// drainer.
type OutboxEntry struct {
	CreatedAt     time.Time
	Headers       Headers
	Name          string
	AggregateType string
	Payload       json.RawMessage
	Attempts      int
	ID            uuid.UUID
	AggregateID   uuid.UUID
	Processed     bool
}

// NewOutboxEntry creates an OutboxEntry from a DomainEvent. The payload is the
// JSON encoding of the event. The headers are copied and enriched with the
// publish timestamp and a correlation id, generated when the caller did not
// supply one.
func NewOutboxEntry(event DomainEvent, headers Headers) (OutboxEntry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}

	enriched := make(Headers, len(headers)+2)
	maps.Copy(enriched, headers)
	enriched[HeaderPublishedAt] = event.OccurredAt().UTC().Format(time.RFC3339)
	if enriched[HeaderCorrelationID] == "" {
		enriched[HeaderCorrelationID] = uuid.NewString()
	}

	return OutboxEntry{
		ID:            event.EventID(),
		Name:          event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Payload:       payload,
		Headers:       enriched,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// CorrelationID returns the correlation id header.
func (e OutboxEntry) CorrelationID() string {
	return e.Headers[HeaderCorrelationID]
}

// DeadLettered reports whether the row exhausted its retry budget.
func (e OutboxEntry) DeadLettered() bool {
	return !e.Processed && e.Attempts >= DeadLetterThreshold
}

// ReadyForRetry reports whether a drainer may still attempt delivery.
func (e OutboxEntry) ReadyForRetry() bool {
	return !e.Processed && e.Attempts < DeadLetterThreshold
}

// OutboxRepository is the port for outbox persistence. Append must run inside
// the transaction of the state change it documents; the remaining methods form
// the contract consumed by an external drainer.
type OutboxRepository interface {
	Append(ctx context.Context, entries ...OutboxEntry) error
	ReadyForRetry(ctx context.Context, limit int) ([]OutboxEntry, error)
	DeadLettered(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkProcessed(ctx context.Context, ids ...uuid.UUID) error
	IncrementAttempts(ctx context.Context, ids ...uuid.UUID) error
}
