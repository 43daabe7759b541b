// Package outbox appends domain events to the transactional outbox.
package outbox

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/bibbank/lendcore/pkg/events"
)

// SchemaVersion is stamped on every row as the event_version header.
const SchemaVersion = "1"

// Publisher turns domain events into outbox rows. It never talks to a broker:
// rows become visible exactly when the caller's transaction commits.
type Publisher struct {
	schemaVersion string
}

func NewPublisher() *Publisher {
	return &Publisher{schemaVersion: SchemaVersion}
}

// Publish appends one row per event through repo, which must be bound to the
// transaction that made the state change. Events of one call share a
// correlation id; one is generated when headers carry none.
func (p *Publisher) Publish(ctx context.Context, repo events.OutboxRepository, headers events.Headers, evs ...events.DomainEvent) error {
	if len(evs) == 0 {
		return nil
	}

	shared := events.Headers{}
	maps.Copy(shared, headers)
	if shared[events.HeaderCorrelationID] == "" {
		shared[events.HeaderCorrelationID] = uuid.NewString()
	}
	shared[events.HeaderEventVersion] = p.schemaVersion

	entries := make([]events.OutboxEntry, 0, len(evs))
	for _, ev := range evs {
		entry, err := events.NewOutboxEntry(ev, shared)
		if err != nil {
			return fmt.Errorf("build outbox entry %s: %w", ev.EventType(), err)
		}
		entries = append(entries, entry)
	}

	if err := repo.Append(ctx, entries...); err != nil {
		return fmt.Errorf("append outbox entries: %w", err)
	}
	return nil
}
