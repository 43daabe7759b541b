package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

type testEvent struct {
	BaseEvent
	LoanID string `json:"loan_id"`
	Amount int64  `json:"amount"`
}

func newTestEvent(aggregateID uuid.UUID) testEvent {
	return testEvent{
		BaseEvent: NewBaseEvent("loan.approved", aggregateID, "Loan", time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)),
		LoanID:    aggregateID.String(),
		Amount:    1_000_000,
	}
}

func TestNewBaseEvent(t *testing.T) {
	aggregateID := uuid.New()
	occurred := time.Date(2025, 9, 10, 8, 0, 0, 0, time.FixedZone("PHT", 8*3600))

	event := NewBaseEvent("loan.approved", aggregateID, "Loan", occurred)

	if event.EventID() == uuid.Nil {
		t.Error("expected non-nil event ID")
	}
	if event.EventType() != "loan.approved" {
		t.Errorf("expected event type %q, got %q", "loan.approved", event.EventType())
	}
	if event.AggregateID() != aggregateID {
		t.Errorf("expected aggregate ID %v, got %v", aggregateID, event.AggregateID())
	}
	if event.AggregateType() != "Loan" {
		t.Errorf("expected aggregate type %q, got %q", "Loan", event.AggregateType())
	}
	if !event.OccurredAt().Equal(occurred) || event.OccurredAt().Location() != time.UTC {
		t.Errorf("expected occurredAt %v in UTC, got %v", occurred, event.OccurredAt())
	}
}

func TestNewBaseEventZeroTimeUsesNow(t *testing.T) {
	before := time.Now().UTC()
	event := NewBaseEvent("loan.paid", uuid.New(), "Loan", time.Time{})
	after := time.Now().UTC()

	if event.OccurredAt().Before(before) || event.OccurredAt().After(after) {
		t.Errorf("expected occurredAt between %v and %v, got %v", before, after, event.OccurredAt())
	}
}

func TestBaseEventImplementsDomainEvent(t *testing.T) {
	var _ DomainEvent = BaseEvent{}
}

func TestNewOutboxEntry(t *testing.T) {
	aggregateID := uuid.New()
	event := newTestEvent(aggregateID)

	entry, err := NewOutboxEntry(event, Headers{HeaderCorrelationID: "req-42", HeaderActorID: "admin-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.ID != event.EventID() {
		t.Errorf("expected outbox ID %v, got %v", event.EventID(), entry.ID)
	}
	if entry.AggregateID != aggregateID {
		t.Errorf("expected aggregate ID %v, got %v", aggregateID, entry.AggregateID)
	}
	if entry.Name != "loan.approved" {
		t.Errorf("expected name %q, got %q", "loan.approved", entry.Name)
	}
	if entry.Processed || entry.Attempts != 0 {
		t.Errorf("expected fresh entry, got processed=%v attempts=%d", entry.Processed, entry.Attempts)
	}
	if entry.CorrelationID() != "req-42" {
		t.Errorf("expected caller correlation id to be kept, got %q", entry.CorrelationID())
	}
	if entry.Headers[HeaderActorID] != "admin-1" {
		t.Errorf("expected actor header to be kept, got %q", entry.Headers[HeaderActorID])
	}
	if entry.Headers[HeaderPublishedAt] != "2025-09-10T08:00:00Z" {
		t.Errorf("unexpected published_at header %q", entry.Headers[HeaderPublishedAt])
	}

	var parsed map[string]any
	if err := json.Unmarshal(entry.Payload, &parsed); err != nil {
		t.Fatalf("expected valid JSON payload, got error: %v", err)
	}
	if parsed["loan_id"] != aggregateID.String() {
		t.Errorf("expected loan_id in payload, got %v", parsed["loan_id"])
	}
	if len(parsed) != 2 {
		t.Errorf("expected only domain fields in payload, got %v", parsed)
	}
}

func TestNewOutboxEntryGeneratesCorrelationID(t *testing.T) {
	entry, err := NewOutboxEntry(newTestEvent(uuid.New()), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(entry.CorrelationID()); err != nil {
		t.Errorf("expected generated UUID correlation id, got %q", entry.CorrelationID())
	}
}

func TestNewOutboxEntryDoesNotMutateCallerHeaders(t *testing.T) {
	headers := Headers{HeaderActorID: "admin-1"}
	if _, err := NewOutboxEntry(newTestEvent(uuid.New()), headers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(headers) != 1 {
		t.Errorf("caller headers were mutated: %v", headers)
	}
}

func TestOutboxEntryRetryBookkeeping(t *testing.T) {
	tests := []struct {
		name         string
		processed    bool
		attempts     int
		wantRetry    bool
		wantDeadLett bool
	}{
		{name: "fresh", attempts: 0, wantRetry: true},
		{name: "below threshold", attempts: DeadLetterThreshold - 1, wantRetry: true},
		{name: "at threshold", attempts: DeadLetterThreshold, wantDeadLett: true},
		{name: "above threshold", attempts: DeadLetterThreshold + 3, wantDeadLett: true},
		{name: "processed", processed: true, attempts: DeadLetterThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := OutboxEntry{Processed: tt.processed, Attempts: tt.attempts}
			if got := entry.ReadyForRetry(); got != tt.wantRetry {
				t.Errorf("ReadyForRetry() = %v, want %v", got, tt.wantRetry)
			}
			if got := entry.DeadLettered(); got != tt.wantDeadLett {
				t.Errorf("DeadLettered() = %v, want %v", got, tt.wantDeadLett)
			}
		})
	}
}
