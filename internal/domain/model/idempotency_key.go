package model

import (
	"time"

	"github.com/google/uuid"
)

// Idempotency scopes.
const (
	ScopeLoanDisburse = "loans/disburse"
	scopeLoanCreate   = "loans/create/"
)

// LoanCreateScope namespaces origination keys per borrower.
func LoanCreateScope(userID uuid.UUID) string {
	return scopeLoanCreate + userID.String()
}

// IdempotencyKey binds a caller-chosen key within a scope to exactly one
// resource for the resource's lifetime.
type IdempotencyKey struct {
	createdAt    time.Time
	key          string
	scope        string
	resourceType string
	resourceID   uuid.UUID
}

// NewIdempotencyKey validates a reservation request.
func NewIdempotencyKey(key, scope, resourceType string, resourceID uuid.UUID, now time.Time) (IdempotencyKey, error) {
	switch {
	case key == "":
		return IdempotencyKey{}, &ValidationError{Field: "idempotency_key", Reason: "is required"}
	case scope == "":
		return IdempotencyKey{}, &ValidationError{Field: "scope", Reason: "is required"}
	case resourceID == uuid.Nil:
		return IdempotencyKey{}, &ValidationError{Field: "resource_id", Reason: "is required"}
	}
	return IdempotencyKey{
		key:          key,
		scope:        scope,
		resourceType: resourceType,
		resourceID:   resourceID,
		createdAt:    now,
	}, nil
}

// ReconstructIdempotencyKey rebuilds a reservation from persistence.
func ReconstructIdempotencyKey(key, scope, resourceType string, resourceID uuid.UUID, createdAt time.Time) IdempotencyKey {
	return IdempotencyKey{key: key, scope: scope, resourceType: resourceType, resourceID: resourceID, createdAt: createdAt}
}

func (k IdempotencyKey) Key() string           { return k.key }
func (k IdempotencyKey) Scope() string         { return k.scope }
func (k IdempotencyKey) ResourceType() string  { return k.resourceType }
func (k IdempotencyKey) ResourceID() uuid.UUID { return k.resourceID }
func (k IdempotencyKey) CreatedAt() time.Time  { return k.createdAt }

// Resolve interprets an existing reservation for the same (key, scope):
// nil when it is bound to resourceID, an IdempotencyConflictError otherwise.
func (k IdempotencyKey) Resolve(resourceID uuid.UUID) error {
	if k.resourceID == resourceID {
		return nil
	}
	return &IdempotencyConflictError{Key: k.key, Scope: k.scope, BoundTo: k.resourceID, Requested: resourceID}
}
