package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/port"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

var _ port.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore implements port.IdempotencyStore on the
// UNIQUE (key, scope) index of idempotency_keys.
type IdempotencyStore struct {
	db pkgpostgres.Querier
}

func NewIdempotencyStore(db pkgpostgres.Querier) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Reserve inserts the key and, when the index already holds one, reads the
// existing binding instead. Under READ COMMITTED a concurrent insert of the
// same (key, scope) blocks until the other transaction finishes, so the
// fallback read always sees the winner's row.
func (s *IdempotencyStore) Reserve(ctx context.Context, key model.IdempotencyKey) (port.Reservation, error) {
	var bound uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO idempotency_keys (key, scope, resource_type, resource_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key, scope) DO NOTHING
		RETURNING resource_id
	`, key.Key(), key.Scope(), key.ResourceType(), key.ResourceID(), key.CreatedAt()).Scan(&bound)
	if err == nil {
		return port.Reservation{BoundResource: bound, Created: true}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return port.Reservation{}, fmt.Errorf("insert idempotency key: %w", err)
	}

	existing, err := s.Find(ctx, key.Key(), key.Scope())
	if err != nil {
		return port.Reservation{}, err
	}
	if err := existing.Resolve(key.ResourceID()); err != nil {
		return port.Reservation{}, err
	}
	return port.Reservation{BoundResource: existing.ResourceID()}, nil
}

func (s *IdempotencyStore) Find(ctx context.Context, key, scope string) (model.IdempotencyKey, error) {
	var (
		resourceType string
		resourceID   uuid.UUID
		createdAt    time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT resource_type, resource_id, created_at
		FROM idempotency_keys
		WHERE key = $1 AND scope = $2
	`, key, scope).Scan(&resourceType, &resourceID, &createdAt)
	if err != nil {
		return model.IdempotencyKey{}, notFound(err, "idempotency key", scope+"/"+key, "query idempotency key")
	}
	return model.ReconstructIdempotencyKey(key, scope, resourceType, resourceID, createdAt.UTC()), nil
}
