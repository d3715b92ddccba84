package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const repoTimeout = 5 * time.Second

// querier is the subset of pgxpool.Pool the repository needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists the storage-object ledger.
//
// Delta-producing operations (Confirm, MarkDeleted) read the previous row
// state and apply the transition inside one statement, locking the row so
// that racing calls for the same key serialize; the loser computes its delta
// against the winner's size and the cumulative usage effect stays equal to
// the final size.
type Repository struct {
	db querier
}

// NewRepository builds a ledger repository.
func NewRepository(db querier) *Repository {
	return &Repository{db: db}
}

// CreateOrUpdatePending registers intent to upload. If a row already exists
// for the key it is reset to pending with the newly declared size, restarting
// its accounting cycle; retried upload-URL requests for the same key are
// therefore harmless.
func (r *Repository) CreateOrUpdatePending(ctx context.Context, userID uuid.UUID, objectKey string, class BucketClass, sizeBytes int64) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO storage_objects (id, user_id, object_key, bucket_class, status, size_bytes)
VALUES ($1, $2, $3, $4, 'pending', $5)
ON CONFLICT (object_key)
DO UPDATE SET
    status       = 'pending',
    size_bytes   = EXCLUDED.size_bytes,
    confirmed_at = NULL,
    updated_at   = NOW()
RETURNING id, user_id, object_key, bucket_class, status, size_bytes, confirmed_at, created_at, updated_at;`

	row := r.db.QueryRow(ctx, query, uuid.New(), userID, objectKey, string(class), sizeBytes)

	var obj Object
	if err := row.Scan(&obj.ID, &obj.UserID, &obj.ObjectKey, &obj.BucketClass, &obj.Status, &obj.SizeBytes, &obj.ConfirmedAt, &obj.CreatedAt, &obj.UpdatedAt); err != nil {
		return Object{}, fmt.Errorf("upsert pending object: %w", err)
	}
	return obj, nil
}

// Confirm transitions the row for objectKey to confirmed with the actual
// uploaded size and returns the signed byte delta the caller must apply to
// the owner's aggregate usage.
//
// A pending row contributes 0 as its previous size because pending never
// affected usage; a previously confirmed row contributes its confirmed size,
// which makes re-confirmation with an unchanged size a delta-0 no-op.
func (r *Repository) Confirm(ctx context.Context, objectKey string, actualSizeBytes int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
WITH prev AS (
    SELECT object_key, status, size_bytes
    FROM storage_objects
    WHERE object_key = $1
    FOR UPDATE
)
UPDATE storage_objects s
SET status       = 'confirmed',
    size_bytes   = $2,
    confirmed_at = NOW(),
    updated_at   = NOW()
FROM prev
WHERE s.object_key = prev.object_key
RETURNING $2::bigint - (CASE WHEN prev.status = 'confirmed' THEN prev.size_bytes ELSE 0 END);`

	var delta int64
	if err := r.db.QueryRow(ctx, query, objectKey, actualSizeBytes).Scan(&delta); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrObjectNotTracked
		}
		return 0, fmt.Errorf("confirm object: %w", err)
	}
	return delta, nil
}

// MarkDeleted transitions the row for objectKey to deleted and returns the
// usage delta to reverse. Only confirmed rows ever charged usage, so only
// they produce a negative delta; pending, already-deleted, and untracked
// keys yield 0. The last known size is retained on the row for audit.
func (r *Repository) MarkDeleted(ctx context.Context, objectKey string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
WITH prev AS (
    SELECT object_key, status, size_bytes
    FROM storage_objects
    WHERE object_key = $1
    FOR UPDATE
)
UPDATE storage_objects s
SET status     = 'deleted',
    updated_at = NOW()
FROM prev
WHERE s.object_key = prev.object_key
RETURNING CASE WHEN prev.status = 'confirmed' THEN -prev.size_bytes ELSE 0 END;`

	var delta int64
	if err := r.db.QueryRow(ctx, query, objectKey).Scan(&delta); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// already gone or never tracked; safe no-op
			return 0, nil
		}
		return 0, fmt.Errorf("mark object deleted: %w", err)
	}
	return delta, nil
}

// Get fetches the ledger row for an object key.
func (r *Repository) Get(ctx context.Context, objectKey string) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, user_id, object_key, bucket_class, status, size_bytes, confirmed_at, created_at, updated_at
FROM storage_objects
WHERE object_key = $1;`

	var obj Object
	err := r.db.QueryRow(ctx, query, objectKey).Scan(
		&obj.ID,
		&obj.UserID,
		&obj.ObjectKey,
		&obj.BucketClass,
		&obj.Status,
		&obj.SizeBytes,
		&obj.ConfirmedAt,
		&obj.CreatedAt,
		&obj.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Object{}, ErrObjectNotTracked
		}
		return Object{}, fmt.Errorf("get object: %w", err)
	}
	return obj, nil
}
