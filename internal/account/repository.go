package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const repoTimeout = 5 * time.Second

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists per-user usage aggregates.
type Repository struct {
	db querier
}

// NewRepository builds an account repository.
func NewRepository(db querier) *Repository {
	return &Repository{db: db}
}

// GetUsage returns the user's current usage and tier.
func (r *Repository) GetUsage(ctx context.Context, userID uuid.UUID) (Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT user_id, used_bytes, tier, updated_at
FROM user_accounts
WHERE user_id = $1;`

	var usage Usage
	err := r.db.QueryRow(ctx, query, userID).Scan(&usage.UserID, &usage.UsedBytes, &usage.Tier, &usage.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Usage{}, ErrAccountNotFound
		}
		return Usage{}, fmt.Errorf("get usage: %w", err)
	}
	return usage, nil
}

// ApplyUsageDelta adjusts used_bytes by a signed delta as a single relative
// update, so concurrent confirmations for different objects of the same user
// compose without lost updates. The floor at zero guards against reversal
// deltas racing a reset.
func (r *Repository) ApplyUsageDelta(ctx context.Context, userID uuid.UUID, deltaBytes int64) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE user_accounts
SET used_bytes = GREATEST(used_bytes + $2, 0),
    updated_at = NOW()
WHERE user_id = $1;`

	tag, err := r.db.Exec(ctx, query, userID, deltaBytes)
	if err != nil {
		return fmt.Errorf("apply usage delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// EnsureAccount seeds a usage row for the user if one does not exist yet.
func (r *Repository) EnsureAccount(ctx context.Context, userID uuid.UUID, tier Tier) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO user_accounts (user_id, used_bytes, tier)
VALUES ($1, 0, $2)
ON CONFLICT (user_id) DO NOTHING;`

	if _, err := r.db.Exec(ctx, query, userID, string(tier)); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return nil
}
