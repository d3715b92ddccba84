package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUsage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM user_accounts`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "used_bytes", "tier", "updated_at"}).
			AddRow(userID, int64(900), Tier("free"), time.Now()))

	repo := NewRepository(mock)
	usage, err := repo.GetUsage(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, int64(900), usage.UsedBytes)
	assert.Equal(t, TierFree, usage.Tier)
}

func TestGetUsageMissingAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM user_accounts`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	repo := NewRepository(mock)
	_, err = repo.GetUsage(context.Background(), userID)

	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestApplyUsageDelta(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectExec(`UPDATE user_accounts`).
		WithArgs(userID, int64(-640)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewRepository(mock)
	require.NoError(t, repo.ApplyUsageDelta(context.Background(), userID, -640))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUsageDeltaMissingAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectExec(`UPDATE user_accounts`).
		WithArgs(userID, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewRepository(mock)
	err = repo.ApplyUsageDelta(context.Background(), userID, 100)

	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectExec(`INSERT INTO user_accounts`).
		WithArgs(userID, "free").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	repo := NewRepository(mock)
	require.NoError(t, repo.EnsureAccount(context.Background(), userID, TierFree))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTierLimits(t *testing.T) {
	assert.Equal(t, int64(1*gib), TierFree.Limit())
	assert.Equal(t, int64(50*gib), TierPro.Limit())
	assert.Equal(t, int64(200*gib), TierPremium.Limit())
	assert.Equal(t, int64(1*gib), Tier("unknown").Limit())
}
