package cleanup

import (
	"context"

	"github.com/edstack/storacct/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type storageBackend interface {
	Remove(ctx context.Context, bucket, key string) error
}

type objectLedger interface {
	MarkDeleted(ctx context.Context, objectKey string) (int64, error)
}

type accountStore interface {
	ApplyUsageDelta(ctx context.Context, userID uuid.UUID, deltaBytes int64) error
}

// Service reverses storage accounting when owning records are deleted,
// singly or in cascades.
//
// Every step is best-effort: a failed physical delete or ledger update is
// logged and counted, never fatal, because the user-visible deletion must
// succeed even when bookkeeping degrades to an orphan reconciled later.
// Usage is adjusted once per batch with the accumulated delta, not once per
// object.
type Service struct {
	backend  storageBackend
	objects  objectLedger
	accounts accountStore
	bucket   string
	logg     *zap.Logger
}

// NewService constructs a cleanup service operating on the persistent bucket.
func NewService(backend storageBackend, objects objectLedger, accounts accountStore, bucket string, logg *zap.Logger) *Service {
	if logg == nil {
		logg = zap.NewNop()
	}
	return &Service{
		backend:  backend,
		objects:  objects,
		accounts: accounts,
		bucket:   bucket,
		logg:     logg,
	}
}

// Summary reports the outcome of a release batch.
type Summary struct {
	DeltaBytes     int64
	RemoveFailures int
	LedgerFailures int
}

// ReleaseObjects deletes the physical objects for the given keys, marks their
// ledger rows deleted, and applies the accumulated usage delta in a single
// account update. It always processes every key.
func (s *Service) ReleaseObjects(ctx context.Context, userID uuid.UUID, objectKeys []string) Summary {
	var summary Summary

	for _, key := range objectKeys {
		if key == "" {
			continue
		}

		if err := s.backend.Remove(ctx, s.bucket, key); err != nil {
			summary.RemoveFailures++
			metrics.CleanupFailures.WithLabelValues("remove").Inc()
			s.logg.Warn("physical delete failed, object orphaned",
				zap.String("object_key", key),
				zap.Error(err),
			)
		}

		delta, err := s.objects.MarkDeleted(ctx, key)
		if err != nil {
			summary.LedgerFailures++
			metrics.CleanupFailures.WithLabelValues("ledger").Inc()
			s.logg.Warn("ledger delete failed",
				zap.String("object_key", key),
				zap.Error(err),
			)
			continue
		}
		summary.DeltaBytes += delta
	}

	if summary.DeltaBytes != 0 {
		if err := s.accounts.ApplyUsageDelta(ctx, userID, summary.DeltaBytes); err != nil {
			metrics.CleanupFailures.WithLabelValues("account").Inc()
			s.logg.Error("usage reversal failed",
				zap.String("user_id", userID.String()),
				zap.Int64("delta_bytes", summary.DeltaBytes),
				zap.Error(err),
			)
		} else if summary.DeltaBytes < 0 {
			metrics.BytesReleased.Add(float64(-summary.DeltaBytes))
		}
	}

	return summary
}
