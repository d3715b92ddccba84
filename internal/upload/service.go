package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edstack/storacct/internal/account"
	"github.com/edstack/storacct/internal/ledger"
	"github.com/edstack/storacct/internal/metrics"
	"github.com/edstack/storacct/internal/objstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type accountStore interface {
	GetUsage(ctx context.Context, userID uuid.UUID) (account.Usage, error)
	ApplyUsageDelta(ctx context.Context, userID uuid.UUID, deltaBytes int64) error
}

type objectLedger interface {
	CreateOrUpdatePending(ctx context.Context, userID uuid.UUID, objectKey string, class ledger.BucketClass, sizeBytes int64) (ledger.Object, error)
	Confirm(ctx context.Context, objectKey string, actualSizeBytes int64) (int64, error)
}

type storageBackend interface {
	PresignedPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	Stat(ctx context.Context, bucket, key string) (objstore.ObjectInfo, error)
}

// Buckets names the physical buckets backing each accounting class.
type Buckets struct {
	Persistent string
	Temporal   string
}

// Service gates presigned-upload issuance on quota and reconciles completed
// uploads against the ledger and the owner's usage aggregate.
//
// Quota is never debited at issuance. A pending ledger row records intent
// only; the debit happens at confirmation, from the size the object store
// actually reports, so abandoned client uploads cost nothing. The ledger row
// and the usage aggregate are updated as two sequential idempotent steps, not
// one transaction; a crash between them leaves a bounded inconsistency that
// the next confirmation of the same key repairs.
type Service struct {
	accounts        accountStore
	objects         objectLedger
	backend         storageBackend
	buckets         Buckets
	presignTTL      time.Duration
	maxDeclaredSize int64
	logg            *zap.Logger
}

// NewService constructs an upload service.
func NewService(accounts accountStore, objects objectLedger, backend storageBackend, buckets Buckets, presignTTL time.Duration, maxDeclaredSize int64, logg *zap.Logger) *Service {
	if logg == nil {
		logg = zap.NewNop()
	}
	return &Service{
		accounts:        accounts,
		objects:         objects,
		backend:         backend,
		buckets:         buckets,
		presignTTL:      presignTTL,
		maxDeclaredSize: maxDeclaredSize,
		logg:            logg,
	}
}

// Decision is the outcome of a quota policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

// CheckPolicy reports whether an upload of the declared size may proceed.
// Temporal-class objects are quota-exempt and always pass. The check has no
// side effects.
func (s *Service) CheckPolicy(ctx context.Context, userID uuid.UUID, sizeBytes int64, class ledger.BucketClass) (Decision, error) {
	if class == ledger.ClassTemporal {
		return Decision{Allowed: true}, nil
	}

	usage, err := s.accounts.GetUsage(ctx, userID)
	if err != nil {
		if err == account.ErrAccountNotFound {
			return Decision{Allowed: false, Reason: "account not found"}, nil
		}
		return Decision{}, err
	}

	limit := usage.Tier.Limit()
	projected := usage.UsedBytes + sizeBytes
	if projected > limit {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("storage quota exceeded: %d of %d bytes used, %d requested", usage.UsedBytes, limit, sizeBytes),
		}, nil
	}

	return Decision{Allowed: true}, nil
}

// IssueRequest describes a presigned-upload request.
type IssueRequest struct {
	UserID      uuid.UUID
	ObjectKey   string
	ContentType string
	SizeBytes   int64
	Class       ledger.BucketClass
	ExpiresIn   time.Duration
}

// Grant is a successfully issued upload URL.
type Grant struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
}

// IssuePresignedUpload checks quota, registers intent for persistent objects,
// and returns a presigned PUT URL. Re-requesting a URL for the same key
// resets the existing ledger row to pending with the new declared size.
func (s *Service) IssuePresignedUpload(ctx context.Context, req IssueRequest) (Grant, error) {
	if strings.TrimSpace(req.ObjectKey) == "" {
		return Grant{}, fmt.Errorf("%w: object key required", ErrPolicyViolation)
	}
	if req.SizeBytes < 0 {
		return Grant{}, fmt.Errorf("%w: negative declared size", ErrPolicyViolation)
	}
	if s.maxDeclaredSize > 0 && req.SizeBytes > s.maxDeclaredSize {
		return Grant{}, fmt.Errorf("%w: declared size %d exceeds per-upload maximum %d", ErrPolicyViolation, req.SizeBytes, s.maxDeclaredSize)
	}

	decision, err := s.CheckPolicy(ctx, req.UserID, req.SizeBytes, req.Class)
	if err != nil {
		return Grant{}, err
	}
	if !decision.Allowed {
		metrics.UploadDenials.Inc()
		return Grant{}, fmt.Errorf("%w: %s", ErrPolicyViolation, decision.Reason)
	}

	if req.Class == ledger.ClassPersistent {
		if _, err := s.objects.CreateOrUpdatePending(ctx, req.UserID, req.ObjectKey, req.Class, req.SizeBytes); err != nil {
			return Grant{}, err
		}
	}

	expiry := req.ExpiresIn
	if expiry <= 0 {
		expiry = s.presignTTL
	}

	url, err := s.backend.PresignedPut(ctx, s.bucketFor(req.Class), req.ObjectKey, expiry)
	if err != nil {
		return Grant{}, err
	}

	return Grant{UploadURL: url, ObjectKey: req.ObjectKey}, nil
}

// ConfirmRequest describes a post-upload confirmation.
type ConfirmRequest struct {
	UserID    uuid.UUID
	ObjectKey string
	Class     ledger.BucketClass
}

// Confirmation is the outcome of a reconciled upload.
type Confirmation struct {
	Confirmed       bool  `json:"confirmed"`
	DeltaBytes      int64 `json:"delta_bytes"`
	ActualSizeBytes int64 `json:"actual_size_bytes"`
}

// ConfirmUpload reconciles the object's actual stored size against the ledger
// and applies the resulting delta to the owner's usage aggregate. Safe to
// retry: a repeat confirmation of an unchanged object computes delta 0 and
// skips the account write.
func (s *Service) ConfirmUpload(ctx context.Context, req ConfirmRequest) (Confirmation, error) {
	if req.Class == ledger.ClassTemporal {
		return Confirmation{Confirmed: true}, nil
	}

	info, err := s.backend.Stat(ctx, s.bucketFor(req.Class), req.ObjectKey)
	if err != nil {
		if err == objstore.ErrObjectNotFound {
			return Confirmation{}, fmt.Errorf("%w: %s", ErrObjectMissing, req.ObjectKey)
		}
		return Confirmation{}, err
	}

	delta, err := s.objects.Confirm(ctx, req.ObjectKey, info.SizeBytes)
	if err != nil {
		return Confirmation{}, err
	}

	if delta != 0 {
		if err := s.accounts.ApplyUsageDelta(ctx, req.UserID, delta); err != nil {
			return Confirmation{}, err
		}
	}

	metrics.UploadsConfirmed.Inc()
	if delta > 0 {
		metrics.BytesConfirmed.Add(float64(delta))
	}
	s.logg.Info("upload confirmed",
		zap.String("object_key", req.ObjectKey),
		zap.Int64("actual_size_bytes", info.SizeBytes),
		zap.Int64("delta_bytes", delta),
	)

	return Confirmation{Confirmed: true, DeltaBytes: delta, ActualSizeBytes: info.SizeBytes}, nil
}

func (s *Service) bucketFor(class ledger.BucketClass) string {
	if class == ledger.ClassTemporal {
		return s.buckets.Temporal
	}
	return s.buckets.Persistent
}
