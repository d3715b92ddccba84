package ledger

import (
	"time"

	"github.com/google/uuid"
)

// BucketClass partitions objects by accounting treatment.
type BucketClass string

const (
	// ClassPersistent objects count toward the owner's quota once confirmed.
	ClassPersistent BucketClass = "persistent"
	// ClassTemporal objects are ephemeral processing artifacts and are never accounted.
	ClassTemporal BucketClass = "temporal"
)

// Valid reports whether the class is a known value.
func (c BucketClass) Valid() bool {
	return c == ClassPersistent || c == ClassTemporal
}

// Status is the lifecycle state of a tracked object.
type Status string

const (
	// StatusPending marks intent to upload; pending rows never affect usage.
	StatusPending Status = "pending"
	// StatusConfirmed marks a reconciled upload whose size is charged to the owner.
	StatusConfirmed Status = "confirmed"
	// StatusDeleted marks a released object; size_bytes is retained for audit.
	StatusDeleted Status = "deleted"
)

// Object is one ledger row tracking a stored object. object_key is the
// natural key: at most one row exists per key.
type Object struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	ObjectKey   string      `json:"object_key"`
	BucketClass BucketClass `json:"bucket_class"`
	Status      Status      `json:"status"`
	SizeBytes   int64       `json:"size_bytes"`
	ConfirmedAt *time.Time  `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
