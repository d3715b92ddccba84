package account

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a subscription level mapping to a storage ceiling.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

const gib = 1024 * 1024 * 1024

// Limit returns the byte ceiling for the tier. Unknown tiers fall back to
// the free ceiling so a bad row can never unlock unlimited storage.
func (t Tier) Limit() int64 {
	switch t {
	case TierPro:
		return 50 * gib
	case TierPremium:
		return 200 * gib
	default:
		return 1 * gib
	}
}

// Usage is the per-user quota aggregate. UsedBytes is mutated only through
// ApplyUsageDelta and is the single source of truth for quota enforcement.
type Usage struct {
	UserID    uuid.UUID `json:"user_id"`
	UsedBytes int64     `json:"used_bytes"`
	Tier      Tier      `json:"tier"`
	UpdatedAt time.Time `json:"updated_at"`
}
