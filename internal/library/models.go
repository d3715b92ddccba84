package library

import (
	"time"

	"github.com/google/uuid"
)

// File is a library record owning a stored object and an optional thumbnail.
type File struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	ObjectKey    string    `json:"object_key"`
	ThumbnailKey *string   `json:"thumbnail_key,omitempty"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StorageKeys returns the object keys owned by this record, thumbnail included.
func (f File) StorageKeys() []string {
	keys := []string{f.ObjectKey}
	if f.ThumbnailKey != nil && *f.ThumbnailKey != "" {
		keys = append(keys, *f.ThumbnailKey)
	}
	return keys
}
