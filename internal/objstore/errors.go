package objstore

import "errors"

var (
	// ErrObjectNotFound indicates the requested key does not exist in the bucket.
	ErrObjectNotFound = errors.New("object not found")
)
