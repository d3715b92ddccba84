package ledger

import "errors"

var (
	// ErrObjectNotTracked indicates no ledger row exists for the object key.
	// Confirming an untracked key is a caller-side consistency error.
	ErrObjectNotTracked = errors.New("object not tracked")
)
