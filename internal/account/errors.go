package account

import "errors"

var (
	// ErrAccountNotFound indicates no usage row exists for the user.
	ErrAccountNotFound = errors.New("account not found")
)
