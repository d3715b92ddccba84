package library

import "errors"

var (
	// ErrFileNotFound signals that the library record could not be located.
	ErrFileNotFound = errors.New("file not found")
)
