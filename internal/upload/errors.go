package upload

import "errors"

var (
	// ErrPolicyViolation indicates the upload was rejected by quota policy.
	// The wrapped message carries the human-readable reason.
	ErrPolicyViolation = errors.New("upload policy violation")
	// ErrObjectMissing indicates confirmation was requested before the
	// physical upload completed; retrying without re-uploading cannot succeed.
	ErrObjectMissing = errors.New("uploaded object missing")
)
