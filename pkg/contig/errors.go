package contig

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrEmptyID         = errors.New("empty contig ID")
	ErrDuplicateID     = errors.New("duplicate contig ID")
	ErrBadLength       = errors.New("contig length must be positive")
	ErrNoFragments     = errors.New("contig has no fragments")
	ErrSelfPair        = errors.New("pair endpoints must differ")
	ErrUnknownContig   = errors.New("unknown contig")
	ErrScoreOutOfRange = errors.New("similarity score outside [0,1]")
)

// InputError provides structured error information for malformed input.
// Input errors are fatal: they indicate the upstream fragmenter or model
// handed the engine something it refuses to guess about.
type InputError struct {
	Op     string // Operation that failed (e.g., "Validate", "Build")
	Contig ID     // Contig involved (if applicable)
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Contig != "" {
		return fmt.Sprintf("%s contig %q: %v", e.Op, e.Contig, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *InputError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *InputError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}
