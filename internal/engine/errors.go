package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/statecore/internal/state"
)

// ErrClosed is returned by mutations after the store has been closed.
var ErrClosed = errors.New("store closed")

// UpdateError is returned when the store rejects a patch or a replacement
// state. A rejected update leaves the current state untouched.
type UpdateError struct {
	// Code identifies the error category.
	Code UpdateErrorCode

	// Message is a human-readable description.
	Message string

	// Slice names the top-level slice at fault, if known.
	Slice string

	// Err is the underlying validation error.
	Err error
}

// UpdateErrorCode categorizes update errors.
type UpdateErrorCode string

const (
	// ErrCodeInvalidSlice: a known slice has the wrong shape, or a required
	// slice would be removed.
	ErrCodeInvalidSlice UpdateErrorCode = "INVALID_SLICE"

	// ErrCodeInvalidValue: a field inside a known slice has the wrong type.
	ErrCodeInvalidValue UpdateErrorCode = "INVALID_VALUE"

	// ErrCodeSchemaViolation: the merged state fails the strict schema.
	ErrCodeSchemaViolation UpdateErrorCode = "SCHEMA_VIOLATION"
)

// Error implements the error interface.
func (e *UpdateError) Error() string {
	if e.Slice != "" {
		return fmt.Sprintf("%s: %s (slice=%s)", e.Code, e.Message, e.Slice)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying validation error.
func (e *UpdateError) Unwrap() error {
	return e.Err
}

// IsUpdateError reports whether err is an UpdateError with the given code.
// Uses errors.As to handle wrapped errors.
func IsUpdateError(err error, code UpdateErrorCode) bool {
	var ue *UpdateError
	if errors.As(err, &ue) {
		return ue.Code == code
	}
	return false
}

// newUpdateError maps a state validation failure onto an UpdateError.
func newUpdateError(err error) *UpdateError {
	var ve *state.ValidationError
	if errors.As(err, &ve) {
		code := ErrCodeInvalidValue
		if ve.Kind == state.InvalidSlice {
			code = ErrCodeInvalidSlice
		}
		return &UpdateError{Code: code, Message: ve.Message, Slice: ve.Slice, Err: err}
	}
	return &UpdateError{Code: ErrCodeSchemaViolation, Message: err.Error(), Err: err}
}
