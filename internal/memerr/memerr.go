// Package memerr defines the error taxonomy shared across the engine.
//
// Callers classify failures with errors.Is against the sentinels below;
// messages are attached by wrapping with fmt.Errorf("%w: ...").
package memerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad caller input: empty content, out-of-range
	// importance, non-positive top-k.
	ErrValidation = errors.New("validation")

	// ErrNotFound marks a lookup for an unknown memory id.
	ErrNotFound = errors.New("not found")

	// ErrConfig marks malformed caller configuration, e.g. search weights
	// that do not sum to 1.
	ErrConfig = errors.New("config")

	// ErrDimensionMismatch marks vectors of different length or model version.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrUnavailable marks an embedding backend that failed to initialize.
	ErrUnavailable = errors.New("embedding backend unavailable")

	// ErrExtraction marks a failed extraction call during consolidation.
	ErrExtraction = errors.New("extraction")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Configf wraps ErrConfig with a formatted message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
