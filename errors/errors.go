package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	// CategoryDecode covers sources that are not valid or complete images,
	// including failures surfaced while verifying an already-opened image.
	CategoryDecode Category = "decode"
	// CategoryEncode covers save failures after the one bounded retry.
	CategoryEncode Category = "encode"
	// CategoryLookup covers processor specifications naming a processor that
	// is not registered for the active backend.
	CategoryLookup Category = "lookup"
	// CategoryConfig covers invalid backend selection or configuration.
	CategoryConfig Category = "config"
	// CategoryDependency covers backends whose native library is not
	// compiled into this binary.
	CategoryDependency Category = "dependency"
	// CategoryInput covers malformed caller input such as bad processor
	// arguments or an unusable source.
	CategoryInput Category = "input"
)

// ProcessingError is the structured error type used throughout the module.
type ProcessingError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrUnknownBackend    = errors.New("unknown backend")
	ErrUnknownProcessor  = errors.New("unknown processor")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrEmptyInput        = errors.New("empty input")
	ErrBadProcessorArgs  = errors.New("bad processor arguments")
	ErrWrongBackendImage = errors.New("image was opened by a different backend")
)
