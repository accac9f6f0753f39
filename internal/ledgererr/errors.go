// Package ledgererr defines the error types shared by the store, the
// categorization engine and the import pipeline.
package ledgererr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a transaction id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrReservedCategory is returned when a keyword targets the
	// Uncategorized sentinel.
	ErrReservedCategory = errors.New("reserved category")
)

// ValidationError describes an input row rejected at the import boundary.
type ValidationError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("row %d: invalid %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("row %d: invalid %s: %s", e.Row, e.Field, e.Reason)
}

// IntegrityError is returned before any write when a value would break a
// store invariant (empty category, empty keyword, negative amount).
type IntegrityError struct {
	Entity string
	Reason string
	Err    error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsIntegrity reports whether err is or wraps an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
