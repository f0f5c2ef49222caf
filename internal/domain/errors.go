package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a state machine operation is
	// attempted from a state that does not permit it.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAlreadyProcessed guards proposal generation against re-running a
	// job that already produced its proposal set.
	ErrAlreadyProcessed = errors.New("import job already processed")

	// ErrCatalogUnavailable signals an infrastructure-level failure reading
	// the catalog index.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrConcurrentModification is returned when an optimistic-concurrency
	// check fails on a catalog write.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// NormalizationError is a row-level, recoverable failure. It marks one raw
// record as errored and never aborts the surrounding batch.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("normalization failed: %s", e.Reason)
	}
	return fmt.Sprintf("normalization failed: field %s: %s", e.Field, e.Reason)
}

// MissingRequiredField builds the error recorded when a canonical field
// cannot be derived from the source row.
func MissingRequiredField(field string) *NormalizationError {
	return &NormalizationError{Field: field, Reason: "missing required field"}
}

// IsNormalizationError reports whether err is a row-level normalization
// failure, as opposed to an infrastructure error.
func IsNormalizationError(err error) bool {
	var ne *NormalizationError
	return errors.As(err, &ne)
}
