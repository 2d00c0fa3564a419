package feature

import (
	"fmt"
	"strings"
)

// missingFeatureError identifies the first record lacking required features.
// The whole batch fails; no partial predictions are produced.
type missingFeatureError struct {
	row   int
	names []string
}

func (e missingFeatureError) Error() string {
	return fmt.Sprintf("row %d: missing features: %s", e.row, strings.Join(e.names, ", "))
}

// ErrMissingFeature constructs a missingFeatureError for a zero-based row index.
func ErrMissingFeature(row int, names []string) error {
	return missingFeatureError{row: row, names: names}
}

// IsMissingFeature reports whether err indicates an incomplete record.
func IsMissingFeature(err error) bool {
	_, ok := err.(missingFeatureError)
	return ok
}

// MissingFeatureDetails extracts the row index and missing names for callers
// building structured error envelopes.
func MissingFeatureDetails(err error) (row int, names []string, ok bool) {
	e, ok := err.(missingFeatureError)
	if !ok {
		return 0, nil, false
	}
	return e.row, e.names, true
}

// emptyBatchError signals a batch with zero records.
type emptyBatchError struct{}

func (emptyBatchError) Error() string { return "empty batch provided" }

// ErrEmptyBatch constructs an emptyBatchError.
func ErrEmptyBatch() error { return emptyBatchError{} }

// IsEmptyBatch reports whether err indicates an empty batch.
func IsEmptyBatch(err error) bool {
	_, ok := err.(emptyBatchError)
	return ok
}

// batchTooLargeError signals a batch above the transport's configured ceiling.
type batchTooLargeError struct{ size, max int }

func (e batchTooLargeError) Error() string {
	return fmt.Sprintf("batch size %d exceeds maximum of %d", e.size, e.max)
}

// ErrBatchTooLarge constructs a batchTooLargeError.
func ErrBatchTooLarge(size, max int) error { return batchTooLargeError{size: size, max: max} }

// IsBatchTooLarge reports whether err indicates an oversized batch.
func IsBatchTooLarge(err error) bool {
	_, ok := err.(batchTooLargeError)
	return ok
}

// invalidInputError signals input that cannot be decoded or coerced.
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string { return e.msg }

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err indicates malformed input.
func IsInvalidInput(err error) bool {
	_, ok := err.(invalidInputError)
	return ok
}
