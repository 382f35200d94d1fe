package storage

import "errors"

// Storage errors for the append-only decision journal. Lookups for unknown
// keys return empty slices, not an error: absence is a normal outcome.
var (
	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
