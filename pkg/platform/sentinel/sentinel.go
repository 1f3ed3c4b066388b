package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors:
//   - ErrNotFound: record does not exist
//   - ErrConflict: a unique key (guardian email, payment intent) is taken
//   - ErrInvalidState: record is in the wrong state for the mutation
//   - ErrUnavailable: backing service temporarily unavailable
//
// Validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
