package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors:
//   - ErrNotFound: record does not exist
//   - ErrConflict: write lost against a concurrent or duplicate write
//   - ErrInvalidState: record is not in the state the write expected
//   - ErrUnavailable: backing store or cache temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
