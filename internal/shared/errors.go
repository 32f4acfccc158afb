package shared

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a concurrent save touched the same record.
	ErrConflict = errors.New("conflict")
)
