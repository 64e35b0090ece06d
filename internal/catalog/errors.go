package catalog

import "errors"

var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrInvalidInput = errors.New("catalog: invalid input")
	// ErrConflict covers constraint violations, e.g. deleting a venue that
	// still has events.
	ErrConflict = errors.New("catalog: conflict")
)
