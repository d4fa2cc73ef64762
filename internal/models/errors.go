package models

import "errors"

// Error classes shared across packages. Callers wrap them with fmt.Errorf("...: %w", ...)
// and test with errors.Is.
var (
	// ErrInvalidInput marks validation failures (malformed vectors, cursors, page sizes, payloads).
	// They are reported to the caller and never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a missing item or user.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that collides with existing state (e.g. a second swipe on one item).
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks a collaborator failure (vector index or storage). It is retryable
	// by the calling layer.
	ErrUnavailable = errors.New("collaborator unavailable")
)
