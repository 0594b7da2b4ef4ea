package memory

import "errors"

var (
	// ErrStoreUnavailable means no store client is configured.
	ErrStoreUnavailable = errors.New("memory store unavailable: no store client configured")

	// ErrNotFound is returned when a delete matches no memory owned by the user.
	ErrNotFound = errors.New("memory not found")
)
