package domain

import "errors"

var (
	// ErrContainerNotFound indicates the referenced board or list does not exist.
	ErrContainerNotFound = errors.New("container not found")

	// ErrItemNotFound indicates the referenced list or card does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrStaleMoveRequest indicates the client's assumed source container is
	// wrong: the item exists but no longer belongs to the claimed container.
	ErrStaleMoveRequest = errors.New("stale move request")

	// ErrConcurrencyConflict indicates that the underlying storage rejected an
	// update because a newer version of the container is already persisted.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrUnauthorized indicates the caller lacks membership for the requested
	// channel or mutation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates a board, user or other record is missing.
	ErrNotFound = errors.New("not found")
)
