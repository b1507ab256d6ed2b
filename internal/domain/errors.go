package domain

import "errors"

var (
	// ErrGameNotFound - join or fetch targeted a game id absent from the
	// active medium. Surfaced directly, never retried.
	ErrGameNotFound = errors.New("game not found")

	// ErrStoreUnreachable - the networked store could not be reached.
	// The repository retries once against the local fallback before
	// converting this into ErrOperationFailed.
	ErrStoreUnreachable = errors.New("store unreachable")

	// ErrInvalidState - a host-only write was attempted by a non-host
	// client, or an operation does not apply in the current status.
	// Rejected locally before any store call.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrMissingPlayer - results computation could not find the local
	// player in the fetched set. Callers degrade to another view.
	ErrMissingPlayer = errors.New("player not found in game")

	// ErrOperationFailed - both the networked store and the local
	// fallback failed; the terminal repository error.
	ErrOperationFailed = errors.New("operation failed")
)
