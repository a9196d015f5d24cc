package store

import "errors"

// Sentinel errors for room store operations.
var (
	// ErrRoomNotFound is returned when the room's membership record is
	// absent (never created, expired, or destroyed).
	ErrRoomNotFound = errors.New("room not found")

	// ErrStoreUnavailable wraps transient Redis failures (timeouts,
	// connectivity). Callers may retry idempotent reads; a failed append
	// must be surfaced, not silently retried.
	ErrStoreUnavailable = errors.New("store unavailable")
)
