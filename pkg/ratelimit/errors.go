package ratelimit

import "errors"

var (
	// ErrStoreNil is returned when a nil store is provided.
	ErrStoreNil = errors.New("ratelimit: store cannot be nil")

	// ErrInvalidLimit is returned when the configured default limit is not positive.
	ErrInvalidLimit = errors.New("ratelimit: hourly limit must be positive")

	// ErrStoreUnavailable wraps counter store failures so callers can treat
	// them as transient connectivity problems rather than rate decisions.
	ErrStoreUnavailable = errors.New("ratelimit: counter store unavailable")
)
