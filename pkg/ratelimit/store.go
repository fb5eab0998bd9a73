package ratelimit

import (
	"context"
	"time"
)

// Store is the shared counter backend for hourly windows.
//
// Admit must be atomic with respect to concurrent calls on the same key:
// increment the counter, set ttl on the window's first increment, compare
// against limit, and revert the increment when the limit is exceeded. On
// denial, count reports the value as it stood before this call's increment.
type Store interface {
	Admit(ctx context.Context, key string, limit int, ttl time.Duration) (count int64, allowed bool, err error)

	// Count returns the current counter value for key, zero when absent.
	// Read-only; may race benignly with concurrent Admit calls.
	Count(ctx context.Context, key string) (int64, error)
}
