package ports

import (
	"context"
	"time"
)

// LockoutState is the brute-force counter for one login identifier.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore tracks failed login attempts and temporary lockouts.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}
