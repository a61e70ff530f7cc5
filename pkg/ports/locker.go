package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLeaseLost is returned by Renew when the lease expired or passed to another holder.
var ErrLeaseLost = errors.New("lock lease lost")

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// It lets several roboflow processes share one device without running two scenarios on it at once.
type DistributedLocker interface {
	// Lock acquires the lock for key (e.g., a device serial).
	// It blocks until the lock is acquired or the context is canceled.
	// The lock expires after ttl if never released.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// LeaseRenewer is implemented by lockers whose leases expire while held.
// Renew pushes the expiry of the lease this process holds on key to ttl from now.
type LeaseRenewer interface {
	Renew(ctx context.Context, key string, ttl time.Duration) error
}
