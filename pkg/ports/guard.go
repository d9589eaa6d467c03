package ports

import (
	"context"
	"time"
)

// ReleaseFunc releases a guard acquired with Guard.Acquire.
type ReleaseFunc func(ctx context.Context) error

// Guard provides the "one in-flight request per step" rule across processes.
// Acquire never blocks waiting for a holder: if the key is held it returns
// domain.ErrStepInFlight.
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}
