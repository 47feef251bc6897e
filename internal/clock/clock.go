// Package clock provides the suspension points used by the long-running
// activities. Real sleeps on timers; Fake runs a virtual timeline so loops
// can be driven deterministically in tests.
package clock

import (
	"context"
	"time"
)

// Clock tells the time and suspends the calling goroutine.
type Clock interface {
	Now() time.Time

	// Sleep suspends for d. It returns early with ctx.Err() if the context
	// is cancelled. A non-positive d only checks the context.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time {
	return time.Now()
}

// Sleep blocks on a timer or until ctx is done.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
