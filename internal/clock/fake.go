package clock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHorizon is returned by Fake.Sleep once the virtual timeline reaches
// its horizon. Loops under test treat it like cancellation.
var ErrHorizon = errors.New("clock: horizon reached")

// Fake is a virtual clock. Sleep advances time immediately instead of
// blocking, so a loop driven by a Fake runs as fast as the CPU allows and
// always sees the same timeline.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	horizon time.Time

	// Sleeps records every requested suspension, in order.
	Sleeps []time.Duration
}

// NewFake creates a Fake starting at start. Sleeps that would pass
// start+horizon stop exactly at the horizon and return ErrHorizon.
func NewFake(start time.Time, horizon time.Duration) *Fake {
	return &Fake{
		now:     start,
		horizon: start.Add(horizon),
	}
}

// Now returns the current virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the virtual time by d.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Sleeps = append(f.Sleeps, d)
	if d < 0 {
		d = 0
	}
	next := f.now.Add(d)
	if !next.Before(f.horizon) {
		f.now = f.horizon
		return ErrHorizon
	}
	f.now = next
	return nil
}
