// Package led expresses the current classification as a blink pattern.
package led

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/button-blink/internal/clock"
	"github.com/sweeney/button-blink/internal/gpio"
	"github.com/sweeney/button-blink/internal/logic"
)

// Pattern is one blink cycle: High on, then the same time off.
// A zero Half means the LED stays off.
type Pattern struct {
	Half time.Duration
}

// Period returns the length of a full blink.
func (p Pattern) Period() time.Duration {
	return 2 * p.Half
}

// Off reports whether the pattern keeps the LED dark.
func (p Pattern) Off() bool {
	return p.Half <= 0
}

// Config holds the driver timings.
type Config struct {
	MediumHalf time.Duration
	LongHalf   time.Duration
	Tick       time.Duration // yield while the LED is off
}

// DefaultConfig returns the firmware timings: an 800ms blink for Medium and
// a 200ms blink for Long.
func DefaultConfig() Config {
	return Config{
		MediumHalf: 400 * time.Millisecond,
		LongHalf:   100 * time.Millisecond,
		Tick:       10 * time.Millisecond,
	}
}

// Pattern returns the blink pattern for b. It panics on an undefined band.
func (c Config) Pattern(b logic.Band) Pattern {
	switch b {
	case logic.Short:
		return Pattern{}
	case logic.Medium:
		return Pattern{Half: c.MediumHalf}
	case logic.Long:
		return Pattern{Half: c.LongHalf}
	}
	panic(fmt.Sprintf("led: no pattern for %v", b))
}

// Driver reads the shared classification and blinks the LED.
type Driver struct {
	cfg   Config
	led   gpio.Writer
	clock clock.Clock
	cell  *logic.Cell
}

// NewDriver creates a driver reading from cell.
func NewDriver(cfg Config, led gpio.Writer, clk clock.Clock, cell *logic.Cell) *Driver {
	return &Driver{
		cfg:   cfg,
		led:   led,
		clock: clk,
		cell:  cell,
	}
}

// Run blinks forever. It returns only when a suspension fails.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := d.Step(ctx); err != nil {
			return err
		}
	}
}

// Step reads the classification once and plays one pattern for it.
// The value read may already be stale; no newer value is looked at until
// the pattern is complete.
func (d *Driver) Step(ctx context.Context) error {
	p := d.cfg.Pattern(d.cell.Load().Band)

	if p.Off() {
		d.set(false)
		return d.clock.Sleep(ctx, d.cfg.Tick)
	}

	d.set(true)
	if err := d.clock.Sleep(ctx, p.Half); err != nil {
		return err
	}
	d.set(false)
	return d.clock.Sleep(ctx, p.Half)
}

func (d *Driver) set(on bool) {
	if err := d.led.Set(on); err != nil {
		log.Printf("led: write error: %v", err)
	}
}
