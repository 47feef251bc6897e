package logic

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/button-blink/internal/clock"
)

// Sampler reads the button. Pressed reports true while the button is held.
type Sampler interface {
	Pressed() (bool, error)
}

// DwellMode selects how long a published band is kept before a different
// band may replace it.
type DwellMode string

const (
	// DwellUniform holds every new band for at least Dwell before a
	// different band is published.
	DwellUniform DwellMode = "uniform"
	// DwellLegacy pauses for one extra probe interval after a Medium
	// decision and nowhere else.
	DwellLegacy DwellMode = "legacy"
)

// ParseDwellMode validates a -dwell-mode flag value.
func ParseDwellMode(s string) (DwellMode, error) {
	switch DwellMode(s) {
	case DwellUniform, DwellLegacy:
		return DwellMode(s), nil
	}
	return "", fmt.Errorf("unknown dwell mode %q (want %q or %q)", s, DwellUniform, DwellLegacy)
}

// ClassifierConfig holds the classifier timings.
type ClassifierConfig struct {
	Probe time.Duration // interval between the nested samples
	Tick  time.Duration // yield between cycles
	Mode  DwellMode
	Dwell time.Duration // minimum band lifetime in DwellUniform mode
}

// DefaultClassifierConfig returns the firmware timings: 2s probes with
// Medium/Long thresholds at 2s and 4s.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Probe: 2 * time.Second,
		Tick:  10 * time.Millisecond,
		Mode:  DwellUniform,
		Dwell: 2 * time.Second,
	}
}

// Classifier polls the button and publishes the hold duration band.
// It is the only writer of its Cell.
type Classifier struct {
	cfg    ClassifierConfig
	button Sampler
	clock  clock.Clock
	cell   *Cell
}

// NewClassifier creates a classifier publishing to cell.
func NewClassifier(cfg ClassifierConfig, button Sampler, clk clock.Clock, cell *Cell) *Classifier {
	return &Classifier{
		cfg:    cfg,
		button: button,
		clock:  clk,
		cell:   cell,
	}
}

// Run classifies forever. It returns only when a suspension fails, which
// means ctx was cancelled (or a fake clock ran out).
func (c *Classifier) Run(ctx context.Context) error {
	for {
		if err := c.Cycle(ctx); err != nil {
			return err
		}
		if err := c.clock.Sleep(ctx, c.cfg.Tick); err != nil {
			return err
		}
	}
}

// Cycle runs one classification: up to three samples one probe interval
// apart, then a publish.
//
//	sample 1 released            -> Short
//	sample 2 released (held < P) -> Short
//	sample 3 released (P..2P)    -> Medium
//	sample 3 pressed  (>= 2P)    -> Long
func (c *Classifier) Cycle(ctx context.Context) error {
	pressed, ok := c.sample()
	if !ok {
		return nil
	}
	if !pressed {
		return c.publish(ctx, Short)
	}

	if err := c.clock.Sleep(ctx, c.cfg.Probe); err != nil {
		return err
	}
	if pressed, ok = c.sample(); !ok {
		return nil
	}
	if !pressed {
		return c.publish(ctx, Short)
	}

	if err := c.clock.Sleep(ctx, c.cfg.Probe); err != nil {
		return err
	}
	if pressed, ok = c.sample(); !ok {
		return nil
	}
	if pressed {
		return c.publish(ctx, Long)
	}

	if err := c.publish(ctx, Medium); err != nil {
		return err
	}
	if c.cfg.Mode == DwellLegacy {
		return c.clock.Sleep(ctx, c.cfg.Probe)
	}
	return nil
}

// sample reads the button. A read error abandons the cycle.
func (c *Classifier) sample() (pressed, ok bool) {
	pressed, err := c.button.Pressed()
	if err != nil {
		log.Printf("classifier: button read error: %v", err)
		return false, false
	}
	return pressed, true
}

func (c *Classifier) publish(ctx context.Context, b Band) error {
	cur := c.cell.Load()
	if b == cur.Band {
		// Already published; Since and Seq stay put.
		return nil
	}

	if c.cfg.Mode == DwellUniform {
		if wait := cur.Since.Add(c.cfg.Dwell).Sub(c.clock.Now()); wait > 0 {
			if err := c.clock.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	c.cell.Store(b, c.clock.Now())
	log.Printf("classifier: band %s -> %s", cur.Band, b)
	return nil
}
