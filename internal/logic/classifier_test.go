package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/button-blink/internal/clock"
	"github.com/sweeney/button-blink/internal/gpio"
)

var testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const ms = time.Millisecond

func legacyConfig() ClassifierConfig {
	cfg := DefaultClassifierConfig()
	cfg.Mode = DwellLegacy
	return cfg
}

// classifyUntil runs a classifier against a scripted button until the
// virtual clock reaches horizon, then returns the published classification.
func classifyUntil(t *testing.T, cfg ClassifierConfig, horizon time.Duration, holds ...gpio.Hold) Publication {
	t.Helper()
	clk := clock.NewFake(testStart, horizon)
	button := gpio.NewFakeButton(testStart, clk.Now, holds...)
	cell := NewCell(testStart)

	c := NewClassifier(cfg, button, clk, cell)
	if err := c.Run(context.Background()); !errors.Is(err, clock.ErrHorizon) {
		t.Fatalf("Run: expected ErrHorizon, got %v", err)
	}
	return cell.Load()
}

func TestClassifierThresholds(t *testing.T) {
	tests := []struct {
		name string
		held time.Duration // 0 = never pressed
		want Band
	}{
		{"never pressed", 0, Short},
		{"held 1000", 1000 * ms, Short},
		{"held 1999", 1999 * ms, Short},
		{"held exactly 2000", 2000 * ms, Medium},
		{"held 3000", 3000 * ms, Medium},
		{"held 3999", 3999 * ms, Medium},
		{"held exactly 4000", 4000 * ms, Long},
		{"held 5000", 5000 * ms, Long},
		{"held forever", gpio.Forever, Long},
	}

	for _, mode := range []DwellMode{DwellUniform, DwellLegacy} {
		cfg := DefaultClassifierConfig()
		cfg.Mode = mode
		for _, tt := range tests {
			t.Run(string(mode)+"/"+tt.name, func(t *testing.T) {
				var holds []gpio.Hold
				if tt.held > 0 {
					holds = append(holds, gpio.Hold{At: 0, For: tt.held})
				}
				// The third sample lands at 4000; look just after it.
				got := classifyUntil(t, cfg, 4005*ms, holds...)
				if got.Band != tt.want {
					t.Errorf("band: got %s, want %s", got.Band, tt.want)
				}
			})
		}
	}
}

func TestClassifierInitialShort(t *testing.T) {
	cell := NewCell(testStart)
	if got := cell.Load(); got.Band != Short || got.Seq != 0 {
		t.Errorf("initial publication: got %+v", got)
	}
}

func TestClassifierScenarioReleasedImmediately(t *testing.T) {
	got := classifyUntil(t, DefaultClassifierConfig(), time.Second)
	if got.Band != Short {
		t.Errorf("band: got %s, want SHORT", got.Band)
	}
	// A publish every 10ms cycle, but never a change.
	if got.Seq != 0 {
		t.Errorf("Seq: got %d, want 0", got.Seq)
	}
	if !got.Since.Equal(testStart) {
		t.Errorf("Since moved to %v", got.Since.Sub(testStart))
	}
}

func TestClassifierScenarioHeldForeverStaysLong(t *testing.T) {
	clk := clock.NewFake(testStart, time.Hour)
	button := gpio.NewFakeButton(testStart, clk.Now, gpio.Hold{At: 0, For: gpio.Forever})
	cell := NewCell(testStart)
	c := NewClassifier(DefaultClassifierConfig(), button, clk, cell)

	for i := 0; i < 20; i++ {
		if err := c.Cycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if got := cell.Load().Band; got != Long {
			t.Fatalf("cycle %d: band %s, want LONG", i, got)
		}
	}
	if got := cell.Load().Since; !got.Equal(testStart.Add(4 * time.Second)) {
		t.Errorf("Long since %v, want 4s", got.Sub(testStart))
	}
}

func TestClassifierMediumDwell(t *testing.T) {
	hold := gpio.Hold{At: 0, For: 3000 * ms}

	tests := []struct {
		name    string
		cfg     ClassifierConfig
		horizon time.Duration
		want    Band
	}{
		// uniform: Medium at 4000, Short held back until 4000+2000
		{"uniform before dwell", DefaultClassifierConfig(), 5999 * ms, Medium},
		{"uniform after dwell", DefaultClassifierConfig(), 6005 * ms, Short},
		// legacy: Medium at 4000, extra 2000 pause, tick, Short at 6010
		{"legacy during pause", legacyConfig(), 6005 * ms, Medium},
		{"legacy after pause", legacyConfig(), 6015 * ms, Short},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyUntil(t, tt.cfg, tt.horizon, hold)
			if got.Band != tt.want {
				t.Errorf("band: got %s, want %s", got.Band, tt.want)
			}
		})
	}
}

// A release straight after the 4000 sample is the case the firmware's
// one-off pause does not cover: Long is overwritten on the next cycle.
func TestClassifierLongDwell(t *testing.T) {
	hold := gpio.Hold{At: 0, For: 4000 * ms}

	got := classifyUntil(t, legacyConfig(), 4015*ms, hold)
	if got.Band != Short {
		t.Errorf("legacy: band %s, want SHORT one tick after LONG", got.Band)
	}

	got = classifyUntil(t, DefaultClassifierConfig(), 5999*ms, hold)
	if got.Band != Long {
		t.Errorf("uniform: band %s, want LONG until dwell expires", got.Band)
	}

	got = classifyUntil(t, DefaultClassifierConfig(), 6005*ms, hold)
	if got.Band != Short {
		t.Errorf("uniform: band %s, want SHORT after dwell", got.Band)
	}
	if !got.Since.Equal(testStart.Add(6 * time.Second)) {
		t.Errorf("uniform: SHORT since %v, want 6s", got.Since.Sub(testStart))
	}
}

func TestClassifierScenarioHeld5000(t *testing.T) {
	hold := gpio.Hold{At: 0, For: 5000 * ms}

	// Long at 4000; next cycle samples at 4010 (pressed) and 6010 (released).
	got := classifyUntil(t, DefaultClassifierConfig(), 6005*ms, hold)
	if got.Band != Long {
		t.Errorf("band: got %s, want LONG", got.Band)
	}
	got = classifyUntil(t, DefaultClassifierConfig(), 6015*ms, hold)
	if got.Band != Short {
		t.Errorf("band: got %s, want SHORT", got.Band)
	}
}

func TestClassifierSecondPress(t *testing.T) {
	holds := []gpio.Hold{
		{At: 0, For: 3000 * ms},
		{At: 7000 * ms, For: gpio.Forever},
	}

	// Short at 6000, press sampled at 7000, Long at 11000.
	got := classifyUntil(t, DefaultClassifierConfig(), 11005*ms, holds...)
	if got.Band != Long {
		t.Errorf("band: got %s, want LONG", got.Band)
	}
}

func TestClassifierCycleSleeps(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClassifierConfig
		samples []bool
		want    Band
		sleeps  int
	}{
		{"released", DefaultClassifierConfig(), []bool{false}, Short, 0},
		{"released at second sample", DefaultClassifierConfig(), []bool{true, false}, Short, 1},
		{"medium uniform", DefaultClassifierConfig(), []bool{true, true, false}, Medium, 2},
		{"medium legacy", legacyConfig(), []bool{true, true, false}, Medium, 3},
		{"long legacy", legacyConfig(), []bool{true, true, true}, Long, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewFake(testStart, time.Hour)
			reader := gpio.NewFakeReader(tt.samples...)
			cell := NewCell(testStart)
			c := NewClassifier(tt.cfg, reader, clk, cell)

			if err := c.Cycle(context.Background()); err != nil {
				t.Fatalf("Cycle: %v", err)
			}
			if got := cell.Load().Band; got != tt.want {
				t.Errorf("band: got %s, want %s", got, tt.want)
			}
			if len(clk.Sleeps) != tt.sleeps {
				t.Fatalf("sleeps: got %v, want %d", clk.Sleeps, tt.sleeps)
			}
			for i, d := range clk.Sleeps {
				if d != 2*time.Second {
					t.Errorf("sleep %d: got %v, want 2s", i, d)
				}
			}
			if reader.Reads != len(tt.samples) {
				t.Errorf("reads: got %d, want %d", reader.Reads, len(tt.samples))
			}
		})
	}
}

// flakySampler fails on one call and otherwise reports pressed.
type flakySampler struct {
	calls  int
	failOn int
}

func (s *flakySampler) Pressed() (bool, error) {
	s.calls++
	if s.calls == s.failOn {
		return false, errors.New("gpio fault")
	}
	return true, nil
}

func TestClassifierReadErrorAbandonsCycle(t *testing.T) {
	for failOn := 1; failOn <= 3; failOn++ {
		clk := clock.NewFake(testStart, time.Hour)
		cell := NewCell(testStart)
		cell.Store(Medium, testStart)
		s := &flakySampler{failOn: failOn}
		c := NewClassifier(DefaultClassifierConfig(), s, clk, cell)

		if err := c.Cycle(context.Background()); err != nil {
			t.Fatalf("failOn=%d: Cycle returned %v", failOn, err)
		}
		if s.calls != failOn {
			t.Errorf("failOn=%d: sampled %d times", failOn, s.calls)
		}
		if got := cell.Load(); got.Band != Medium || got.Seq != 1 {
			t.Errorf("failOn=%d: cell changed to %+v", failOn, got)
		}
	}
}

func TestClassifierRecoversAfterReadError(t *testing.T) {
	clk := clock.NewFake(testStart, time.Hour)
	reader := gpio.NewFakeReader(true, true, true)
	reader.ReadError = errors.New("gpio fault")
	cell := NewCell(testStart)
	c := NewClassifier(DefaultClassifierConfig(), reader, clk, cell)
	ctx := context.Background()

	if err := c.Cycle(ctx); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	reader.ReadError = nil
	if err := c.Cycle(ctx); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if got := cell.Load().Band; got != Long {
		t.Errorf("band: got %s, want LONG", got)
	}
}

func TestClassifierStopsOnCancel(t *testing.T) {
	for _, pressed := range []bool{false, true} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		clk := clock.NewFake(testStart, time.Hour)
		c := NewClassifier(DefaultClassifierConfig(), gpio.NewFakeReader(pressed), clk, NewCell(testStart))
		if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("pressed=%v: expected context.Canceled, got %v", pressed, err)
		}
	}
}

func TestClassifierSteadyCycleDoesNotAllocate(t *testing.T) {
	clk := clock.NewFake(testStart, time.Hour)
	reader := gpio.NewFakeReader(false)
	cell := NewCell(testStart)
	c := NewClassifier(DefaultClassifierConfig(), reader, clk, cell)
	ctx := context.Background()

	allocs := testing.AllocsPerRun(100, func() {
		if err := c.Cycle(ctx); err != nil {
			t.Fatalf("Cycle: %v", err)
		}
	})
	if allocs != 0 {
		t.Errorf("released-button cycle allocated %.1f times per call", allocs)
	}
}

func TestParseDwellMode(t *testing.T) {
	for _, s := range []string{"uniform", "legacy"} {
		m, err := ParseDwellMode(s)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", s, err)
		}
		if string(m) != s {
			t.Errorf("%q: got %q", s, m)
		}
	}
	if _, err := ParseDwellMode("hysteresis"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
