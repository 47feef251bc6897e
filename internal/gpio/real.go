//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// consumer labels our lines in gpioinfo output.
const consumer = "button-blink"

// RealIO owns the button and LED lines on one GPIO chip.
type RealIO struct {
	chip   *gpiocdev.Chip
	button *gpiocdev.Line
	led    *gpiocdev.Line
}

// NewRealIO requests the button as a pulled-up input and the LED as an
// output driven low.
func NewRealIO(chipName string, pinButton, pinLED int) (*RealIO, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	// The button shorts the line to ground, so pull it up.
	button, err := chip.RequestLine(pinButton, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pinButton, err)
	}

	led, err := chip.RequestLine(pinLED, gpiocdev.AsOutput(0))
	if err != nil {
		button.Close()
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pinLED, err)
	}

	return &RealIO{
		chip:   chip,
		button: button,
		led:    led,
	}, nil
}

// Pressed reports whether the button is held.
func (r *RealIO) Pressed() (bool, error) {
	raw, err := r.button.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return raw == 0, nil
}

// Set drives the LED.
func (r *RealIO) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.led.SetValue(v); err != nil {
		return fmt.Errorf("write LED pin: %w", err)
	}
	return nil
}

// Close turns the LED off and releases the lines. Both lines are left as
// inputs with pull-down, matching the Pi boot defaults.
func (r *RealIO) Close() error {
	var errs []error

	if r.led != nil {
		if err := r.led.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear LED pin: %w", err))
		}
		if err := r.led.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pin: %w", err))
		}
		if err := r.led.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
	}
	if r.button != nil {
		if err := r.button.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
		}
		if err := r.button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
