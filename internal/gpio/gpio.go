// Package gpio provides the button input and LED output with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fakes allow testing without hardware.
package gpio

// Reader reads the push button.
type Reader interface {
	// Pressed returns true while the button is held.
	// The raw line is active-low: raw 0 = pressed.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Writer drives the LED.
type Writer interface {
	// Set drives the LED high (true) or low (false).
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Default line offsets on gpiochip0 (BCM numbering on a Raspberry Pi).
const (
	DefaultChip      = "gpiochip0"
	DefaultPinButton = 17
	DefaultPinLED    = 27
)
