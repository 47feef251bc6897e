package gpio

import (
	"errors"
	"sync"
	"time"
)

// FakeReader is a test double that returns scripted button samples.
type FakeReader struct {
	// Samples contains scripted pressed values to return.
	// Each call to Pressed() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Reads counts calls to Pressed.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Pressed returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Pressed() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}

// Hold is one press of the button, relative to the FakeButton origin.
// The button reads pressed on the closed interval [At, At+For].
type Hold struct {
	At  time.Duration
	For time.Duration
}

// Forever is a Hold length that never ends within a test.
const Forever = time.Duration(1<<63 - 1)

// FakeButton answers Pressed from a timeline of holds, using the time
// returned by now. Pair it with a clock.Fake to script presses in virtual
// time.
type FakeButton struct {
	origin time.Time
	now    func() time.Time
	holds  []Hold
}

// NewFakeButton creates a FakeButton whose holds are measured from origin.
func NewFakeButton(origin time.Time, now func() time.Time, holds ...Hold) *FakeButton {
	return &FakeButton{origin: origin, now: now, holds: holds}
}

// Pressed reports whether now falls inside any hold.
func (b *FakeButton) Pressed() (bool, error) {
	t := b.now().Sub(b.origin)
	for _, h := range b.holds {
		if t < h.At {
			continue
		}
		if h.For == Forever || t-h.At <= h.For {
			return true, nil
		}
	}
	return false, nil
}

// Close does nothing.
func (b *FakeButton) Close() error {
	return nil
}

// Write is one recorded LED write.
type Write struct {
	Time time.Time
	On   bool
}

// FakeLED records LED writes. It is safe for concurrent use so tests can
// inspect it while a driver goroutine is running.
type FakeLED struct {
	mu     sync.Mutex
	now    func() time.Time
	writes []Write
	closed bool

	// SetError, if set, will be returned by Set (the write is still recorded).
	SetError error
}

// NewFakeLED creates a FakeLED timestamping writes with now.
func NewFakeLED(now func() time.Time) *FakeLED {
	return &FakeLED{now: now}
}

// Set records the write.
func (f *FakeLED) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, Write{Time: f.now(), On: on})
	return f.SetError
}

// Writes returns a copy of all recorded writes.
func (f *FakeLED) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

// On reports the level of the last write (false if nothing was written).
func (f *FakeLED) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return false
	}
	return f.writes[len(f.writes)-1].On
}

// Close marks the LED as closed.
func (f *FakeLED) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeLED) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
