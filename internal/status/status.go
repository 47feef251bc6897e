// Package status provides a thread-safe status tracker for the button-blink
// daemon. It is read by the HTTP handlers and by MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-blink/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	ProbeMs      int64
	TickMs       int64
	DwellMode    string
	DwellMs      int64
	MediumHalfMs int64
	LongHalfMs   int64
	PollMs       int64
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Band          logic.Band
	BandSince     time.Time
	Counts        logic.BandCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// BandAge returns how long the current band has been held.
func (s Snapshot) BandAge() time.Duration {
	if s.BandSince.IsZero() {
		return 0
	}
	return s.Now.Sub(s.BandSince)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
// The band starts as Short since startTime.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Band:      logic.Short,
			BandSince: startTime,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the observed band and transition counts.
// Called from the monitor loop on every tick.
func (t *Tracker) Update(band logic.Band, since time.Time, counts logic.BandCounts) {
	t.mu.Lock()
	t.snap.Band = band
	t.snap.BandSince = since
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
