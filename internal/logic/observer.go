package logic

import "time"

// Observer watches publications of a Cell and turns band changes into
// events. Changes that come and go between two Process calls are not seen;
// observation is best-effort, like the LED driver's.
type Observer struct {
	current       Band
	lastSeq       uint64
	startTime     time.Time
	counts        BandCounts
	lastHeartbeat time.Time
}

// NewObserver creates an observer. The classification starts as Short, so
// no event is emitted for the initial value.
func NewObserver(startTime time.Time) *Observer {
	return &Observer{
		current:       Short,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes the latest publication and returns the event for a band
// change, or nil if the band is unchanged.
func (o *Observer) Process(p Publication) *Event {
	if p.Seq != 0 && p.Seq == o.lastSeq {
		return nil
	}
	o.lastSeq = p.Seq

	if p.Band == o.current {
		return nil
	}

	event := &Event{
		Timestamp: p.Since,
		Type:      EventTypeFor(p.Band),
		Band:      p.Band,
		Previous:  o.current,
	}
	o.current = p.Band
	o.counts.add(p.Band)
	return event
}

// CurrentBand returns the last observed band.
func (o *Observer) CurrentBand() Band {
	return o.current
}

// Counts returns a copy of the per-band transition counts.
func (o *Observer) Counts() BandCounts {
	return o.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed
// or if interval is <= 0 (disabled).
func (o *Observer) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(o.lastHeartbeat) < interval {
		return nil
	}

	o.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(o.startTime),
		Band:      o.current,
		Counts:    o.counts,
	}
}
