// Package logic contains the button classification logic and the state it
// shares with the LED driver. Time is always injected: the classifier
// suspends through a clock.Clock and everything else takes time.Time values.
package logic

import (
	"fmt"
	"time"
)

// Band is how long the button was continuously held.
// Bands are ordered: Short < Medium < Long.
type Band uint8

const (
	Short Band = iota
	Medium
	Long

	bandCount
)

// Adding a band changes bandCount and stops this line compiling until every
// switch over Band (String, led.Config.Pattern) has been revisited.
var _ = [1]struct{}{}[bandCount-3]

// Bands lists every band in order.
var Bands = [bandCount]Band{Short, Medium, Long}

func (b Band) String() string {
	switch b {
	case Short:
		return "SHORT"
	case Medium:
		return "MEDIUM"
	case Long:
		return "LONG"
	}
	return fmt.Sprintf("Band(%d)", uint8(b))
}

// Valid reports whether b is one of the defined bands.
func (b Band) Valid() bool {
	return b < bandCount
}

// EventType identifies an observed band change.
type EventType string

const (
	EventShort  EventType = "BAND_SHORT"
	EventMedium EventType = "BAND_MEDIUM"
	EventLong   EventType = "BAND_LONG"
)

// EventTypeFor returns the event emitted when the classification becomes b.
func EventTypeFor(b Band) EventType {
	switch b {
	case Medium:
		return EventMedium
	case Long:
		return EventLong
	default:
		return EventShort
	}
}

// Event is a band change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Band      Band
	Previous  Band
}

// BandCounts tracks how many times each band was entered since startup.
type BandCounts struct {
	Short  int
	Medium int
	Long   int
}

func (c *BandCounts) add(b Band) {
	switch b {
	case Short:
		c.Short++
	case Medium:
		c.Medium++
	case Long:
		c.Long++
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Band      Band
	Counts    BandCounts
}
