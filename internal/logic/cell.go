package logic

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Publication is one value of the shared classification.
type Publication struct {
	Band Band
	// Since is when Band became current.
	Since time.Time
	// Seq counts band changes.
	Seq uint64
}

// Cell is the classification shared between the classifier and its
// readers. Exactly one goroutine may call Store; any number may Load.
// Publications are immutable and swapped atomically, so a reader never
// sees a torn or uninitialised value.
type Cell struct {
	p atomic.Pointer[Publication]
}

// NewCell returns a cell holding Short since start.
func NewCell(start time.Time) *Cell {
	c := &Cell{}
	c.p.Store(&Publication{Band: Short, Since: start})
	return c
}

// Load returns the latest publication.
func (c *Cell) Load() Publication {
	return *c.p.Load()
}

// Store publishes b at now and returns the current publication. Storing the
// band already held is a no-op and does not allocate, so the classifier can
// republish every cycle. It panics if b is not a defined band.
func (c *Cell) Store(b Band, now time.Time) Publication {
	if !b.Valid() {
		panic(fmt.Sprintf("logic: store of undefined %v", b))
	}
	prev := c.p.Load()
	if b == prev.Band {
		return *prev
	}
	next := &Publication{Band: b, Since: now, Seq: prev.Seq + 1}
	c.p.Store(next)
	return *next
}
