package logic

import (
	"sync"
	"testing"
	"time"
)

func TestCellStoreSameBandKeepsSince(t *testing.T) {
	c := NewCell(testStart)

	p := c.Store(Short, testStart.Add(time.Second))
	if !p.Since.Equal(testStart) {
		t.Errorf("Since moved on unchanged publish: %v", p.Since.Sub(testStart))
	}
	if p.Seq != 0 {
		t.Errorf("Seq: got %d, want 0", p.Seq)
	}
}

func TestCellStoreSameBandDoesNotAllocate(t *testing.T) {
	c := NewCell(testStart)
	c.Store(Medium, testStart)
	at := testStart.Add(time.Second)

	allocs := testing.AllocsPerRun(100, func() {
		c.Store(Medium, at)
	})
	if allocs != 0 {
		t.Errorf("unchanged Store allocated %.1f times per call", allocs)
	}
	if got := c.Load(); got.Seq != 1 || !got.Since.Equal(testStart) {
		t.Errorf("publication changed: %+v", got)
	}
}

func TestCellStoreNewBandMovesSince(t *testing.T) {
	c := NewCell(testStart)
	at := testStart.Add(4 * time.Second)

	p := c.Store(Long, at)
	if p.Band != Long {
		t.Errorf("Band: got %s, want LONG", p.Band)
	}
	if !p.Since.Equal(at) {
		t.Errorf("Since: got %v, want 4s", p.Since.Sub(testStart))
	}

	loaded := c.Load()
	if loaded != p {
		t.Errorf("Load: got %+v, want %+v", loaded, p)
	}
}

func TestCellConcurrentReaders(t *testing.T) {
	c := NewCell(testStart)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastSeq uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				p := c.Load()
				if !p.Band.Valid() {
					t.Errorf("reader saw invalid band %d", p.Band)
					return
				}
				if p.Seq < lastSeq {
					t.Errorf("Seq went backwards: %d after %d", p.Seq, lastSeq)
					return
				}
				lastSeq = p.Seq
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		c.Store(Bands[i%len(Bands)], testStart.Add(time.Duration(i)*time.Millisecond))
	}
	close(stop)
	wg.Wait()

	if got := c.Load().Seq; got != 1000 {
		t.Errorf("Seq: got %d, want 1000", got)
	}
}

func TestCellStoreUndefinedBandPanics(t *testing.T) {
	cell := NewCell(testStart)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
		if got := cell.Load(); got.Band != Short || got.Seq != 0 {
			t.Errorf("cell changed to %+v", got)
		}
	}()
	cell.Store(Band(7), testStart)
}
