// Package task runs the daemon's long-lived activities. It mirrors the
// create-then-start shape of a small RTOS: activities are registered with a
// priority and a stack budget, then Start launches them all and blocks.
package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrResourceExhausted is returned when an activity does not fit in the
// configured budget.
var ErrResourceExhausted = errors.New("task: resources exhausted")

// Func is an activity body. It should run until ctx is done and then
// return ctx.Err().
type Func func(ctx context.Context) error

// Priority orders activities; higher runs first.
type Priority int

// Handle identifies a registered activity.
type Handle struct {
	Name       string
	Priority   Priority
	StackWords int

	fn  Func
	seq int
}

// Budget limits what can be registered.
type Budget struct {
	HeapWords      int // total stack words shared by all activities
	MaxTasks       int
	IdleStackWords int // reserved by Start for the idle activity
}

// DefaultBudget fits a handful of 90-word activities.
func DefaultBudget() Budget {
	return Budget{
		HeapWords:      1024,
		MaxTasks:       8,
		IdleStackWords: 90,
	}
}

// Scheduler owns the registered activities.
type Scheduler struct {
	mu      sync.Mutex
	budget  Budget
	used    int
	tasks   []*Handle
	started bool
}

// NewScheduler creates a scheduler with the given budget.
func NewScheduler(b Budget) *Scheduler {
	return &Scheduler{budget: b}
}

// Create registers fn as an activity.
func (s *Scheduler) Create(name string, fn Func, prio Priority, stackWords int) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil, fmt.Errorf("create %s: scheduler already started", name)
	}
	if stackWords <= 0 {
		return nil, fmt.Errorf("create %s: stack budget must be positive", name)
	}
	if len(s.tasks) >= s.budget.MaxTasks {
		return nil, fmt.Errorf("create %s: %d tasks registered: %w", name, len(s.tasks), ErrResourceExhausted)
	}
	if s.used+stackWords > s.budget.HeapWords {
		return nil, fmt.Errorf("create %s: need %d words, %d free: %w",
			name, stackWords, s.budget.HeapWords-s.used, ErrResourceExhausted)
	}

	h := &Handle{
		Name:       name,
		Priority:   prio,
		StackWords: stackWords,
		fn:         fn,
		seq:        len(s.tasks),
	}
	s.tasks = append(s.tasks, h)
	s.used += stackWords
	return h, nil
}

// Tasks returns the registered activities in launch order.
func (s *Scheduler) Tasks() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordered()
}

// ordered sorts by priority, highest first, keeping creation order for
// equal priorities. Caller holds s.mu.
func (s *Scheduler) ordered() []*Handle {
	out := make([]*Handle, len(s.tasks))
	copy(out, s.tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Start launches every activity and blocks until they have all returned.
// Cancelling ctx is the normal way to stop; Start then returns nil. If an
// activity fails, or returns while ctx is still live, the others are
// cancelled and that error is returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("task: scheduler already started")
	}
	if s.used+s.budget.IdleStackWords > s.budget.HeapWords {
		s.mu.Unlock()
		return fmt.Errorf("start: no room for idle task: %w", ErrResourceExhausted)
	}
	s.started = true
	s.used += s.budget.IdleStackWords
	tasks := s.ordered()
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range tasks {
		h := h
		log.Printf("task: starting %s (priority %d)", h.Name, h.Priority)
		g.Go(func() error {
			err := h.fn(gctx)
			switch {
			case ctx.Err() != nil:
				return nil
			case gctx.Err() != nil && errors.Is(err, context.Canceled):
				// Stopped because a sibling failed; errgroup keeps that error.
				return nil
			case err == nil:
				return fmt.Errorf("task %s exited", h.Name)
			default:
				return fmt.Errorf("task %s: %w", h.Name, err)
			}
		})
	}
	return g.Wait()
}
