package store

import (
	"context"
	"sync"
	"time"

	"duty-planner/internal/model"
)

// DefaultCompleteDelay gives the user a moment to take a completion back.
const DefaultCompleteDelay = time.Second

type ToggleResult int

const (
	// Scheduled means the task will be completed after the delay.
	Scheduled ToggleResult = iota
	// Cancelled means a scheduled completion was taken back.
	Cancelled
	// Reopened means a completed task went back to waiting.
	Reopened
)

func (r ToggleResult) String() string {
	switch r {
	case Scheduled:
		return "scheduled"
	case Cancelled:
		return "cancelled"
	case Reopened:
		return "reopened"
	}
	return "unknown"
}

// Completer delays "mark complete" so a second toggle can cancel it. A
// cancelled completion is never sent: the timer checks the pending set
// before it writes, nothing is aborted mid-flight.
type Completer struct {
	store   *Store
	delay   time.Duration
	timeout time.Duration
	after   func(time.Duration, func())

	mu      sync.Mutex
	seq     uint64
	pending map[string]uint64
}

func NewCompleter(store *Store, delay time.Duration) *Completer {
	if delay < 0 {
		delay = 0
	}
	return &Completer{
		store:   store,
		delay:   delay,
		timeout: 30 * time.Second,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		pending: make(map[string]uint64),
	}
}

func (c *Completer) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

func (c *Completer) Toggle(ctx context.Context, id string) (ToggleResult, error) {
	c.mu.Lock()
	if _, ok := c.pending[id]; ok {
		delete(c.pending, id)
		c.mu.Unlock()
		return Cancelled, nil
	}
	c.mu.Unlock()

	item, ok := c.store.Task(id)
	if !ok {
		return 0, ErrNotFound
	}
	if item.Ref.IsPending() {
		return 0, ErrPending
	}
	if item.Task.Status == model.StatusCompleted {
		if err := c.store.UpdateStatus(ctx, id, model.StatusWaiting); err != nil {
			return 0, err
		}
		return Reopened, nil
	}

	c.mu.Lock()
	c.seq++
	gen := c.seq
	c.pending[id] = gen
	c.mu.Unlock()

	base := context.WithoutCancel(ctx)
	c.after(c.delay, func() { c.commit(base, id, gen) })
	return Scheduled, nil
}

// commit writes the completion unless the toggle that scheduled it (gen)
// was cancelled in the meantime.
func (c *Completer) commit(ctx context.Context, id string, gen uint64) {
	c.mu.Lock()
	if cur, ok := c.pending[id]; !ok || cur != gen {
		c.mu.Unlock()
		return
	}
	delete(c.pending, id)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.UpdateStatus(ctx, id, model.StatusCompleted); err != nil {
		c.store.log.WithError(err).WithField("task", id).Warn("delayed completion")
	}
}
