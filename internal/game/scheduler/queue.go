// Package scheduler serialises transient presentation effects so that at
// most one banner and one animation are active at a time. It holds no
// gameplay state and may be dropped at any moment.
package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the queues an item can live in.
type Kind string

const (
	KindBanner    Kind = "banner"
	KindAnimation Kind = "animation"
)

// Item is one queued presentation effect.
type Item struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Text      string        `json:"text,omitempty"`
	Tag       string        `json:"tag,omitempty"`
	Target    string        `json:"target,omitempty"`
	Magnitude int           `json:"magnitude,omitempty"`
	// Priority is a display emphasis hint; it never reorders the queue.
	Priority  int           `json:"priority,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Active is the item currently on screen.
type Active struct {
	Item
	Start   time.Time `json:"start"`
	Expires time.Time `json:"expires"`
}

// Options configures a Queue.
type Options struct {
	// DefaultDuration applies to items enqueued without a duration.
	DefaultDuration time.Duration
	// Floor is the minimum time an item stays active, even when
	// interrupted by new arrivals.
	Floor time.Duration
}

// Queue is a cooperative FIFO with a single active item and an expiry
// timestamp. The host polls it; nothing here runs on a timer.
type Queue struct {
	mu      sync.Mutex
	clock   Clock
	opts    Options
	pending []Item
	current *Active
}

// NewQueue creates an empty queue.
func NewQueue(clock Clock, opts Options) *Queue {
	if clock == nil {
		clock = RealClock{}
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 2 * time.Second
	}
	if opts.Floor < 0 {
		opts.Floor = 0
	}
	if opts.Floor > opts.DefaultDuration {
		opts.Floor = opts.DefaultDuration
	}
	return &Queue{clock: clock, opts: opts}
}

// Enqueue adds items. When an item is already active its expiry is
// shortened to max(start+floor, now) so the newcomer is not kept waiting.
func (q *Queue) Enqueue(items ...Item) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Duration <= 0 {
			it.Duration = q.opts.DefaultDuration
		}
		if it.Duration < q.opts.Floor {
			it.Duration = q.opts.Floor
		}
		q.pending = append(q.pending, it)
	}
	if q.current != nil {
		q.interrupt(q.clock.Now())
	}
}

func (q *Queue) interrupt(now time.Time) {
	target := q.current.Start.Add(q.opts.Floor)
	if now.After(target) {
		target = now
	}
	if target.Before(q.current.Expires) {
		q.current.Expires = target
	}
}

// Poll returns the active item at now, retiring expired items and
// promoting the next pending one.
func (q *Queue) Poll(now time.Time) (Active, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.poll(now)
}

func (q *Queue) poll(now time.Time) (Active, bool) {
	if q.current != nil && now.Before(q.current.Expires) {
		return *q.current, true
	}
	q.current = nil
	if len(q.pending) == 0 {
		return Active{}, false
	}

	next := q.pending[0]
	q.pending = q.pending[1:]
	q.current = &Active{Item: next, Start: now, Expires: now.Add(next.Duration)}
	if len(q.pending) > 0 {
		q.interrupt(now)
	}
	return *q.current, true
}

// Current polls at the clock's current time.
func (q *Queue) Current() (Active, bool) {
	return q.Poll(q.clock.Now())
}

// Replace cancels the active item and shows it immediately in its place.
func (q *Queue) Replace(it Item) Active {
	q.mu.Lock()
	defer q.mu.Unlock()

	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Duration <= 0 {
		it.Duration = q.opts.DefaultDuration
	}
	now := q.clock.Now()
	q.current = &Active{Item: it, Start: now, Expires: now.Add(it.Duration)}
	if len(q.pending) > 0 {
		q.interrupt(now)
	}
	return *q.current
}

// Clear drops the active item and everything pending.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	q.current = nil
}

// Pending returns a copy of the waiting items in order.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item(nil), q.pending...)
}

// Len returns the number of waiting items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
