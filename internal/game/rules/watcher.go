package rules

import (
	"fmt"
	"sync"
)

// Span says how long a watcher keeps its tally.
type Span int

const (
	// SpanDay tallies are cleared once EndDay has reported them.
	SpanDay Span = iota
	// SpanRun tallies are cleared when a run starts, is retried or is reset.
	SpanRun
)

func (s Span) String() string {
	switch s {
	case SpanDay:
		return "day"
	case SpanRun:
		return "run"
	default:
		return fmt.Sprintf("span(%d)", int(s))
	}
}

// Watcher folds committed events into a tally that turn reports read.
type Watcher interface {
	Watch(event Event)
	Reset()
	Key() string
	Span() Span
}

// Tally carries the bookkeeping every watcher needs. Embed it and call
// Mark whenever the watcher records something.
type Tally struct {
	key  string
	span Span
	seen bool
}

// NewTally creates the embedded part of a watcher.
func NewTally(key string, span Span) Tally {
	return Tally{key: key, span: span}
}

func (t *Tally) Key() string { return t.key }

func (t *Tally) Span() Span { return t.span }

// Seen reports whether anything was recorded since the last reset.
func (t *Tally) Seen() bool { return t.seen }

// Mark notes that the watcher recorded an event.
func (t *Tally) Mark() { t.seen = true }

// Reset clears the seen flag. Watchers that embed Tally clear their own
// fields and call this.
func (t *Tally) Reset() { t.seen = false }

// WatcherRegistry holds an engine's watchers in registration order.
type WatcherRegistry struct {
	mu    sync.RWMutex
	byKey map[string]Watcher
	order []Watcher
}

func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{byKey: make(map[string]Watcher)}
}

// Add registers w. Keys must be unique.
func (wr *WatcherRegistry) Add(w Watcher) error {
	if w == nil || w.Key() == "" {
		return fmt.Errorf("watcher needs a key")
	}
	wr.mu.Lock()
	defer wr.mu.Unlock()
	if _, dup := wr.byKey[w.Key()]; dup {
		return fmt.Errorf("watcher %q already registered", w.Key())
	}
	wr.byKey[w.Key()] = w
	wr.order = append(wr.order, w)
	return nil
}

// Get returns the watcher registered under key, or nil.
func (wr *WatcherRegistry) Get(key string) Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return wr.byKey[key]
}

// Len returns the number of registered watchers.
func (wr *WatcherRegistry) Len() int {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return len(wr.order)
}

// Notify feeds event to every watcher. It is an EventBus listener.
func (wr *WatcherRegistry) Notify(event Event) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	for _, w := range wr.order {
		w.Watch(event)
	}
}

// Reset clears the watchers of one span.
func (wr *WatcherRegistry) Reset(span Span) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	for _, w := range wr.order {
		if w.Span() == span {
			w.Reset()
		}
	}
}

// ResetAll clears every watcher.
func (wr *WatcherRegistry) ResetAll() {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	for _, w := range wr.order {
		w.Reset()
	}
}
