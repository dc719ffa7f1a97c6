package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/storage"
)

// ErrWriterClosed is returned by Persist after Close.
var ErrWriterClosed = errors.New("save writer closed")

// Writer persists saves in the background. Writes to the same slot are
// coalesced: only the newest pending payload for a slot is written.
type Writer struct {
	store   storage.Store
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	idle    *sync.Cond
	pending map[string][]byte
	order   []string
	busy    bool
	closed  bool
	failed  int

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewWriter starts a background writer over store.
func NewWriter(store storage.Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	w.idle = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// Persist queues data for slot and returns immediately.
func (w *Writer) Persist(slot string, data []byte) error {
	if err := storage.ValidateSlot(slot); err != nil {
		return err
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	if _, queued := w.pending[slot]; !queued {
		w.order = append(w.order, slot)
	}
	w.pending[slot] = data
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Flush blocks until every queued save has been attempted.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.order) > 0 || w.busy {
		w.idle.Wait()
	}
}

// Failures is the number of writes that returned an error.
func (w *Writer) Failures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failed
}

// Close drains the queue and stops the writer. It does not close the
// underlying store.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()
	close(w.stop)
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.busy = false
			w.idle.Broadcast()
			w.mu.Unlock()
			return
		}
		slot := w.order[0]
		w.order = w.order[1:]
		data := w.pending[slot]
		delete(w.pending, slot)
		w.busy = true
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.store.Save(ctx, slot, data)
		cancel()
		if err != nil {
			w.logger.Warn("failed to persist save",
				zap.String("slot", slot),
				zap.Int("bytes", len(data)),
				zap.Error(err),
			)
			w.mu.Lock()
			w.failed++
			w.mu.Unlock()
		}
	}
}
