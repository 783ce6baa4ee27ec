package events

import (
	"context"
	"errors"
	"sync"
)

// DefaultQueueSize bounds the number of events waiting for the consumer
const DefaultQueueSize = 20

// ErrQueueClosed is returned by Send once the consumer has stopped
var ErrQueueClosed = errors.New("event queue closed")

// Queue is a bounded multi-producer, single-consumer event queue.
// Events are delivered in the order producers enqueued them.
type Queue struct {
	ch   chan Event
	done chan struct{}

	mu       sync.Mutex
	closed   bool
	abortErr error
	aborted  chan struct{}
}

// NewQueue creates a queue holding up to size pending events
func NewQueue(size int) *Queue {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch:      make(chan Event, size),
		done:    make(chan struct{}),
		aborted: make(chan struct{}),
	}
}

// Send enqueues an event, blocking while the queue is full.
func (q *Queue) Send(ctx context.Context, ev Event) error {
	// Checked first so a closed queue never accepts an event, even if there is room
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- ev:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the next event is available.
// It returns the abort error if a producer reported a pipeline failure.
func (q *Queue) Receive(ctx context.Context) (Event, error) {
	select {
	case <-q.aborted:
		return Event{}, q.Err()
	default:
	}

	select {
	case ev := <-q.ch:
		return ev, nil
	case <-q.aborted:
		return Event{}, q.Err()
	case <-q.done:
		return Event{}, ErrQueueClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Abort records a producer-side pipeline failure. Only the first error is kept,
// and aborting a queue that was already closed by its consumer is a no-op.
func (q *Queue) Abort(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.abortErr != nil {
		return
	}
	q.abortErr = err
	close(q.aborted)
}

// Err returns the error passed to Abort, if any
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.abortErr
}

// Close stops the queue. Pending and future sends fail with ErrQueueClosed.
// The event channel itself is never closed so late producers cannot panic.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
