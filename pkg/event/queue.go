package event

import "sync"

// Queue is an unbounded FIFO of events with one producer and one consumer.
//
// Send never blocks, so the computation side is never slowed down by a slow
// consumer. The consumer either polls with TryRecv or waits on Ready.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	closed bool

	// ready holds a token whenever items are queued or the queue was closed.
	ready chan struct{}
}

func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Send appends e. It returns false if the queue is closed and e was dropped.
func (q *Queue) Send(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, e)
	q.signal()
	return true
}

// TryRecv pops the oldest event without blocking. If ok is false nothing was
// queued, and closed tells whether anything will ever arrive again.
func (q *Queue) TryRecv() (e Event, ok bool, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false, q.closed
	}
	e = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return e, true, false
}

// Ready delivers a token whenever TryRecv may have something to report.
// Spurious wakeups are possible.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len is the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting events. Already queued events remain receivable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.signal()
}
