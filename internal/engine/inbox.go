package engine

import "sync"

// event mutates engine state on the render goroutine.
type event func(e *Engine)

// inbox queues events posted from input, window and web goroutines until the
// next tick boundary.
type inbox struct {
	mu      sync.Mutex
	pending []event
	spare   []event
}

func (q *inbox) post(ev event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

// drain hands the queued events to fn in posting order.
func (q *inbox) drain(fn func(event)) {
	q.mu.Lock()
	batch := q.pending
	q.pending = q.spare[:0]
	q.mu.Unlock()

	for i, ev := range batch {
		fn(ev)
		batch[i] = nil
	}
	q.mu.Lock()
	q.spare = batch[:0]
	q.mu.Unlock()
}
