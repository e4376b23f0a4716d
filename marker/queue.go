// Package marker implements the per-preset FIFO of pending event markers
// described by the board base: callers enqueue a nonzero value via
// Insert, and the acquisition pipeline consumes exactly one value (or
// 0.0 if the queue is empty) for every sample row it pushes.
//
// There is no pack or host-framework generic queue type that fits this
// shape (the closest analog, pkg/buffer.Buffer[T], is a fixed-capacity
// ring with overflow policies; a marker queue must never drop or
// overwrite a pending marker, so a bounded ring is the wrong tool). This
// is therefore a small hand-rolled FIFO over the standard library,
// documented here rather than silently reached for.
package marker

import (
	"sync"

	"github.com/c360/boardkit/classify"
)

// Queue is a thread-safe FIFO of nonzero marker values.
type Queue struct {
	mu    sync.Mutex
	items []float64
}

// New creates an empty marker queue.
func New() *Queue {
	return &Queue{}
}

// Insert enqueues a nonzero marker value. Inserting 0.0 is an error: that
// value is reserved to mean "no marker" on the wire.
func (q *Queue) Insert(value float64) error {
	if value == 0 {
		return classify.WrapInvalid(classify.ErrInvalidConfig, "Queue", "Insert", "marker value must be nonzero")
	}
	q.mu.Lock()
	q.items = append(q.items, value)
	q.mu.Unlock()
	return nil
}

// Next dequeues and returns the head marker, or 0.0 if the queue is empty.
// Markers are never reordered.
func (q *Queue) Next() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return 0
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v
}

// Len returns the number of markers currently pending.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
