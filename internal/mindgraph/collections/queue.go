// Package collections provides the sequence containers used by the study engine.
// None of them are safe for concurrent use; callers serialize access.
package collections

import "errors"

// ErrFull is returned when a bounded container rejects an insert
var ErrFull = errors.New("container is full")

const minRingSize = 8

// Queue is a FIFO backed by a growable ring buffer.
// A positive capacity bounds the queue; zero means unbounded.
type Queue[T any] struct {
	buf      []T
	head     int
	size     int
	capacity int
}

// NewQueue creates a queue. capacity <= 0 means unbounded.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{capacity: capacity}
}

// Enqueue appends v at the tail
func (q *Queue[T]) Enqueue(v T) error {
	if q.capacity > 0 && q.size >= q.capacity {
		return ErrFull
	}
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.size)%len(q.buf)] = v
	q.size++
	return nil
}

// Dequeue removes and returns the head. ok is false when empty.
func (q *Queue[T]) Dequeue() (v T, ok bool) {
	if q.size == 0 {
		return v, false
	}
	var zero T
	v = q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v, true
}

// Peek returns the head without removing it
func (q *Queue[T]) Peek() (v T, ok bool) {
	if q.size == 0 {
		return v, false
	}
	return q.buf[q.head], true
}

// IsEmpty reports whether the queue holds no items
func (q *Queue[T]) IsEmpty() bool {
	return q.size == 0
}

// Len returns the number of items
func (q *Queue[T]) Len() int {
	return q.size
}

// Capacity returns the bound, 0 when unbounded
func (q *Queue[T]) Capacity() int {
	return q.capacity
}

// Clear drops all items
func (q *Queue[T]) Clear() {
	q.buf = nil
	q.head = 0
	q.size = 0
}

// Items returns the contents from head to tail
func (q *Queue[T]) Items() []T {
	out := make([]T, q.size)
	for i := 0; i < q.size; i++ {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return out
}

func (q *Queue[T]) grow() {
	n := len(q.buf) * 2
	if n < minRingSize {
		n = minRingSize
	}
	if q.capacity > 0 && n > q.capacity {
		n = q.capacity
	}
	buf := make([]T, n)
	for i := 0; i < q.size; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
