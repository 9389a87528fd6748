package collections

// Stack is a LIFO over a resizable slice.
// A positive capacity bounds the stack; pushes beyond it return ErrFull.
type Stack[T any] struct {
	items    []T
	capacity int
}

// NewStack creates a stack. capacity <= 0 means unbounded.
func NewStack[T any](capacity int) *Stack[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Stack[T]{capacity: capacity}
}

// Push adds v on top
func (s *Stack[T]) Push(v T) error {
	if s.IsFull() {
		return ErrFull
	}
	s.items = append(s.items, v)
	return nil
}

// Pop removes and returns the top item
func (s *Stack[T]) Pop() (v T, ok bool) {
	if len(s.items) == 0 {
		return v, false
	}
	last := len(s.items) - 1
	v = s.items[last]
	var zero T
	s.items[last] = zero
	s.items = s.items[:last]
	return v, true
}

// Peek returns the top item without removing it
func (s *Stack[T]) Peek() (v T, ok bool) {
	if len(s.items) == 0 {
		return v, false
	}
	return s.items[len(s.items)-1], true
}

// IsEmpty reports whether the stack holds no items
func (s *Stack[T]) IsEmpty() bool {
	return len(s.items) == 0
}

// IsFull reports whether a bounded stack reached its capacity
func (s *Stack[T]) IsFull() bool {
	return s.capacity > 0 && len(s.items) >= s.capacity
}

// Len returns the number of items
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// Capacity returns the bound, 0 when unbounded
func (s *Stack[T]) Capacity() int {
	return s.capacity
}

// Clear drops all items
func (s *Stack[T]) Clear() {
	s.items = nil
}

// Items returns the contents from bottom to top
func (s *Stack[T]) Items() []T {
	return append([]T(nil), s.items...)
}
