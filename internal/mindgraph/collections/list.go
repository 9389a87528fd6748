package collections

type element[T any] struct {
	value      T
	prev, next *element[T]
}

// List is a doubly linked list with cursors for sequential navigation.
// PushBack/PushFront/PopFront/PopBack are O(1); RemoveFunc and At are O(n).
type List[T any] struct {
	head, tail *element[T]
	size       int
}

// NewList creates an empty list
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// PushFront inserts v at the head
func (l *List[T]) PushFront(v T) {
	e := &element[T]{value: v}
	if l.head == nil {
		l.head, l.tail = e, e
	} else {
		e.next = l.head
		l.head.prev = e
		l.head = e
	}
	l.size++
}

// PushBack appends v at the tail
func (l *List[T]) PushBack(v T) {
	e := &element[T]{value: v}
	if l.tail == nil {
		l.head, l.tail = e, e
	} else {
		e.prev = l.tail
		l.tail.next = e
		l.tail = e
	}
	l.size++
}

// PopFront removes the head
func (l *List[T]) PopFront() (v T, ok bool) {
	if l.head == nil {
		return v, false
	}
	e := l.head
	l.unlink(e)
	return e.value, true
}

// PopBack removes the tail
func (l *List[T]) PopBack() (v T, ok bool) {
	if l.tail == nil {
		return v, false
	}
	e := l.tail
	l.unlink(e)
	return e.value, true
}

// RemoveFunc removes the first element matching fn
func (l *List[T]) RemoveFunc(fn func(T) bool) bool {
	for e := l.head; e != nil; e = e.next {
		if fn(e.value) {
			l.unlink(e)
			return true
		}
	}
	return false
}

// IndexFunc returns the index of the first element matching fn, or -1
func (l *List[T]) IndexFunc(fn func(T) bool) int {
	i := 0
	for e := l.head; e != nil; e = e.next {
		if fn(e.value) {
			return i
		}
		i++
	}
	return -1
}

// At returns the element at index
func (l *List[T]) At(index int) (v T, ok bool) {
	if index < 0 || index >= l.size {
		return v, false
	}
	e := l.head
	for i := 0; i < index; i++ {
		e = e.next
	}
	return e.value, true
}

// Len returns the number of elements
func (l *List[T]) Len() int {
	return l.size
}

// IsEmpty reports whether the list is empty
func (l *List[T]) IsEmpty() bool {
	return l.size == 0
}

// Clear drops all elements
func (l *List[T]) Clear() {
	l.head, l.tail = nil, nil
	l.size = 0
}

// Slice returns the elements from head to tail
func (l *List[T]) Slice() []T {
	out := make([]T, 0, l.size)
	for e := l.head; e != nil; e = e.next {
		out = append(out, e.value)
	}
	return out
}

// CursorFront returns a cursor on the head
func (l *List[T]) CursorFront() *Cursor[T] {
	return &Cursor[T]{current: l.head}
}

// CursorBack returns a cursor on the tail
func (l *List[T]) CursorBack() *Cursor[T] {
	return &Cursor[T]{current: l.tail}
}

func (l *List[T]) unlink(e *element[T]) {
	if e.prev == nil {
		l.head = e.next
	} else {
		e.prev.next = e.next
	}
	if e.next == nil {
		l.tail = e.prev
	} else {
		e.next.prev = e.prev
	}
	e.prev, e.next = nil, nil
	l.size--
}

// Cursor walks a list in both directions. A cursor over an element that is
// later removed keeps pointing at it but can no longer move.
type Cursor[T any] struct {
	current *element[T]
}

// Current returns the value under the cursor
func (c *Cursor[T]) Current() (v T, ok bool) {
	if c.current == nil {
		return v, false
	}
	return c.current.value, true
}

// CanPrev reports whether MovePrev will succeed
func (c *Cursor[T]) CanPrev() bool {
	return c.current != nil && c.current.prev != nil
}

// CanNext reports whether MoveNext will succeed
func (c *Cursor[T]) CanNext() bool {
	return c.current != nil && c.current.next != nil
}

// MovePrev steps towards the head
func (c *Cursor[T]) MovePrev() (v T, ok bool) {
	if !c.CanPrev() {
		return v, false
	}
	c.current = c.current.prev
	return c.current.value, true
}

// MoveNext steps towards the tail
func (c *Cursor[T]) MoveNext() (v T, ok bool) {
	if !c.CanNext() {
		return v, false
	}
	c.current = c.current.next
	return c.current.value, true
}
