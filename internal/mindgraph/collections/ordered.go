package collections

// OrderedUniqueList keeps insertion order and rejects values equal to one
// already present, as decided by the equality function.
type OrderedUniqueList[T any] struct {
	list  *List[T]
	equal func(a, b T) bool
}

// NewOrderedUniqueList creates an empty list using equal for duplicate detection
func NewOrderedUniqueList[T any](equal func(a, b T) bool) *OrderedUniqueList[T] {
	return &OrderedUniqueList[T]{list: NewList[T](), equal: equal}
}

// Add appends v unless an equal value is present. Returns true if added.
func (o *OrderedUniqueList[T]) Add(v T) bool {
	if o.Contains(v) {
		return false
	}
	o.list.PushBack(v)
	return true
}

// Remove deletes the value equal to v. Returns true if something was removed.
func (o *OrderedUniqueList[T]) Remove(v T) bool {
	return o.list.RemoveFunc(func(existing T) bool { return o.equal(existing, v) })
}

// Contains reports whether a value equal to v is present
func (o *OrderedUniqueList[T]) Contains(v T) bool {
	return o.list.IndexFunc(func(existing T) bool { return o.equal(existing, v) }) >= 0
}

// Len returns the number of values
func (o *OrderedUniqueList[T]) Len() int {
	return o.list.Len()
}

// Clear removes all values
func (o *OrderedUniqueList[T]) Clear() {
	o.list.Clear()
}

// Slice returns the values in insertion order
func (o *OrderedUniqueList[T]) Slice() []T {
	return o.list.Slice()
}
