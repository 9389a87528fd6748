package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[string](0)
	require.NoError(t, q.Enqueue("A"))
	require.NoError(t, q.Enqueue("B"))

	v, ok := q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	v, ok = q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	_, ok = q.Dequeue()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}

func TestQueueWrapsAndGrows(t *testing.T) {
	q := NewQueue[int](0)
	for i := 0; i < 6; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	for i := 0; i < 4; i++ {
		v, _ := q.Dequeue()
		assert.Equal(t, i, v)
	}
	// head is now mid-buffer; fill past the initial ring size
	for i := 6; i < 30; i++ {
		require.NoError(t, q.Enqueue(i))
	}

	want := make([]int, 0, 26)
	for i := 4; i < 30; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, q.Items())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 4, head)
	assert.Equal(t, 26, q.Len())
}

func TestQueueBounded(t *testing.T) {
	q := NewQueue[int](2)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	assert.ErrorIs(t, q.Enqueue(3), ErrFull)
	assert.Equal(t, []int{1, 2}, q.Items())

	q.Clear()
	assert.True(t, q.IsEmpty())
	require.NoError(t, q.Enqueue(3))
}

func TestStackLIFO(t *testing.T) {
	s := NewStack[string](0)
	require.NoError(t, s.Push("A"))
	require.NoError(t, s.Push("B"))

	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, "B", top)

	v, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, "B", v)
	v, ok = s.Pop()
	assert.True(t, ok)
	assert.Equal(t, "A", v)
	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestStackOverflowRejected(t *testing.T) {
	s := NewStack[int](2)
	require.NoError(t, s.Push(1))
	require.NoError(t, s.Push(2))
	assert.True(t, s.IsFull())
	assert.ErrorIs(t, s.Push(3), ErrFull)
	assert.Equal(t, []int{1, 2}, s.Items())
}

func TestListCursor(t *testing.T) {
	l := NewList[int]()
	for i := 1; i <= 3; i++ {
		l.PushBack(i)
	}
	l.PushFront(0)
	assert.Equal(t, []int{0, 1, 2, 3}, l.Slice())

	c := l.CursorBack()
	v, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.False(t, c.CanNext())

	v, _ = c.MovePrev()
	assert.Equal(t, 2, v)
	v, _ = c.MoveNext()
	assert.Equal(t, 3, v)

	front := l.CursorFront()
	_, ok = front.MovePrev()
	assert.False(t, ok)

	assert.True(t, l.RemoveFunc(func(x int) bool { return x == 2 }))
	assert.False(t, l.RemoveFunc(func(x int) bool { return x == 42 }))
	assert.Equal(t, []int{0, 1, 3}, l.Slice())

	at, ok := l.At(2)
	require.True(t, ok)
	assert.Equal(t, 3, at)
	_, ok = l.At(3)
	assert.False(t, ok)

	first, _ := l.PopFront()
	last, _ := l.PopBack()
	assert.Equal(t, 0, first)
	assert.Equal(t, 3, last)
	assert.Equal(t, 1, l.Len())
}

func TestOrderedUniqueList(t *testing.T) {
	type entry struct {
		id    int
		title string
	}
	o := NewOrderedUniqueList(func(a, b entry) bool { return a.id == b.id })

	assert.True(t, o.Add(entry{1, "a"}))
	assert.True(t, o.Add(entry{2, "b"}))
	assert.False(t, o.Add(entry{1, "other title"}))
	assert.Equal(t, 2, o.Len())

	assert.True(t, o.Remove(entry{id: 1}))
	assert.False(t, o.Remove(entry{id: 1}))
	assert.Equal(t, []entry{{2, "b"}}, o.Slice())
}
