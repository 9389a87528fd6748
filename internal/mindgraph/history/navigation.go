// Package history tracks the notes a user opened: a bounded back stack for
// navigation and a session log with a prev/next cursor.
package history

import (
	"errors"

	"github.com/systemshift/mindgraph/internal/mindgraph/collections"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/metrics"
)

// DefaultCapacity bounds the navigation history unless configured otherwise
const DefaultCapacity = 300

// Navigation is a LIFO of opened note ids. It lives for one session and is
// never persisted.
type Navigation struct {
	stack *collections.Stack[core.NoteID]
}

// NewNavigation creates a history. capacity 0 means unbounded.
func NewNavigation(capacity int) *Navigation {
	return &Navigation{stack: collections.NewStack[core.NoteID](capacity)}
}

// Push records id. A full history rejects the push with core.ErrHistoryFull
// and keeps its entries.
func (n *Navigation) Push(id core.NoteID) error {
	if err := n.stack.Push(id); err != nil {
		if errors.Is(err, collections.ErrFull) {
			metrics.HistoryRejections.Inc()
			return core.ErrHistoryFull
		}
		return err
	}
	return nil
}

// Pop removes the most recent entry
func (n *Navigation) Pop() (core.NoteID, bool) {
	return n.stack.Pop()
}

// Peek returns the most recent entry
func (n *Navigation) Peek() (core.NoteID, bool) {
	return n.stack.Peek()
}

func (n *Navigation) IsEmpty() bool {
	return n.stack.IsEmpty()
}

func (n *Navigation) Clear() {
	n.stack.Clear()
}

func (n *Navigation) Len() int {
	return n.stack.Len()
}

// Capacity returns the bound, 0 when unbounded
func (n *Navigation) Capacity() int {
	return n.stack.Capacity()
}

// Items returns the entries from oldest to newest
func (n *Navigation) Items() []core.NoteID {
	return n.stack.Items()
}
