package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/systemshift/mindgraph/internal/mindgraph/collections"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// Visit is one opening of a note during a session
type Visit struct {
	NoteID    core.NoteID `json:"note_id"`
	Title     string      `json:"title"`
	VisitedAt time.Time   `json:"visited_at"`
}

// Session keeps every visit in order with a cursor for prev/next browsing.
// Recording a visit moves the cursor to it.
type Session struct {
	id     string
	visits *collections.List[Visit]
	cursor *collections.Cursor[Visit]
	now    func() time.Time
}

// NewSession starts a session with a fresh id
func NewSession() *Session {
	return &Session{
		id:     uuid.New().String(),
		visits: collections.NewList[Visit](),
		now:    time.Now,
	}
}

// ID identifies the session in the store's session log
func (s *Session) ID() string {
	return s.id
}

// Record appends a visit and points the cursor at it
func (s *Session) Record(note core.Note) Visit {
	v := Visit{NoteID: note.ID, Title: note.Title, VisitedAt: s.now()}
	s.visits.PushBack(v)
	s.cursor = s.visits.CursorBack()
	return v
}

// Prev moves the cursor to the previous visit
func (s *Session) Prev() (Visit, bool) {
	if s.cursor == nil {
		return Visit{}, false
	}
	return s.cursor.MovePrev()
}

// Next moves the cursor to the next visit
func (s *Session) Next() (Visit, bool) {
	if s.cursor == nil {
		return Visit{}, false
	}
	return s.cursor.MoveNext()
}

func (s *Session) CanPrev() bool {
	return s.cursor != nil && s.cursor.CanPrev()
}

func (s *Session) CanNext() bool {
	return s.cursor != nil && s.cursor.CanNext()
}

// Current returns the visit under the cursor
func (s *Session) Current() (Visit, bool) {
	if s.cursor == nil {
		return Visit{}, false
	}
	return s.cursor.Current()
}

// All returns every visit, oldest first
func (s *Session) All() []Visit {
	return s.visits.Slice()
}

func (s *Session) Len() int {
	return s.visits.Len()
}

// Clear forgets all visits but keeps the session id
func (s *Session) Clear() {
	s.visits.Clear()
	s.cursor = nil
}
