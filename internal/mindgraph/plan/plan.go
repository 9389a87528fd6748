// Package plan keeps the user's ordered study plan.
package plan

import (
	"fmt"
	"strings"

	"github.com/systemshift/mindgraph/internal/mindgraph/collections"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/mindgraph/storage"
)

// Entry is one planned note. Title identifies notes that have no id yet.
type Entry struct {
	ID    core.NoteID `json:"id"`
	Title string      `json:"title"`
}

// Same reports whether two entries refer to the same note: by id when both
// have one, by case-insensitive title otherwise.
func (e Entry) Same(other Entry) bool {
	if !e.ID.Transient() && !other.ID.Transient() {
		return e.ID == other.ID
	}
	return strings.EqualFold(strings.TrimSpace(e.Title), strings.TrimSpace(other.Title))
}

type op uint8

const (
	opAdd    op = 1
	opRemove op = 2
	opClear  op = 3
)

// List is the persisted, duplicate-free study plan in insertion order.
// It is not safe for concurrent use.
type List struct {
	entries *collections.OrderedUniqueList[Entry]
	journal *storage.Journal
}

// Open loads the plan from backend. compactEvery <= 0 only compacts on Flush.
func Open(backend storage.Backend, compactEvery int) (*List, error) {
	l := &List{
		entries: newEntries(),
		journal: storage.NewJournal(backend, storage.KindStudyPlan, compactEvery),
	}
	degraded, err := l.journal.Load(l.restore, l.replay)
	if err != nil {
		return nil, err
	}
	if degraded {
		if err := l.Flush(); err != nil {
			return nil, fmt.Errorf("rewriting study plan snapshot: %w", err)
		}
	}
	return l, nil
}

func newEntries() *collections.OrderedUniqueList[Entry] {
	return collections.NewOrderedUniqueList(func(a, b Entry) bool { return a.Same(b) })
}

func encodeEntry(enc *storage.Encoder, e Entry) {
	enc.ID(e.ID).String(e.Title)
}

func decodeEntry(dec *storage.Decoder) Entry {
	var e Entry
	e.ID = dec.ID()
	e.Title = dec.String()
	return e
}

func (l *List) restore(body []byte) error {
	dec := storage.NewDecoder(body)
	n := dec.Uvarint()
	if n > uint64(dec.Remaining()) {
		return fmt.Errorf("%w: plan entry count %d", core.ErrCorruptSnapshot, n)
	}
	entries := newEntries()
	for i := uint64(0); i < n && dec.Err() == nil; i++ {
		e := decodeEntry(dec)
		if dec.Err() == nil {
			entries.Add(e)
		}
	}
	if dec.Err() != nil {
		return dec.Err()
	}
	l.entries = entries
	return nil
}

func (l *List) replay(payload []byte) error {
	dec := storage.NewDecoder(payload)
	switch op(dec.Uint8()) {
	case opAdd:
		e := decodeEntry(dec)
		if dec.Err() == nil {
			l.entries.Add(e)
		}
	case opRemove:
		e := decodeEntry(dec)
		if dec.Err() == nil {
			l.entries.Remove(e)
		}
	case opClear:
		l.entries.Clear()
	default:
		if dec.Err() == nil {
			return fmt.Errorf("%w: unknown study plan op", core.ErrCorruptSnapshot)
		}
	}
	return dec.Err()
}

func (l *List) commit(payload []byte, apply func()) error {
	compact, err := l.journal.Append(payload)
	if err != nil {
		return fmt.Errorf("journaling study plan change: %w", err)
	}
	apply()
	if compact {
		if err := l.Flush(); err != nil {
			logger.Warn("compacting study plan journal: %v", err)
		}
	}
	return nil
}

// Add appends e unless the plan already holds the same note
func (l *List) Add(e Entry) (bool, error) {
	if l.entries.Contains(e) {
		return false, nil
	}
	enc := storage.NewEncoder(16 + len(e.Title)).Uint8(uint8(opAdd))
	encodeEntry(enc, e)
	if err := l.commit(enc.Bytes(), func() { l.entries.Add(e) }); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the entry for the same note as e
func (l *List) Remove(e Entry) (bool, error) {
	if !l.entries.Contains(e) {
		return false, nil
	}
	enc := storage.NewEncoder(16 + len(e.Title)).Uint8(uint8(opRemove))
	encodeEntry(enc, e)
	if err := l.commit(enc.Bytes(), func() { l.entries.Remove(e) }); err != nil {
		return false, err
	}
	return true, nil
}

// Clear empties the plan
func (l *List) Clear() error {
	if l.entries.Len() == 0 {
		return nil
	}
	return l.commit([]byte{uint8(opClear)}, l.entries.Clear)
}

// List returns the entries in insertion order
func (l *List) List() []Entry {
	return l.entries.Slice()
}

func (l *List) Len() int {
	return l.entries.Len()
}

// Flush writes a snapshot and truncates the journal
func (l *List) Flush() error {
	entries := l.entries.Slice()
	enc := storage.NewEncoder(8 + 24*len(entries)).Uvarint(uint64(len(entries)))
	for _, e := range entries {
		encodeEntry(enc, e)
	}
	return l.journal.Compact(enc.Bytes())
}
