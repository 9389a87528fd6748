// Package revision implements the persisted revision queue.
package revision

import (
	"context"
	"fmt"

	"github.com/systemshift/mindgraph/internal/mindgraph/collections"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/mindgraph/metrics"
	"github.com/systemshift/mindgraph/internal/mindgraph/storage"
)

// DefaultMinFallbackDifficulty is the lowest difficulty queued by the fallback scan
const DefaultMinFallbackDifficulty = 2

// Options configures a Queue
type Options struct {
	// Capacity bounds the queue, 0 for unbounded
	Capacity int

	// CompactEvery folds the journal into a snapshot after this many records
	CompactEvery int

	// MinFallbackDifficulty filters notes queued when no study path is available
	MinFallbackDifficulty int
}

// DefaultOptions returns the queue defaults
func DefaultOptions() Options {
	return Options{
		CompactEvery:          256,
		MinFallbackDifficulty: DefaultMinFallbackDifficulty,
	}
}

type op uint8

const (
	opEnqueue op = 1
	opDequeue op = 2
	opClear   op = 3
	opFill    op = 4
)

// Queue is a FIFO of note ids whose every change is journaled before it
// becomes visible. It is not safe for concurrent use.
type Queue struct {
	items   *collections.Queue[core.NoteID]
	journal *storage.Journal
	opts    Options
}

// Open loads the queue from backend. A corrupt snapshot or journal is
// logged and the queue starts from what could be recovered, which is then
// written back as a fresh snapshot.
func Open(backend storage.Backend, opts Options) (*Queue, error) {
	if opts.MinFallbackDifficulty <= 0 {
		opts.MinFallbackDifficulty = DefaultMinFallbackDifficulty
	}
	q := &Queue{
		items:   collections.NewQueue[core.NoteID](opts.Capacity),
		journal: storage.NewJournal(backend, storage.KindRevision, opts.CompactEvery),
		opts:    opts,
	}

	degraded, err := q.journal.Load(q.restore, q.replay)
	if err != nil {
		return nil, err
	}
	if degraded {
		if err := q.Flush(); err != nil {
			return nil, fmt.Errorf("rewriting revision snapshot: %w", err)
		}
	}
	return q, nil
}

func (q *Queue) restore(body []byte) error {
	dec := storage.NewDecoder(body)
	ids := dec.IDs()
	if dec.Err() != nil {
		return dec.Err()
	}
	q.items = collections.NewQueue[core.NoteID](q.opts.Capacity)
	for _, id := range ids {
		q.items.Enqueue(id)
	}
	return nil
}

func (q *Queue) replay(payload []byte) error {
	dec := storage.NewDecoder(payload)
	switch op(dec.Uint8()) {
	case opEnqueue:
		id := dec.ID()
		if dec.Err() == nil {
			q.items.Enqueue(id)
		}
	case opDequeue:
		q.items.Dequeue()
	case opClear:
		q.items.Clear()
	case opFill:
		ids := dec.IDs()
		if dec.Err() == nil {
			for _, id := range ids {
				q.items.Enqueue(id)
			}
		}
	default:
		if dec.Err() == nil {
			return fmt.Errorf("%w: unknown revision op", core.ErrCorruptSnapshot)
		}
	}
	return dec.Err()
}

// commit journals payload, then applies the change in memory. A failed
// compaction is only logged since the record itself is already durable.
func (q *Queue) commit(payload []byte, apply func()) error {
	compact, err := q.journal.Append(payload)
	if err != nil {
		return fmt.Errorf("journaling revision change: %w", err)
	}
	apply()
	if compact {
		if err := q.Flush(); err != nil {
			logger.Warn("compacting revision journal: %v", err)
		}
	}
	return nil
}

func (q *Queue) full() bool {
	return q.items.Capacity() > 0 && q.items.Len() >= q.items.Capacity()
}

// Enqueue appends id at the tail
func (q *Queue) Enqueue(id core.NoteID) error {
	if q.full() {
		return collections.ErrFull
	}
	payload := storage.NewEncoder(12).Uint8(uint8(opEnqueue)).ID(id).Bytes()
	return q.commit(payload, func() { q.items.Enqueue(id) })
}

// Dequeue removes the head. ok is false when the queue is empty. The
// removal is durable before the id is returned, so a crash never serves the
// same note twice.
func (q *Queue) Dequeue() (id core.NoteID, ok bool, err error) {
	id, ok = q.items.Peek()
	if !ok {
		return 0, false, nil
	}
	if err := q.commit([]byte{uint8(opDequeue)}, func() { q.items.Dequeue() }); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Peek returns the head without removing it
func (q *Queue) Peek() (core.NoteID, bool) {
	return q.items.Peek()
}

// IsEmpty reports whether the queue is empty
func (q *Queue) IsEmpty() bool {
	return q.items.IsEmpty()
}

// HasNotes reports whether a note is waiting for revision
func (q *Queue) HasNotes() bool {
	return !q.items.IsEmpty()
}

// Size returns the number of queued notes
func (q *Queue) Size() int {
	return q.items.Len()
}

// Items returns the queued ids from head to tail
func (q *Queue) Items() []core.NoteID {
	return q.items.Items()
}

// Clear empties the queue
func (q *Queue) Clear() error {
	if q.items.IsEmpty() {
		return nil
	}
	return q.commit([]byte{uint8(opClear)}, q.items.Clear)
}

// Fill enqueues ids in order as one journal record. Ids beyond the capacity are dropped.
func (q *Queue) Fill(ids []core.NoteID) (int, error) {
	if q.items.Capacity() > 0 {
		room := q.items.Capacity() - q.items.Len()
		if room < len(ids) {
			logger.Warn("revision queue full: dropping %d of %d notes", len(ids)-room, len(ids))
			ids = ids[:room]
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	payload := storage.NewEncoder(8 + 4*len(ids)).Uint8(uint8(opFill)).IDs(ids).Bytes()
	err := q.commit(payload, func() {
		for _, id := range ids {
			q.items.Enqueue(id)
		}
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// PrepareNextNote refills the queue when it is empty. The study path comes
// first; when it is empty the fallback notes with at least the configured
// difficulty are queued in the order the store returns them. It reports
// whether a note is ready.
func (q *Queue) PrepareNextNote(ctx context.Context, path func() []core.NoteID, fallback core.NoteStore) (bool, error) {
	if q.HasNotes() {
		return true, nil
	}

	if path != nil {
		if ids := path(); len(ids) > 0 {
			n, err := q.Fill(ids)
			if err != nil {
				return false, err
			}
			metrics.RevisionRefills.WithLabelValues("path").Inc()
			logger.Log("revision queue refilled with %d notes from the study path", n)
			return q.HasNotes(), nil
		}
	}

	if fallback == nil {
		return false, nil
	}
	notes, err := fallback.FindAll(ctx)
	if err != nil {
		return false, fmt.Errorf("loading fallback notes: %w", err)
	}
	var ids []core.NoteID
	for _, n := range notes {
		if n.ID.Transient() || n.Difficulty < q.opts.MinFallbackDifficulty {
			continue
		}
		ids = append(ids, n.ID)
	}
	n, err := q.Fill(ids)
	if err != nil {
		return false, err
	}
	if n > 0 {
		metrics.RevisionRefills.WithLabelValues("fallback").Inc()
		logger.Log("revision queue refilled with %d notes from the fallback store", n)
	}
	return q.HasNotes(), nil
}

// Flush writes a snapshot and truncates the journal
func (q *Queue) Flush() error {
	body := storage.NewEncoder(4 + 4*q.items.Len()).IDs(q.items.Items()).Bytes()
	return q.journal.Compact(body)
}

// Pending returns the number of journal records since the last snapshot
func (q *Queue) Pending() int {
	return q.journal.Pending()
}
