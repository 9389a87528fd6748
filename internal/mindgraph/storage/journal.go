package storage

import (
	"errors"
	"fmt"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/mindgraph/metrics"
)

// Journal persists one structure as a snapshot plus an append-only log of
// mutation records. Records carry a sequence number and the snapshot stores
// the last sequence it covers, so a crash between writing a snapshot and
// truncating the journal never replays a record twice.
type Journal struct {
	backend      Backend
	kind         Kind
	compactEvery int
	seq          uint64 // last sequence number written or replayed
	pending      int    // records appended since the last snapshot
}

// NewJournal creates a journal for kind. compactEvery <= 0 disables automatic compaction.
func NewJournal(backend Backend, kind Kind, compactEvery int) *Journal {
	return &Journal{backend: backend, kind: kind, compactEvery: compactEvery}
}

// Name is the backend key used for this journal
func (j *Journal) Name() string {
	return j.kind.String()
}

// Pending returns the number of records not yet folded into a snapshot
func (j *Journal) Pending() int {
	return j.pending
}

// Load restores the snapshot body and replays the journal records after it.
// Corrupt data is logged and dropped: a bad snapshot yields an empty
// structure, a bad journal record stops replay at the last good record.
// degraded reports that something was dropped so the owner can compact.
func (j *Journal) Load(restore func(body []byte) error, replay func(payload []byte) error) (degraded bool, err error) {
	name := j.Name()
	j.seq, j.pending = 0, 0

	data, err := j.backend.ReadSnapshot(name)
	switch {
	case errors.Is(err, core.ErrNotFound):
		// fresh structure
	case err != nil:
		return false, fmt.Errorf("loading %s snapshot: %w", name, err)
	default:
		if seq, body, derr := j.decodeSnapshot(data); derr != nil {
			logger.Warn("discarding %s snapshot: %v", name, derr)
			metrics.SnapshotRecoveries.WithLabelValues(name).Inc()
			// the journal is relative to the lost snapshot
			return true, nil
		} else if rerr := restore(body); rerr != nil {
			logger.Warn("discarding %s snapshot: %v", name, rerr)
			metrics.SnapshotRecoveries.WithLabelValues(name).Inc()
			return true, nil
		} else {
			j.seq = seq
		}
	}

	raw, err := j.backend.ReadJournal(name)
	if err != nil {
		return false, fmt.Errorf("loading %s journal: %w", name, err)
	}
	records, derr := DecodeRecords(raw)
	if derr != nil {
		logger.Warn("%s journal: %v; keeping %d records", name, derr, len(records))
		degraded = true
	}

	for _, rec := range records {
		dec := NewDecoder(rec)
		seq := dec.Uvarint()
		if dec.Err() != nil {
			logger.Warn("%s journal: %v", name, dec.Err())
			degraded = true
			break
		}
		if seq <= j.seq {
			continue
		}
		if err := replay(rec[len(rec)-dec.Remaining():]); err != nil {
			logger.Warn("%s journal: replaying record %d: %v", name, seq, err)
			degraded = true
			break
		}
		j.seq = seq
		j.pending++
	}

	if degraded {
		metrics.SnapshotRecoveries.WithLabelValues(name).Inc()
	}
	return degraded, nil
}

// Append writes one mutation record. It reports whether the journal has
// grown past the compaction threshold.
func (j *Journal) Append(payload []byte) (compact bool, err error) {
	seq := j.seq + 1
	body := NewEncoder(len(payload) + 4).Uvarint(seq).Bytes()
	body = append(body, payload...)

	rec, err := EncodeRecord(body)
	if err != nil {
		return false, err
	}
	if err := j.backend.Append(j.Name(), rec); err != nil {
		return false, err
	}
	j.seq = seq
	j.pending++
	metrics.JournalAppends.WithLabelValues(j.Name()).Inc()
	return j.compactEvery > 0 && j.pending >= j.compactEvery, nil
}

// Compact writes body as the new snapshot and truncates the journal
func (j *Journal) Compact(body []byte) error {
	framed := NewEncoder(len(body) + 8).Uvarint(j.seq).Bytes()
	framed = append(framed, body...)

	data, err := EncodeSnapshot(j.kind, framed)
	if err != nil {
		return err
	}
	if err := j.backend.WriteSnapshot(j.Name(), data); err != nil {
		return fmt.Errorf("writing %s snapshot: %w", j.Name(), err)
	}
	if err := j.backend.TruncateJournal(j.Name()); err != nil {
		return fmt.Errorf("truncating %s journal: %w", j.Name(), err)
	}
	j.pending = 0
	metrics.Compactions.WithLabelValues(j.Name()).Inc()
	return nil
}

func (j *Journal) decodeSnapshot(data []byte) (uint64, []byte, error) {
	_, framed, err := DecodeSnapshot(j.kind, data)
	if err != nil {
		return 0, nil, err
	}
	dec := NewDecoder(framed)
	seq := dec.Uvarint()
	if dec.Err() != nil {
		return 0, nil, dec.Err()
	}
	return seq, framed[len(framed)-dec.Remaining():], nil
}
