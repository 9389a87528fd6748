// Package badgerstore implements storage.Backend on BadgerDB.
//
// Snapshots live under snap/<name>. Journal records live under
// log/<name>/<counter> with a big-endian counter so iteration order is
// append order. Truncating a journal drops the whole prefix.
package badgerstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
)

// Config holds configuration for a BadgerDB backend
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every write
	SyncWrites bool

	// GCInterval is how often value log GC runs. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a rewrite
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger routes BadgerDB logging through the package logger
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Warn("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {}

func (badgerLogger) Debugf(format string, args ...interface{}) {}

// Backend stores snapshots and journals in BadgerDB
type Backend struct {
	db *badger.DB

	mu       sync.Mutex
	counters map[string]uint64 // next journal key per name

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens the database and starts value log GC when configured
func Open(cfg Config) (*Backend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	b := &Backend{
		db:       db,
		counters: make(map[string]uint64),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		b.stopCh = make(chan struct{})
		b.doneCh = make(chan struct{})
		go b.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return b, nil
}

func (b *Backend) runGC(interval time.Duration, ratio float64) {
	defer close(b.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting
			if err := b.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logger.Warn("badger value log GC: %v", err)
			}
		}
	}
}

func snapshotKey(name string) []byte {
	return []byte("snap/" + name)
}

func journalPrefix(name string) []byte {
	return []byte("log/" + name + "/")
}

func journalKey(name string, n uint64) []byte {
	key := journalPrefix(name)
	return binary.BigEndian.AppendUint64(key, n)
}

// ReadSnapshot returns the snapshot for name
func (b *Backend) ReadSnapshot(name string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", name, err)
	}
	return data, nil
}

// WriteSnapshot replaces the snapshot in a single transaction
func (b *Backend) WriteSnapshot(name string, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(name), data)
	})
	if err != nil {
		return fmt.Errorf("writing snapshot %s: %w", name, err)
	}
	return nil
}

// Append stores record under the next journal key
func (b *Backend) Append(name string, record []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, ok := b.counters[name]
	if !ok {
		last, found, err := b.lastJournalKey(name)
		if err != nil {
			return err
		}
		if found {
			next = last + 1
		}
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(journalKey(name, next), record)
	})
	if err != nil {
		return fmt.Errorf("appending to journal %s: %w", name, err)
	}
	b.counters[name] = next + 1
	return nil
}

func (b *Backend) lastJournalKey(name string) (uint64, bool, error) {
	prefix := journalPrefix(name)
	var (
		last  uint64
		found bool
	)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) != len(prefix)+8 {
				continue
			}
			last = binary.BigEndian.Uint64(key[len(prefix):])
			found = true
		}
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("scanning journal %s: %w", name, err)
	}
	return last, found, nil
}

// ReadJournal concatenates the journal records in append order
func (b *Backend) ReadJournal(name string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = journalPrefix(name)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				out = append(out, val...)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", name, err)
	}
	return out, nil
}

// TruncateJournal drops every journal record for name
func (b *Backend) TruncateJournal(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.DropPrefix(journalPrefix(name)); err != nil {
		return fmt.Errorf("truncating journal %s: %w", name, err)
	}
	b.counters[name] = 0
	return nil
}

// Close stops GC and closes the database
func (b *Backend) Close() error {
	if b.stopCh != nil {
		close(b.stopCh)
		<-b.doneCh
		b.stopCh = nil
	}
	return b.db.Close()
}
