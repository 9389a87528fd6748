package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// Backend stores one snapshot and one append-only journal per name
type Backend interface {
	// ReadSnapshot returns the last snapshot, core.ErrNotFound if none exists
	ReadSnapshot(name string) ([]byte, error)

	// WriteSnapshot replaces the snapshot atomically
	WriteSnapshot(name string, data []byte) error

	// Append adds a framed record to the journal
	Append(name string, record []byte) error

	// ReadJournal returns the raw journal bytes, empty if none exists
	ReadJournal(name string) ([]byte, error)

	// TruncateJournal discards the journal
	TruncateJournal(name string) error

	Close() error
}

// FileBackend keeps <name>.snap and <name>.journal files in a directory
type FileBackend struct {
	dir      string
	mu       sync.Mutex
	journals map[string]*os.File
	sync     bool
}

// NewFileBackend creates the directory if needed. When syncWrites is set,
// every journal append is fsynced.
func NewFileBackend(dir string, syncWrites bool) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &FileBackend{
		dir:      dir,
		journals: make(map[string]*os.File),
		sync:     syncWrites,
	}, nil
}

// Dir returns the data directory
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) snapshotPath(name string) string {
	return filepath.Join(b.dir, name+".snap")
}

func (b *FileBackend) journalPath(name string) string {
	return filepath.Join(b.dir, name+".journal")
}

// ReadSnapshot reads <name>.snap
func (b *FileBackend) ReadSnapshot(name string) ([]byte, error) {
	data, err := os.ReadFile(b.snapshotPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", name, err)
	}
	return data, nil
}

// WriteSnapshot writes to a temp file and renames it over <name>.snap
func (b *FileBackend) WriteSnapshot(name string, data []byte) error {
	tmp, err := os.CreateTemp(b.dir, name+".snap.*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, b.snapshotPath(name)); err != nil {
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}

// Append writes a record to <name>.journal
func (b *FileBackend) Append(name string, record []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := b.journal(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(record); err != nil {
		return fmt.Errorf("appending to journal %s: %w", name, err)
	}
	if b.sync {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("syncing journal %s: %w", name, err)
		}
	}
	return nil
}

// ReadJournal reads <name>.journal
func (b *FileBackend) ReadJournal(name string) ([]byte, error) {
	data, err := os.ReadFile(b.journalPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", name, err)
	}
	return data, nil
}

// TruncateJournal empties <name>.journal
func (b *FileBackend) TruncateJournal(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if f, ok := b.journals[name]; ok {
		f.Close()
		delete(b.journals, name)
	}
	if err := os.Truncate(b.journalPath(name), 0); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("truncating journal %s: %w", name, err)
	}
	return nil
}

// Close closes open journal files
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for name, f := range b.journals {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing journal %s: %w", name, err)
		}
		delete(b.journals, name)
	}
	return firstErr
}

func (b *FileBackend) journal(name string) (*os.File, error) {
	if f, ok := b.journals[name]; ok {
		return f, nil
	}
	f, err := os.OpenFile(b.journalPath(name), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", name, err)
	}
	b.journals[name] = f
	return f, nil
}

// MemoryBackend keeps everything in memory. Used in tests and dry runs.
type MemoryBackend struct {
	mu        sync.Mutex
	snapshots map[string][]byte
	journals  map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		snapshots: make(map[string][]byte),
		journals:  make(map[string][]byte),
	}
}

func (m *MemoryBackend) ReadSnapshot(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.snapshots[name]
	if !ok {
		return nil, core.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) WriteSnapshot(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[name] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Append(name string, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journals[name] = append(m.journals[name], record...)
	return nil
}

func (m *MemoryBackend) ReadJournal(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.journals[name]...), nil
}

func (m *MemoryBackend) TruncateJournal(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.journals, name)
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
