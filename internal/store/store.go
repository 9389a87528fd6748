// Package store provides the note stores the study engine reads from:
// a SQLite database (notes plus the session log), a Neo4j graph, or a
// folder of markdown notes, with a circuit breaker around reads.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/systemshift/mindgraph/internal/config"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/notesdir"
)

// Repository is a writable note store
type Repository interface {
	core.NoteStore
	Upsert(ctx context.Context, note *core.Note) error
	Get(ctx context.Context, id core.NoteID) (core.Note, error)
	Delete(ctx context.Context, id core.NoteID) error
	Close(ctx context.Context) error
}

// SessionLog records which notes were opened
type SessionLog interface {
	RecordOpen(ctx context.Context, note core.Note, sessionID string) error
	SessionHistory(ctx context.Context, sort SortOrder) ([]SessionEntry, error)
}

var (
	_ Repository = (*SQLiteStore)(nil)
	_ SessionLog = (*SQLiteStore)(nil)
	_ Repository = (*Neo4jStore)(nil)
)

// SortOrder selects the session history ordering
type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortMostUsed SortOrder = "mostused"
)

// ErrInvalidSort is returned for an unknown SortOrder
var ErrInvalidSort = errors.New("invalid sort order")

// ParseSortOrder accepts newest, oldest or mostused. Empty means newest.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest, SortMostUsed:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
}

func (o SortOrder) orderBy() (string, error) {
	switch o {
	case "", SortNewest:
		return "h.opened_at DESC, h.id DESC", nil
	case SortOldest:
		return "h.opened_at ASC, h.id ASC", nil
	case SortMostUsed:
		return "h.usage_count DESC, h.opened_at DESC", nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, string(o))
}

// SessionEntry is one row of the session log
type SessionEntry struct {
	NoteID     core.NoteID `json:"note_id"`
	Title      string      `json:"title"`
	FilePath   string      `json:"file_path,omitempty"`
	SessionID  string      `json:"session_id"`
	OpenedAt   time.Time   `json:"opened_at"`
	UsageCount int         `json:"usage_count"`
}

// Stores is the set of stores opened for a configuration
type Stores struct {
	// Notes is the configured driver behind the circuit breaker
	Notes core.NoteStore

	// Repository is the writable driver, nil for the notes folder driver
	Repository Repository

	// Sessions is set when the driver keeps a session log
	Sessions SessionLog

	// Folder is the markdown notes folder, nil when none is configured
	Folder *notesdir.Store

	Neo4j *Neo4jStore
}

// Open opens the store selected by cfg.Store.Driver
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}
	if cfg.NotesDir != "" {
		s.Folder = notesdir.New(cfg.NotesDir)
	}

	var driver core.NoteStore
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.SQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := NewSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		s.Repository, s.Sessions, driver = db, db, db

	case "neo4j":
		n, err := NewNeo4j(ctx, Neo4jConfig{
			URI:      cfg.Store.Neo4j.URI,
			Username: cfg.Store.Neo4j.Username,
			Password: cfg.Store.Neo4j.Password,
			Database: cfg.Store.Neo4j.Database,
		})
		if err != nil {
			return nil, err
		}
		s.Repository, s.Neo4j, driver = n, n, n

	case "notes":
		if s.Folder == nil {
			return nil, errors.New("the notes driver needs notes_dir")
		}
		driver = s.Folder

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	s.Notes = NewBreaker(driver, BreakerConfig{
		Name:        cfg.Store.Driver,
		MaxFailures: cfg.Store.Breaker.MaxFailures,
		OpenTimeout: cfg.Store.Breaker.OpenTimeout,
	})
	return s, nil
}

// Close closes the writable driver
func (s *Stores) Close(ctx context.Context) error {
	if s.Repository == nil {
		return nil
	}
	return s.Repository.Close(ctx)
}
