package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// SQLiteStore keeps notes and the session log in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (and creates if needed) the database at dbPath
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Pragmas are per connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	for _, pragma := range allPragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	for _, stmt := range allSchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the SQLite connection
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Upsert inserts a transient note, assigning its id, or replaces the row of
// a persisted one
func (s *SQLiteStore) Upsert(ctx context.Context, note *core.Note) error {
	now := s.now()
	if note.Created.IsZero() {
		note.Created = now
	}
	note.Updated = now

	if note.ID.Transient() {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO notes (title, file_path, keywords, difficulty, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			note.Title, note.FilePath, note.KeywordsCSV(), note.Difficulty,
			formatTime(note.Created), formatTime(note.Updated),
		)
		if err != nil {
			return fmt.Errorf("inserting note: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading note id: %w", err)
		}
		note.ID = core.NoteID(id)
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, title, file_path, keywords, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			file_path = excluded.file_path,
			keywords = excluded.keywords,
			difficulty = excluded.difficulty,
			updated_at = excluded.updated_at`,
		int64(note.ID), note.Title, note.FilePath, note.KeywordsCSV(), note.Difficulty,
		formatTime(note.Created), formatTime(note.Updated),
	)
	if err != nil {
		return fmt.Errorf("updating note %d: %w", note.ID, err)
	}
	return nil
}

const noteColumns = `id, title, file_path, keywords, difficulty, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (core.Note, error) {
	var (
		note              core.Note
		id                int64
		keywords          string
		created, modified string
	)
	if err := row.Scan(&id, &note.Title, &note.FilePath, &keywords, &note.Difficulty, &created, &modified); err != nil {
		return core.Note{}, err
	}
	note.ID = core.NoteID(id)
	note.Keywords = core.KeywordsFromCSV(keywords)
	note.Created = parseTime(created)
	note.Updated = parseTime(modified)
	return note, nil
}

// Get loads a note by id
func (s *SQLiteStore) Get(ctx context.Context, id core.NoteID) (core.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, int64(id))
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Note{}, fmt.Errorf("note %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Note{}, fmt.Errorf("loading note %d: %w", id, err)
	}
	return note, nil
}

// FindByFilePath loads the note stored at path
func (s *SQLiteStore) FindByFilePath(ctx context.Context, path string) (core.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE file_path = ? ORDER BY id LIMIT 1`, path)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Note{}, fmt.Errorf("note at %s: %w", path, core.ErrNotFound)
	}
	if err != nil {
		return core.Note{}, fmt.Errorf("loading note at %s: %w", path, err)
	}
	return note, nil
}

// FindAll returns every note in id order
func (s *SQLiteStore) FindAll(ctx context.Context) ([]core.Note, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []core.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// UpdateKeywords replaces the keywords of a note
func (s *SQLiteStore) UpdateKeywords(ctx context.Context, id core.NoteID, keywords []string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET keywords = ?, updated_at = ? WHERE id = ?`,
		strings.Join(keywords, ","), formatTime(s.now()), int64(id),
	)
	if err != nil {
		return fmt.Errorf("updating keywords of note %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// Delete removes a note and its session log row
func (s *SQLiteStore) Delete(ctx context.Context, id core.NoteID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_history WHERE note_id = ?`, int64(id)); err != nil {
		return fmt.Errorf("deleting session rows of note %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("deleting note %d: %w", id, err)
	}
	if err := requireAffected(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result, id core.NoteID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("note %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// RecordOpen logs that a note was opened in a session. Reopening a note
// moves its opened_at forward and bumps its usage count.
func (s *SQLiteStore) RecordOpen(ctx context.Context, note core.Note, sessionID string) error {
	if note.ID.Transient() {
		return core.ErrTransientNote
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_history (note_id, session_id, file_path, opened_at, usage_count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(note_id) DO UPDATE SET
			session_id = excluded.session_id,
			file_path = excluded.file_path,
			opened_at = excluded.opened_at,
			usage_count = session_history.usage_count + 1`,
		int64(note.ID), sessionID, note.FilePath, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("recording open of note %d: %w", note.ID, err)
	}
	return nil
}

// SessionHistory lists opened notes joined with their titles
func (s *SQLiteStore) SessionHistory(ctx context.Context, sort SortOrder) ([]SessionEntry, error) {
	order, err := sort.orderBy()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT h.note_id, n.title, h.file_path, h.session_id, h.opened_at, h.usage_count
		FROM session_history h
		JOIN notes n ON n.id = h.note_id
		ORDER BY `+order)
	if err != nil {
		return nil, fmt.Errorf("querying session history: %w", err)
	}
	defer rows.Close()

	var entries []SessionEntry
	for rows.Next() {
		var (
			e        SessionEntry
			id       int64
			openedAt string
		)
		if err := rows.Scan(&id, &e.Title, &e.FilePath, &e.SessionID, &openedAt, &e.UsageCount); err != nil {
			return nil, fmt.Errorf("scanning session entry: %w", err)
		}
		e.NoteID = core.NoteID(id)
		e.OpenedAt = parseTime(openedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
