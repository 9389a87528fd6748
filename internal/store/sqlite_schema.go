package store

// SQLite schema DDL constants

const schemaNotes = `
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    file_path TEXT NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '',
    difficulty INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// One row per note: the latest open wins and usage_count accumulates
const schemaSessionHistory = `
CREATE TABLE IF NOT EXISTS session_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    note_id INTEGER NOT NULL UNIQUE REFERENCES notes(id) ON DELETE CASCADE,
    session_id TEXT NOT NULL,
    file_path TEXT NOT NULL DEFAULT '',
    opened_at TEXT NOT NULL,
    usage_count INTEGER NOT NULL DEFAULT 1
)`

// Index definitions
const (
	idxNotesFilePath   = `CREATE INDEX IF NOT EXISTS idx_notes_file_path ON notes(file_path)`
	idxNotesTitle      = `CREATE INDEX IF NOT EXISTS idx_notes_title ON notes(title COLLATE NOCASE)`
	idxSessionOpenedAt = `CREATE INDEX IF NOT EXISTS idx_session_opened_at ON session_history(opened_at)`
	idxSessionUsage    = `CREATE INDEX IF NOT EXISTS idx_session_usage ON session_history(usage_count)`
)

// allSchemaStatements returns all DDL statements in order
func allSchemaStatements() []string {
	return []string{
		schemaNotes,
		schemaSessionHistory,
		idxNotesFilePath,
		idxNotesTitle,
		idxSessionOpenedAt,
		idxSessionUsage,
	}
}

// allPragmas returns SQLite pragmas for performance
func allPragmas() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
}
