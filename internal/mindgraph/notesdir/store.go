// Package notesdir reads notes from a folder of markdown files.
//
// Each note is a *.md file starting with a YAML front matter block:
//
//	---
//	id: 3
//	title: Meiosis
//	keywords: [mitosis, chromosome]
//	difficulty: 3
//	---
//	body text
//
// Files are discovered in filename order.
package notesdir

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
)

// Ext is the note file extension
const Ext = ".md"

var (
	delimiter = []byte("---")

	// ErrNoFrontMatter is returned for files that do not start with a front matter block
	ErrNoFrontMatter = errors.New("missing front matter")
)

// Store is a core.NoteStore over a notes folder
type Store struct {
	dir string
}

// New creates a store for dir. The folder does not need to exist yet.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the notes folder
func (s *Store) Dir() string {
	return s.dir
}

// FindAll parses every note file. Files that fail to parse are logged and skipped.
func (s *Store) FindAll(ctx context.Context) ([]core.Note, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading notes folder %s: %w", s.dir, err)
	}

	var notes []core.Note
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		note, _, err := ReadFile(path)
		if err != nil {
			logger.Warn("skipping note %s: %v", path, err)
			continue
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// ReadFile parses one note file and returns its body
func ReadFile(path string) (core.Note, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Note{}, nil, err
	}
	note, body, err := Parse(data)
	if err != nil {
		return core.Note{}, nil, err
	}
	note.FilePath = path
	return note, body, nil
}

// Parse splits data into front matter and body
func Parse(data []byte) (core.Note, []byte, error) {
	var note core.Note

	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	first, rest, ok := cutLine(data)
	if !ok || !bytes.Equal(bytes.TrimSpace(first), delimiter) {
		return note, nil, ErrNoFrontMatter
	}

	var header []byte
	for {
		line, remaining, more := cutLine(rest)
		if bytes.Equal(bytes.TrimSpace(line), delimiter) {
			rest = remaining
			break
		}
		if !more {
			return note, nil, fmt.Errorf("%w: unterminated block", ErrNoFrontMatter)
		}
		header = append(header, line...)
		header = append(header, '\n')
		rest = remaining
	}

	if err := yaml.Unmarshal(header, &note); err != nil {
		return note, nil, fmt.Errorf("parsing front matter: %w", err)
	}
	return note, rest, nil
}

// cutLine returns the first line without its newline. ok is false when data is empty.
func cutLine(data []byte) (line, rest []byte, ok bool) {
	if len(data) == 0 {
		return nil, nil, false
	}
	line, rest, found := bytes.Cut(data, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !found {
		return line, nil, true
	}
	return line, rest, true
}

// Format renders a note file
func Format(note core.Note, body []byte) ([]byte, error) {
	header, err := yaml.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(delimiter)
	buf.WriteByte('\n')
	buf.Write(header)
	buf.Write(delimiter)
	buf.WriteByte('\n')
	buf.Write(body)
	return buf.Bytes(), nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// FileName derives a file name from a note title
func FileName(title string) string {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "note"
	}
	return slug + Ext
}

// Write stores a note in the folder, reusing its FilePath when set, and
// returns the path written
func (s *Store) Write(note core.Note, body []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating notes folder: %w", err)
	}
	path := note.FilePath
	if path == "" {
		path = filepath.Join(s.dir, FileName(note.Title))
	}
	data, err := Format(note, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing note %s: %w", path, err)
	}
	return path, nil
}
