package notesdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParse(t *testing.T) {
	note, body, err := Parse([]byte("---\r\nid: 3\ntitle: Meiosis\nkeywords: [mitosis, chromosome]\ndifficulty: 4\n---\nCells divide twice.\n"))
	require.NoError(t, err)
	assert.Equal(t, core.NoteID(3), note.ID)
	assert.Equal(t, "Meiosis", note.Title)
	assert.Equal(t, []string{"mitosis", "chromosome"}, note.Keywords)
	assert.Equal(t, 4, note.Difficulty)
	assert.Equal(t, "Cells divide twice.\n", string(body))
}

func TestParse_Errors(t *testing.T) {
	_, _, err := Parse([]byte("just text"))
	assert.ErrorIs(t, err, ErrNoFrontMatter)

	_, _, err = Parse([]byte("---\ntitle: x\n"))
	assert.ErrorIs(t, err, ErrNoFrontMatter)

	_, _, err = Parse([]byte("---\ntitle: [unclosed\n---\n"))
	assert.Error(t, err)
}

func TestFormatRoundTrip(t *testing.T) {
	in := core.Note{ID: 7, Title: "Osmosis", Keywords: []string{"water"}, Difficulty: 2}
	data, err := Format(in, []byte("body"))
	require.NoError(t, err)

	out, body, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Keywords, out.Keywords)
	assert.Equal(t, in.Difficulty, out.Difficulty)
	assert.Equal(t, "body", string(body))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "cellular-respiration.md", FileName("Cellular Respiration!"))
	assert.Equal(t, "note.md", FileName("???"))
}

func TestStore_FindAllInFilenameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "---\nid: 2\ntitle: B\ndifficulty: 3\n---\n")
	writeFile(t, dir, "a.md", "---\nid: 1\ntitle: A\ndifficulty: 1\n---\n")
	writeFile(t, dir, "broken.md", "no front matter")
	writeFile(t, dir, "ignored.txt", "---\nid: 9\n---\n")

	notes, err := New(dir).FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "A", notes[0].Title)
	assert.Equal(t, "B", notes[1].Title)
	assert.Equal(t, filepath.Join(dir, "b.md"), notes[1].FilePath)
}

func TestStore_MissingFolder(t *testing.T) {
	notes, err := New(filepath.Join(t.TempDir(), "nope")).FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestStore_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes")
	s := New(dir)
	path, err := s.Write(core.Note{ID: 5, Title: "Photosynthesis", Difficulty: 3}, []byte("light"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photosynthesis.md"), path)

	note, body, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, core.NoteID(5), note.ID)
	assert.Equal(t, "light", string(body))
}

func TestDedupe(t *testing.T) {
	changes := dedupe([]Change{
		{Path: "a.md", Op: OpCreate},
		{Path: "b.md", Op: OpWrite},
		{Path: "a.md", Op: OpWrite},
	})
	assert.Equal(t, []Change{{Path: "a.md", Op: OpWrite}, {Path: "b.md", Op: OpWrite}}, changes)
}

func TestIsNoteFile(t *testing.T) {
	assert.True(t, isNoteFile("/x/a.md"))
	assert.False(t, isNoteFile("/x/.a.md"))
	assert.False(t, isNoteFile("/x/a.md.swp"))
}

func TestWatcher_DeliversBatch(t *testing.T) {
	dir := t.TempDir()
	got := make(chan []Change, 1)
	w, err := NewWatcher(dir, 20*time.Millisecond, func(_ context.Context, changes []Change) {
		select {
		case got <- changes:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := writeFile(t, dir, "mitosis.md", "---\nid: 1\ntitle: Mitosis\n---\n")

	select {
	case changes := <-got:
		require.NotEmpty(t, changes)
		assert.Equal(t, path, changes[0].Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	assert.NoError(t, <-done)
}
