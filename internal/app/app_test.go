package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/mindgraph/internal/config"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/notesdir"
	"github.com/systemshift/mindgraph/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.NotesDir = filepath.Join(dir, "notes")
	cfg.Log.Level = "error"
	return cfg
}

func TestOpenWithNotesFolder(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Store.Driver = "notes"

	folder := notesdir.New(cfg.NotesDir)
	for _, n := range []core.Note{
		{ID: 1, Title: "Cell", Keywords: []string{"mitosis"}, Difficulty: 1},
		{ID: 2, Title: "Mitosis", Difficulty: 2},
	} {
		_, err := folder.Write(n, nil)
		require.NoError(t, err)
	}

	a, err := Open(ctx, cfg)
	require.NoError(t, err)

	result, err := a.Engine.BuildFromStore(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	require.NoError(t, a.Close(ctx))

	// the rebuilt graph is persisted
	b, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close(ctx)
	assert.Equal(t, []core.NoteID{2}, b.Engine.Neighbours(1))
}

func TestOpenWithSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	require.NotNil(t, a.Stores.Repository)
	assert.NotNil(t, a.Stores.Sessions)
	note := &core.Note{Title: "Osmosis", Difficulty: 3}
	require.NoError(t, a.Stores.Repository.Upsert(ctx, note))

	// fallback "notes" with an empty folder queues nothing
	ready, err := a.Engine.PrepareNextNote(ctx)
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	cfg.Revision.Fallback = "notes"
	assert.Equal(t, a.Stores.Folder, Fallback(cfg, a.Stores))
	cfg.Revision.Fallback = "store"
	assert.Equal(t, a.Stores.Notes, Fallback(cfg, a.Stores))
	cfg.Revision.Fallback = "none"
	assert.Nil(t, Fallback(cfg, a.Stores))
}

func TestOpenRejectsBadLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "shout"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func openNotesApp(t *testing.T, notes ...core.Note) (*App, *notesdir.Store) {
	t.Helper()
	cfg := testConfig(t)
	cfg.Store.Driver = "notes"
	folder := notesdir.New(cfg.NotesDir)
	for _, n := range notes {
		_, err := folder.Write(n, nil)
		require.NoError(t, err)
	}
	a, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a, folder
}

func TestRebuildOnChangeDropsStaleEdges(t *testing.T) {
	ctx := context.Background()
	a, folder := openNotesApp(t,
		core.Note{ID: 1, Title: "Mitosis", Difficulty: 1},
		core.Note{ID: 2, Title: "Meiosis", Keywords: []string{"mitosis"}, Difficulty: 2},
	)
	_, err := a.Engine.BuildFromStore(ctx, true)
	require.NoError(t, err)
	require.Equal(t, []core.NoteID{1}, a.Engine.Neighbours(2))

	// the keyword is edited out of the note file
	_, err = folder.Write(core.Note{ID: 2, Title: "Meiosis", Difficulty: 2}, nil)
	require.NoError(t, err)

	RebuildOnChange(a.Engine)(ctx, []notesdir.Change{{Path: "meiosis.md", Op: notesdir.OpWrite}})
	assert.Empty(t, a.Engine.Neighbours(2))
	assert.Empty(t, a.Engine.MinimumSpanningTree())
}

func TestRebuildOnChangeKeepsGraphOnStoreError(t *testing.T) {
	ctx := context.Background()
	a, _ := openNotesApp(t,
		core.Note{ID: 1, Title: "Mitosis", Difficulty: 1},
		core.Note{ID: 2, Title: "Meiosis", Keywords: []string{"mitosis"}, Difficulty: 2},
	)
	_, err := a.Engine.BuildFromStore(ctx, true)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	RebuildOnChange(a.Engine)(cancelled, nil)
	assert.Equal(t, []core.NoteID{1}, a.Engine.Neighbours(2))
}

func TestWatchNotes(t *testing.T) {
	a, folder := openNotesApp(t,
		core.Note{ID: 1, Title: "Mitosis", Difficulty: 1},
		core.Note{ID: 2, Title: "Meiosis", Keywords: []string{"mitosis"}, Difficulty: 2},
	)
	_, err := a.Engine.BuildFromStore(context.Background(), true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.WatchNotes(ctx) }()

	// give the watcher time to register the folder
	time.Sleep(100 * time.Millisecond)
	_, err = folder.Write(core.Note{ID: 2, Title: "Meiosis", Difficulty: 2}, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(a.Engine.Neighbours(2)) == 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchNotesWithoutFolder(t *testing.T) {
	a := &App{Stores: &store.Stores{}}
	assert.ErrorIs(t, a.WatchNotes(context.Background()), ErrNoNotesDir)
}
