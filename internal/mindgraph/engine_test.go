package mindgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/mindgraph/internal/config"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/plan"
	"github.com/systemshift/mindgraph/internal/mindgraph/storage"
)

var biology = []core.Note{
	{ID: 1, Title: "Cell", Keywords: []string{"mitosis"}, Difficulty: 1},
	{ID: 2, Title: "Mitosis", Keywords: []string{"chromosomes"}, Difficulty: 2},
	{ID: 3, Title: "Chromosome", Difficulty: 3},
	{ID: 4, Title: "Ecology", Keywords: []string{"biome"}, Difficulty: 4},
}

func staticStore(notes []core.Note) core.NoteStore {
	return core.NoteStoreFunc(func(context.Context) ([]core.Note, error) {
		return notes, nil
	})
}

func openEngine(t *testing.T, backend storage.Backend, store core.NoteStore, opts Options) *Engine {
	t.Helper()
	e, err := Open(backend, store, opts)
	require.NoError(t, err)
	return e
}

type recordedOpen struct {
	id        core.NoteID
	sessionID string
}

type fakeRecorder struct {
	opens []recordedOpen
}

func (f *fakeRecorder) RecordOpen(_ context.Context, note core.Note, sessionID string) error {
	f.opens = append(f.opens, recordedOpen{id: note.ID, sessionID: sessionID})
	return nil
}

type fakeExporter struct {
	edges []core.Edge
}

func (f *fakeExporter) SyncLinks(_ context.Context, edges []core.Edge) error {
	f.edges = edges
	return nil
}

func TestEngine_BuildFromStore(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, storage.NewMemoryBackend(), staticStore(biology), DefaultOptions())
	exporter := &fakeExporter{}
	e.SetLinkExporter(exporter)

	result, err := e.BuildFromStore(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Notes)
	assert.Equal(t, 2, result.Inferred)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 3, result.Nodes)

	assert.Equal(t, []core.NoteID{2}, e.Neighbours(1))
	assert.Equal(t, []core.NoteID{3}, e.Neighbours(2))
	assert.Empty(t, e.Neighbours(4))
	assert.NotNil(t, e.Neighbours(4))

	// every note is in the catalog even when it has no edges
	n, ok := e.Note(4)
	require.True(t, ok)
	assert.Equal(t, "Ecology", n.Title)

	assert.Equal(t, []core.Edge{{From: 1, To: 2}, {From: 2, To: 3}}, exporter.edges)

	forest := e.MinimumSpanningTree()
	assert.Len(t, forest, 2)

	start, path, ok := e.DefaultStudyPath()
	require.True(t, ok)
	assert.Equal(t, core.NoteID(1), start)
	assert.Equal(t, []core.NoteID{1, 2, 3}, path)
	assert.Equal(t, []core.NoteID{3, 2, 1}, e.StudyPath(3))
	assert.Empty(t, e.StudyPath(99))
}

func TestEngine_RebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, storage.NewMemoryBackend(), staticStore(biology), DefaultOptions())

	_, err := e.BuildFromStore(ctx, true)
	require.NoError(t, err)
	before := e.Snapshot()

	result, err := e.BuildFromStore(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, before, e.Snapshot())

	// a manual edge survives an incremental build but not a reset
	_, err = e.CreateEdge(3, 1)
	require.NoError(t, err)
	_, err = e.BuildFromStore(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []core.NoteID{1}, e.Neighbours(3))

	_, err = e.BuildFromStore(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, e.Neighbours(3))
}

func TestEngine_BuildFailureLeavesGraphUntouched(t *testing.T) {
	ctx := context.Background()
	calls := 0
	store := core.NoteStoreFunc(func(context.Context) ([]core.Note, error) {
		calls++
		if calls > 1 {
			return nil, core.ErrStoreUnavailable
		}
		return biology, nil
	})
	e := openEngine(t, storage.NewMemoryBackend(), store, DefaultOptions())

	_, err := e.BuildFromStore(ctx, true)
	require.NoError(t, err)
	before := e.Snapshot()

	_, err = e.BuildFromStore(ctx, true)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Equal(t, before, e.Snapshot())
}

func TestEngine_BuildWithoutStore(t *testing.T) {
	e := openEngine(t, storage.NewMemoryBackend(), nil, DefaultOptions())
	_, err := e.BuildFromStore(context.Background(), true)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestEngine_GraphMutations(t *testing.T) {
	e := openEngine(t, storage.NewMemoryBackend(), nil, DefaultOptions())

	added, err := e.AddNote(core.Note{ID: 1, Title: "Cell"})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = e.AddNote(core.Note{ID: 1, Title: "Cell biology"})
	require.NoError(t, err)
	assert.False(t, added)
	n, _ := e.Note(1)
	assert.Equal(t, "Cell biology", n.Title)

	created, err := e.CreateEdge(1, 2)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = e.CreateEdge(1, 2)
	require.NoError(t, err)
	assert.False(t, created)

	removed, err := e.RemoveEdge(1, 2)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = e.RemoveEdge(1, 2)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = e.CreateEdge(2, 1)
	require.NoError(t, err)
	removed, err = e.RemoveNote(1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, e.Neighbours(2))
	_, ok := e.Note(1)
	assert.False(t, ok)

	removed, err = e.RemoveNote(42)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = e.AddNote(core.Note{Title: "draft"})
	assert.ErrorIs(t, err, core.ErrTransientNote)
	_, err = e.CreateEdge(0, 2)
	assert.ErrorIs(t, err, core.ErrTransientNote)
}

// flakyBackend counts journal appends and fails them on demand
type flakyBackend struct {
	storage.Backend
	appends    int
	failAppend bool
}

func (b *flakyBackend) Append(name string, record []byte) error {
	if b.failAppend {
		return errors.New("disk full")
	}
	b.appends++
	return b.Backend.Append(name, record)
}

func TestEngine_AddNoteCommitsAtomically(t *testing.T) {
	backend := &flakyBackend{Backend: storage.NewMemoryBackend()}
	e := openEngine(t, backend, nil, DefaultOptions())

	// catalog insert and node insert share one record
	_, err := e.AddNote(core.Note{ID: 1, Title: "Cell"})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.appends)

	backend.failAppend = true
	_, err = e.AddNote(core.Note{ID: 2, Title: "Mitosis"})
	require.Error(t, err)
	_, ok := e.Note(2)
	assert.False(t, ok)
	assert.Len(t, e.Snapshot().Nodes, 1)

	backend.failAppend = false
	reopened := openEngine(t, backend, nil, DefaultOptions())
	assert.Equal(t, e.Snapshot(), reopened.Snapshot())
}

func TestEngine_StateSurvivesReopen(t *testing.T) {
	backend := storage.NewMemoryBackend()
	opts := DefaultOptions()
	opts.CompactEvery = 3

	e := openEngine(t, backend, nil, opts)
	_, err := e.AddNote(core.Note{ID: 1, Title: "Cell", Difficulty: 1})
	require.NoError(t, err)
	_, err = e.AddNote(core.Note{ID: 2, Title: "Mitosis", Difficulty: 2})
	require.NoError(t, err)
	_, err = e.CreateEdge(1, 2)
	require.NoError(t, err)
	require.NoError(t, e.Enqueue(2))
	_, err = e.PlanAdd(plan.Entry{ID: 1})
	require.NoError(t, err)

	// reopen from snapshot plus journal without flushing
	reopened := openEngine(t, backend, nil, opts)
	assert.Equal(t, e.Snapshot(), reopened.Snapshot())
	assert.Equal(t, []core.NoteID{2}, reopened.RevisionItems())
	assert.Equal(t, []plan.Entry{{ID: 1, Title: "Cell"}}, reopened.PlanList())

	require.NoError(t, reopened.Close())
	again := openEngine(t, backend, nil, opts)
	assert.Equal(t, e.Snapshot(), again.Snapshot())
}

func TestEngine_NextNoteFollowsStudyPath(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, storage.NewMemoryBackend(), staticStore(biology), DefaultOptions())
	_, err := e.BuildFromStore(ctx, true)
	require.NoError(t, err)

	var got []core.NoteID
	for range 3 {
		note, ok, err := e.NextNote(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		got = append(got, note.ID)
	}
	assert.Equal(t, []core.NoteID{1, 2, 3}, got)

	// the queue refills from the path once drained
	ready, err := e.PrepareNextNote(ctx)
	require.NoError(t, err)
	assert.True(t, ready)
	head, _ := e.PeekRevision()
	assert.Equal(t, core.NoteID(1), head)
}

func TestEngine_RevisionFallback(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, storage.NewMemoryBackend(), nil, DefaultOptions())

	ready, err := e.PrepareNextNote(ctx)
	require.NoError(t, err)
	assert.False(t, ready)

	e.SetFallback(staticStore(biology))
	ready, err = e.PrepareNextNote(ctx)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, []core.NoteID{2, 3, 4}, e.RevisionItems())

	note, ok, err := e.NextNote(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	// not in the catalog: only the id is known
	assert.Equal(t, core.Note{ID: 2}, note)

	id, ok, err := e.Dequeue()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, core.NoteID(3), id)
	assert.True(t, e.HasNotes())

	require.NoError(t, e.ClearRevision())
	assert.False(t, e.HasNotes())
	_, ok, err = e.Dequeue()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_RevisionFallbackStoreError(t *testing.T) {
	e := openEngine(t, storage.NewMemoryBackend(), nil, DefaultOptions())
	e.SetFallback(core.NoteStoreFunc(func(context.Context) ([]core.Note, error) {
		return nil, errors.New("folder vanished")
	}))
	_, err := e.PrepareNextNote(context.Background())
	assert.Error(t, err)
}

func TestEngine_OpenNoteAndHistory(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.HistoryCapacity = 2
	e := openEngine(t, storage.NewMemoryBackend(), staticStore(biology), opts)
	_, err := e.BuildFromStore(ctx, true)
	require.NoError(t, err)
	recorder := &fakeRecorder{}
	e.SetSessionRecorder(recorder)

	_, err = e.OpenNote(ctx, 1)
	require.NoError(t, err)
	note, err := e.OpenNote(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Mitosis", note.Title)

	_, err = e.OpenNote(ctx, 3)
	assert.ErrorIs(t, err, core.ErrHistoryFull)
	assert.Equal(t, []core.NoteID{1, 2}, e.HistoryItems())

	_, err = e.OpenNote(ctx, 99)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.Len(t, recorder.opens, 2)
	assert.Equal(t, e.SessionID(), recorder.opens[0].sessionID)

	prev, ok := e.Back()
	require.True(t, ok)
	assert.Equal(t, core.NoteID(1), prev.NoteID)
	next, ok := e.Forward()
	require.True(t, ok)
	assert.Equal(t, core.NoteID(2), next.NoteID)
	assert.Len(t, e.Visits(), 2)

	top, ok := e.PeekHistory()
	require.True(t, ok)
	assert.Equal(t, core.NoteID(2), top)
	popped, ok := e.Pop()
	require.True(t, ok)
	assert.Equal(t, core.NoteID(2), popped)

	require.NoError(t, e.Push(4))
	require.NoError(t, e.SwitchMode(ModeRevise))
	assert.Equal(t, ModeRevise, e.Mode())
	assert.Empty(t, e.HistoryItems())
	assert.Error(t, e.SwitchMode(Mode("sleep")))

	e.ClearHistory()
	_, ok = e.Pop()
	assert.False(t, ok)
}

func TestEngine_Plan(t *testing.T) {
	e := openEngine(t, storage.NewMemoryBackend(), nil, DefaultOptions())
	_, err := e.AddNote(core.Note{ID: 7, Title: "Osmosis"})
	require.NoError(t, err)

	added, err := e.PlanAdd(plan.Entry{ID: 7})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = e.PlanAdd(plan.Entry{ID: 7, Title: "anything"})
	require.NoError(t, err)
	assert.False(t, added)
	added, err = e.PlanAdd(plan.Entry{Title: "Diffusion"})
	require.NoError(t, err)
	assert.True(t, added)

	assert.Equal(t, []plan.Entry{{ID: 7, Title: "Osmosis"}, {Title: "Diffusion"}}, e.PlanList())

	removed, err := e.PlanRemove(plan.Entry{Title: "diffusion"})
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, e.PlanClear())
	assert.Empty(t, e.PlanList())
}

func TestEngine_SnapshotAndStats(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, storage.NewMemoryBackend(), staticStore(biology), DefaultOptions())

	empty := e.Snapshot()
	assert.Empty(t, empty.Nodes)
	assert.NotNil(t, empty.Edges)

	_, err := e.BuildFromStore(ctx, true)
	require.NoError(t, err)
	view := e.Snapshot()
	require.Len(t, view.Nodes, 3)
	assert.Equal(t, NodeView{ID: 1, Title: "Cell", Difficulty: 1, Keywords: []string{"mitosis"}, Neighbours: 1}, view.Nodes[0])

	stats := e.Stats()
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 2, stats.Edges)
	assert.Equal(t, 4, stats.Notes)
	assert.Equal(t, ModeBrowse, stats.Mode)
	assert.NotEmpty(t, stats.SessionID)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Graph.PluralTolerant = false
	cfg.History.Capacity = 12
	cfg.Revision.Capacity = 50

	opts := OptionsFromConfig(cfg)
	assert.False(t, opts.Infer.PluralTolerant)
	assert.Equal(t, 12, opts.HistoryCapacity)
	assert.Equal(t, 50, opts.Revision.Capacity)
	assert.Equal(t, cfg.Persistence.CompactEvery, opts.CompactEvery)
}

func TestOpenBackend(t *testing.T) {
	for _, kind := range []string{"file", "badger", "memory"} {
		t.Run(kind, func(t *testing.T) {
			cfg := config.Default()
			cfg.DataDir = t.TempDir()
			cfg.Persistence.Backend = kind
			cfg.Persistence.GCInterval = 0

			backend, err := OpenBackend(cfg)
			require.NoError(t, err)
			e := openEngine(t, backend, nil, OptionsFromConfig(cfg))
			_, err = e.AddNote(core.Note{ID: 1, Title: "Cell"})
			require.NoError(t, err)
			require.NoError(t, e.Close())
		})
	}

	cfg := config.Default()
	cfg.Persistence.Backend = "tape"
	_, err := OpenBackend(cfg)
	assert.Error(t, err)
}
