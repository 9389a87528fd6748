package revision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/mindgraph/internal/mindgraph/collections"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/storage"
)

func openQueue(t *testing.T, backend storage.Backend, opts Options) *Queue {
	t.Helper()
	q, err := Open(backend, opts)
	require.NoError(t, err)
	return q
}

func mustDequeue(t *testing.T, q *Queue) (core.NoteID, bool) {
	t.Helper()
	id, ok, err := q.Dequeue()
	require.NoError(t, err)
	return id, ok
}

func TestQueue_FIFOLaw(t *testing.T) {
	q := openQueue(t, storage.NewMemoryBackend(), DefaultOptions())

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))

	id, ok := mustDequeue(t, q)
	assert.True(t, ok)
	assert.Equal(t, core.NoteID(1), id)
	id, ok = mustDequeue(t, q)
	assert.True(t, ok)
	assert.Equal(t, core.NoteID(2), id)
	_, ok = mustDequeue(t, q)
	assert.False(t, ok)
}

func TestQueue_DequeueSurvivesRestart(t *testing.T) {
	backend, err := storage.NewFileBackend(t.TempDir(), false)
	require.NoError(t, err)
	defer backend.Close()

	q := openQueue(t, backend, DefaultOptions())
	_, err = q.Fill([]core.NoteID{3, 1, 4})
	require.NoError(t, err)
	id, _ := mustDequeue(t, q)
	assert.Equal(t, core.NoteID(3), id)

	// no Flush: the journal alone must carry the dequeue
	reopened := openQueue(t, backend, DefaultOptions())
	assert.Equal(t, []core.NoteID{1, 4}, reopened.Items())
	p, ok := reopened.Peek()
	assert.True(t, ok)
	assert.Equal(t, core.NoteID(1), p)
}

func TestQueue_CompactsAfterThreshold(t *testing.T) {
	backend := storage.NewMemoryBackend()
	q := openQueue(t, backend, Options{CompactEvery: 3})

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	assert.Equal(t, 2, q.Pending())
	require.NoError(t, q.Enqueue(3))
	assert.Equal(t, 0, q.Pending())

	journal, err := backend.ReadJournal(storage.KindRevision.String())
	require.NoError(t, err)
	assert.Empty(t, journal)

	reopened := openQueue(t, backend, Options{CompactEvery: 3})
	assert.Equal(t, []core.NoteID{1, 2, 3}, reopened.Items())
}

func TestQueue_CorruptSnapshotStartsEmpty(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.WriteSnapshot(storage.KindRevision.String(), []byte("not a snapshot")))

	q := openQueue(t, backend, DefaultOptions())
	assert.True(t, q.IsEmpty())

	// the bad snapshot was replaced
	data, err := backend.ReadSnapshot(storage.KindRevision.String())
	require.NoError(t, err)
	_, _, err = storage.DecodeSnapshot(storage.KindRevision, data)
	assert.NoError(t, err)
}

func TestQueue_Capacity(t *testing.T) {
	q := openQueue(t, storage.NewMemoryBackend(), Options{Capacity: 2})
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	assert.ErrorIs(t, q.Enqueue(3), collections.ErrFull)

	require.NoError(t, q.Clear())
	n, err := q.Fill([]core.NoteID{7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []core.NoteID{7, 8}, q.Items())
}

func TestPrepareNextNote(t *testing.T) {
	store := core.NoteStoreFunc(func(context.Context) ([]core.Note, error) {
		return []core.Note{
			{ID: 10, Difficulty: 1},
			{ID: 11, Difficulty: 2},
			{ID: 0, Difficulty: 5},
			{ID: 12, Difficulty: 5},
		}, nil
	})
	ctx := context.Background()

	t.Run("path first", func(t *testing.T) {
		q := openQueue(t, storage.NewMemoryBackend(), DefaultOptions())
		ok, err := q.PrepareNextNote(ctx, func() []core.NoteID { return []core.NoteID{3, 1} }, store)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []core.NoteID{3, 1}, q.Items())
	})

	t.Run("fallback filters by difficulty", func(t *testing.T) {
		q := openQueue(t, storage.NewMemoryBackend(), DefaultOptions())
		ok, err := q.PrepareNextNote(ctx, func() []core.NoteID { return nil }, store)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []core.NoteID{11, 12}, q.Items())
	})

	t.Run("only refills when empty", func(t *testing.T) {
		q := openQueue(t, storage.NewMemoryBackend(), DefaultOptions())
		require.NoError(t, q.Enqueue(99))
		called := false
		ok, err := q.PrepareNextNote(ctx, func() []core.NoteID { called = true; return []core.NoteID{1} }, store)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, called)
		assert.Equal(t, []core.NoteID{99}, q.Items())
	})

	t.Run("store failure", func(t *testing.T) {
		q := openQueue(t, storage.NewMemoryBackend(), DefaultOptions())
		failing := core.NoteStoreFunc(func(context.Context) ([]core.Note, error) {
			return nil, errors.New("connection refused")
		})
		ok, err := q.PrepareNextNote(ctx, nil, failing)
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("nothing available", func(t *testing.T) {
		q := openQueue(t, storage.NewMemoryBackend(), DefaultOptions())
		ok, err := q.PrepareNextNote(ctx, nil, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
