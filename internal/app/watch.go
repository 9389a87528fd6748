package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/systemshift/mindgraph/internal/mindgraph"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/mindgraph/notesdir"
)

// ErrNoNotesDir is returned by WatchNotes when no notes folder is configured
var ErrNoNotesDir = errors.New("no notes_dir configured")

// RebuildOnChange rebuilds the graph from the store after note files
// change. Every batch rebuilds from scratch: an edited note may have lost a
// keyword or changed its title, and an incremental build would keep the
// edges it no longer implies.
func RebuildOnChange(engine *mindgraph.Engine) notesdir.ChangeHandler {
	return func(ctx context.Context, changes []notesdir.Change) {
		result, err := engine.BuildFromStore(ctx, true)
		if err != nil {
			logger.Warn("rebuilding after %d changes: %v", len(changes), err)
			return
		}
		logger.Log("rebuilt after %d changes: %d nodes, %d edges", len(changes), result.Nodes, result.Edges)
	}
}

// WatchNotes rebuilds the graph whenever the notes folder changes, until
// ctx is done
func (a *App) WatchNotes(ctx context.Context) error {
	if a.Stores.Folder == nil {
		return ErrNoNotesDir
	}
	dir := a.Stores.Folder.Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating notes folder: %w", err)
	}
	w, err := notesdir.NewWatcher(dir, notesdir.DefaultDebounce, RebuildOnChange(a.Engine))
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Log("watching %s", dir)
	return w.Run(ctx)
}
