package notesdir

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
)

// Op is the kind of change seen on a note file
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one note file event
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// ChangeHandler receives a debounced, deduplicated batch of changes
type ChangeHandler func(ctx context.Context, changes []Change)

// DefaultDebounce is how long the watcher waits for further events before
// delivering a batch
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to note files in a folder
type Watcher struct {
	dir      string
	debounce time.Duration
	handler  ChangeHandler
	watcher  *fsnotify.Watcher
}

// NewWatcher watches dir. debounce <= 0 uses DefaultDebounce.
func NewWatcher(dir string, debounce time.Duration, handler ChangeHandler) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		handler:  handler,
		watcher:  fw,
	}, nil
}

// Run delivers batches until ctx is done, then closes the watcher.
// A pending batch is delivered before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		batch  []Change
		timer  *time.Timer
		timerC <-chan time.Time
	)
	flush := func(ctx context.Context) {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(batch) == 0 {
			return
		}
		changes := dedupe(batch)
		batch = nil
		if w.handler != nil {
			w.handler(ctx, changes)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx))
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				flush(ctx)
				return nil
			}
			if !isNoteFile(event.Name) {
				continue
			}
			batch = append(batch, Change{Path: event.Name, Op: convertOp(event.Op), Time: time.Now()})
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			flush(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				flush(ctx)
				return nil
			}
			logger.Warn("notes watcher: %v", err)
		}
	}
}

func isNoteFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return filepath.Ext(base) == Ext
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

// dedupe keeps the last change per path, ordered by first appearance
func dedupe(changes []Change) []Change {
	index := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if i, ok := index[c.Path]; ok {
			out[i] = c
			continue
		}
		index[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
