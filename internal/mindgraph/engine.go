// Package mindgraph is the study engine. It owns the note graph, the
// revision queue, navigation history and the study plan, and serializes
// every operation on them behind one lock.
package mindgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/graph"
	"github.com/systemshift/mindgraph/internal/mindgraph/history"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/mindgraph/metrics"
	"github.com/systemshift/mindgraph/internal/mindgraph/mst"
	"github.com/systemshift/mindgraph/internal/mindgraph/plan"
	"github.com/systemshift/mindgraph/internal/mindgraph/revision"
	"github.com/systemshift/mindgraph/internal/mindgraph/storage"
	"github.com/systemshift/mindgraph/internal/mindgraph/studypath"
)

// Mode is what the user is doing. Switching modes clears navigation history.
type Mode string

const (
	ModeBrowse Mode = "browse"
	ModeStudy  Mode = "study"
	ModeRevise Mode = "revise"
)

// ParseMode accepts browse, study or revise
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeBrowse, ModeStudy, ModeRevise:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// SessionRecorder logs note opens, typically the SQLite session log
type SessionRecorder interface {
	RecordOpen(ctx context.Context, note core.Note, sessionID string) error
}

// LinkExporter receives the edge set after every rebuild
type LinkExporter interface {
	SyncLinks(ctx context.Context, edges []core.Edge) error
}

// Engine is safe for concurrent use
type Engine struct {
	mu sync.Mutex

	opts     Options
	backend  storage.Backend
	store    core.NoteStore
	fallback core.NoteStore
	sessions SessionRecorder
	links    LinkExporter

	graph    *graph.NoteGraph
	catalog  *core.Catalog
	journal  *storage.Journal
	revision *revision.Queue
	history  *history.Navigation
	session  *history.Session
	plan     *plan.List
	mode     Mode
}

// Open loads the persisted graph, revision queue and study plan from
// backend. The engine owns backend and closes it in Close. store is read
// by BuildFromStore and may be nil.
func Open(backend storage.Backend, store core.NoteStore, opts Options) (*Engine, error) {
	e := &Engine{
		opts:    opts,
		backend: backend,
		store:   store,
		graph:   graph.New(),
		catalog: core.NewCatalog(),
		journal: storage.NewJournal(backend, storage.KindGraph, opts.CompactEvery),
		history: history.NewNavigation(opts.HistoryCapacity),
		session: history.NewSession(),
		mode:    ModeBrowse,
	}

	degraded, err := e.journal.Load(e.restoreGraph, e.replayGraph)
	if err != nil {
		return nil, err
	}
	if degraded {
		if err := e.compactGraph(); err != nil {
			return nil, fmt.Errorf("rewriting graph snapshot: %w", err)
		}
	}

	if e.revision, err = revision.Open(backend, opts.Revision); err != nil {
		return nil, fmt.Errorf("opening revision queue: %w", err)
	}
	if e.plan, err = plan.Open(backend, opts.CompactEvery); err != nil {
		return nil, fmt.Errorf("opening study plan: %w", err)
	}

	e.observeGraph()
	logger.Log("engine opened: %d notes, %d edges, %d queued for revision, %d planned",
		e.graph.Len(), e.graph.EdgeCount(), e.revision.Size(), e.plan.Len())
	return e, nil
}

// SetFallback sets the notes queued for revision when no study path exists
func (e *Engine) SetFallback(store core.NoteStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = store
}

// SetSessionRecorder sets the log that Open reports to
func (e *Engine) SetSessionRecorder(r SessionRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = r
}

// SetLinkExporter sets where rebuilt edges are exported
func (e *Engine) SetLinkExporter(x LinkExporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.links = x
}

func (e *Engine) restoreGraph(body []byte) error {
	g, cat, err := graph.DecodeSnapshot(body)
	if err != nil {
		return err
	}
	e.graph, e.catalog = g, cat
	return nil
}

func (e *Engine) replayGraph(payload []byte) error {
	m, err := graph.DecodeMutation(payload)
	if err != nil {
		return err
	}
	m.Apply(e.graph, e.catalog)
	return nil
}

func (e *Engine) compactGraph() error {
	return e.journal.Compact(graph.EncodeSnapshot(e.graph, e.catalog))
}

// commitGraph journals muts as one record and applies them only once the
// record is durable
func (e *Engine) commitGraph(muts ...graph.Mutation) error {
	record := graph.Batch(muts...)
	compact, err := e.journal.Append(record.Encode())
	if err != nil {
		return fmt.Errorf("journaling %s: %w", record.Op, err)
	}
	record.Apply(e.graph, e.catalog)
	e.observeGraph()
	if compact {
		if err := e.compactGraph(); err != nil {
			logger.Warn("compacting graph journal: %v", err)
		}
	}
	return nil
}

func (e *Engine) observeGraph() {
	metrics.GraphNodes.Set(float64(e.graph.Len()))
	metrics.GraphEdges.Set(float64(e.graph.EdgeCount()))
}

// AddNote records note in the catalog and adds it to the graph. It reports
// whether the graph gained a node.
func (e *Engine) AddNote(note core.Note) (bool, error) {
	if note.ID.Transient() {
		return false, core.ErrTransientNote
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	added := !e.graph.ContainsNote(note.ID)
	muts := []graph.Mutation{{Op: graph.OpPutNote, Note: note}}
	if added {
		muts = append(muts, graph.Mutation{Op: graph.OpAddNote, From: note.ID})
	}
	if err := e.commitGraph(muts...); err != nil {
		return false, err
	}
	return added, nil
}

// RemoveNote drops a note from the graph, every neighbour list and the
// catalog. It reports whether anything was removed.
func (e *Engine) RemoveNote(id core.NoteID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var muts []graph.Mutation
	if e.graph.ContainsNote(id) {
		muts = append(muts, graph.Mutation{Op: graph.OpRemoveNote, From: id})
	}
	if _, ok := e.catalog.Get(id); ok {
		muts = append(muts, graph.Mutation{Op: graph.OpDropNote, From: id})
	}
	if len(muts) == 0 {
		return false, nil
	}
	return true, e.commitGraph(muts...)
}

// CreateEdge adds from→to, adding missing endpoints. It reports whether the
// edge is new.
func (e *Engine) CreateEdge(from, to core.NoteID) (bool, error) {
	if from.Transient() || to.Transient() {
		return false, core.ErrTransientNote
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.graph.ContainsEdge(from, to) {
		return false, nil
	}
	return true, e.commitGraph(graph.Mutation{Op: graph.OpCreateEdge, From: from, To: to})
}

// RemoveEdge deletes from→to. It reports whether the edge existed.
func (e *Engine) RemoveEdge(from, to core.NoteID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.ContainsEdge(from, to) {
		return false, nil
	}
	return true, e.commitGraph(graph.Mutation{Op: graph.OpRemoveEdge, From: from, To: to})
}

// Neighbours returns the out-neighbours of id, empty when id is unknown
func (e *Engine) Neighbours(id core.NoteID) []core.NoteID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Neighbours(id)
}

// Note returns the catalog entry for id
func (e *Engine) Note(id core.NoteID) (core.Note, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Get(id)
}

// Notes returns every catalog entry in insertion order
func (e *Engine) Notes() []core.Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Notes()
}

// BuildResult summarizes a rebuild
type BuildResult struct {
	Notes    int           `json:"notes"`
	Inferred int           `json:"inferred"`
	Added    int           `json:"added"`
	Nodes    int           `json:"nodes"`
	Edges    int           `json:"edges"`
	Duration time.Duration `json:"duration"`
}

// BuildFromStore infers edges from every note in the store. With reset the
// graph and catalog start empty, otherwise only missing edges are added.
// Only notes that take part in an inferred edge become graph nodes; every
// note is recorded in the catalog. On any error the graph is left as it was.
func (e *Engine) BuildFromStore(ctx context.Context, reset bool) (BuildResult, error) {
	if e.store == nil {
		return BuildResult{}, fmt.Errorf("building graph: %w", core.ErrStoreUnavailable)
	}
	start := time.Now()

	notes, err := e.store.FindAll(ctx)
	if err != nil {
		metrics.GraphBuilds.WithLabelValues("error").Inc()
		return BuildResult{}, fmt.Errorf("building graph: %w", err)
	}
	inferred := graph.Infer(notes, e.opts.Infer)

	e.mu.Lock()
	var (
		g   *graph.NoteGraph
		cat *core.Catalog
	)
	if reset {
		g, cat = graph.New(), core.NewCatalog()
	} else {
		g, cat = e.graph.Clone(), e.catalog.Clone()
	}
	for _, n := range notes {
		if !n.ID.Transient() {
			cat.Put(n)
		}
	}
	added := graph.Apply(g, inferred)

	// the rebuilt state replaces the snapshot before it becomes visible
	if err := e.journal.Compact(graph.EncodeSnapshot(g, cat)); err != nil {
		e.mu.Unlock()
		metrics.GraphBuilds.WithLabelValues("error").Inc()
		return BuildResult{}, fmt.Errorf("saving rebuilt graph: %w", err)
	}
	e.graph, e.catalog = g, cat
	e.observeGraph()

	result := BuildResult{
		Notes:    len(notes),
		Inferred: len(inferred),
		Added:    added,
		Nodes:    g.Len(),
		Edges:    g.EdgeCount(),
		Duration: time.Since(start),
	}
	links, edges := e.links, g.Edges()
	e.mu.Unlock()

	metrics.GraphBuilds.WithLabelValues("ok").Inc()
	metrics.GraphBuildDuration.Observe(result.Duration.Seconds())
	metrics.InferredEdges.Add(float64(added))
	logger.Log("graph built from %d notes: %d edges inferred, %d new", result.Notes, result.Inferred, result.Added)

	if links != nil {
		if err := links.SyncLinks(ctx, edges); err != nil {
			logger.Warn("exporting links: %v", err)
		}
	}
	return result, nil
}

// MinimumSpanningTree returns the spanning forest in selection order
func (e *Engine) MinimumSpanningTree() []core.WeightedEdge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return mst.MinimumSpanningTree(e.graph, e.catalog)
}

// StudyPath walks the spanning forest depth first from start. An unknown
// start yields an empty path; a node without spanning edges yields itself.
func (e *Engine) StudyPath(start core.NoteID) []core.NoteID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.studyPath(start)
}

func (e *Engine) studyPath(start core.NoteID) []core.NoteID {
	forest := mst.MinimumSpanningTree(e.graph, e.catalog)
	return studypath.ForGraph(e.graph, forest).Path(start)
}

// DefaultStudyPath starts from the easiest note. ok is false for an empty graph.
func (e *Engine) DefaultStudyPath() (start core.NoteID, path []core.NoteID, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.defaultStudyPath()
}

func (e *Engine) defaultStudyPath() (core.NoteID, []core.NoteID, bool) {
	start, ok := studypath.DefaultStart(e.graph, e.catalog)
	if !ok {
		return 0, []core.NoteID{}, false
	}
	return start, e.studyPath(start), true
}

// Enqueue adds id to the revision queue
func (e *Engine) Enqueue(id core.NoteID) error {
	if id.Transient() {
		return core.ErrTransientNote
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.revision.Enqueue(id); err != nil {
		return fmt.Errorf("queueing note %d: %w", id, err)
	}
	return nil
}

// Dequeue removes the next note to revise. ok is false when the queue is empty.
func (e *Engine) Dequeue() (core.NoteID, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok, err := e.revision.Dequeue()
	if ok {
		metrics.RevisionDequeues.WithLabelValues("manual").Inc()
	}
	return id, ok, err
}

// PeekRevision returns the next note to revise without removing it
func (e *Engine) PeekRevision() (core.NoteID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision.Peek()
}

// HasNotes reports whether a note is queued for revision
func (e *Engine) HasNotes() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision.HasNotes()
}

// RevisionItems returns the queue from head to tail
func (e *Engine) RevisionItems() []core.NoteID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision.Items()
}

// ClearRevision empties the revision queue
func (e *Engine) ClearRevision() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision.Clear()
}

// PrepareNextNote refills an empty revision queue from the default study
// path, or from the fallback notes when there is no path. It reports
// whether a note is ready.
func (e *Engine) PrepareNextNote(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prepareNextNote(ctx)
}

func (e *Engine) prepareNextNote(ctx context.Context) (bool, error) {
	path := func() []core.NoteID {
		_, p, _ := e.defaultStudyPath()
		return p
	}
	return e.revision.PrepareNextNote(ctx, path, e.fallback)
}

// NextNote prepares the queue and dequeues from it. Notes missing from the
// catalog come back with only their id set.
func (e *Engine) NextNote(ctx context.Context) (core.Note, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ready, err := e.prepareNextNote(ctx)
	if err != nil || !ready {
		return core.Note{}, false, err
	}
	id, ok, err := e.revision.Dequeue()
	if err != nil || !ok {
		return core.Note{}, false, err
	}
	metrics.RevisionDequeues.WithLabelValues("next").Inc()

	note, found := e.catalog.Get(id)
	if !found {
		note = core.Note{ID: id}
	}
	return note, true, nil
}

// Push records id on the navigation history
func (e *Engine) Push(id core.NoteID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Push(id)
}

// Pop returns to the previous note
func (e *Engine) Pop() (core.NoteID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Pop()
}

// PeekHistory returns the most recent note without removing it
func (e *Engine) PeekHistory() (core.NoteID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Peek()
}

// ClearHistory empties the navigation history
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
}

// HistoryItems returns the navigation history, oldest first
func (e *Engine) HistoryItems() []core.NoteID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Items()
}

// OpenNote marks a note as opened: it is pushed on the navigation history,
// recorded in the session and reported to the session log. A full history
// rejects the open.
func (e *Engine) OpenNote(ctx context.Context, id core.NoteID) (core.Note, error) {
	e.mu.Lock()
	note, ok := e.catalog.Get(id)
	if !ok {
		e.mu.Unlock()
		return core.Note{}, fmt.Errorf("note %d: %w", id, core.ErrNotFound)
	}
	if err := e.history.Push(id); err != nil {
		e.mu.Unlock()
		return core.Note{}, err
	}
	e.session.Record(note)
	recorder, sessionID := e.sessions, e.session.ID()
	e.mu.Unlock()

	if recorder != nil {
		if err := recorder.RecordOpen(ctx, note, sessionID); err != nil {
			logger.Warn("recording open of note %d: %v", id, err)
		}
	}
	return note, nil
}

// Back moves the session cursor to the previous visit
func (e *Engine) Back() (history.Visit, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Prev()
}

// Forward moves the session cursor to the next visit
func (e *Engine) Forward() (history.Visit, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Next()
}

// Visits returns the session visits, oldest first
func (e *Engine) Visits() []history.Visit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.All()
}

// SessionID identifies this engine's session in the session log
func (e *Engine) SessionID() string {
	return e.session.ID()
}

// Mode returns the current mode
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SwitchMode changes mode and clears the navigation history
func (e *Engine) SwitchMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
	e.history.Clear()
	return nil
}

// PlanAdd appends entry to the study plan unless the note is already
// planned. A missing title is filled in from the catalog.
func (e *Engine) PlanAdd(entry plan.Entry) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry.Title == "" && !entry.ID.Transient() {
		entry.Title = e.catalog.Title(entry.ID)
	}
	return e.plan.Add(entry)
}

// PlanRemove removes the planned note matching entry
func (e *Engine) PlanRemove(entry plan.Entry) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plan.Remove(entry)
}

// PlanList returns the study plan in insertion order
func (e *Engine) PlanList() []plan.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plan.List()
}

// PlanClear empties the study plan
func (e *Engine) PlanClear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plan.Clear()
}

// NodeView is one graph node with its catalog data
type NodeView struct {
	ID         core.NoteID `json:"id"`
	Title      string      `json:"title"`
	Difficulty int         `json:"difficulty"`
	Keywords   []string    `json:"keywords"`
	Neighbours int         `json:"neighbours"`
}

// GraphView is the whole graph for export
type GraphView struct {
	Nodes []NodeView  `json:"nodes"`
	Edges []core.Edge `json:"edges"`
}

// Snapshot returns the graph in node order
func (e *Engine) Snapshot() GraphView {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.graph.Notes()
	view := GraphView{
		Nodes: make([]NodeView, 0, len(ids)),
		Edges: e.graph.Edges(),
	}
	for _, id := range ids {
		n, _ := e.catalog.Get(id)
		view.Nodes = append(view.Nodes, NodeView{
			ID:         id,
			Title:      n.Title,
			Difficulty: n.Difficulty,
			Keywords:   n.Keywords,
			Neighbours: len(e.graph.Neighbours(id)),
		})
	}
	if view.Edges == nil {
		view.Edges = []core.Edge{}
	}
	return view
}

// Stats is a summary of the engine state
type Stats struct {
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	Notes     int    `json:"notes"`
	Revision  int    `json:"revision"`
	History   int    `json:"history"`
	Planned   int    `json:"planned"`
	Mode      Mode   `json:"mode"`
	SessionID string `json:"session_id"`
}

// Stats returns counts for every structure
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Nodes:     e.graph.Len(),
		Edges:     e.graph.EdgeCount(),
		Notes:     e.catalog.Len(),
		Revision:  e.revision.Size(),
		History:   e.history.Len(),
		Planned:   e.plan.Len(),
		Mode:      e.mode,
		SessionID: e.session.ID(),
	}
}

// Flush writes a snapshot of every persisted structure and truncates
// their journals
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flush()
}

func (e *Engine) flush() error {
	return errors.Join(
		e.compactGraph(),
		e.revision.Flush(),
		e.plan.Flush(),
	)
}

// Close flushes and closes the backend
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(e.flush(), e.backend.Close())
}
