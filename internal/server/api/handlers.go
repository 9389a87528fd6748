package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/systemshift/mindgraph/internal/mindgraph"
	"github.com/systemshift/mindgraph/internal/mindgraph/collections"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/mindgraph/plan"
	"github.com/systemshift/mindgraph/internal/store"
)

// Server holds the HTTP server dependencies
type Server struct {
	engine   *mindgraph.Engine
	sessions store.SessionLog
	validate *validator.Validate
}

// New creates a new API server. sessions may be nil when the store keeps no
// session log.
func New(engine *mindgraph.Engine, sessions store.SessionLog) *Server {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{engine: engine, sessions: sessions, validate: v}
}

// Routes mounts the API under r
func (s *Server) Routes(r chi.Router) {
	r.Get("/graph", s.GetGraph)
	r.Post("/graph/build", s.BuildGraph)
	r.Get("/graph/mst", s.MinimumSpanningTree)
	r.Get("/graph/path", s.StudyPath)

	r.Post("/notes", s.AddNote)
	r.Get("/notes/{id}", s.GetNote)
	r.Delete("/notes/{id}", s.RemoveNote)
	r.Get("/notes/{id}/neighbours", s.Neighbours)
	r.Post("/notes/{id}/open", s.OpenNote)

	r.Post("/edges", s.CreateEdge)
	r.Delete("/edges/{from}/{to}", s.RemoveEdge)

	r.Get("/revision", s.ListRevision)
	r.Post("/revision", s.Enqueue)
	r.Post("/revision/next", s.NextNote)
	r.Delete("/revision", s.ClearRevision)

	r.Get("/history", s.ListHistory)
	r.Post("/history", s.PushHistory)
	r.Post("/history/pop", s.PopHistory)
	r.Delete("/history", s.ClearHistory)
	r.Get("/history/sessions", s.SessionHistory)

	r.Post("/mode", s.SwitchMode)

	r.Get("/plan", s.ListPlan)
	r.Post("/plan", s.AddPlan)
	r.Post("/plan/remove", s.RemovePlan)
	r.Delete("/plan", s.ClearPlan)

	r.Post("/flush", s.Flush)
	r.Get("/stats", s.Stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encoding response: %v", err)
	}
}

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrHistoryFull), errors.Is(err, collections.ErrFull):
		return http.StatusConflict
	case errors.Is(err, core.ErrTransientNote), errors.Is(err, store.ErrInvalidSort):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Warn("api: %v", err)
	}
	http.Error(w, err.Error(), status)
}

// decode reads and validates a JSON body
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	return s.decodeBody(w, r, v, false)
}

// decodeOptional is decode for endpoints where the body may be left out
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	return s.decodeBody(w, r, v, true)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
			}
			http.Error(w, strings.Join(msgs, "; "), http.StatusBadRequest)
			return false
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (core.NoteID, bool) {
	id, err := core.ParseNoteID(chi.URLParam(r, param))
	if err != nil || id <= 0 {
		http.Error(w, "invalid "+param+" parameter", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// parsePagination reads limit and offset query parameters
func parsePagination(r *http.Request) (limit int, offset int) {
	limit = 100
	offset = 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// GetGraph handles GET /api/graph
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// BuildGraphRequest is the request body for a rebuild
type BuildGraphRequest struct {
	Reset bool `json:"reset"`
}

// BuildGraph handles POST /api/graph/build. An empty body rebuilds with reset.
func (s *Server) BuildGraph(w http.ResponseWriter, r *http.Request) {
	req := BuildGraphRequest{Reset: true}
	if !s.decodeOptional(w, r, &req) {
		return
	}
	result, err := s.engine.BuildFromStore(r.Context(), req.Reset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// MinimumSpanningTree handles GET /api/graph/mst
func (s *Server) MinimumSpanningTree(w http.ResponseWriter, r *http.Request) {
	forest := s.engine.MinimumSpanningTree()
	total := 0.0
	for _, e := range forest {
		total += e.Weight
	}
	if forest == nil {
		forest = []core.WeightedEdge{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"edges":  forest,
		"weight": total,
		"count":  len(forest),
	})
}

// StudyPath handles GET /api/graph/path?start=ID. Without start the
// easiest note is used.
func (s *Server) StudyPath(w http.ResponseWriter, r *http.Request) {
	var (
		start core.NoteID
		path  []core.NoteID
	)
	if raw := r.URL.Query().Get("start"); raw != "" {
		id, err := core.ParseNoteID(raw)
		if err != nil {
			http.Error(w, "invalid start parameter", http.StatusBadRequest)
			return
		}
		start, path = id, s.engine.StudyPath(id)
	} else {
		start, path, _ = s.engine.DefaultStudyPath()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start": start,
		"path":  path,
	})
}

// AddNoteRequest is the request body for adding a note to the graph
type AddNoteRequest struct {
	ID         core.NoteID `json:"id" validate:"gt=0"`
	Title      string      `json:"title" validate:"required"`
	Keywords   []string    `json:"keywords"`
	Difficulty int         `json:"difficulty" validate:"gte=1,lte=5"`
}

// AddNote handles POST /api/notes
func (s *Server) AddNote(w http.ResponseWriter, r *http.Request) {
	var req AddNoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	added, err := s.engine.AddNote(core.Note{
		ID:         req.ID,
		Title:      req.Title,
		Keywords:   req.Keywords,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"id": req.ID, "added": added})
}

// GetNote handles GET /api/notes/{id}
func (s *Server) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	note, found := s.engine.Note(id)
	if !found {
		writeError(w, fmt.Errorf("note %d: %w", id, core.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RemoveNote handles DELETE /api/notes/{id}
func (s *Server) RemoveNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	removed, err := s.engine.RemoveNote(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, fmt.Errorf("note %d: %w", id, core.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Neighbours handles GET /api/notes/{id}/neighbours
func (s *Server) Neighbours(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"neighbours": s.engine.Neighbours(id),
	})
}

// OpenNote handles POST /api/notes/{id}/open
func (s *Server) OpenNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	note, err := s.engine.OpenNote(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// EdgeRequest is the request body for creating an edge
type EdgeRequest struct {
	From core.NoteID `json:"from" validate:"gt=0"`
	To   core.NoteID `json:"to" validate:"gt=0"`
}

// CreateEdge handles POST /api/edges
func (s *Server) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req EdgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	created, err := s.engine.CreateEdge(req.From, req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"from": req.From, "to": req.To, "created": created})
}

// RemoveEdge handles DELETE /api/edges/{from}/{to}
func (s *Server) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	from, ok := pathID(w, r, "from")
	if !ok {
		return
	}
	to, ok := pathID(w, r, "to")
	if !ok {
		return
	}
	removed, err := s.engine.RemoveEdge(from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, fmt.Errorf("edge %d->%d: %w", from, to, core.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NoteIDRequest is a request body naming one note
type NoteIDRequest struct {
	ID core.NoteID `json:"id" validate:"gt=0"`
}

// ListRevision handles GET /api/revision
func (s *Server) ListRevision(w http.ResponseWriter, r *http.Request) {
	items := s.engine.RevisionItems()
	if items == nil {
		items = []core.NoteID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// Enqueue handles POST /api/revision
func (s *Server) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req NoteIDRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.Enqueue(req.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID})
}

// NextNote handles POST /api/revision/next. It answers 204 when nothing is
// left to revise.
func (s *Server) NextNote(w http.ResponseWriter, r *http.Request) {
	note, ok, err := s.engine.NextNote(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ClearRevision handles DELETE /api/revision
func (s *Server) ClearRevision(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearRevision(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHistory handles GET /api/history
func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request) {
	items := s.engine.HistoryItems()
	if items == nil {
		items = []core.NoteID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"visits": s.engine.Visits(),
	})
}

// PushHistory handles POST /api/history
func (s *Server) PushHistory(w http.ResponseWriter, r *http.Request) {
	var req NoteIDRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.Push(req.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID})
}

// PopHistory handles POST /api/history/pop
func (s *Server) PopHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.engine.Pop()
	if !ok {
		writeError(w, fmt.Errorf("history is empty: %w", core.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

// ClearHistory handles DELETE /api/history
func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

// SessionHistory handles GET /api/history/sessions?sort=newest|oldest|mostused
func (s *Server) SessionHistory(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "the configured store keeps no session log", http.StatusNotImplemented)
		return
	}
	sort, err := store.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.sessions.SessionHistory(r.Context(), sort)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, offset := parsePagination(r)
	if offset > len(entries) {
		offset = len(entries)
	}
	end := min(offset+limit, len(entries))
	page := entries[offset:end]
	if page == nil {
		page = []store.SessionEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": page,
		"total":   len(entries),
	})
}

// ModeRequest is the request body for switching mode
type ModeRequest struct {
	Mode string `json:"mode" validate:"oneof=browse study revise"`
}

// SwitchMode handles POST /api/mode
func (s *Server) SwitchMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.SwitchMode(mindgraph.Mode(req.Mode)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": req.Mode})
}

// PlanRequest names a planned note by id, or by title for unsaved notes
type PlanRequest struct {
	ID    core.NoteID `json:"id" validate:"gte=0"`
	Title string      `json:"title" validate:"required_without=ID"`
}

// ListPlan handles GET /api/plan
func (s *Server) ListPlan(w http.ResponseWriter, r *http.Request) {
	entries := s.engine.PlanList()
	if entries == nil {
		entries = []plan.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// AddPlan handles POST /api/plan
func (s *Server) AddPlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !s.decode(w, r, &req) {
		return
	}
	added, err := s.engine.PlanAdd(plan.Entry{ID: req.ID, Title: req.Title})
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"added": added})
}

// RemovePlan handles POST /api/plan/remove
func (s *Server) RemovePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !s.decode(w, r, &req) {
		return
	}
	removed, err := s.engine.PlanRemove(plan.Entry{ID: req.ID, Title: req.Title})
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, fmt.Errorf("plan entry: %w", core.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearPlan handles DELETE /api/plan
func (s *Server) ClearPlan(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.PlanClear(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Flush handles POST /api/flush
func (s *Server) Flush(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Flush(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/stats
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}
