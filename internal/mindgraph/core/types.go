package core

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// NoteID identifies a note. Zero means the note has not been persisted yet.
type NoteID int64

// Transient reports whether the id belongs to an unpersisted note
func (id NoteID) Transient() bool {
	return id == 0
}

func (id NoteID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseNoteID parses a decimal note id
func ParseNoteID(s string) (NoteID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return NoteID(n), nil
}

// Difficulty bounds
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Note is the store's view of a note. Only ID takes part in equality.
type Note struct {
	ID         NoteID    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Keywords   []string  `json:"keywords" yaml:"keywords"`
	Difficulty int       `json:"difficulty" yaml:"difficulty"`
	Created    time.Time `json:"created" yaml:"created,omitempty"`
	Updated    time.Time `json:"updated" yaml:"updated,omitempty"`
	FilePath   string    `json:"file_path,omitempty" yaml:"-"`
}

// Equal compares notes by id
func (n Note) Equal(other Note) bool {
	return n.ID == other.ID
}

// KeywordsCSV joins the keywords the way the notes table stores them
func (n Note) KeywordsCSV() string {
	return strings.Join(n.Keywords, ",")
}

// NormalizedDifficulty clamps the difficulty into [MinDifficulty, MaxDifficulty]
func (n Note) NormalizedDifficulty() int {
	switch {
	case n.Difficulty < MinDifficulty:
		return MinDifficulty
	case n.Difficulty > MaxDifficulty:
		return MaxDifficulty
	}
	return n.Difficulty
}

// NoteStore is the read side of the note store consumed by the engine
type NoteStore interface {
	FindAll(ctx context.Context) ([]Note, error)
}

// NoteStoreFunc adapts a function to NoteStore
type NoteStoreFunc func(ctx context.Context) ([]Note, error)

// FindAll calls f
func (f NoteStoreFunc) FindAll(ctx context.Context) ([]Note, error) {
	return f(ctx)
}

// Edge is a directed link between two notes
type Edge struct {
	From NoteID `json:"from"`
	To   NoteID `json:"to"`
}

// WeightedEdge is an edge with its spanning-tree weight
type WeightedEdge struct {
	From   NoteID  `json:"from"`
	To     NoteID  `json:"to"`
	Weight float64 `json:"weight"`
}

// Edge drops the weight
func (e WeightedEdge) Edge() Edge {
	return Edge{From: e.From, To: e.To}
}
