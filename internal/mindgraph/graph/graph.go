// Package graph holds the directed note graph and keyword edge inference.
//
// The graph stores note ids only. Node iteration follows first insertion and
// every neighbour list keeps insertion order without duplicates, so the
// spanning tree and study path derived from it are deterministic.
package graph

import (
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// NoteGraph is a directed adjacency-list graph over note ids.
// It is not safe for concurrent use.
type NoteGraph struct {
	adj   map[core.NoteID][]core.NoteID
	order []core.NoteID
	edges int
}

// New creates an empty graph
func New() *NoteGraph {
	return &NoteGraph{adj: make(map[core.NoteID][]core.NoteID)}
}

// AddNote inserts a node. It reports false if the node already existed.
func (g *NoteGraph) AddNote(id core.NoteID) bool {
	if _, exists := g.adj[id]; exists {
		return false
	}
	g.adj[id] = nil
	g.order = append(g.order, id)
	return true
}

// RemoveNote deletes a node and strips it from every neighbour list.
// It reports false if the node was absent.
func (g *NoteGraph) RemoveNote(id core.NoteID) bool {
	out, exists := g.adj[id]
	if !exists {
		return false
	}

	for _, from := range g.order {
		if from == id {
			continue
		}
		if list, removed := without(g.adj[from], id); removed {
			g.adj[from] = list
			g.edges--
		}
	}

	g.edges -= len(out)
	delete(g.adj, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return true
}

// CreateEdge adds from→to, inserting missing endpoints first.
// It reports false if the edge already existed.
func (g *NoteGraph) CreateEdge(from, to core.NoteID) bool {
	g.AddNote(from)
	g.AddNote(to)
	if g.ContainsEdge(from, to) {
		return false
	}
	g.adj[from] = append(g.adj[from], to)
	g.edges++
	return true
}

// RemoveEdge deletes from→to. It reports false if the edge was absent.
func (g *NoteGraph) RemoveEdge(from, to core.NoteID) bool {
	list, removed := without(g.adj[from], to)
	if !removed {
		return false
	}
	g.adj[from] = list
	g.edges--
	return true
}

// Neighbours returns a copy of the outgoing neighbours of id in insertion
// order. The result is empty, never nil, for unknown ids.
func (g *NoteGraph) Neighbours(id core.NoteID) []core.NoteID {
	out := make([]core.NoteID, len(g.adj[id]))
	copy(out, g.adj[id])
	return out
}

// ContainsNote reports whether id is a node
func (g *NoteGraph) ContainsNote(id core.NoteID) bool {
	_, ok := g.adj[id]
	return ok
}

// ContainsEdge reports whether from→to exists
func (g *NoteGraph) ContainsEdge(from, to core.NoteID) bool {
	for _, n := range g.adj[from] {
		if n == to {
			return true
		}
	}
	return false
}

// Notes returns the node ids in insertion order
func (g *NoteGraph) Notes() []core.NoteID {
	return append([]core.NoteID(nil), g.order...)
}

// Edges returns every directed edge, grouped by source in node order
func (g *NoteGraph) Edges() []core.Edge {
	out := make([]core.Edge, 0, g.edges)
	for _, from := range g.order {
		for _, to := range g.adj[from] {
			out = append(out, core.Edge{From: from, To: to})
		}
	}
	return out
}

// Len returns the node count
func (g *NoteGraph) Len() int {
	return len(g.order)
}

// EdgeCount returns the directed edge count
func (g *NoteGraph) EdgeCount() int {
	return g.edges
}

// Reset removes every node and edge
func (g *NoteGraph) Reset() {
	g.adj = make(map[core.NoteID][]core.NoteID)
	g.order = nil
	g.edges = 0
}

// Clone returns a deep copy
func (g *NoteGraph) Clone() *NoteGraph {
	c := &NoteGraph{
		adj:   make(map[core.NoteID][]core.NoteID, len(g.adj)),
		order: append([]core.NoteID(nil), g.order...),
		edges: g.edges,
	}
	for id, list := range g.adj {
		if list != nil {
			c.adj[id] = append([]core.NoteID(nil), list...)
		} else {
			c.adj[id] = nil
		}
	}
	return c
}

func without(list []core.NoteID, id core.NoteID) ([]core.NoteID, bool) {
	for i, n := range list {
		if n == id {
			out := make([]core.NoteID, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}
