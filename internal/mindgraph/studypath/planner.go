// Package studypath turns a spanning forest into a linear study order.
package studypath

import (
	"github.com/systemshift/mindgraph/internal/mindgraph/collections"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/graph"
)

// Planner walks a spanning forest depth first.
// Adjacency is undirected and follows edge selection order.
type Planner struct {
	adj   map[core.NoteID][]core.NoteID
	known func(core.NoteID) bool
}

// NewPlanner indexes forest. known reports whether an id is a graph node;
// nil treats only forest endpoints as known.
func NewPlanner(forest []core.WeightedEdge, known func(core.NoteID) bool) *Planner {
	adj := make(map[core.NoteID][]core.NoteID)
	for _, e := range forest {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}
	p := &Planner{adj: adj, known: known}
	if p.known == nil {
		p.known = func(id core.NoteID) bool {
			_, ok := adj[id]
			return ok
		}
	}
	return p
}

// ForGraph creates a planner whose known set is the nodes of g
func ForGraph(g *graph.NoteGraph, forest []core.WeightedEdge) *Planner {
	return NewPlanner(forest, g.ContainsNote)
}

// Path returns the pre-order visit of start's tree. A known node with no
// tree edges yields just itself; an unknown start yields an empty path.
func (p *Planner) Path(start core.NoteID) []core.NoteID {
	if !p.known(start) {
		return []core.NoteID{}
	}

	visited := make(map[core.NoteID]bool)
	path := make([]core.NoteID, 0, len(p.adj))

	stack := collections.NewStack[core.NoteID](0)
	stack.Push(start)
	for !stack.IsEmpty() {
		id, _ := stack.Pop()
		if visited[id] {
			continue
		}
		visited[id] = true
		path = append(path, id)

		// reversed so the first neighbour is popped first
		next := p.adj[id]
		for i := len(next) - 1; i >= 0; i-- {
			if !visited[next[i]] {
				stack.Push(next[i])
			}
		}
	}
	return path
}

// StudyPath is a shorthand for NewPlanner(forest, nil).Path(start)
func StudyPath(forest []core.WeightedEdge, start core.NoteID) []core.NoteID {
	return NewPlanner(forest, nil).Path(start)
}

// DefaultStart picks the graph node with the lowest difficulty, keeping the
// first in graph order on ties. Nodes missing from the catalog are only
// considered when no node is in it. ok is false for an empty graph.
func DefaultStart(g *graph.NoteGraph, cat *core.Catalog) (start core.NoteID, ok bool) {
	nodes := g.Notes()
	if len(nodes) == 0 {
		return 0, false
	}

	best := -1
	for _, id := range nodes {
		d, known := cat.Difficulty(id)
		if !known {
			continue
		}
		if best < 0 || d < best {
			start, best = id, d
		}
	}
	if best < 0 {
		return nodes[0], true
	}
	return start, true
}
