package mst

import "github.com/systemshift/mindgraph/internal/mindgraph/core"

// DisjointSet is a union-find over note ids with union by size and path
// compression. Ids are added lazily on first use.
type DisjointSet struct {
	parent map[core.NoteID]core.NoteID
	size   map[core.NoteID]int
}

// NewDisjointSet creates an empty set
func NewDisjointSet() *DisjointSet {
	return &DisjointSet{
		parent: make(map[core.NoteID]core.NoteID),
		size:   make(map[core.NoteID]int),
	}
}

func (d *DisjointSet) add(id core.NoteID) {
	if _, ok := d.parent[id]; !ok {
		d.parent[id] = id
		d.size[id] = 1
	}
}

// Find returns the representative of id's set
func (d *DisjointSet) Find(id core.NoteID) core.NoteID {
	d.add(id)

	root := id
	for d.parent[root] != root {
		root = d.parent[root]
	}
	// compress
	for id != root {
		next := d.parent[id]
		d.parent[id] = root
		id = next
	}
	return root
}

// Union merges the sets of a and b. It reports false when they were
// already joined, which for Kruskal means the edge would close a cycle.
func (d *DisjointSet) Union(a, b core.NoteID) bool {
	ra, rb := d.Find(a), d.Find(b)
	if ra == rb {
		return false
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
	delete(d.size, rb)
	return true
}

// Connected reports whether a and b share a set
func (d *DisjointSet) Connected(a, b core.NoteID) bool {
	return d.Find(a) == d.Find(b)
}

// SetSize returns the size of id's set
func (d *DisjointSet) SetSize(id core.NoteID) int {
	return d.size[d.Find(id)]
}
