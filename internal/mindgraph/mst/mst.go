// Package mst builds a minimum spanning forest over the note graph.
//
// Candidate edges are the graph's directed links, but connectivity is
// undirected: an edge A→B joins A and B regardless of direction, and the
// forest holds one tree per connected component of the candidate set.
package mst

import (
	"math"
	"sort"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/graph"
)

// Weight scores an edge: the difficulty gap minus the number of shared
// keywords. Lower means closer. Notes missing from the catalog count as
// minimum difficulty with no keywords.
func Weight(cat *core.Catalog, from, to core.NoteID) float64 {
	a, aok := cat.Get(from)
	b, bok := cat.Get(to)

	da, db := core.MinDifficulty, core.MinDifficulty
	if aok {
		da = a.NormalizedDifficulty()
	}
	if bok {
		db = b.NormalizedDifficulty()
	}

	shared := 0
	if aok && bok {
		shared = core.SharedKeywords(a.Keywords, b.Keywords)
	}
	return math.Abs(float64(da-db)) - float64(shared)
}

// WeightedEdges lists every directed edge of g with its weight, in node
// order then neighbour order
func WeightedEdges(g *graph.NoteGraph, cat *core.Catalog) []core.WeightedEdge {
	edges := g.Edges()
	out := make([]core.WeightedEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, core.WeightedEdge{
			From:   e.From,
			To:     e.To,
			Weight: Weight(cat, e.From, e.To),
		})
	}
	return out
}

// MinimumSpanningTree runs Kruskal over the weighted edges of g. Edges are
// stable-sorted by weight so equal weights keep graph order. The result is
// in selection order.
func MinimumSpanningTree(g *graph.NoteGraph, cat *core.Catalog) []core.WeightedEdge {
	return Kruskal(WeightedEdges(g, cat))
}

// Kruskal selects a minimum spanning forest from candidate edges
func Kruskal(candidates []core.WeightedEdge) []core.WeightedEdge {
	edges := append([]core.WeightedEdge(nil), candidates...)
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Weight < edges[j].Weight
	})

	ds := NewDisjointSet()
	var forest []core.WeightedEdge
	for _, e := range edges {
		if ds.Union(e.From, e.To) {
			forest = append(forest, e)
		}
	}
	return forest
}
