package graph

import (
	"strings"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// InferOptions controls keyword to title matching
type InferOptions struct {
	// PluralTolerant lets a keyword match a title that differs only by a
	// trailing "s" or "es", in either direction.
	PluralTolerant bool
}

// DefaultInferOptions returns the matching rules used when none are configured
func DefaultInferOptions() InferOptions {
	return InferOptions{PluralTolerant: true}
}

// Infer returns the edges implied by notes: N→C whenever a keyword of N
// names the title of another note C. Edges come out in note order, then
// keyword order, then candidate order, without duplicates. Transient notes
// are ignored.
func Infer(notes []core.Note, opts InferOptions) []core.Edge {
	titles := make([]string, len(notes))
	for i, n := range notes {
		titles[i] = normalize(n.Title)
	}

	var edges []core.Edge
	seen := make(map[core.Edge]struct{})
	for _, n := range notes {
		if n.ID.Transient() {
			continue
		}
		for _, kw := range n.Keywords {
			k := normalize(kw)
			if k == "" {
				continue
			}
			for j, c := range notes {
				if c.ID == n.ID || c.ID.Transient() {
					continue
				}
				if !TitleMatches(k, titles[j], opts) {
					continue
				}
				e := core.Edge{From: n.ID, To: c.ID}
				if _, dup := seen[e]; dup {
					continue
				}
				seen[e] = struct{}{}
				edges = append(edges, e)
			}
		}
	}
	return edges
}

// Apply creates every edge in g and returns how many were new
func Apply(g *NoteGraph, edges []core.Edge) int {
	added := 0
	for _, e := range edges {
		if g.CreateEdge(e.From, e.To) {
			added++
		}
	}
	return added
}

// TitleMatches compares an already normalized keyword and title
func TitleMatches(keyword, title string, opts InferOptions) bool {
	if title == "" {
		return false
	}
	if keyword == title {
		return true
	}
	if !opts.PluralTolerant {
		return false
	}
	return title == keyword+"s" || title == keyword+"es" ||
		keyword == title+"s" || keyword == title+"es"
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
