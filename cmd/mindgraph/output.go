package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/systemshift/mindgraph/internal/mindgraph"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// label renders a note as "Title (#id)", or "#id" when the title is unknown
func label(titles func(core.NoteID) string, id core.NoteID) string {
	if t := titles(id); t != "" {
		return fmt.Sprintf("%s %s", noteStyle.Render(t), dimStyle.Render("#"+id.String()))
	}
	return dimStyle.Render("#" + id.String())
}

// printGraph writes one line per node: title -> [neighbour titles]
func printGraph(w io.Writer, view mindgraph.GraphView) {
	titles := make(map[core.NoteID]string, len(view.Nodes))
	for _, n := range view.Nodes {
		titles[n.ID] = n.Title
	}
	name := func(id core.NoteID) string {
		if t := titles[id]; t != "" {
			return t
		}
		return "#" + id.String()
	}

	neighbours := make(map[core.NoteID][]string, len(view.Nodes))
	for _, e := range view.Edges {
		neighbours[e.From] = append(neighbours[e.From], name(e.To))
	}

	for _, n := range view.Nodes {
		fmt.Fprintf(w, "%s -> [%s]\n", name(n.ID), strings.Join(neighbours[n.ID], ", "))
	}
}

// printPath writes a numbered study path
func printPath(w io.Writer, titles func(core.NoteID) string, path []core.NoteID) {
	if len(path) == 0 {
		fmt.Fprintln(w, dimStyle.Render("(empty path)"))
		return
	}
	for i, id := range path {
		fmt.Fprintf(w, "%3d. %s\n", i+1, label(titles, id))
	}
}

// parseEntryArg reads a plan argument: a numeric id or a title
func parseEntryArg(arg string) (core.NoteID, string) {
	if id, err := core.ParseNoteID(arg); err == nil && id > 0 {
		return id, ""
	}
	return 0, strings.TrimSpace(arg)
}
