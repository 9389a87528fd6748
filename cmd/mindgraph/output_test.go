package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systemshift/mindgraph/internal/mindgraph"
	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

func TestPrintGraph(t *testing.T) {
	view := mindgraph.GraphView{
		Nodes: []mindgraph.NodeView{
			{ID: 1, Title: "Cell"},
			{ID: 2, Title: "Mitosis"},
			{ID: 3},
		},
		Edges: []core.Edge{{From: 1, To: 2}, {From: 1, To: 3}, {From: 2, To: 3}},
	}

	var buf bytes.Buffer
	printGraph(&buf, view)
	assert.Equal(t, "Cell -> [Mitosis, #3]\nMitosis -> [#3]\n#3 -> []\n", buf.String())
}

func TestPrintPath(t *testing.T) {
	titles := func(id core.NoteID) string {
		if id == 1 {
			return "Cell"
		}
		return ""
	}

	var buf bytes.Buffer
	printPath(&buf, titles, []core.NoteID{1, 2})
	out := buf.String()
	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, "Cell")
	assert.Contains(t, out, "#2")

	buf.Reset()
	printPath(&buf, titles, nil)
	assert.Contains(t, buf.String(), "empty path")
}

func TestParseEntryArg(t *testing.T) {
	tests := []struct {
		arg   string
		id    core.NoteID
		title string
	}{
		{"42", 42, ""},
		{"Cell biology", 0, "Cell biology"},
		{"  Osmosis ", 0, "Osmosis"},
		{"0", 0, "0"},
		{"-3", 0, "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			id, title := parseEntryArg(tt.arg)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.title, title)
		})
	}
}

func TestMergeKeywords(t *testing.T) {
	got := mergeKeywords([]string{"mitosis", "Cell"}, []string{"cell", "chromosome", " "})
	assert.Equal(t, []string{"mitosis", "Cell", "chromosome"}, got)
}
