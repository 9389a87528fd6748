package studypath

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/graph"
	"github.com/systemshift/mindgraph/internal/mindgraph/mst"
)

func edge(from, to core.NoteID) core.WeightedEdge {
	return core.WeightedEdge{From: from, To: to}
}

func TestPath_PreOrderFollowsSelectionOrder(t *testing.T) {
	//   1
	//  / \
	// 2   3
	// |    \
	// 4     5
	forest := []core.WeightedEdge{edge(1, 2), edge(3, 1), edge(2, 4), edge(5, 3)}

	assert.Equal(t, []core.NoteID{1, 2, 4, 3, 5}, StudyPath(forest, 1))
	assert.Equal(t, []core.NoteID{3, 1, 2, 4, 5}, StudyPath(forest, 3))
	assert.Equal(t, []core.NoteID{5, 3, 1, 2, 4}, StudyPath(forest, 5))
}

func TestPath_ExcludesOtherComponents(t *testing.T) {
	forest := []core.WeightedEdge{edge(1, 2), edge(7, 8), edge(2, 3)}
	path := StudyPath(forest, 2)
	assert.Equal(t, []core.NoteID{2, 1, 3}, path)
	assert.Len(t, path, 3)
}

func TestPath_IsolatedAndUnknownStarts(t *testing.T) {
	g := graph.New()
	g.CreateEdge(1, 2)
	g.AddNote(9)
	forest := []core.WeightedEdge{edge(1, 2)}

	p := ForGraph(g, forest)
	assert.Equal(t, []core.NoteID{9}, p.Path(9))
	assert.Equal(t, []core.NoteID{}, p.Path(42))
	assert.Equal(t, []core.NoteID{}, StudyPath(nil, 1))
}

func TestPath_DeepChainDoesNotRecurse(t *testing.T) {
	const n = 200000
	forest := make([]core.WeightedEdge, 0, n-1)
	for i := core.NoteID(1); i < n; i++ {
		forest = append(forest, edge(i, i+1))
	}
	path := StudyPath(forest, 1)
	assert.Len(t, path, n)
	assert.Equal(t, core.NoteID(n), path[n-1])
}

func TestPath_VisitsEveryNodeOfComponentOnce(t *testing.T) {
	cat := core.NewCatalog(
		core.Note{ID: 1, Difficulty: 3, Keywords: []string{"a"}},
		core.Note{ID: 2, Difficulty: 1, Keywords: []string{"a"}},
		core.Note{ID: 3, Difficulty: 2},
		core.Note{ID: 4, Difficulty: 5},
		core.Note{ID: 5, Difficulty: 4},
	)
	g := graph.New()
	g.CreateEdge(1, 2)
	g.CreateEdge(2, 3)
	g.CreateEdge(3, 1)
	g.CreateEdge(4, 3)
	g.CreateEdge(5, 4)
	g.CreateEdge(1, 5)

	forest := mst.MinimumSpanningTree(g, cat)
	path := ForGraph(g, forest).Path(2)

	assert.Len(t, path, g.Len())
	assert.ElementsMatch(t, g.Notes(), path)
}

func TestDefaultStart(t *testing.T) {
	g := graph.New()
	g.CreateEdge(4, 3)
	g.CreateEdge(3, 2)
	g.CreateEdge(2, 1)

	cat := core.NewCatalog(
		core.Note{ID: 1, Difficulty: 2},
		core.Note{ID: 2, Difficulty: 4},
		core.Note{ID: 3, Difficulty: 2},
		core.Note{ID: 4, Difficulty: 3},
	)
	start, ok := DefaultStart(g, cat)
	assert.True(t, ok)
	assert.Equal(t, core.NoteID(3), start, "tie on difficulty 2 goes to the first node in graph order")

	_, ok = DefaultStart(graph.New(), cat)
	assert.False(t, ok)

	start, ok = DefaultStart(g, core.NewCatalog())
	assert.True(t, ok)
	assert.Equal(t, core.NoteID(4), start)
}
