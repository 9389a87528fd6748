package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordsFromCSV(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want []string
	}{
		{name: "empty", csv: "", want: nil},
		{name: "blank", csv: "  ,  ", want: nil},
		{name: "spaces", csv: "mitosis , cell,  dna", want: []string{"mitosis", "cell", "dna"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeywordsFromCSV(tt.csv))
		})
	}
}

func TestSharedKeywords(t *testing.T) {
	assert.Equal(t, 2, SharedKeywords([]string{"Cell", "dna", "rna"}, []string{"cell", "DNA", "dna", "atp"}))
	assert.Equal(t, 0, SharedKeywords(nil, []string{"cell"}))
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("The mitochondria is the powerhouse of the cell. The cell divides.")
	assert.Equal(t, []string{"mitochondria", "powerhouse", "cell", "divides"}, got)
}

func TestNoteEqualityByID(t *testing.T) {
	a := Note{ID: 7, Title: "A"}
	b := Note{ID: 7, Title: "renamed"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Note{ID: 8, Title: "A"}))
}

func TestParseNoteID(t *testing.T) {
	id, err := ParseNoteID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, NoteID(42), id)

	_, err = ParseNoteID("abc")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(
		Note{ID: 2, Title: "Two", Difficulty: 9},
		Note{ID: 1, Title: "One", Difficulty: 0},
	)
	c.Put(Note{ID: 2, Title: "Two again", Difficulty: 3})

	require.Equal(t, 2, c.Len())
	assert.Equal(t, []NoteID{2, 1}, []NoteID{c.Notes()[0].ID, c.Notes()[1].ID})
	assert.Equal(t, "Two again", c.Title(2))
	assert.Equal(t, "#99", c.Title(99))

	d, ok := c.Difficulty(1)
	require.True(t, ok)
	assert.Equal(t, MinDifficulty, d)

	c.Delete(2)
	_, ok = c.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}
