package core

// Catalog holds the notes known to the engine keyed by id, in first-seen order.
// Graph structures reference notes only by id and look their fields up here.
type Catalog struct {
	notes map[NoteID]Note
	order []NoteID
}

// NewCatalog creates a catalog from notes, keeping the last entry for repeated ids
func NewCatalog(notes ...Note) *Catalog {
	c := &Catalog{notes: make(map[NoteID]Note, len(notes))}
	for _, n := range notes {
		c.Put(n)
	}
	return c
}

// Put adds or replaces a note
func (c *Catalog) Put(n Note) {
	if _, exists := c.notes[n.ID]; !exists {
		c.order = append(c.order, n.ID)
	}
	n.Keywords = append([]string(nil), n.Keywords...)
	c.notes[n.ID] = n
}

// Get returns a note by id
func (c *Catalog) Get(id NoteID) (Note, bool) {
	n, ok := c.notes[id]
	return n, ok
}

// Delete removes a note
func (c *Catalog) Delete(id NoteID) {
	if _, exists := c.notes[id]; !exists {
		return
	}
	delete(c.notes, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of notes
func (c *Catalog) Len() int {
	return len(c.order)
}

// Notes returns all notes in first-seen order
func (c *Catalog) Notes() []Note {
	out := make([]Note, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.notes[id])
	}
	return out
}

// Difficulty returns the normalized difficulty of a note and whether it is known
func (c *Catalog) Difficulty(id NoteID) (int, bool) {
	n, ok := c.notes[id]
	if !ok {
		return 0, false
	}
	return n.NormalizedDifficulty(), true
}

// Title returns the note title, or the id when unknown
func (c *Catalog) Title(id NoteID) string {
	if n, ok := c.notes[id]; ok && n.Title != "" {
		return n.Title
	}
	return "#" + id.String()
}

// Clone returns a deep copy
func (c *Catalog) Clone() *Catalog {
	return NewCatalog(c.Notes()...)
}
