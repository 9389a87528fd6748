package graph

import (
	"fmt"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/storage"
)

// Op identifies a graph mutation record
type Op uint8

const (
	OpAddNote    Op = 1
	OpRemoveNote Op = 2
	OpCreateEdge Op = 3
	OpRemoveEdge Op = 4
	OpPutNote    Op = 5 // catalog insert or update
	OpDropNote   Op = 6 // catalog delete
	OpBatch      Op = 7 // several mutations committed as one record
)

func (op Op) String() string {
	switch op {
	case OpAddNote:
		return "add-note"
	case OpRemoveNote:
		return "remove-note"
	case OpCreateEdge:
		return "create-edge"
	case OpRemoveEdge:
		return "remove-edge"
	case OpPutNote:
		return "put-note"
	case OpDropNote:
		return "drop-note"
	case OpBatch:
		return "batch"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Mutation is one journaled change to the graph or its catalog
type Mutation struct {
	Op    Op
	From  core.NoteID // node for note ops, source for edge ops
	To    core.NoteID
	Note  core.Note  // OpPutNote only
	Batch []Mutation // OpBatch only, never nested
}

// Batch groups muts into a single record. A lone mutation is returned as is.
func Batch(muts ...Mutation) Mutation {
	if len(muts) == 1 {
		return muts[0]
	}
	return Mutation{Op: OpBatch, Batch: muts}
}

// Encode serializes the mutation as a journal payload
func (m Mutation) Encode() []byte {
	enc := storage.NewEncoder(16)
	if m.Op == OpBatch {
		enc.Uint8(uint8(OpBatch)).Uvarint(uint64(len(m.Batch)))
		for _, sub := range m.Batch {
			sub.encodeTo(enc)
		}
		return enc.Bytes()
	}
	m.encodeTo(enc)
	return enc.Bytes()
}

func (m Mutation) encodeTo(enc *storage.Encoder) {
	enc.Uint8(uint8(m.Op))
	switch m.Op {
	case OpAddNote, OpRemoveNote, OpDropNote:
		enc.ID(m.From)
	case OpCreateEdge, OpRemoveEdge:
		enc.ID(m.From).ID(m.To)
	case OpPutNote:
		encodeNote(enc, m.Note)
	}
}

// DecodeMutation parses a journal payload
func DecodeMutation(payload []byte) (Mutation, error) {
	dec := storage.NewDecoder(payload)
	var (
		m   Mutation
		err error
	)
	if len(payload) > 0 && Op(payload[0]) == OpBatch {
		dec.Uint8()
		count := dec.Uvarint()
		if count > uint64(dec.Remaining()) {
			return m, fmt.Errorf("%w: batch of %d mutations", core.ErrCorruptSnapshot, count)
		}
		m.Op = OpBatch
		m.Batch = make([]Mutation, 0, count)
		for i := uint64(0); i < count && err == nil; i++ {
			var sub Mutation
			sub, err = decodeFrom(dec)
			m.Batch = append(m.Batch, sub)
		}
	} else {
		m, err = decodeFrom(dec)
	}
	if err == nil {
		err = dec.Err()
	}
	if err != nil {
		return m, err
	}
	if dec.Remaining() != 0 {
		return m, fmt.Errorf("%w: %d trailing bytes in graph record", core.ErrCorruptSnapshot, dec.Remaining())
	}
	return m, nil
}

func decodeFrom(dec *storage.Decoder) (Mutation, error) {
	m := Mutation{Op: Op(dec.Uint8())}
	switch m.Op {
	case OpAddNote, OpRemoveNote, OpDropNote:
		m.From = dec.ID()
	case OpCreateEdge, OpRemoveEdge:
		m.From = dec.ID()
		m.To = dec.ID()
	case OpPutNote:
		m.Note = decodeNote(dec)
	default:
		if dec.Err() == nil {
			return m, fmt.Errorf("%w: unknown graph op %d", core.ErrCorruptSnapshot, uint8(m.Op))
		}
	}
	return m, dec.Err()
}

// Apply replays the mutation against g and cat
func (m Mutation) Apply(g *NoteGraph, cat *core.Catalog) {
	switch m.Op {
	case OpAddNote:
		g.AddNote(m.From)
	case OpRemoveNote:
		g.RemoveNote(m.From)
	case OpCreateEdge:
		g.CreateEdge(m.From, m.To)
	case OpRemoveEdge:
		g.RemoveEdge(m.From, m.To)
	case OpPutNote:
		cat.Put(m.Note)
	case OpDropNote:
		cat.Delete(m.From)
	case OpBatch:
		for _, sub := range m.Batch {
			sub.Apply(g, cat)
		}
	}
}

// EncodeSnapshot writes the catalog followed by the adjacency lists
func EncodeSnapshot(g *NoteGraph, cat *core.Catalog) []byte {
	enc := storage.NewEncoder(64 + 16*g.EdgeCount())

	notes := cat.Notes()
	enc.Uvarint(uint64(len(notes)))
	for _, n := range notes {
		encodeNote(enc, n)
	}

	enc.Uvarint(uint64(g.Len()))
	for _, id := range g.order {
		enc.ID(id).IDs(g.adj[id])
	}
	return enc.Bytes()
}

// DecodeSnapshot rebuilds a graph and catalog from EncodeSnapshot output
func DecodeSnapshot(body []byte) (*NoteGraph, *core.Catalog, error) {
	dec := storage.NewDecoder(body)
	g := New()
	cat := core.NewCatalog()

	count := dec.Uvarint()
	if count > uint64(dec.Remaining()) {
		return nil, nil, fmt.Errorf("%w: catalog count %d", core.ErrCorruptSnapshot, count)
	}
	for i := uint64(0); i < count && dec.Err() == nil; i++ {
		n := decodeNote(dec)
		if dec.Err() == nil {
			cat.Put(n)
		}
	}

	nodes := dec.Uvarint()
	if nodes > uint64(dec.Remaining()) {
		return nil, nil, fmt.Errorf("%w: node count %d", core.ErrCorruptSnapshot, nodes)
	}
	for i := uint64(0); i < nodes && dec.Err() == nil; i++ {
		id := dec.ID()
		neighbours := dec.IDs()
		if dec.Err() != nil {
			break
		}
		g.AddNote(id)
		for _, to := range neighbours {
			g.CreateEdge(id, to)
		}
	}

	if dec.Err() != nil {
		return nil, nil, dec.Err()
	}
	if dec.Remaining() != 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes in graph snapshot", core.ErrCorruptSnapshot, dec.Remaining())
	}
	return g, cat, nil
}

func encodeNote(enc *storage.Encoder, n core.Note) {
	enc.ID(n.ID).
		String(n.Title).
		Varint(int64(n.Difficulty)).
		Strings(n.Keywords).
		String(n.FilePath)
}

func decodeNote(dec *storage.Decoder) core.Note {
	var n core.Note
	n.ID = dec.ID()
	n.Title = dec.String()
	n.Difficulty = int(dec.Varint())
	n.Keywords = dec.Strings()
	n.FilePath = dec.String()
	return n
}
