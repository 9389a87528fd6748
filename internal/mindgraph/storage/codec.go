package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// MaxStringLen bounds decoded strings so a corrupt length cannot allocate unbounded memory
const MaxStringLen = 1 << 20

// Encoder builds record payloads from varints and length-prefixed strings
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with an initial capacity hint
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Bytes returns the encoded payload
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Uint8 writes a single byte
func (e *Encoder) Uint8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

// Uvarint writes an unsigned varint
func (e *Encoder) Uvarint(v uint64) *Encoder {
	e.buf = binary.AppendUvarint(e.buf, v)
	return e
}

// Varint writes a signed varint
func (e *Encoder) Varint(v int64) *Encoder {
	e.buf = binary.AppendVarint(e.buf, v)
	return e
}

// ID writes a note id
func (e *Encoder) ID(id core.NoteID) *Encoder {
	return e.Varint(int64(id))
}

// IDs writes a count followed by the ids
func (e *Encoder) IDs(ids []core.NoteID) *Encoder {
	e.Uvarint(uint64(len(ids)))
	for _, id := range ids {
		e.ID(id)
	}
	return e
}

// Float64 writes the IEEE-754 bits little endian
func (e *Encoder) Float64(v float64) *Encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
	return e
}

// String writes a length-prefixed string
func (e *Encoder) String(s string) *Encoder {
	e.Uvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
	return e
}

// Strings writes a count followed by length-prefixed strings
func (e *Encoder) Strings(ss []string) *Encoder {
	e.Uvarint(uint64(len(ss)))
	for _, s := range ss {
		e.String(s)
	}
	return e
}

// Decoder reads payloads written by Encoder. The first failure sticks and
// subsequent reads return zero values; check Err once at the end.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder creates a decoder over data
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// Err returns the first decoding error
func (d *Decoder) Err() error {
	return d.err
}

// Remaining returns the number of unread bytes
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

func (d *Decoder) fail(what string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: truncated %s at offset %d", core.ErrCorruptSnapshot, what, d.off)
	}
}

// Uint8 reads a single byte
func (d *Decoder) Uint8() uint8 {
	if d.err != nil {
		return 0
	}
	if d.off >= len(d.buf) {
		d.fail("byte")
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

// Uvarint reads an unsigned varint
func (d *Decoder) Uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		d.fail("uvarint")
		return 0
	}
	d.off += n
	return v
}

// Varint reads a signed varint
func (d *Decoder) Varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf[d.off:])
	if n <= 0 {
		d.fail("varint")
		return 0
	}
	d.off += n
	return v
}

// ID reads a note id
func (d *Decoder) ID() core.NoteID {
	return core.NoteID(d.Varint())
}

// IDs reads a counted list of ids
func (d *Decoder) IDs() []core.NoteID {
	n := d.count()
	if n == 0 {
		return nil
	}
	ids := make([]core.NoteID, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		ids = append(ids, d.ID())
	}
	return ids
}

// Float64 reads a little endian float
func (d *Decoder) Float64() float64 {
	if d.err != nil {
		return 0
	}
	if d.Remaining() < 8 {
		d.fail("float64")
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.buf[d.off:]))
	d.off += 8
	return v
}

// String reads a length-prefixed string
func (d *Decoder) String() string {
	n := d.Uvarint()
	if d.err != nil {
		return ""
	}
	if n > MaxStringLen || int(n) > d.Remaining() {
		d.fail("string")
		return ""
	}
	s := string(d.buf[d.off : d.off+int(n)])
	d.off += int(n)
	return s
}

// Strings reads a counted list of strings
func (d *Decoder) Strings() []string {
	n := d.count()
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.String())
	}
	return out
}

// count reads a list length, rejecting values larger than the remaining input
func (d *Decoder) count() int {
	n := d.Uvarint()
	if d.err != nil {
		return 0
	}
	if n > uint64(d.Remaining()) {
		d.fail("count")
		return 0
	}
	return int(n)
}
