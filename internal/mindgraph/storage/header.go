package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// Snapshot format version
const Version uint16 = 1

// SnapshotMagic starts every snapshot
var SnapshotMagic = [4]byte{'M', 'G', 'S', 'N'}

// Kind identifies which structure a snapshot holds
type Kind uint8

const (
	KindGraph     Kind = 1
	KindRevision  Kind = 2
	KindStudyPlan Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindGraph:
		return "graph"
	case KindRevision:
		return "revision"
	case KindStudyPlan:
		return "studyplan"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Header precedes the snapshot body
type Header struct {
	Magic    [4]byte
	Kind     Kind
	Version  uint16
	Created  int64  // Unix timestamp
	BodyLen  uint32 // Length of the body in bytes
	Checksum uint32 // CRC32 (IEEE) of the body
}

// headerSize is the encoded size of Header
const headerSize = 4 + 1 + 2 + 8 + 4 + 4

// EncodeSnapshot frames body with a header
func EncodeSnapshot(kind Kind, body []byte) ([]byte, error) {
	h := Header{
		Magic:    SnapshotMagic,
		Kind:     kind,
		Version:  Version,
		Created:  time.Now().Unix(),
		BodyLen:  uint32(len(body)),
		Checksum: crc32.ChecksumIEEE(body),
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeSnapshot validates the header and returns the body
func DecodeSnapshot(kind Kind, data []byte) (Header, []byte, error) {
	var h Header
	if len(data) < headerSize {
		return h, nil, fmt.Errorf("%w: %s snapshot shorter than header", core.ErrCorruptSnapshot, kind)
	}
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &h); err != nil {
		return h, nil, fmt.Errorf("%w: reading header: %v", core.ErrCorruptSnapshot, err)
	}
	if h.Magic != SnapshotMagic {
		return h, nil, fmt.Errorf("%w: bad magic %q", core.ErrCorruptSnapshot, h.Magic[:])
	}
	if h.Kind != kind {
		return h, nil, fmt.Errorf("%w: expected %s snapshot, found %s", core.ErrCorruptSnapshot, kind, h.Kind)
	}
	if h.Version != Version {
		return h, nil, fmt.Errorf("%w: unsupported version: %d", core.ErrCorruptSnapshot, h.Version)
	}
	body := data[headerSize:]
	if uint32(len(body)) != h.BodyLen {
		return h, nil, fmt.Errorf("%w: body length %d, header says %d", core.ErrCorruptSnapshot, len(body), h.BodyLen)
	}
	if crc32.ChecksumIEEE(body) != h.Checksum {
		return h, nil, fmt.Errorf("%w: checksum mismatch", core.ErrCorruptSnapshot)
	}
	return h, body, nil
}
