package storage

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// MaxRecordSize bounds a single journal record (1MB)
const MaxRecordSize = 1 << 20

const recordHeaderSize = 8 // length u32 + crc32 u32

// EncodeRecord frames a journal payload as length | crc32 | payload
func EncodeRecord(payload []byte) ([]byte, error) {
	if len(payload) > MaxRecordSize {
		return nil, fmt.Errorf("record too large: %d bytes (max %d)", len(payload), MaxRecordSize)
	}
	out := make([]byte, recordHeaderSize, recordHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(out[4:8], crc32.ChecksumIEEE(payload))
	return append(out, payload...), nil
}

// DecodeRecords splits a journal stream into payloads. A torn or corrupt
// record stops decoding; the payloads before it are returned with an error
// wrapping core.ErrCorruptSnapshot.
func DecodeRecords(data []byte) ([][]byte, error) {
	var records [][]byte
	off := 0
	for off < len(data) {
		if len(data)-off < recordHeaderSize {
			return records, fmt.Errorf("%w: torn record header at offset %d", core.ErrCorruptSnapshot, off)
		}
		n := binary.LittleEndian.Uint32(data[off : off+4])
		sum := binary.LittleEndian.Uint32(data[off+4 : off+8])
		if n > MaxRecordSize || int(n) > len(data)-off-recordHeaderSize {
			return records, fmt.Errorf("%w: torn record at offset %d", core.ErrCorruptSnapshot, off)
		}
		payload := data[off+recordHeaderSize : off+recordHeaderSize+int(n)]
		if crc32.ChecksumIEEE(payload) != sum {
			return records, fmt.Errorf("%w: record checksum mismatch at offset %d", core.ErrCorruptSnapshot, off)
		}
		records = append(records, payload)
		off += recordHeaderSize + int(n)
	}
	return records, nil
}
