// Package cursor implements the per-request cursor and its 128-byte wire
// form, the position block. Layout grounded on spec.md §3/§4.4; framing
// style (explicit byte-range packing) follows
// original_source/xtrieve-engine/src/protocol.rs.
package cursor

import (
	"encoding/binary"

	"github.com/intellect4all/xtrieved/record"
)

// State is the cursor's positioning state.
type State byte

const (
	StateUnpositioned State = 0
	StatePositioned   State = 1
	StateAtEnd        State = 2
	StateAtBeginning  State = 3
	StateDeleted      State = 4
)

// Cursor is the in-memory, per-request view of a client's position
// within one file's key space.
type Cursor struct {
	FilePath      string
	State         State
	KeyNumber     int32
	RecordAddr    record.Address
	KeyValue      []byte
	RecordBytes   []byte
	LeafPage      uint32
	LeafIndex     uint32
	PhysicalPos   uint32
}

// PositionWithLeaf stamps the cursor positioned at a known tree location.
func (c *Cursor) PositionWithLeaf(addr record.Address, keyValue, recordBytes []byte, leafPage, leafIndex uint32) {
	c.State = StatePositioned
	c.RecordAddr = addr
	c.KeyValue = keyValue
	c.RecordBytes = recordBytes
	c.LeafPage = leafPage
	c.LeafIndex = leafIndex
}

// BlockSize is the fixed wire size of a PositionBlock.
const BlockSize = 128

// Byte offsets within the 128-byte position block, per spec.md §3/§4.4.
const (
	offState      = 0
	offKeyNumber  = 1
	offRecordPage = 5
	offRecordSlot = 9
	offLeafPage   = 11
	offLeafIndex  = 15
	offKeyLen     = 19
	offKeyBytes   = 20
	maxKeyBytes   = 100
	offFilePath   = 64
	maxPathBytes  = 64
)

// PositionBlock is the 128-byte opaque wire form of a Cursor.
type PositionBlock [BlockSize]byte

// FromCursor packs c's fields into the wire layout.
func FromCursor(c *Cursor) PositionBlock {
	var b PositionBlock
	b[offState] = byte(c.State)
	binary.LittleEndian.PutUint32(b[offKeyNumber:offKeyNumber+4], uint32(c.KeyNumber))
	binary.LittleEndian.PutUint32(b[offRecordPage:offRecordPage+4], c.RecordAddr.Page)
	binary.LittleEndian.PutUint16(b[offRecordSlot:offRecordSlot+2], c.RecordAddr.Slot)
	binary.LittleEndian.PutUint32(b[offLeafPage:offLeafPage+4], c.LeafPage)
	binary.LittleEndian.PutUint32(b[offLeafIndex:offLeafIndex+4], c.LeafIndex)

	keyLen := len(c.KeyValue)
	if keyLen > maxKeyBytes {
		keyLen = maxKeyBytes
	}
	b[offKeyLen] = byte(keyLen)
	copy(b[offKeyBytes:offKeyBytes+keyLen], c.KeyValue[:keyLen])

	path := c.FilePath
	if len(path) > maxPathBytes-1 {
		path = path[:maxPathBytes-1]
	}
	copy(b[offFilePath:offFilePath+len(path)], path)
	b[offFilePath+len(path)] = 0

	return b
}

// ToCursor is the inverse of FromCursor for key values of up to 44 bytes
// and paths of up to 63 bytes. A longer key value shares offsets 64
// onward with the path, so the key read back ends in path bytes; a longer
// path comes back truncated to 63 bytes.
func ToCursor(b PositionBlock) *Cursor {
	c := &Cursor{}
	c.State = State(b[offState])
	c.KeyNumber = int32(binary.LittleEndian.Uint32(b[offKeyNumber : offKeyNumber+4]))
	c.RecordAddr = record.Address{
		Page: binary.LittleEndian.Uint32(b[offRecordPage : offRecordPage+4]),
		Slot: binary.LittleEndian.Uint16(b[offRecordSlot : offRecordSlot+2]),
	}
	c.LeafPage = binary.LittleEndian.Uint32(b[offLeafPage : offLeafPage+4])
	c.LeafIndex = binary.LittleEndian.Uint32(b[offLeafIndex : offLeafIndex+4])

	keyLen := int(b[offKeyLen])
	if keyLen > maxKeyBytes {
		keyLen = maxKeyBytes
	}
	c.KeyValue = append([]byte(nil), b[offKeyBytes:offKeyBytes+keyLen]...)

	end := offFilePath
	for end < offFilePath+maxPathBytes && b[end] != 0 {
		end++
	}
	c.FilePath = string(b[offFilePath:end])

	return c
}
