// Package fcr implements the Btrieve File Control Record: the file-level
// header stored in page 0, carrying page size, record layout, key specs,
// and the data-page chain endpoints. Byte offsets follow spec.md §6's
// legacy on-disk layout (see DESIGN.md, Open Question 3); field semantics
// are cross-checked against original_source's FileControlRecord.
package fcr

import (
	"encoding/binary"
	"fmt"

	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/page"
)

// Flags are file-level flags stored in the FCR.
type Flags uint16

const (
	FlagVariableLength Flags = 0x0001
	FlagReadOnly        Flags = 0x0002
	FlagTransactionable Flags = 0x0004
)

// Offsets within page 0's content, per spec.md §6.
const (
	offPageSize       = 0x08
	offNumKeys        = 0x14
	offRecordLength   = 0x16
	offNumRecords     = 0x1C
	offNumPages       = 0x20
	offFirstDataPage  = 0x24
	offLastDataPage   = 0x28
	offFlags          = 0x2C
	offKeySpecsStart  = 0x110
	keySpecStride     = 16
	maxKeys           = 24
)

// FCR is the parsed File Control Record.
type FCR struct {
	PageSize       uint16
	NumKeys        uint16
	RecordLength   uint16
	NumRecords     uint32
	NumPages       uint32
	FirstDataPage  uint32
	LastDataPage   uint32
	Flags          Flags
	Keys           []keyspec.Spec
	// IndexRoots holds each key's B+ tree root page number, stored
	// alongside (not inside) the 16-byte key-spec stride; persisted in the
	// 4 reserved bytes immediately following each key spec's 16 bytes.
	IndexRoots []uint32
}

// FromPage parses an FCR out of page 0's content area.
func FromPage(p *page.Page) (*FCR, error) {
	c := p.Content()
	if len(c) < offKeySpecsStart {
		return nil, fmt.Errorf("fcr: page too small for key spec table")
	}
	f := &FCR{
		PageSize:      binary.LittleEndian.Uint16(c[offPageSize : offPageSize+2]),
		NumKeys:       binary.LittleEndian.Uint16(c[offNumKeys : offNumKeys+2]),
		RecordLength:  binary.LittleEndian.Uint16(c[offRecordLength : offRecordLength+2]),
		NumRecords:    binary.LittleEndian.Uint32(c[offNumRecords : offNumRecords+4]),
		NumPages:      binary.LittleEndian.Uint32(c[offNumPages : offNumPages+4]),
		FirstDataPage: binary.LittleEndian.Uint32(c[offFirstDataPage : offFirstDataPage+4]),
		LastDataPage:  binary.LittleEndian.Uint32(c[offLastDataPage : offLastDataPage+4]),
		Flags:         Flags(binary.LittleEndian.Uint16(c[offFlags : offFlags+2])),
	}
	if f.NumKeys > maxKeys {
		return nil, fmt.Errorf("fcr: num_keys %d exceeds max %d", f.NumKeys, maxKeys)
	}
	f.Keys = make([]keyspec.Spec, f.NumKeys)
	f.IndexRoots = make([]uint32, f.NumKeys)
	for i := uint16(0); i < f.NumKeys; i++ {
		base := offKeySpecsStart + int(i)*keySpecStride
		if base+keySpecStride+4 > len(c) {
			return nil, fmt.Errorf("fcr: key spec %d out of bounds", i)
		}
		f.Keys[i] = keyspec.FromBytes(c[base : base+keyspec.Size])
		f.IndexRoots[i] = binary.LittleEndian.Uint32(c[base+keySpecStride : base+keySpecStride+4])
	}
	return f, nil
}

// WriteTo serializes the FCR back into page 0's content area.
func (f *FCR) WriteTo(p *page.Page) error {
	c := p.Content()
	if len(c) < offKeySpecsStart+int(f.NumKeys)*keySpecStride+4 {
		return fmt.Errorf("fcr: page too small to hold %d key specs", f.NumKeys)
	}
	p.SetType(page.TypeFCR)
	binary.LittleEndian.PutUint16(c[offPageSize:offPageSize+2], f.PageSize)
	binary.LittleEndian.PutUint16(c[offNumKeys:offNumKeys+2], f.NumKeys)
	binary.LittleEndian.PutUint16(c[offRecordLength:offRecordLength+2], f.RecordLength)
	binary.LittleEndian.PutUint32(c[offNumRecords:offNumRecords+4], f.NumRecords)
	binary.LittleEndian.PutUint32(c[offNumPages:offNumPages+4], f.NumPages)
	binary.LittleEndian.PutUint32(c[offFirstDataPage:offFirstDataPage+4], f.FirstDataPage)
	binary.LittleEndian.PutUint32(c[offLastDataPage:offLastDataPage+4], f.LastDataPage)
	binary.LittleEndian.PutUint16(c[offFlags:offFlags+2], uint16(f.Flags))
	for i, k := range f.Keys {
		base := offKeySpecsStart + i*keySpecStride
		b := k.ToBytes()
		// Bytes 0-7 of the stride are left as they are: for every key but
		// the first they hold the previous key's index root.
		copy(c[base+8:base+keyspec.Size], b[8:])
		root := uint32(0)
		if i < len(f.IndexRoots) {
			root = f.IndexRoots[i]
		}
		binary.LittleEndian.PutUint32(c[base+keySpecStride:base+keySpecStride+4], root)
	}
	p.MarkDirty()
	return nil
}

// Validate checks the invariants spec.md §3 requires of an FCR.
func (f *FCR) Validate() error {
	if !page.IsAllowedSize(f.PageSize) {
		return fmt.Errorf("fcr: page_size %d is not an allowed size", f.PageSize)
	}
	if f.RecordLength > f.PageSize-20 {
		return fmt.Errorf("fcr: record_length %d exceeds page_size-20 (%d)", f.RecordLength, f.PageSize-20)
	}
	for i, k := range f.Keys {
		if uint32(k.Position)+uint32(k.Length) > uint32(f.RecordLength) {
			return fmt.Errorf("fcr: key %d position+length exceeds record_length", i)
		}
	}
	for i, root := range f.IndexRoots {
		empty := f.NumRecords == 0
		if empty && root != 0 {
			return fmt.Errorf("fcr: key %d index_root must be 0 for an empty tree", i)
		}
	}
	return nil
}

// New constructs an FCR for a freshly created file.
func New(recordLength, pageSize uint16, keys []keyspec.Spec) *FCR {
	return &FCR{
		PageSize:     pageSize,
		NumKeys:      uint16(len(keys)),
		RecordLength: recordLength,
		Keys:         keys,
		IndexRoots:   make([]uint32, len(keys)),
	}
}
