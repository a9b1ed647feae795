package ops

import (
	"encoding/binary"

	"github.com/intellect4all/xtrieved/fcr"
	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/openfiles"
	"github.com/intellect4all/xtrieved/page"
	"github.com/intellect4all/xtrieved/status"
)

// CreateFileSpec is the parsed form of Opcode 14's data buffer:
// record_length(u16) page_size(u16) num_keys(u16) reserved(u32)
// key_spec[16] x num_keys, per spec.md §6.
type CreateFileSpec struct {
	RecordLength uint16
	PageSize     uint16
	Keys         []keyspec.Spec
}

// ParseCreateFileSpec decodes Opcode 14's data buffer.
func ParseCreateFileSpec(data []byte) (CreateFileSpec, error) {
	if len(data) < 10 {
		return CreateFileSpec{}, status.New(status.DataBufferTooShort, "create file-spec buffer too short")
	}
	spec := CreateFileSpec{
		RecordLength: binary.LittleEndian.Uint16(data[0:2]),
		PageSize:     binary.LittleEndian.Uint16(data[2:4]),
	}
	numKeys := binary.LittleEndian.Uint16(data[4:6])
	// bytes 6:10 are reserved.
	const keySpecWireSize = 16
	need := 10 + int(numKeys)*keySpecWireSize
	if len(data) < need {
		return CreateFileSpec{}, status.New(status.DataBufferTooShort, "create file-spec buffer truncated for key specs")
	}
	spec.Keys = make([]keyspec.Spec, numKeys)
	for i := 0; i < int(numKeys); i++ {
		base := 10 + i*keySpecWireSize
		k := data[base : base+keySpecWireSize]
		spec.Keys[i] = keyspec.Spec{
			Position: binary.LittleEndian.Uint16(k[0:2]),
			Length:   binary.LittleEndian.Uint16(k[2:4]),
			Flags:    keyspec.Flags(binary.LittleEndian.Uint16(k[4:6])),
			Type:     keyspec.Type(k[6]),
			NullValue: k[7],
		}
	}
	return spec, nil
}

// CreateFile validates spec and creates a new file via table.
func CreateFile(table *openfiles.Table, path string, spec CreateFileSpec) error {
	if !page.IsAllowedSize(spec.PageSize) {
		return status.New(status.PageSizeError, "page_size is not one of the allowed sizes")
	}
	if spec.RecordLength > spec.PageSize-20 {
		return status.New(status.InvalidRecordLength, "record_length exceeds page_size-20")
	}
	for _, k := range spec.Keys {
		if uint32(k.Position)+uint32(k.Length) > uint32(spec.RecordLength) {
			return status.New(status.InvalidKeyPosition, "key position+length exceeds record_length")
		}
	}
	f := fcr.New(spec.RecordLength, spec.PageSize, spec.Keys)
	_, err := table.Create(path, f)
	return err
}

// StatResponse is the payload for Opcode 15.
type StatResponse struct {
	RecordLength uint16
	PageSize     uint16
	NumKeys      uint16
	NumRecords   uint32
	Flags        uint16
	UnusedPages  uint16
	Keys         []keyspec.Spec
}

// Stat builds Opcode 15's response payload from an open file's FCR.
func Stat(f *File) StatResponse {
	fc := f.FCR()
	return StatResponse{
		RecordLength: fc.RecordLength,
		PageSize:     fc.PageSize,
		NumKeys:      fc.NumKeys,
		NumRecords:   fc.NumRecords,
		Flags:        uint16(fc.Flags),
		Keys:         fc.Keys,
	}
}

// ToBytes serializes the stat response per spec.md §6:
// record_length(u16) page_size(u16) num_keys(u16) num_records(u32)
// flags(u16) unused_pages(u16) key_spec[...] x num_keys.
func (s StatResponse) ToBytes() []byte {
	out := make([]byte, 14+len(s.Keys)*keyspec.Size)
	binary.LittleEndian.PutUint16(out[0:2], s.RecordLength)
	binary.LittleEndian.PutUint16(out[2:4], s.PageSize)
	binary.LittleEndian.PutUint16(out[4:6], s.NumKeys)
	binary.LittleEndian.PutUint32(out[6:10], s.NumRecords)
	binary.LittleEndian.PutUint16(out[10:12], s.Flags)
	binary.LittleEndian.PutUint16(out[12:14], s.UnusedPages)
	for i, k := range s.Keys {
		b := k.ToBytes()
		copy(out[14+i*keyspec.Size:14+(i+1)*keyspec.Size], b[:])
	}
	return out
}

// CreateSupplementalIndex adds a new key (and its own empty B+ tree root)
// to an already-open file, per SPEC_FULL.md's supplement of opcodes
// 31/32.
func CreateSupplementalIndex(f *File, spec keyspec.Spec) error {
	fc := f.FCR()
	if uint32(spec.Position)+uint32(spec.Length) > uint32(fc.RecordLength) {
		return status.New(status.InvalidKeyPosition, "supplemental key position+length exceeds record_length")
	}
	fc.Keys = append(fc.Keys, spec)
	fc.IndexRoots = append(fc.IndexRoots, 0)
	fc.NumKeys++
	return status.Wrap(f.Of.UpdateFCR())
}

// DropSupplementalIndex removes keyNumber's key spec and index root. The
// index's own pages are left allocated (no page reclamation in this
// engine, per spec.md §3 "Lifecycle").
func DropSupplementalIndex(f *File, keyNumber int) error {
	fc := f.FCR()
	if keyNumber < 0 || keyNumber >= len(fc.Keys) {
		return status.New(status.InvalidKeyNumber, "key number out of range")
	}
	fc.Keys = append(fc.Keys[:keyNumber], fc.Keys[keyNumber+1:]...)
	fc.IndexRoots = append(fc.IndexRoots[:keyNumber], fc.IndexRoots[keyNumber+1:]...)
	fc.NumKeys--
	return status.Wrap(f.Of.UpdateFCR())
}
