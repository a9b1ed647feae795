// Package record implements the Btrieve data-page layout and record I/O:
// fixed-slot allocation, the slot directory, free-list reuse, and the
// record-address canonical form. Grounded on
// original_source/xtrieve-engine/src/storage/record.rs; see DESIGN.md,
// Open Question 1 for the record-address canonicalization policy.
package record

import "encoding/binary"

// Address identifies a record's physical location: a page number plus a
// slot index within that page's slot directory (spec.md §3 "Record
// address" — the canonical internal form, see DESIGN.md Open Question 1).
type Address struct {
	Page uint32
	Slot uint16
}

// Size is the packed on-disk width of an Address as stored in a B+ tree
// leaf entry: 4-byte page + 2-byte slot.
const Size = 6

func (a Address) ToBytes() [Size]byte {
	var b [Size]byte
	binary.LittleEndian.PutUint32(b[0:4], a.Page)
	binary.LittleEndian.PutUint16(b[4:6], a.Slot)
	return b
}

func AddressFromBytes(b []byte) Address {
	return Address{
		Page: binary.LittleEndian.Uint32(b[0:4]),
		Slot: binary.LittleEndian.Uint16(b[4:6]),
	}
}

// ToPosition packs the address into the 4-byte "physical position"
// projection exposed to clients by Get Position / Get Direct (opcodes
// 22/23): high 20 bits page number, low 12 bits an in-page slot-derived
// offset. Adopted from original_source's RecordAddress::to_position.
func (a Address) ToPosition() uint32 {
	offset := uint32(a.Slot) * 4
	return (a.Page << 12) | (offset & 0xFFF)
}

// AddressFromPosition is the inverse of ToPosition.
func AddressFromPosition(position uint32) Address {
	page := position >> 12
	slot := uint16((position & 0xFFF) / 4)
	return Address{Page: page, Slot: slot}
}

// OffsetToAddress converts a legacy file's raw byte offset (the form used
// by externally-produced files, per spec.md §4.6) into a page+slot-byte
// pair. Slot here is the in-page byte offset, not a slot-directory index —
// callers reading a legacy file resolve the record length directly from
// this byte position rather than via the slot directory.
func OffsetToAddress(offset uint64, pageSize uint16) (pageNum uint32, withinPage uint32) {
	return uint32(offset / uint64(pageSize)), uint32(offset % uint64(pageSize))
}
