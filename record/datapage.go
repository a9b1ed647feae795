package record

import (
	"encoding/binary"

	"github.com/intellect4all/xtrieved/page"
)

// SlotEntry describes one record's location within a data page's slot
// directory, which grows backward from the end of the page (spec.md §3
// "Data page"). Grounded on original_source's SlotEntry.
type SlotEntry struct {
	Offset uint16 // byte offset from start of page content area
	Length uint16
	Flags  byte
}

const SlotEntrySize = 5

const (
	SlotFlagInUse   byte = 0x01
	SlotFlagFragment byte = 0x02
	SlotFlagDeleted byte = 0x04
)

func (s SlotEntry) InUse() bool    { return s.Flags&SlotFlagInUse != 0 }
func (s SlotEntry) IsDeleted() bool { return s.Flags&SlotFlagDeleted != 0 }

func slotEntryFromBytes(b []byte) SlotEntry {
	return SlotEntry{
		Offset: binary.LittleEndian.Uint16(b[0:2]),
		Length: binary.LittleEndian.Uint16(b[2:4]),
		Flags:  b[4],
	}
}

func (s SlotEntry) toBytes() [SlotEntrySize]byte {
	var b [SlotEntrySize]byte
	binary.LittleEndian.PutUint16(b[0:2], s.Offset)
	binary.LittleEndian.PutUint16(b[2:4], s.Length)
	b[4] = s.Flags
	return b
}

// DataPage is a view over a page.Page's content area, interpreting it as
// a Btrieve data page: records grow from the header forward, the slot
// directory grows from the tail backward, free space lies between them.
//
// Content layout (after the 12-byte page.Page header):
//
//	[0:2]   slotCount (u16)
//	[2:4]   freeSpace (u16), bytes available between the record area and
//	        the slot directory, plus the payload bytes of deleted slots
//	        waiting on the free list
//	[4:6]   freeSlotHead (u16), index of the first slot on the free list,
//	        0xFFFF if empty
//	[6:]    record bytes, growing forward; slot directory at the tail,
//	        growing backward, SlotEntrySize bytes per slot
type DataPage struct {
	p *page.Page
}

const dataPageHeaderSize = 6
const noFreeSlot = 0xFFFF

// NewDataPage initializes a freshly allocated page as an empty data page.
func NewDataPage(p *page.Page) *DataPage {
	p.SetType(page.TypeData)
	content := p.Content()
	binary.LittleEndian.PutUint16(content[0:2], 0)
	binary.LittleEndian.PutUint16(content[2:4], uint16(len(content)-dataPageHeaderSize))
	binary.LittleEndian.PutUint16(content[4:6], noFreeSlot)
	p.MarkDirty()
	return &DataPage{p: p}
}

// WrapDataPage views an already-populated page as a DataPage.
func WrapDataPage(p *page.Page) *DataPage { return &DataPage{p: p} }

func (d *DataPage) content() []byte { return d.p.Content() }

func (d *DataPage) SlotCount() uint16 {
	return binary.LittleEndian.Uint16(d.content()[0:2])
}

func (d *DataPage) setSlotCount(n uint16) {
	binary.LittleEndian.PutUint16(d.content()[0:2], n)
	d.p.MarkDirty()
}

func (d *DataPage) FreeSpace() uint16 {
	return binary.LittleEndian.Uint16(d.content()[2:4])
}

func (d *DataPage) setFreeSpace(n uint16) {
	binary.LittleEndian.PutUint16(d.content()[2:4], n)
	d.p.MarkDirty()
}

func (d *DataPage) freeSlotHead() uint16 {
	return binary.LittleEndian.Uint16(d.content()[4:6])
}

func (d *DataPage) setFreeSlotHead(n uint16) {
	binary.LittleEndian.PutUint16(d.content()[4:6], n)
	d.p.MarkDirty()
}

func (d *DataPage) slotDirOffset(index uint16) int {
	content := d.content()
	return len(content) - (int(index)+1)*SlotEntrySize
}

func (d *DataPage) slotAt(index uint16) SlotEntry {
	content := d.content()
	off := d.slotDirOffset(index)
	return slotEntryFromBytes(content[off : off+SlotEntrySize])
}

func (d *DataPage) setSlotAt(index uint16, s SlotEntry) {
	content := d.content()
	off := d.slotDirOffset(index)
	b := s.toBytes()
	copy(content[off:off+SlotEntrySize], b[:])
	d.p.MarkDirty()
}

// CanFit reports whether a record of the given length can be appended
// without allocating a new page, accounting for the new slot-directory
// entry the append would also need.
func (d *DataPage) CanFit(recordLength uint16) bool {
	usable := d.FreeSpace()
	if usable < SlotEntrySize {
		return false
	}
	return usable-SlotEntrySize >= recordLength
}

// recordAreaEnd returns the offset one past the last byte currently used
// by record data (i.e. where a new record would be appended).
func (d *DataPage) recordAreaEnd() uint16 {
	content := d.content()
	total := uint16(len(content))
	slotDirBytes := d.SlotCount() * SlotEntrySize
	return total - slotDirBytes - d.FreeSpace()
}

// Insert stores data in a free slot (reusing the free list head first) or
// appends a new slot, per spec.md §4.6. Returns the slot index used.
func (d *DataPage) Insert(data []byte) (uint16, bool) {
	if head := d.freeSlotHead(); head != noFreeSlot {
		slot := d.slotAt(head)
		// The free slot's own payload area holds the link to the next
		// free slot in its first two bytes (spec.md §3: "storing the
		// previous head in the first two bytes of the freed slot").
		content := d.content()
		nextFree := binary.LittleEndian.Uint16(content[slot.Offset : slot.Offset+2])
		if int(slot.Length) < len(data) {
			// Reused slot too small for the new record; fall through to
			// append instead, leaving the slot on the free list.
		} else {
			d.setFreeSlotHead(nextFree)
			d.setFreeSpace(d.FreeSpace() - slot.Length)
			copy(content[slot.Offset:], data)
			d.setSlotAt(head, SlotEntry{Offset: slot.Offset, Length: uint16(len(data)), Flags: SlotFlagInUse})
			return head, true
		}
	}

	if !d.CanFit(uint16(len(data))) {
		return 0, false
	}
	offset := d.recordAreaEnd()
	content := d.content()
	copy(content[offset:], data)
	idx := d.SlotCount()
	d.setSlotAt(idx, SlotEntry{Offset: offset, Length: uint16(len(data)), Flags: SlotFlagInUse})
	d.setSlotCount(idx + 1)
	d.setFreeSpace(d.FreeSpace() - uint16(len(data)) - SlotEntrySize)
	return idx, true
}

// Get returns the record bytes at slot, or nil if the slot is unused or
// deleted.
func (d *DataPage) Get(slot uint16) []byte {
	if slot >= d.SlotCount() {
		return nil
	}
	e := d.slotAt(slot)
	if !e.InUse() || e.IsDeleted() {
		return nil
	}
	content := d.content()
	return content[e.Offset : e.Offset+e.Length]
}

// Update overwrites the bytes at slot in place. The caller must ensure
// len(data) <= the slot's current length (spec.md §4.6: "Update replaces
// record bytes in place when the new length <= the old slot length").
func (d *DataPage) Update(slot uint16, data []byte) bool {
	e := d.slotAt(slot)
	if !e.InUse() || e.IsDeleted() || uint16(len(data)) > e.Length {
		return false
	}
	content := d.content()
	copy(content[e.Offset:e.Offset+uint16(len(data))], data)
	d.setSlotAt(slot, SlotEntry{Offset: e.Offset, Length: uint16(len(data)), Flags: SlotFlagInUse})
	return true
}

// Delete marks slot deleted and prepends it to the free list, storing the
// previous free-list head in the first two bytes of the freed payload
// (spec.md §3 "Data page").
func (d *DataPage) Delete(slot uint16) bool {
	e := d.slotAt(slot)
	if !e.InUse() || e.IsDeleted() {
		return false
	}
	content := d.content()
	prevHead := d.freeSlotHead()
	binary.LittleEndian.PutUint16(content[e.Offset:e.Offset+2], prevHead)
	d.setFreeSlotHead(slot)
	d.setSlotAt(slot, SlotEntry{Offset: e.Offset, Length: e.Length, Flags: SlotFlagDeleted})
	d.setFreeSpace(d.FreeSpace() + e.Length)
	return true
}

// FirstSlot, NextSlot, PrevSlot, LastSlot support physical Step traversal
// (spec.md §4.5/§4.7 Step opcodes), walking the slot directory in index
// order while skipping deleted/unused slots.
func (d *DataPage) FirstSlot() (uint16, bool) {
	for i := uint16(0); i < d.SlotCount(); i++ {
		if e := d.slotAt(i); e.InUse() && !e.IsDeleted() {
			return i, true
		}
	}
	return 0, false
}

func (d *DataPage) LastSlot() (uint16, bool) {
	for i := d.SlotCount(); i > 0; i-- {
		if e := d.slotAt(i - 1); e.InUse() && !e.IsDeleted() {
			return i - 1, true
		}
	}
	return 0, false
}

func (d *DataPage) NextSlot(after uint16) (uint16, bool) {
	for i := after + 1; i < d.SlotCount(); i++ {
		if e := d.slotAt(i); e.InUse() && !e.IsDeleted() {
			return i, true
		}
	}
	return 0, false
}

func (d *DataPage) PrevSlot(before uint16) (uint16, bool) {
	if before == 0 {
		return 0, false
	}
	for i := before; i > 0; i-- {
		if e := d.slotAt(i - 1); e.InUse() && !e.IsDeleted() {
			return i - 1, true
		}
	}
	return 0, false
}

// RecordCount returns the number of live (in-use, non-deleted) slots.
func (d *DataPage) RecordCount() int {
	n := 0
	for i := uint16(0); i < d.SlotCount(); i++ {
		if e := d.slotAt(i); e.InUse() && !e.IsDeleted() {
			n++
		}
	}
	return n
}

func (d *DataPage) Underlying() *page.Page { return d.p }
