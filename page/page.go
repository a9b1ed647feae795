// Package page implements the fixed-size on-disk page: a 12-byte header
// (type tag, usage counter, forward/back chain pointers) followed by
// page-size-dependent content, per spec.md §3 "Page" and §6's legacy byte
// layout. Header tag values are adopted from original_source's page.rs,
// which spec.md describes only abstractly ("page type tag").
package page

import "encoding/binary"

// Type tags identify what a page holds. Values match
// original_source/xtrieve-engine/src/storage/page.rs's PageType so files
// written by either engine tag pages identically.
type Type byte

const (
	TypeFCR      Type = 0x00
	TypePAT      Type = 0x01 // page allocation table; reserved, unused by this core (see DESIGN.md)
	TypeData     Type = 0x02
	TypeIndex    Type = 0x03
	TypeVariable Type = 0x04 // variable-length records; out of scope per spec.md §1
	TypeUnknown  Type = 0xFF
)

// HeaderSize is the fixed 12-byte page header: type(1) + reserved(1) +
// usage(2) + next(4) + prev(4).
const HeaderSize = 12

// Allowed page sizes per spec.md §3.
var AllowedSizes = [4]uint16{512, 1024, 2048, 4096}

// IsAllowedSize reports whether n is one of the four legal page sizes.
func IsAllowedSize(n uint16) bool {
	for _, s := range AllowedSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Page is a fixed-size byte buffer with a typed header view over its
// first HeaderSize bytes.
type Page struct {
	Number uint32
	data   []byte
	dirty  bool
}

// New allocates a zeroed page of the given size tagged with typ.
func New(number uint32, size uint16, typ Type) *Page {
	p := &Page{Number: number, data: make([]byte, size)}
	p.SetType(typ)
	return p
}

// FromBytes wraps an existing buffer (read from disk) as a Page without
// copying. The caller must not reuse buf afterward.
func FromBytes(number uint32, buf []byte) *Page {
	return &Page{Number: number, data: buf}
}

func (p *Page) Bytes() []byte { return p.data }
func (p *Page) Size() int     { return len(p.data) }
func (p *Page) Dirty() bool   { return p.dirty }
func (p *Page) MarkDirty()    { p.dirty = true }
func (p *Page) ClearDirty()   { p.dirty = false }

func (p *Page) Type() Type { return Type(p.data[0]) }
func (p *Page) SetType(t Type) {
	p.data[0] = byte(t)
	p.dirty = true
}

func (p *Page) Usage() uint16 { return binary.LittleEndian.Uint16(p.data[2:4]) }
func (p *Page) SetUsage(v uint16) {
	binary.LittleEndian.PutUint16(p.data[2:4], v)
	p.dirty = true
}

func (p *Page) Next() uint32 { return binary.LittleEndian.Uint32(p.data[4:8]) }
func (p *Page) SetNext(v uint32) {
	binary.LittleEndian.PutUint32(p.data[4:8], v)
	p.dirty = true
}

func (p *Page) Prev() uint32 { return binary.LittleEndian.Uint32(p.data[8:12]) }
func (p *Page) SetPrev(v uint32) {
	binary.LittleEndian.PutUint32(p.data[8:12], v)
	p.dirty = true
}

// Content is the page's payload area, following the 12-byte header.
func (p *Page) Content() []byte { return p.data[HeaderSize:] }

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	cp := make([]byte, len(p.data))
	copy(cp, p.data)
	return &Page{Number: p.Number, data: cp}
}
