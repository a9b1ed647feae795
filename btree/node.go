// Package btree implements the per-key B+ tree index: node parsing and
// serialization, search, insert-with-split, and delete without
// rebalancing (see DESIGN.md, Open Question 5). Node shape and split
// mechanics are grounded on
// original_source/xtrieve-engine/src/storage/btree.rs; the 16-byte
// header field positions additionally line up with spec.md §6's legacy
// index-page layout (entry_count at +6, sibling pointers at +8/+12).
package btree

import (
	"encoding/binary"

	"github.com/intellect4all/xtrieved/page"
	"github.com/intellect4all/xtrieved/record"
)

// HeaderSize is the fixed index-node header within a page's content area.
const HeaderSize = 16

// InternalEntry pairs a separator key with the child page holding keys
// greater than or equal to it. Child pages for keys less than every
// entry's key are reached via the node's LeftmostChild.
type InternalEntry struct {
	Key   []byte
	Child uint32
}

// LeafEntry maps a key to the record address it indexes. DupSeq
// disambiguates entries with equal keys when the index allows
// duplicates.
type LeafEntry struct {
	Key    []byte
	Addr   record.Address
	DupSeq uint32
}

// Node is the in-memory view of one B+ tree index page.
type Node struct {
	PageNumber uint32
	Leaf       bool
	KeyLen     int // fixed key width for this index, from its keyspec.Spec.Length

	// Internal-node fields.
	LeftmostChild   uint32
	InternalEntries []InternalEntry

	// Leaf-node fields.
	PrevSibling uint32
	NextSibling uint32
	LeafEntries []LeafEntry
}

const (
	internalEntryOverhead = 4         // child page number
	leafEntryOverhead     = record.Size + 4 // address + dup sequence
)

func (n *Node) internalEntrySize() int { return n.KeyLen + internalEntryOverhead }
func (n *Node) leafEntrySize() int     { return n.KeyLen + leafEntryOverhead }

// NewLeaf creates an empty leaf node.
func NewLeaf(pageNumber uint32, keyLen int) *Node {
	return &Node{PageNumber: pageNumber, Leaf: true, KeyLen: keyLen}
}

// NewInternal creates an empty internal node with the given leftmost
// child (the subtree holding keys less than every entry in the node).
func NewInternal(pageNumber uint32, keyLen int, leftmostChild uint32) *Node {
	return &Node{PageNumber: pageNumber, Leaf: false, KeyLen: keyLen, LeftmostChild: leftmostChild}
}

// FromPage parses a Node from a page's content area. keyLen must be the
// indexed key's fixed length, known from the index's keyspec.Spec.
func FromPage(p *page.Page, keyLen int) *Node {
	c := p.Content()
	n := &Node{PageNumber: p.Number, KeyLen: keyLen}
	n.Leaf = c[0] == 1
	entryCount := binary.LittleEndian.Uint16(c[6:8])
	sibA := binary.LittleEndian.Uint32(c[8:12])
	sibB := binary.LittleEndian.Uint32(c[12:16])

	if n.Leaf {
		n.PrevSibling = sibA
		n.NextSibling = sibB
		n.LeafEntries = make([]LeafEntry, entryCount)
		off := HeaderSize
		for i := 0; i < int(entryCount); i++ {
			sz := n.leafEntrySize()
			e := c[off : off+sz]
			key := make([]byte, keyLen)
			copy(key, e[0:keyLen])
			addr := record.AddressFromBytes(e[keyLen : keyLen+record.Size])
			dup := binary.LittleEndian.Uint32(e[keyLen+record.Size : keyLen+record.Size+4])
			n.LeafEntries[i] = LeafEntry{Key: key, Addr: addr, DupSeq: dup}
			off += sz
		}
	} else {
		n.LeftmostChild = sibA
		n.InternalEntries = make([]InternalEntry, entryCount)
		off := HeaderSize
		for i := 0; i < int(entryCount); i++ {
			sz := n.internalEntrySize()
			e := c[off : off+sz]
			key := make([]byte, keyLen)
			copy(key, e[0:keyLen])
			child := binary.LittleEndian.Uint32(e[keyLen : keyLen+4])
			n.InternalEntries[i] = InternalEntry{Key: key, Child: child}
			off += sz
		}
	}
	return n
}

// WriteTo serializes the node back into p's content area.
func (n *Node) WriteTo(p *page.Page) {
	c := p.Content()
	p.SetType(page.TypeIndex)
	if n.Leaf {
		c[0] = 1
	} else {
		c[0] = 0
	}
	c[1] = 0

	if n.Leaf {
		binary.LittleEndian.PutUint16(c[6:8], uint16(len(n.LeafEntries)))
		binary.LittleEndian.PutUint32(c[8:12], n.PrevSibling)
		binary.LittleEndian.PutUint32(c[12:16], n.NextSibling)
		off := HeaderSize
		sz := n.leafEntrySize()
		for _, e := range n.LeafEntries {
			copy(c[off:off+n.KeyLen], e.Key)
			addrBytes := e.Addr.ToBytes()
			copy(c[off+n.KeyLen:off+n.KeyLen+record.Size], addrBytes[:])
			binary.LittleEndian.PutUint32(c[off+n.KeyLen+record.Size:off+sz], e.DupSeq)
			off += sz
		}
	} else {
		binary.LittleEndian.PutUint16(c[6:8], uint16(len(n.InternalEntries)))
		binary.LittleEndian.PutUint32(c[8:12], n.LeftmostChild)
		binary.LittleEndian.PutUint32(c[12:16], 0)
		off := HeaderSize
		sz := n.internalEntrySize()
		for _, e := range n.InternalEntries {
			copy(c[off:off+n.KeyLen], e.Key)
			binary.LittleEndian.PutUint32(c[off+n.KeyLen:off+sz], e.Child)
			off += sz
		}
	}
	p.MarkDirty()
}

// MaxEntries reports how many entries of this node's kind fit in a page
// of pageSize bytes.
func (n *Node) MaxEntries(pageSize int) int {
	avail := pageSize - page.HeaderSize - HeaderSize
	if n.Leaf {
		return avail / n.leafEntrySize()
	}
	return avail / n.internalEntrySize()
}

// IsFull reports whether the node has no room for one more entry.
func (n *Node) IsFull(pageSize int) bool {
	if n.Leaf {
		return len(n.LeafEntries) >= n.MaxEntries(pageSize)
	}
	return len(n.InternalEntries) >= n.MaxEntries(pageSize)
}
