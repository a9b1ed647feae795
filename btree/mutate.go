package btree

import "bytes"

// InsertLeafEntry inserts e in sorted order. If an entry with an equal
// key already exists and allowDups is false, the insert is rejected
// (mirrors a unique-key index's duplicate-key check).
func (n *Node) InsertLeafEntry(e LeafEntry, allowDups bool, cmp Comparator) bool {
	idx := n.FindIndex(e.Key, cmp)
	if !allowDups {
		if idx > 0 && cmp(n.LeafEntries[idx-1].Key, e.Key) == 0 {
			return false
		}
		if idx < len(n.LeafEntries) && cmp(n.LeafEntries[idx].Key, e.Key) == 0 {
			return false
		}
	} else if idx < len(n.LeafEntries) && cmp(n.LeafEntries[idx].Key, e.Key) == 0 {
		// Keep duplicates grouped by insertion order within equal keys,
		// advancing past existing entries with the same key.
		for idx < len(n.LeafEntries) && cmp(n.LeafEntries[idx].Key, e.Key) == 0 {
			idx++
		}
	}
	n.LeafEntries = append(n.LeafEntries, LeafEntry{})
	copy(n.LeafEntries[idx+1:], n.LeafEntries[idx:])
	n.LeafEntries[idx] = e
	return true
}

// InsertInternalEntry inserts e in sorted order by key.
func (n *Node) InsertInternalEntry(e InternalEntry, cmp Comparator) {
	idx := 0
	for idx < len(n.InternalEntries) && cmp(n.InternalEntries[idx].Key, e.Key) < 0 {
		idx++
	}
	n.InternalEntries = append(n.InternalEntries, InternalEntry{})
	copy(n.InternalEntries[idx+1:], n.InternalEntries[idx:])
	n.InternalEntries[idx] = e
}

// RemoveLeafEntry removes the first entry matching both key and address,
// reporting whether it was found. No rebalancing is attempted after
// removal (see DESIGN.md, Open Question 5): the tree may become
// under-full but stays structurally valid.
func (n *Node) RemoveLeafEntry(key []byte, addr []byte, cmp Comparator) bool {
	for i, e := range n.LeafEntries {
		eb := e.Addr.ToBytes()
		if cmp(e.Key, key) == 0 && bytes.Equal(eb[:], addr) {
			n.LeafEntries = append(n.LeafEntries[:i], n.LeafEntries[i+1:]...)
			return true
		}
	}
	return false
}

// SplitLeaf divides n's entries in half, moving the upper half into
// newPage. It returns the new right-hand node and the separator key
// (the right node's first key) to promote into the parent.
func (n *Node) SplitLeaf(newPageNumber uint32) (*Node, []byte) {
	mid := len(n.LeafEntries) / 2
	right := NewLeaf(newPageNumber, n.KeyLen)
	right.LeafEntries = append(right.LeafEntries, n.LeafEntries[mid:]...)
	n.LeafEntries = n.LeafEntries[:mid]

	right.NextSibling = n.NextSibling
	right.PrevSibling = n.PageNumber
	n.NextSibling = newPageNumber

	separator := right.LeafEntries[0].Key
	return right, separator
}

// SplitInternal divides n's entries in half, removing and promoting the
// middle entry: its key becomes the parent's new separator and its child
// becomes the new right node's LeftmostChild.
func (n *Node) SplitInternal(newPageNumber uint32) (*Node, []byte, uint32) {
	mid := len(n.InternalEntries) / 2
	promoted := n.InternalEntries[mid]

	right := NewInternal(newPageNumber, n.KeyLen, promoted.Child)
	right.InternalEntries = append(right.InternalEntries, n.InternalEntries[mid+1:]...)
	n.InternalEntries = n.InternalEntries[:mid]

	return right, promoted.Key, promoted.Child
}
