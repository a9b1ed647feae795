package btree

// Comparator orders two key byte-slices, matching keyspec.Spec.Compare.
type Comparator func(a, b []byte) int

// FindChild returns the child page to descend into for key, for an
// internal node. Entries are sorted ascending; LeftmostChild covers keys
// less than every entry's key, and each entry's child covers keys
// greater than or equal to that entry's key but less than the next
// entry's key.
func (n *Node) FindChild(key []byte, cmp Comparator) uint32 {
	child := n.LeftmostChild
	for _, e := range n.InternalEntries {
		if cmp(key, e.Key) >= 0 {
			child = e.Child
		} else {
			break
		}
	}
	return child
}

// FindExact returns the index of the first leaf entry matching key
// exactly, or (-1, false).
func (n *Node) FindExact(key []byte, cmp Comparator) (int, bool) {
	for i, e := range n.LeafEntries {
		if cmp(e.Key, key) == 0 {
			return i, true
		}
	}
	return -1, false
}

// FindGE returns the index of the first leaf entry >= key.
func (n *Node) FindGE(key []byte, cmp Comparator) (int, bool) {
	for i, e := range n.LeafEntries {
		if cmp(e.Key, key) >= 0 {
			return i, true
		}
	}
	return 0, false
}

// FindGT returns the index of the first leaf entry > key.
func (n *Node) FindGT(key []byte, cmp Comparator) (int, bool) {
	for i, e := range n.LeafEntries {
		if cmp(e.Key, key) > 0 {
			return i, true
		}
	}
	return 0, false
}

// FindLE returns the index of the last leaf entry <= key.
func (n *Node) FindLE(key []byte, cmp Comparator) (int, bool) {
	found := -1
	for i, e := range n.LeafEntries {
		if cmp(e.Key, key) <= 0 {
			found = i
		} else {
			break
		}
	}
	return found, found >= 0
}

// FindLT returns the index of the last leaf entry < key.
func (n *Node) FindLT(key []byte, cmp Comparator) (int, bool) {
	found := -1
	for i, e := range n.LeafEntries {
		if cmp(e.Key, key) < 0 {
			found = i
		} else {
			break
		}
	}
	return found, found >= 0
}

// FindIndex returns the insertion point for key among the leaf entries,
// keeping them sorted ascending by cmp.
func (n *Node) FindIndex(key []byte, cmp Comparator) int {
	for i, e := range n.LeafEntries {
		if cmp(key, e.Key) < 0 {
			return i
		}
	}
	return len(n.LeafEntries)
}

func (n *Node) FirstLeafEntry() (LeafEntry, bool) {
	if len(n.LeafEntries) == 0 {
		return LeafEntry{}, false
	}
	return n.LeafEntries[0], true
}

func (n *Node) LastLeafEntry() (LeafEntry, bool) {
	if len(n.LeafEntries) == 0 {
		return LeafEntry{}, false
	}
	return n.LeafEntries[len(n.LeafEntries)-1], true
}
