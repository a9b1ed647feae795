package btree

import (
	"github.com/intellect4all/xtrieved/page"
	"github.com/intellect4all/xtrieved/record"
)

// PageStore is the page-level I/O surface a Tree needs. Concrete
// implementations (backed by the page cache and open-file table) are
// wired in by package ops.
type PageStore interface {
	GetPage(pageNumber uint32) (*page.Page, error)
	AllocatePage() (*page.Page, error)
	PutPage(p *page.Page) error
}

// Tree is one key's B+ tree index.
type Tree struct {
	Store      PageStore
	RootPage   uint32
	KeyLen     int
	PageSize   int
	AllowDups  bool
	Cmp        Comparator
	// Chained reports whether leaf nodes are linked via PrevSibling/
	// NextSibling; when false, Next and Prev use SortedScan instead.
	// Package ops sets it for every tree it builds; nothing inspects a
	// file's leaves to detect an unchained index (see DESIGN.md, Open
	// Question 4).
	Chained bool
}

// SearchResult reports the outcome of a point search.
type SearchResult struct {
	LeafPage   uint32
	EntryIndex int
	Entry      LeafEntry
	Exact      bool
}

func (t *Tree) loadNode(pageNumber uint32) (*Node, error) {
	p, err := t.Store.GetPage(pageNumber)
	if err != nil {
		return nil, err
	}
	return FromPage(p, t.KeyLen), nil
}

func (t *Tree) saveNode(n *Node) error {
	p, err := t.Store.GetPage(n.PageNumber)
	if err != nil {
		return err
	}
	n.WriteTo(p)
	return t.Store.PutPage(p)
}

// descendToLeaf walks from the root to the leaf that would contain key,
// returning the path of internal-node page numbers visited (for splits)
// and the leaf node itself.
func (t *Tree) descendToLeaf(key []byte) ([]uint32, *Node, error) {
	var path []uint32
	pageNum := t.RootPage
	for {
		n, err := t.loadNode(pageNum)
		if err != nil {
			return nil, nil, err
		}
		if n.Leaf {
			return path, n, nil
		}
		path = append(path, pageNum)
		pageNum = n.FindChild(key, t.Cmp)
	}
}

// Search finds the first entry matching key exactly.
func (t *Tree) Search(key []byte) (SearchResult, error) {
	_, leaf, err := t.descendToLeaf(key)
	if err != nil {
		return SearchResult{}, err
	}
	idx, ok := leaf.FindExact(key, t.Cmp)
	if !ok {
		return SearchResult{LeafPage: leaf.PageNumber}, nil
	}
	return SearchResult{LeafPage: leaf.PageNumber, EntryIndex: idx, Entry: leaf.LeafEntries[idx], Exact: true}, nil
}

// Insert adds (key, addr) to the tree, splitting nodes along the
// insertion path as needed. Returns false if the key already exists and
// the index does not allow duplicates.
func (t *Tree) Insert(key []byte, addr record.Address) (bool, error) {
	path, leaf, err := t.descendToLeaf(key)
	if err != nil {
		return false, err
	}
	if !leaf.InsertLeafEntry(LeafEntry{Key: key, Addr: addr}, t.AllowDups, t.Cmp) {
		return false, nil
	}
	if err := t.saveNode(leaf); err != nil {
		return false, err
	}
	if !leaf.IsFull(t.PageSize) {
		return true, nil
	}
	return true, t.splitUpward(path, leaf)
}

// splitUpward splits leaf and propagates promoted separators up the
// path, splitting ancestors in turn if they overflow, allocating a new
// root when the original root itself splits.
func (t *Tree) splitUpward(path []uint32, full *Node) error {
	newPage, err := t.Store.AllocatePage()
	if err != nil {
		return err
	}
	var separator []byte
	var promotedChild uint32
	isLeaf := full.Leaf

	if full.Leaf {
		right, sep := full.SplitLeaf(newPage.Number)
		separator = sep
		if err := t.saveNode(full); err != nil {
			return err
		}
		if err := t.saveNode(right); err != nil {
			return err
		}
		if right.NextSibling != 0 {
			after, err := t.loadNode(right.NextSibling)
			if err != nil {
				return err
			}
			after.PrevSibling = right.PageNumber
			if err := t.saveNode(after); err != nil {
				return err
			}
		}
		promotedChild = right.PageNumber
	} else {
		right, sep, _ := full.SplitInternal(newPage.Number)
		separator = sep
		if err := t.saveNode(full); err != nil {
			return err
		}
		if err := t.saveNode(right); err != nil {
			return err
		}
		promotedChild = right.PageNumber
	}
	_ = isLeaf

	if len(path) == 0 {
		// full was the root; allocate a new root pointing at both halves.
		newRootPage, err := t.Store.AllocatePage()
		if err != nil {
			return err
		}
		newRoot := NewInternal(newRootPage.Number, t.KeyLen, full.PageNumber)
		newRoot.InsertInternalEntry(InternalEntry{Key: separator, Child: promotedChild}, t.Cmp)
		if err := t.saveNode(newRoot); err != nil {
			return err
		}
		t.RootPage = newRoot.PageNumber
		return nil
	}

	parentPage := path[len(path)-1]
	parent, err := t.loadNode(parentPage)
	if err != nil {
		return err
	}
	parent.InsertInternalEntry(InternalEntry{Key: separator, Child: promotedChild}, t.Cmp)
	if err := t.saveNode(parent); err != nil {
		return err
	}
	if !parent.IsFull(t.PageSize) {
		return nil
	}
	return t.splitUpward(path[:len(path)-1], parent)
}

// Delete removes the entry matching key and addr. No rebalancing is
// performed (see DESIGN.md, Open Question 5).
func (t *Tree) Delete(key []byte, addr record.Address) (bool, error) {
	_, leaf, err := t.descendToLeaf(key)
	if err != nil {
		return false, err
	}
	addrBytes := addr.ToBytes()
	if !leaf.RemoveLeafEntry(key, addrBytes[:], t.Cmp) {
		return false, nil
	}
	return true, t.saveNode(leaf)
}

// First returns the smallest-keyed leaf entry in the tree.
func (t *Tree) First() (SearchResult, error) {
	pageNum := t.RootPage
	for {
		n, err := t.loadNode(pageNum)
		if err != nil {
			return SearchResult{}, err
		}
		if n.Leaf {
			e, ok := n.FirstLeafEntry()
			if !ok {
				return SearchResult{LeafPage: n.PageNumber}, nil
			}
			return SearchResult{LeafPage: n.PageNumber, EntryIndex: 0, Entry: e, Exact: true}, nil
		}
		if len(n.InternalEntries) == 0 {
			pageNum = n.LeftmostChild
			continue
		}
		pageNum = n.LeftmostChild
	}
}

// Last returns the largest-keyed leaf entry in the tree.
func (t *Tree) Last() (SearchResult, error) {
	pageNum := t.RootPage
	for {
		n, err := t.loadNode(pageNum)
		if err != nil {
			return SearchResult{}, err
		}
		if n.Leaf {
			e, ok := n.LastLeafEntry()
			if !ok {
				return SearchResult{LeafPage: n.PageNumber}, nil
			}
			idx := len(n.LeafEntries) - 1
			return SearchResult{LeafPage: n.PageNumber, EntryIndex: idx, Entry: e, Exact: true}, nil
		}
		if len(n.InternalEntries) == 0 {
			pageNum = n.LeftmostChild
			continue
		}
		pageNum = n.InternalEntries[len(n.InternalEntries)-1].Child
	}
}

// Next returns the entry immediately after (leafPage, entryIndex) in key
// order, following sibling chains when Chained, or falling back to
// SortedScan otherwise.
func (t *Tree) Next(leafPage uint32, entryIndex int) (SearchResult, error) {
	if t.Chained {
		n, err := t.loadNode(leafPage)
		if err != nil {
			return SearchResult{}, err
		}
		if entryIndex+1 < len(n.LeafEntries) {
			return SearchResult{LeafPage: leafPage, EntryIndex: entryIndex + 1, Entry: n.LeafEntries[entryIndex+1], Exact: true}, nil
		}
		if n.NextSibling == 0 {
			return SearchResult{}, nil
		}
		next, err := t.loadNode(n.NextSibling)
		if err != nil {
			return SearchResult{}, err
		}
		if len(next.LeafEntries) == 0 {
			return SearchResult{}, nil
		}
		return SearchResult{LeafPage: next.PageNumber, EntryIndex: 0, Entry: next.LeafEntries[0], Exact: true}, nil
	}
	return t.SortedScan(leafPage, entryIndex, 1)
}

// Prev is the mirror of Next.
func (t *Tree) Prev(leafPage uint32, entryIndex int) (SearchResult, error) {
	if t.Chained {
		n, err := t.loadNode(leafPage)
		if err != nil {
			return SearchResult{}, err
		}
		if entryIndex-1 >= 0 {
			return SearchResult{LeafPage: leafPage, EntryIndex: entryIndex - 1, Entry: n.LeafEntries[entryIndex-1], Exact: true}, nil
		}
		if n.PrevSibling == 0 {
			return SearchResult{}, nil
		}
		prev, err := t.loadNode(n.PrevSibling)
		if err != nil {
			return SearchResult{}, err
		}
		if len(prev.LeafEntries) == 0 {
			return SearchResult{}, nil
		}
		idx := len(prev.LeafEntries) - 1
		return SearchResult{LeafPage: prev.PageNumber, EntryIndex: idx, Entry: prev.LeafEntries[idx], Exact: true}, nil
	}
	return t.SortedScan(leafPage, entryIndex, -1)
}

// SortedScan re-derives ordering by full in-order traversal, for legacy
// files whose leaves are not sibling-chained (see DESIGN.md, Open
// Question 4). direction is +1 for next, -1 for previous.
func (t *Tree) SortedScan(fromLeafPage uint32, fromIndex int, direction int) (SearchResult, error) {
	entries, err := t.collectAll()
	if err != nil {
		return SearchResult{}, err
	}
	cur := -1
	for i, e := range entries {
		if e.LeafPage == fromLeafPage && e.EntryIndex == fromIndex {
			cur = i
			break
		}
	}
	if cur == -1 {
		return SearchResult{}, nil
	}
	target := cur + direction
	if target < 0 || target >= len(entries) {
		return SearchResult{}, nil
	}
	return entries[target], nil
}

func (t *Tree) collectAll() ([]SearchResult, error) {
	var out []SearchResult
	var walk func(pageNum uint32) error
	walk = func(pageNum uint32) error {
		n, err := t.loadNode(pageNum)
		if err != nil {
			return err
		}
		if n.Leaf {
			for i, e := range n.LeafEntries {
				out = append(out, SearchResult{LeafPage: n.PageNumber, EntryIndex: i, Entry: e, Exact: true})
			}
			return nil
		}
		if err := walk(n.LeftmostChild); err != nil {
			return err
		}
		for _, ie := range n.InternalEntries {
			if err := walk(ie.Child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t.RootPage); err != nil {
		return nil, err
	}
	return out, nil
}
