package ops

import (
	"github.com/intellect4all/xtrieved/btree"
	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/openfiles"
	"github.com/intellect4all/xtrieved/record"
	"github.com/intellect4all/xtrieved/status"
)

// Result carries what a record operation resolves to: the record's
// address, its bytes, the key value used to reach it, and (for key-ordered
// navigation) the tree leaf position it was found at, so a subsequent
// GetNext/GetPrevious can resume from exactly there.
type Result struct {
	Addr      record.Address
	Data      []byte
	Key       []byte
	LeafPage  uint32
	LeafIndex int
}

func dataPageAt(f *File, session openfiles.SessionID, pageNum uint32) (*record.DataPage, error) {
	p, err := f.Of.ReadPage(pageNum)
	if err != nil {
		return nil, err
	}
	return record.WrapDataPage(p), nil
}

// Insert stores data as a new record and indexes it under every key.
func Insert(f *File, session openfiles.SessionID, data []byte) (Result, error) {
	fc := f.FCR()
	if len(data) != int(fc.RecordLength) {
		return Result{}, status.New(status.InvalidRecordLength, "record length does not match file's record_length")
	}

	lastPage := fc.LastDataPage
	var dp *record.DataPage
	var pageNum uint32
	if lastPage == 0 {
		p, err := f.Of.AllocatePage()
		if err != nil {
			return Result{}, status.Wrap(err)
		}
		dp = record.NewDataPage(p)
		pageNum = p.Number
	} else {
		existing, err := dataPageAt(f, session, lastPage)
		if err != nil {
			return Result{}, status.Wrap(err)
		}
		dp = existing
		pageNum = lastPage
		if !dp.CanFit(uint16(len(data))) {
			p, err := f.Of.AllocatePage()
			if err != nil {
				return Result{}, status.Wrap(err)
			}
			newDP := record.NewDataPage(p)
			underlying := dp.Underlying()
			underlying.SetNext(p.Number)
			p.SetPrev(underlying.Number)
			if err := f.Of.WritePage(underlying, session); err != nil {
				return Result{}, status.Wrap(err)
			}
			dp = newDP
			pageNum = p.Number
		}
	}

	slot, ok := dp.Insert(data)
	if !ok {
		return Result{}, status.Internal("data page %d reports space but insert failed", pageNum)
	}
	addr := record.Address{Page: pageNum, Slot: slot}

	for i, spec := range fc.Keys {
		key := spec.Extract(data)
		tree, err := f.ensureRoot(i, session)
		if err != nil {
			return Result{}, status.Wrap(err)
		}
		inserted, err := tree.Insert(key, addr)
		if err != nil {
			return Result{}, status.Wrap(err)
		}
		if !inserted && !spec.Flags.Has(keyspec.FlagDuplicates) {
			return Result{}, status.New(status.DuplicateKey, "duplicate key on a non-duplicate index")
		}
		if err := f.persistRoot(i, tree); err != nil {
			return Result{}, status.Wrap(err)
		}
	}

	if err := f.Of.WritePage(dp.Underlying(), session); err != nil {
		return Result{}, status.Wrap(err)
	}
	if fc.FirstDataPage == 0 {
		fc.FirstDataPage = pageNum
	}
	fc.LastDataPage = pageNum
	fc.NumRecords++
	if err := f.Of.UpdateFCR(); err != nil {
		return Result{}, status.Wrap(err)
	}

	return Result{Addr: addr, Data: data}, nil
}

// Update rewrites the record at addr, re-indexing only the keys whose
// extracted bytes actually changed (spec.md §4.7 "Respects modifiable-
// key constraints").
func Update(f *File, session openfiles.SessionID, addr record.Address, newData []byte) (Result, error) {
	fc := f.FCR()
	if len(newData) != int(fc.RecordLength) {
		return Result{}, status.New(status.InvalidRecordLength, "record length does not match file's record_length")
	}
	dp, err := dataPageAt(f, session, addr.Page)
	if err != nil {
		return Result{}, status.Wrap(err)
	}
	oldData := dp.Get(addr.Slot)
	if oldData == nil {
		return Result{}, status.New(status.InvalidRecordAddress, "record not found at address")
	}
	oldCopy := append([]byte(nil), oldData...)

	for i, spec := range fc.Keys {
		oldKey := spec.Extract(oldCopy)
		newKey := spec.Extract(newData)
		if string(oldKey) == string(newKey) {
			continue
		}
		if !spec.Flags.Has(keyspec.FlagModifiable) {
			return Result{}, status.New(status.ModifiableKeyChanged, "key is not modifiable")
		}
		tree, err := f.ensureRoot(i, session)
		if err != nil {
			return Result{}, status.Wrap(err)
		}
		if _, err := tree.Delete(oldKey, addr); err != nil {
			return Result{}, status.Wrap(err)
		}
		if _, err := tree.Insert(newKey, addr); err != nil {
			return Result{}, status.Wrap(err)
		}
		if err := f.persistRoot(i, tree); err != nil {
			return Result{}, status.Wrap(err)
		}
	}

	if !dp.Update(addr.Slot, newData) {
		return Result{}, status.New(status.InvalidRecordLength, "updated record no longer fits its slot")
	}
	if err := f.Of.WritePage(dp.Underlying(), session); err != nil {
		return Result{}, status.Wrap(err)
	}
	return Result{Addr: addr, Data: newData}, nil
}

// Delete removes the record at addr from the data page and from every
// key's tree.
func Delete(f *File, session openfiles.SessionID, addr record.Address) error {
	fc := f.FCR()
	dp, err := dataPageAt(f, session, addr.Page)
	if err != nil {
		return status.Wrap(err)
	}
	data := dp.Get(addr.Slot)
	if data == nil {
		return status.New(status.InvalidRecordAddress, "record not found at address")
	}
	dataCopy := append([]byte(nil), data...)

	for i, spec := range fc.Keys {
		key := spec.Extract(dataCopy)
		tree, err := f.ensureRoot(i, session)
		if err != nil {
			return status.Wrap(err)
		}
		tree.Delete(key, addr)
		if err := f.persistRoot(i, tree); err != nil {
			return status.Wrap(err)
		}
	}

	if !dp.Delete(addr.Slot) {
		return status.Internal("delete: slot already free at %+v", addr)
	}
	if err := f.Of.WritePage(dp.Underlying(), session); err != nil {
		return status.Wrap(err)
	}
	fc.NumRecords--
	return status.Wrap(f.Of.UpdateFCR())
}

// ReadRecord reads the record at addr directly, for opcodes (Get Direct)
// that resolve a physical position without going through a key index.
func ReadRecord(f *File, session openfiles.SessionID, addr record.Address) ([]byte, error) {
	return f.readRecord(session, addr)
}

func (f *File) readRecord(session openfiles.SessionID, addr record.Address) ([]byte, error) {
	dp, err := dataPageAt(f, session, addr.Page)
	if err != nil {
		return nil, err
	}
	data := dp.Get(addr.Slot)
	if data == nil {
		return nil, status.New(status.KeyNotFound, "record not found")
	}
	return append([]byte(nil), data...), nil
}

// fromSearch converts a btree search result into a Result by reading the
// matched record back from its data page.
func (f *File) fromSearch(session openfiles.SessionID, res btree.SearchResult) (Result, error) {
	if !res.Exact {
		return Result{}, status.New(status.KeyNotFound, "no matching key")
	}
	data, err := f.readRecord(session, res.Entry.Addr)
	if err != nil {
		return Result{}, err
	}
	return Result{Addr: res.Entry.Addr, Data: data, Key: res.Entry.Key, LeafPage: res.LeafPage, LeafIndex: res.EntryIndex}, nil
}

// GetEqual finds the first record whose keyNumber's key equals key.
func GetEqual(f *File, session openfiles.SessionID, keyNumber int, key []byte) (Result, error) {
	tree := f.treeFor(keyNumber, session)
	if tree == nil || f.FCR().IndexRoots[keyNumber] == 0 {
		return Result{}, status.New(status.KeyNotFound, "index is empty")
	}
	res, err := tree.Search(key)
	if err != nil {
		return Result{}, status.Wrap(err)
	}
	return f.fromSearch(session, res)
}

// GetFirst/GetLast navigate to the leftmost/rightmost leaf entry.
func GetFirst(f *File, session openfiles.SessionID, keyNumber int) (Result, error) {
	tree := f.treeFor(keyNumber, session)
	if tree == nil || f.FCR().IndexRoots[keyNumber] == 0 {
		return Result{}, status.New(status.EndOfFile, "index is empty")
	}
	res, err := tree.First()
	if err != nil {
		return Result{}, status.Wrap(err)
	}
	return f.fromSearch(session, res)
}

func GetLast(f *File, session openfiles.SessionID, keyNumber int) (Result, error) {
	tree := f.treeFor(keyNumber, session)
	if tree == nil || f.FCR().IndexRoots[keyNumber] == 0 {
		return Result{}, status.New(status.EndOfFile, "index is empty")
	}
	res, err := tree.Last()
	if err != nil {
		return Result{}, status.Wrap(err)
	}
	return f.fromSearch(session, res)
}

// GetNext/GetPrevious resume from a cursor's leaf position.
func GetNext(f *File, session openfiles.SessionID, keyNumber int, leafPage uint32, leafIndex int) (Result, error) {
	tree := f.treeFor(keyNumber, session)
	res, err := tree.Next(leafPage, leafIndex)
	if err != nil {
		return Result{}, status.Wrap(err)
	}
	if !res.Exact {
		return Result{}, status.New(status.EndOfFile, "no more records")
	}
	return f.fromSearch(session, res)
}

func GetPrevious(f *File, session openfiles.SessionID, keyNumber int, leafPage uint32, leafIndex int) (Result, error) {
	tree := f.treeFor(keyNumber, session)
	res, err := tree.Prev(leafPage, leafIndex)
	if err != nil {
		return Result{}, status.Wrap(err)
	}
	if !res.Exact {
		return Result{}, status.New(status.EndOfFile, "no more records")
	}
	return f.fromSearch(session, res)
}

// GetGreater/GE/Less/LE perform a positional search then step to satisfy
// the strict/non-strict bound.
func GetGreater(f *File, session openfiles.SessionID, keyNumber int, key []byte) (Result, error) {
	return rangeSearch(f, session, keyNumber, key, func(n *btree.Node, k []byte, cmp btree.Comparator) (int, bool) {
		return n.FindGT(k, cmp)
	})
}

func GetGreaterOrEqual(f *File, session openfiles.SessionID, keyNumber int, key []byte) (Result, error) {
	return rangeSearch(f, session, keyNumber, key, func(n *btree.Node, k []byte, cmp btree.Comparator) (int, bool) {
		return n.FindGE(k, cmp)
	})
}

func GetLessThan(f *File, session openfiles.SessionID, keyNumber int, key []byte) (Result, error) {
	return rangeSearch(f, session, keyNumber, key, func(n *btree.Node, k []byte, cmp btree.Comparator) (int, bool) {
		return n.FindLT(k, cmp)
	})
}

func GetLessOrEqual(f *File, session openfiles.SessionID, keyNumber int, key []byte) (Result, error) {
	return rangeSearch(f, session, keyNumber, key, func(n *btree.Node, k []byte, cmp btree.Comparator) (int, bool) {
		return n.FindLE(k, cmp)
	})
}

// rangeSearch resolves a Get Greater/GE/Less/LE request. Unlike Get Equal
// (status 4, KeyNotFound, when the exact key is absent), a range op with
// no qualifying record reports status 9 (EndOfFile): it is positional,
// like Get Next/Get Previous, rather than an equality lookup.
func rangeSearch(f *File, session openfiles.SessionID, keyNumber int, key []byte, find func(*btree.Node, []byte, btree.Comparator) (int, bool)) (Result, error) {
	fc := f.FCR()
	if fc.IndexRoots[keyNumber] == 0 {
		return Result{}, status.New(status.EndOfFile, "index is empty")
	}
	tree := f.treeFor(keyNumber, session)
	// Descend directly via the tree's own comparator-driven search, then
	// apply the range predicate at the leaf it lands on and, failing that,
	// to the nearest entry of each neighbouring leaf.
	res, err := tree.Search(key)
	if err != nil {
		return Result{}, status.Wrap(err)
	}
	leafPageNum := res.LeafPage
	p, err := f.Of.ReadPage(leafPageNum)
	if err != nil {
		return Result{}, status.Wrap(err)
	}
	spec := fc.Keys[keyNumber]
	leaf := btree.FromPage(p, int(spec.Length))
	idx, ok := find(leaf, key, spec.Compare)
	if !ok {
		// The nearest entry of the next or previous leaf may still meet the bound.
		next, err := tree.Next(leafPageNum, len(leaf.LeafEntries)-1)
		if err != nil {
			return Result{}, status.Wrap(err)
		}
		prev, err := tree.Prev(leafPageNum, 0)
		if err != nil {
			return Result{}, status.Wrap(err)
		}
		for _, r := range []btree.SearchResult{next, prev} {
			one := &btree.Node{Leaf: true, KeyLen: int(spec.Length), LeafEntries: []btree.LeafEntry{r.Entry}}
			if _, hit := find(one, key, spec.Compare); r.Exact && hit {
				return f.fromSearch(session, r)
			}
		}
		return Result{}, status.New(status.EndOfFile, "no qualifying record")
	}
	entry := leaf.LeafEntries[idx]
	return f.fromSearch(session, btree.SearchResult{LeafPage: leafPageNum, EntryIndex: idx, Entry: entry, Exact: true})
}
