package ops

import (
	"github.com/intellect4all/xtrieved/btree"
	"github.com/intellect4all/xtrieved/fcr"
	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/openfiles"
	"github.com/intellect4all/xtrieved/page"
)

// sessionPageStore adapts an *openfiles.OpenFile into a btree.PageStore
// for one session's writes, so pre-image recording attributes correctly.
type sessionPageStore struct {
	of      *openfiles.OpenFile
	session openfiles.SessionID
}

func (s *sessionPageStore) GetPage(n uint32) (*page.Page, error) { return s.of.ReadPage(n) }

func (s *sessionPageStore) AllocatePage() (*page.Page, error) { return s.of.AllocatePage() }

func (s *sessionPageStore) PutPage(p *page.Page) error { return s.of.WritePage(p, s.session) }

// File bundles an open Btrieve file's path and handle. It holds no trees:
// treeFor builds a key's Tree from the FCR's index roots on each call.
type File struct {
	Path string
	Of   *openfiles.OpenFile
}

// treeFor builds the Tree for keyNumber, bound to session for write
// attribution.
func (f *File) treeFor(keyNumber int, session openfiles.SessionID) *btree.Tree {
	fc := f.Of.FCR()
	if keyNumber < 0 || keyNumber >= len(fc.Keys) {
		return nil
	}
	spec := fc.Keys[keyNumber]
	store := &sessionPageStore{of: f.Of, session: session}
	return &btree.Tree{
		Store:     store,
		RootPage:  fc.IndexRoots[keyNumber],
		KeyLen:    int(spec.Length),
		PageSize:  int(fc.PageSize),
		AllowDups: spec.Flags.Has(keyspec.FlagDuplicates),
		Cmp:       spec.Compare,
		Chained:   true,
	}
}

// ensureRoot allocates a root leaf page for keyNumber's tree if the FCR
// currently records an empty (zero) index root, per spec.md §3 "index_root=0
// iff the tree is empty".
func (f *File) ensureRoot(keyNumber int, session openfiles.SessionID) (*btree.Tree, error) {
	fc := f.Of.FCR()
	if fc.IndexRoots[keyNumber] != 0 {
		return f.treeFor(keyNumber, session), nil
	}
	store := &sessionPageStore{of: f.Of, session: session}
	p, err := store.AllocatePage()
	if err != nil {
		return nil, err
	}
	spec := fc.Keys[keyNumber]
	leaf := btree.NewLeaf(p.Number, int(spec.Length))
	leaf.WriteTo(p)
	if err := store.PutPage(p); err != nil {
		return nil, err
	}
	fc.IndexRoots[keyNumber] = p.Number
	if err := f.Of.UpdateFCR(); err != nil {
		return nil, err
	}
	return f.treeFor(keyNumber, session), nil
}

// persistRoot writes back a tree's (possibly changed, on split) root page
// number into the FCR.
func (f *File) persistRoot(keyNumber int, t *btree.Tree) error {
	fc := f.Of.FCR()
	if fc.IndexRoots[keyNumber] == t.RootPage {
		return nil
	}
	fc.IndexRoots[keyNumber] = t.RootPage
	return f.Of.UpdateFCR()
}

// FCR is a convenience accessor.
func (f *File) FCR() *fcr.FCR { return f.Of.FCR() }
