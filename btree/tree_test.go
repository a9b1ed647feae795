package btree

import (
	"bytes"
	"testing"

	"github.com/intellect4all/xtrieved/page"
	"github.com/intellect4all/xtrieved/record"
)

type memStore struct {
	pages  map[uint32]*page.Page
	next   uint32
	size   uint16
}

func newMemStore(size uint16) *memStore {
	return &memStore{pages: make(map[uint32]*page.Page), size: size}
}

func (m *memStore) GetPage(n uint32) (*page.Page, error) {
	p, ok := m.pages[n]
	if !ok {
		p = page.New(n, m.size, page.TypeIndex)
		m.pages[n] = p
	}
	return p, nil
}

func (m *memStore) AllocatePage() (*page.Page, error) {
	m.next++
	p := page.New(m.next, m.size, page.TypeIndex)
	m.pages[m.next] = p
	return p, nil
}

func (m *memStore) PutPage(p *page.Page) error {
	m.pages[p.Number] = p
	return nil
}

func strKeyCmp(a, b []byte) int { return bytes.Compare(a, b) }

func pad(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	for i := len(s); i < n; i++ {
		b[i] = ' '
	}
	return b
}

func TestInsertSearchManyCausesSplit(t *testing.T) {
	store := newMemStore(512)
	rootPage, _ := store.AllocatePage()
	root := NewLeaf(rootPage.Number, 20)
	root.WriteTo(rootPage)
	store.PutPage(rootPage)

	tree := &Tree{Store: store, RootPage: rootPage.Number, KeyLen: 20, PageSize: 512, Cmp: strKeyCmp, Chained: true}

	// 20-byte keys in a 512-byte page leave room for 16 leaf entries, so
	// the 16th insert splits the root leaf.
	fruits := []string{"Apple", "Banana", "Cherry", "Date", "Elderberry", "Fig", "Grape", "Honeydew", "Ice", "Jackfruit",
		"Kiwi", "Lemon", "Mango", "Nectarine", "Orange", "Papaya", "Quince"}
	for i, f := range fruits {
		key := pad(f, 20)
		ok, err := tree.Insert(key, record.Address{Page: uint32(i + 1), Slot: 0})
		if err != nil {
			t.Fatalf("insert %s: %v", f, err)
		}
		if !ok {
			t.Fatalf("insert %s: rejected", f)
		}
	}

	if tree.RootPage == rootPage.Number {
		t.Fatal("expected the root leaf to split and a new root to be allocated")
	}

	res, err := tree.Search(pad("Grape", 20))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Exact {
		t.Fatal("expected to find Grape")
	}

	first, err := tree.First()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if string(bytes.TrimRight(first.Entry.Key, " ")) != "Apple" {
		t.Fatalf("expected Apple first, got %q", first.Entry.Key)
	}

	count := 1
	cur := first
	for {
		next, err := tree.Next(cur.LeafPage, cur.EntryIndex)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !next.Exact {
			break
		}
		count++
		cur = next
	}
	if count != len(fruits) {
		t.Fatalf("expected %d entries via Next traversal, got %d", len(fruits), count)
	}
}

func TestDeleteRemovesEntryWithoutRebalance(t *testing.T) {
	store := newMemStore(512)
	rootPage, _ := store.AllocatePage()
	root := NewLeaf(rootPage.Number, 20)
	root.WriteTo(rootPage)
	store.PutPage(rootPage)

	tree := &Tree{Store: store, RootPage: rootPage.Number, KeyLen: 20, PageSize: 512, Cmp: strKeyCmp, Chained: true}
	key := pad("Apple", 20)
	addr := record.Address{Page: 5, Slot: 0}
	tree.Insert(key, addr)

	ok, err := tree.Delete(key, addr)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	res, err := tree.Search(key)
	if err != nil {
		t.Fatalf("search after delete: %v", err)
	}
	if res.Exact {
		t.Fatal("expected key to be gone after delete")
	}
}
