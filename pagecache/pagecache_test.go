package pagecache

import (
	"testing"

	"github.com/intellect4all/xtrieved/page"
)

func TestGetPutAndStats(t *testing.T) {
	c, err := New(2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key := Key{FilePath: "a.btr", Page: 1}
	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put(key, page.New(1, 512, page.TypeData))
	if _, ok := c.Get(key); !ok {
		t.Fatal("expected hit after put")
	}
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestEvictionFlushesDirtyPages(t *testing.T) {
	var flushed []Key
	c, err := New(1, func(key Key, p *page.Page) error {
		flushed = append(flushed, key)
		return nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p1 := page.New(1, 512, page.TypeData)
	p1.MarkDirty()
	c.Put(Key{FilePath: "a.btr", Page: 1}, p1)
	c.Put(Key{FilePath: "a.btr", Page: 2}, page.New(2, 512, page.TypeData))

	if len(flushed) != 1 || flushed[0].Page != 1 {
		t.Fatalf("expected page 1 flushed on eviction, got %+v", flushed)
	}
}

func TestInvalidateFile(t *testing.T) {
	c, err := New(4, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Put(Key{FilePath: "a.btr", Page: 1}, page.New(1, 512, page.TypeData))
	c.Put(Key{FilePath: "b.btr", Page: 1}, page.New(1, 512, page.TypeData))
	c.InvalidateFile("a.btr")
	if _, ok := c.Get(Key{FilePath: "a.btr", Page: 1}); ok {
		t.Fatal("expected a.btr pages invalidated")
	}
	if _, ok := c.Get(Key{FilePath: "b.btr", Page: 1}); !ok {
		t.Fatal("expected b.btr pages untouched")
	}
}
