// Package pagecache implements the shared LRU page cache, keyed by file
// path and page number. Cache shape (stats, dirty tracking, eviction
// flushing) is grounded on
// _examples/intellect4all-storage-engines/btree/pager.go's hand-rolled
// container/list LRU; here it is built on
// github.com/hashicorp/golang-lru/v2 instead, since that concern is
// exactly what the library is for.
package pagecache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/intellect4all/xtrieved/page"
)

// Key identifies a cached page across all open files.
type Key struct {
	FilePath string
	Page     uint32
}

// Flusher writes a dirty page back to its owning file. Supplied by
// package openfiles, which owns the underlying os.File handles.
type Flusher func(key Key, p *page.Page) error

// Cache is the shared, process-wide LRU page cache.
type Cache struct {
	mu      sync.Mutex
	inner   *lru.Cache[Key, *page.Page]
	flush   Flusher
	hits    int64
	misses  int64
	evicts  int64
}

// New builds a cache holding at most capacity pages. flush is invoked
// synchronously whenever a dirty page is evicted to make room, and must
// not itself touch the cache.
func New(capacity int, flush Flusher) (*Cache, error) {
	c := &Cache{flush: flush}
	inner, err := lru.NewWithEvict(capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.inner = inner
	return c, nil
}

func (c *Cache) onEvict(key Key, p *page.Page) {
	c.evicts++
	if p.Dirty() && c.flush != nil {
		c.flush(key, p)
	}
}

// Get returns the cached page for key, if present.
func (c *Cache) Get(key Key) (*page.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.inner.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return p, ok
}

// Put inserts or replaces the cached page for key.
func (c *Cache) Put(key Key, p *page.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(key, p)
}

// Remove evicts key without flushing, used when a page is known stale
// (e.g. transaction abort restoring pre-image bytes).
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(key)
}

// InvalidateFile drops every cached page belonging to filePath without
// flushing, used on transaction abort (spec.md §4.8: "invalidates the
// page cache for affected files").
func (c *Cache) InvalidateFile(filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.inner.Keys() {
		if key.FilePath == filePath {
			c.inner.Remove(key)
		}
	}
}

// FlushFile writes back every dirty page belonging to filePath, used on
// file close and transaction commit.
func (c *Cache) FlushFile(filePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.inner.Keys() {
		if key.FilePath != filePath {
			continue
		}
		p, ok := c.inner.Peek(key)
		if !ok || !p.Dirty() {
			continue
		}
		if c.flush != nil {
			if err := c.flush(key, p); err != nil {
				return err
			}
		}
		p.ClearDirty()
	}
	return nil
}

// Stats reports cumulative cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Len       int
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evicts, Len: c.inner.Len()}
}
