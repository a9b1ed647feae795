// Package openfiles implements the open-file table: canonical-path-keyed
// shared ownership of each file's OS handle, FCR, and per-session
// pre-image logs, serialized by a per-file reader/writer lock. Grounded
// on spec.md §4.2 and original_source's FileManager (page/file lifecycle
// semantics), with the LRU page buffer delegated to package pagecache.
package openfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/intellect4all/xtrieved/fcr"
	"github.com/intellect4all/xtrieved/page"
	"github.com/intellect4all/xtrieved/pagecache"
	"github.com/intellect4all/xtrieved/status"
	"github.com/intellect4all/xtrieved/txn"
)

// SessionID identifies the owning client session for pre-image
// enrollment, mirroring locking.SessionID without importing it (kept
// decoupled; dispatch converts between the two).
type SessionID uint64

// OpenFile owns one file's handle, FCR, and active pre-image logs.
type OpenFile struct {
	mu       sync.RWMutex
	path     string
	f        *os.File
	fcr      *fcr.FCR
	refCount int
	preimage map[SessionID]*txn.Log
	cache    *pagecache.Cache
}

func (of *OpenFile) Path() string { return of.path }

func (of *OpenFile) FCR() *fcr.FCR {
	of.mu.RLock()
	defer of.mu.RUnlock()
	return of.fcr
}

// ReadPage loads pageNumber, consulting the shared cache first.
func (of *OpenFile) ReadPage(pageNumber uint32) (*page.Page, error) {
	of.mu.RLock()
	defer of.mu.RUnlock()
	return of.readPageLocked(pageNumber)
}

func (of *OpenFile) readPageLocked(pageNumber uint32) (*page.Page, error) {
	key := pagecache.Key{FilePath: of.path, Page: pageNumber}
	if p, ok := of.cache.Get(key); ok {
		return p, nil
	}
	buf := make([]byte, of.fcr.PageSize)
	offset := int64(pageNumber) * int64(of.fcr.PageSize)
	if _, err := of.f.ReadAt(buf, offset); err != nil {
		return nil, status.Wrap(err).WithDetail("page", pageNumber)
	}
	p := page.FromBytes(pageNumber, buf)
	of.cache.Put(key, p)
	return p, nil
}

// WritePage persists p, first recording its pre-modification bytes into
// session's pre-image log if one is active for this file (spec.md §4.2).
func (of *OpenFile) WritePage(p *page.Page, session SessionID) error {
	of.mu.Lock()
	defer of.mu.Unlock()

	if log, active := of.preimage[session]; active {
		// The on-disk bytes are the pre-modification state; the cached page
		// may be the very object the caller has already modified.
		original := make([]byte, of.fcr.PageSize)
		if _, err := of.f.ReadAt(original, int64(p.Number)*int64(of.fcr.PageSize)); err == nil {
			if err := log.Record(p.Number, original); err != nil {
				return status.Wrap(err)
			}
		}
	}

	offset := int64(p.Number) * int64(of.fcr.PageSize)
	if _, err := of.f.WriteAt(p.Bytes(), offset); err != nil {
		return status.Wrap(err).WithDetail("page", p.Number)
	}
	p.ClearDirty()
	of.cache.Put(pagecache.Key{FilePath: of.path, Page: p.Number}, p)
	return nil
}

// AllocatePage extends the file by one page and returns it, zeroed.
func (of *OpenFile) AllocatePage() (*page.Page, error) {
	of.mu.Lock()
	defer of.mu.Unlock()
	pageNum := of.fcr.NumPages
	p := page.New(pageNum, of.fcr.PageSize, page.TypeData)
	offset := int64(pageNum) * int64(of.fcr.PageSize)
	if _, err := of.f.WriteAt(p.Bytes(), offset); err != nil {
		return nil, status.Wrap(err)
	}
	of.fcr.NumPages++
	of.cache.Put(pagecache.Key{FilePath: of.path, Page: pageNum}, p)
	return p, nil
}

// UpdateFCR rewrites page 0 from the in-memory FCR, recording its
// pre-modification bytes into every active session's pre-image log the
// same way WritePage does, so a file-control-record change (num_records,
// index roots, data-page chain endpoints) rolls back on Abort exactly
// like any other page.
func (of *OpenFile) UpdateFCR() error {
	of.mu.Lock()
	defer of.mu.Unlock()
	if len(of.preimage) > 0 {
		original, err := of.readPageLocked(0)
		if err == nil {
			for _, log := range of.preimage {
				if err := log.Record(0, original.Bytes()); err != nil {
					return status.Wrap(err)
				}
			}
		}
	}
	p := page.New(0, of.fcr.PageSize, page.TypeFCR)
	if err := of.fcr.WriteTo(p); err != nil {
		return status.Wrap(err)
	}
	if _, err := of.f.WriteAt(p.Bytes(), 0); err != nil {
		return status.Wrap(err)
	}
	of.cache.Put(pagecache.Key{FilePath: of.path, Page: 0}, p)
	return nil
}

// BeginTransaction creates session's pre-image log for this file.
func (of *OpenFile) BeginTransaction(session SessionID, logDir string) error {
	of.mu.Lock()
	defer of.mu.Unlock()
	if _, active := of.preimage[session]; active {
		return nil
	}
	logPath := filepath.Join(logDir, fmt.Sprintf("%d.pil", session))
	log, err := txn.Create(logPath)
	if err != nil {
		return status.Wrap(err)
	}
	of.preimage[session] = log
	return nil
}

// CommitTransaction deletes session's pre-image log and flushes dirty
// pages for this file so the writes are durable.
func (of *OpenFile) CommitTransaction(session SessionID) error {
	of.mu.Lock()
	log, active := of.preimage[session]
	delete(of.preimage, session)
	of.mu.Unlock()
	if !active {
		return nil
	}
	if err := of.cache.FlushFile(of.path); err != nil {
		return status.Wrap(err)
	}
	if err := of.f.Sync(); err != nil {
		return status.Wrap(err)
	}
	return log.Commit()
}

// AbortTransaction restores every logged page into the main file in log
// order, invalidates the cache for this file, reloads the in-memory FCR
// in case page 0 was one of the restored pages, then deletes the log.
func (of *OpenFile) AbortTransaction(session SessionID) error {
	of.mu.Lock()
	log, active := of.preimage[session]
	delete(of.preimage, session)
	of.mu.Unlock()
	if !active {
		return nil
	}

	of.mu.Lock()
	defer of.mu.Unlock()
	pageSize := of.fcr.PageSize
	fcrRestored := false
	for _, e := range log.Entries() {
		offset := int64(e.PageNumber) * int64(pageSize)
		if _, err := of.f.WriteAt(e.Data, offset); err != nil {
			return status.Wrap(err)
		}
		if e.PageNumber == 0 {
			fcrRestored = true
		}
	}
	of.cache.InvalidateFile(of.path)
	if fcrRestored {
		p, err := of.readPageLocked(0)
		if err != nil {
			return status.Wrap(err)
		}
		fc, err := fcr.FromPage(p)
		if err != nil {
			return status.Wrap(err)
		}
		of.fcr = fc
	}
	return log.Discard()
}

// Table is the canonical-path-keyed registry of open files.
type Table struct {
	mu    sync.Mutex
	files map[string]*OpenFile
	cache *pagecache.Cache
}

func NewTable(cache *pagecache.Cache) *Table {
	return &Table{files: make(map[string]*OpenFile), cache: cache}
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Open increments the open file's reference count, opening it from disk
// if this is the first open.
func (t *Table) Open(path string) (*OpenFile, error) {
	canon, err := canonicalize(path)
	if err != nil {
		return nil, status.Wrap(err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if of, ok := t.files[canon]; ok {
		of.refCount++
		return of, nil
	}

	f, err := os.OpenFile(canon, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.New(status.FileNotFound, canon)
		}
		return nil, status.Wrap(err)
	}
	header := page.New(0, 512, page.TypeFCR)
	if _, err := f.ReadAt(header.Bytes(), 0); err != nil {
		f.Close()
		return nil, status.InvalidFormat("reading FCR header of %s: %v", canon, err)
	}
	parsedFCR, err := fcr.FromPage(header)
	if err != nil {
		f.Close()
		return nil, status.InvalidFormat("%v", err)
	}
	if parsedFCR.PageSize != 512 {
		full := page.New(0, parsedFCR.PageSize, page.TypeFCR)
		if _, err := f.ReadAt(full.Bytes(), 0); err != nil {
			f.Close()
			return nil, status.InvalidFormat("reading FCR header of %s: %v", canon, err)
		}
		parsedFCR, err = fcr.FromPage(full)
		if err != nil {
			f.Close()
			return nil, status.InvalidFormat("%v", err)
		}
	}
	if err := parsedFCR.Validate(); err != nil {
		f.Close()
		return nil, status.InvalidFormat("%v", err)
	}

	of := &OpenFile{path: canon, f: f, fcr: parsedFCR, refCount: 1, preimage: make(map[SessionID]*txn.Log), cache: t.cache}
	t.files[canon] = of
	return of, nil
}

// Create makes a new file with the given FCR, failing if it already
// exists.
func (t *Table) Create(path string, fc *fcr.FCR) (*OpenFile, error) {
	canon, err := canonicalize(path)
	if err != nil {
		return nil, status.Wrap(err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.files[canon]; ok {
		return nil, status.New(status.FileAlreadyExists, canon)
	}
	if _, err := os.Stat(canon); err == nil {
		return nil, status.New(status.FileAlreadyExists, canon)
	}

	f, err := os.OpenFile(canon, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, status.Wrap(err)
	}
	fc.NumPages = 1
	header := page.New(0, fc.PageSize, page.TypeFCR)
	if err := fc.WriteTo(header); err != nil {
		f.Close()
		os.Remove(canon)
		return nil, status.Wrap(err)
	}
	if _, err := f.WriteAt(header.Bytes(), 0); err != nil {
		f.Close()
		os.Remove(canon)
		return nil, status.Wrap(err)
	}

	of := &OpenFile{path: canon, f: f, fcr: fc, refCount: 1, preimage: make(map[SessionID]*txn.Log), cache: t.cache}
	t.files[canon] = of
	return of, nil
}

// Close decrements the reference count, flushing and removing the entry
// at zero.
func (t *Table) Close(path string) error {
	canon, err := canonicalize(path)
	if err != nil {
		return status.Wrap(err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	of, ok := t.files[canon]
	if !ok {
		return status.New(status.FileNotOpen, canon)
	}
	of.refCount--
	if of.refCount > 0 {
		return nil
	}
	if err := t.cache.FlushFile(canon); err != nil {
		return status.Wrap(err)
	}
	delete(t.files, canon)
	return of.f.Close()
}
