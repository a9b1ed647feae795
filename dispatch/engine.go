// Package dispatch implements the opcode router: it owns the open-file
// table, page cache, and lock manager, and turns one wire.Request into
// one wire.Response by invoking package ops's handlers. Shape is
// adapted from original_source/xtrieve-engine/src/operations/dispatcher.rs's
// Engine/execute().
package dispatch

import (
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/intellect4all/xtrieved/locking"
	"github.com/intellect4all/xtrieved/openfiles"
	"github.com/intellect4all/xtrieved/ops"
	"github.com/intellect4all/xtrieved/pagecache"
)

// Engine holds all process-wide shared state for the dispatcher.
type Engine struct {
	Files   *openfiles.Table
	Cache   *pagecache.Cache
	Locks   *locking.Manager
	DataDir string
	Log     *zap.SugaredLogger

	mu     sync.Mutex
	opened map[string]*openfiles.OpenFile

	sessMu      sync.Mutex
	sessions    map[uint64]*ops.Session
	nextSession uint64
}

// New builds an Engine with a fresh page cache of the given capacity.
func New(cacheSize int, dataDir string, log *zap.SugaredLogger) (*Engine, error) {
	e := &Engine{
		DataDir: dataDir,
		Log:     log,
		opened:  make(map[string]*openfiles.OpenFile),
		sessions: make(map[uint64]*ops.Session),
	}
	// Pages are always written through synchronously by OpenFile.WritePage
	// before being cached (see package openfiles), so the cache never
	// needs to flush a dirty page on eviction; nil is a safe Flusher.
	cache, err := pagecache.New(cacheSize, nil)
	if err != nil {
		return nil, err
	}
	e.Cache = cache
	e.Files = openfiles.NewTable(cache)
	e.Locks = locking.New()
	return e, nil
}

// NewSession registers a new client connection and returns its session
// identifier.
func (e *Engine) NewSession() *ops.Session {
	e.sessMu.Lock()
	defer e.sessMu.Unlock()
	e.nextSession++
	id := e.nextSession
	s := ops.NewSession(openfiles.SessionID(id))
	e.sessions[id] = s
	return s
}

// EndSession releases every lock and transaction state the session held,
// called on client disconnect (spec.md §5 "a client disconnect drops the
// handler's thread, whose Drop path must call release_session").
func (e *Engine) EndSession(s *ops.Session) {
	if s.InTransaction() {
		for path := range s.EnrolledFiles {
			if of, ok := e.lookupOpen(path); ok {
				of.AbortTransaction(s.ID)
			}
		}
	}
	e.Locks.ReleaseSession(locking.SessionID(s.ID))
	e.sessMu.Lock()
	delete(e.sessions, uint64(s.ID))
	e.sessMu.Unlock()
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return filepath.Clean(abs)
}

func (e *Engine) lookupOpen(path string) (*openfiles.OpenFile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	of, ok := e.opened[canonical(path)]
	return of, ok
}

// openFile opens path via the table (incrementing its reference count)
// and caches the handle for subsequent non-Open/Close requests.
func (e *Engine) openFile(path string) (*openfiles.OpenFile, error) {
	of, err := e.Files.Open(path)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.opened[canonical(path)] = of
	e.mu.Unlock()
	return of, nil
}

// closeFile decrements path's reference count via the table, dropping it
// from the engine's cache once fully closed.
func (e *Engine) closeFile(path string) error {
	if err := e.Files.Close(path); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.opened, canonical(path))
	e.mu.Unlock()
	return nil
}
