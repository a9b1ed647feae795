// Package txn implements the per-session, per-file pre-image log used
// for transaction rollback: first-modification-wins page snapshots,
// committed by deletion or replayed on abort. Record framing (length-
// prefixed, CRC32-checked) is adapted from
// _examples/intellect4all-storage-engines/btree/wal.go's physical WAL,
// trimmed to the non-goal of crash recovery (see DESIGN.md): entries
// live only as long as the owning process does, same as the
// transaction they protect.
package txn

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"sync"
)

const (
	logMagic   = "XPIL"
	logVersion = uint32(1)
	headerSize = 8 // magic(4) + version(4)
)

// entry is one page's pre-image: its number and original bytes.
type entry struct {
	pageNumber uint32
	data       []byte
}

// Log is one session's pre-image log for one open file.
type Log struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	seen     map[uint32]bool
	order    []entry
}

// Create opens (creating if absent) the on-disk log file at path and
// writes its header.
func Create(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("txn: opening pre-image log: %w", err)
	}
	l := &Log{path: path, file: f, seen: make(map[uint32]bool)}
	if err := l.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) writeHeader() error {
	var h [headerSize]byte
	copy(h[0:4], logMagic)
	binary.LittleEndian.PutUint32(h[4:8], logVersion)
	_, err := l.file.Write(h[:])
	return err
}

// Record appends pageNumber's pre-modification bytes, unless the page
// already has an entry for this transaction (first-modification-wins,
// per spec.md §3 "Pre-image log").
func (l *Log) Record(pageNumber uint32, original []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen[pageNumber] {
		return nil
	}
	cp := make([]byte, len(original))
	copy(cp, original)

	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:4], pageNumber)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(cp)))
	sum := crc32.ChecksumIEEE(cp)
	binary.LittleEndian.PutUint32(header[8:12], sum)
	if _, err := l.file.Write(header[:]); err != nil {
		return fmt.Errorf("txn: writing pre-image header: %w", err)
	}
	if _, err := l.file.Write(cp); err != nil {
		return fmt.Errorf("txn: writing pre-image data: %w", err)
	}

	l.seen[pageNumber] = true
	l.order = append(l.order, entry{pageNumber: pageNumber, data: cp})
	return nil
}

// Entries returns the logged pages in the order they were first
// modified, for abort-time restoration.
func (l *Log) Entries() []struct {
	PageNumber uint32
	Data       []byte
} {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]struct {
		PageNumber uint32
		Data       []byte
	}, len(l.order))
	for i, e := range l.order {
		out[i] = struct {
			PageNumber uint32
			Data       []byte
		}{PageNumber: e.pageNumber, Data: e.data}
	}
	return out
}

// Commit closes and removes the log file, keeping the main file's
// already-applied writes (spec.md §4.8 "End... closes and deletes the
// pre-image log").
func (l *Log) Commit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.Close()
	return os.Remove(l.path)
}

// Discard is Commit's twin after a caller has already restored the
// logged pages into the main file (used by abort, which reads Entries
// before discarding).
func (l *Log) Discard() error {
	return l.Commit()
}
