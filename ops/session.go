package ops

import "github.com/intellect4all/xtrieved/openfiles"

// TransactionMode distinguishes exclusive from concurrent transactions,
// per spec.md §4.8.
type TransactionMode int

const (
	ModeNone TransactionMode = iota
	ModeConcurrent
	ModeExclusive
)

// Session is a connected client's dispatcher-owned state: its lock/file
// identity and, while a transaction is open, which files it has
// enrolled.
type Session struct {
	ID            openfiles.SessionID
	Mode          TransactionMode
	EnrolledFiles map[string]bool
}

func NewSession(id openfiles.SessionID) *Session {
	return &Session{ID: id, EnrolledFiles: make(map[string]bool)}
}

func (s *Session) InTransaction() bool { return s.Mode != ModeNone }

func (s *Session) Enroll(path string) {
	s.EnrolledFiles[path] = true
}

func (s *Session) Reset() {
	s.Mode = ModeNone
	s.EnrolledFiles = make(map[string]bool)
}
