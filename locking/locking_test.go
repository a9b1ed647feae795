package locking

import (
	"testing"
	"time"

	"github.com/intellect4all/xtrieved/status"
)

func TestFileLockExclusiveConflict(t *testing.T) {
	m := New()
	if err := m.LockFile("a.btr", 1, true); err != nil {
		t.Fatalf("first exclusive lock: %v", err)
	}
	err := m.LockFile("a.btr", 2, true)
	if err == nil {
		t.Fatal("expected conflict for second exclusive lock")
	}
	if status.CodeOf(err) != status.FileInUse {
		t.Fatalf("expected FileInUse, got %v", err)
	}
	m.UnlockFile("a.btr", 1)
	if err := m.LockFile("a.btr", 2, true); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
}

func TestRecordLockNoWaitFailsImmediately(t *testing.T) {
	m := New()
	addr := [6]byte{1}
	if err := m.LockRecord("a.btr", addr, 1, TypeSingleWait); err != nil {
		t.Fatalf("first record lock: %v", err)
	}
	err := m.LockRecord("a.btr", addr, 2, TypeSingleNoWait)
	if status.CodeOf(err) != status.RecordInUse {
		t.Fatalf("expected RecordInUse, got %v", err)
	}
}

func TestRecordLockSameSessionReacquires(t *testing.T) {
	m := New()
	addr := [6]byte{2}
	if err := m.LockRecord("a.btr", addr, 1, TypeMultiWait); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if err := m.LockRecord("a.btr", addr, 1, TypeMultiWait); err != nil {
		t.Fatalf("reacquire by same session: %v", err)
	}
}

func TestRecordLockWaitTimesOut(t *testing.T) {
	m := New()
	m.Timeout = 30 * time.Millisecond
	addr := [6]byte{3}
	if err := m.LockRecord("a.btr", addr, 1, TypeSingleWait); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	err := m.LockRecord("a.btr", addr, 2, TypeSingleWait)
	if status.CodeOf(err) != status.WaitLockError {
		t.Fatalf("expected WaitLockError, got %v", err)
	}
}

func TestReleaseSessionClearsLocks(t *testing.T) {
	m := New()
	addr := [6]byte{4}
	m.LockFile("a.btr", 1, true)
	m.LockRecord("a.btr", addr, 1, TypeMultiWait)
	m.ReleaseSession(1)
	if m.IsRecordLocked("a.btr", addr, 2) {
		t.Fatal("expected record lock cleared after session release")
	}
	if err := m.LockFile("a.btr", 2, true); err != nil {
		t.Fatalf("expected file lock available after session release: %v", err)
	}
}
