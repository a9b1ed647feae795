package openfiles

import (
	"path/filepath"
	"testing"

	"github.com/intellect4all/xtrieved/fcr"
	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/pagecache"
)

func newTable(t *testing.T) *Table {
	t.Helper()
	cache, err := pagecache.New(16, nil)
	if err != nil {
		t.Fatalf("pagecache.New: %v", err)
	}
	return NewTable(cache)
}

func TestCreateOpenCloseRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.btr")
	table := newTable(t)

	keys := []keyspec.Spec{{Position: 0, Length: 20, Type: keyspec.TypeString}}
	f := fcr.New(100, 4096, keys)

	of, err := table.Create(path, f)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if of.FCR().RecordLength != 100 {
		t.Fatalf("unexpected record length: %d", of.FCR().RecordLength)
	}

	if err := table.Close(path); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := table.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.FCR().PageSize != 4096 {
		t.Fatalf("unexpected page size on reopen: %d", reopened.FCR().PageSize)
	}
	table.Close(path)
}

func TestCreateExistingFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.btr")
	table := newTable(t)
	f := fcr.New(32, 1024, nil)

	if _, err := table.Create(path, f); err != nil {
		t.Fatalf("first create: %v", err)
	}
	table.Close(path)

	if _, err := table.Create(path, f); err == nil {
		t.Fatal("expected FileAlreadyExists on second create")
	}
}

func TestAllocatePageAndReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pages.btr")
	table := newTable(t)
	f := fcr.New(32, 512, nil)

	of, err := table.Create(path, f)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p, err := of.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if p.Number != 1 {
		t.Fatalf("expected page 1, got %d", p.Number)
	}
	got, err := of.ReadPage(1)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if got.Number != 1 {
		t.Fatalf("unexpected page read back: %d", got.Number)
	}
	table.Close(path)
}
