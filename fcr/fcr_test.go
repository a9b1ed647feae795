package fcr

import (
	"testing"

	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/page"
)

func TestRoundtrip(t *testing.T) {
	keys := []keyspec.Spec{{Position: 0, Length: 20, Type: keyspec.TypeString}}
	f := New(100, 4096, keys)
	f.NumRecords = 10
	f.FirstDataPage = 1
	f.IndexRoots[0] = 2

	p := page.New(0, 4096, page.TypeFCR)
	if err := f.WriteTo(p); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := FromPage(p)
	if err != nil {
		t.Fatalf("FromPage: %v", err)
	}
	if got.PageSize != 4096 || got.RecordLength != 100 || got.NumRecords != 10 {
		t.Fatalf("mismatch: %+v", got)
	}
	if got.NumKeys != 1 || got.Keys[0].Length != 20 || got.IndexRoots[0] != 2 {
		t.Fatalf("key mismatch: %+v", got.Keys)
	}
}

func TestValidateRejectsBadPageSize(t *testing.T) {
	f := New(100, 4096, nil)
	f.PageSize = 900
	if err := f.Validate(); err == nil {
		t.Fatal("expected validation error for bad page size")
	}
}

func TestValidateRejectsOversizedRecord(t *testing.T) {
	f := New(4100, 4096, nil)
	if err := f.Validate(); err == nil {
		t.Fatal("expected validation error for record_length > page_size-20")
	}
}

func TestValidateRejectsBadKeyPosition(t *testing.T) {
	keys := []keyspec.Spec{{Position: 90, Length: 20, Type: keyspec.TypeString}}
	f := New(100, 4096, keys)
	if err := f.Validate(); err == nil {
		t.Fatal("expected validation error for key position+length > record_length")
	}
}
