package ops

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/openfiles"
	"github.com/intellect4all/xtrieved/pagecache"
	"github.com/intellect4all/xtrieved/status"
)

const testSession = openfiles.SessionID(1)

func newFile(t *testing.T, spec CreateFileSpec) *File {
	t.Helper()
	cache, err := pagecache.New(64, nil)
	if err != nil {
		t.Fatalf("pagecache.New: %v", err)
	}
	table := openfiles.NewTable(cache)
	dir := t.TempDir()
	path := filepath.Join(dir, "fruit.dat")
	if err := CreateFile(table, path, spec); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	of, err := table.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return &File{Path: path, Of: of}
}

func padded(s string, n int) string {
	return s + strings.Repeat(" ", n-len(s))
}

// fruitRecord builds a 100-byte record: bytes 0..20 the space-padded
// fruit name, bytes 20..100 an ascii description.
func fruitRecord(name, description string) []byte {
	rec := make([]byte, 100)
	copy(rec[0:20], padded(name, 20))
	copy(rec[20:100], padded(description, 80))
	return rec
}

// TestCreateInsertSearchUpdateDelete implements seed scenario 1.
func TestCreateInsertSearchUpdateDelete(t *testing.T) {
	spec := CreateFileSpec{
		RecordLength: 100,
		PageSize:     4096,
		Keys:         []keyspec.Spec{{Position: 0, Length: 20, Type: keyspec.TypeString}},
	}
	f := newFile(t, spec)

	fruits := []string{"Apple", "Banana", "Cherry", "Date", "Elderberry", "Fig", "Grape", "Honeydew", "Ink Berry", "Jackfruit"}
	for _, name := range fruits {
		if _, err := Insert(f, testSession, fruitRecord(name, name+" description")); err != nil {
			t.Fatalf("Insert(%s): %v", name, err)
		}
	}

	st := Stat(f)
	if st.NumRecords != 10 {
		t.Fatalf("expected 10 records, got %d", st.NumRecords)
	}

	result, err := GetFirst(f, testSession, 0)
	if err != nil {
		t.Fatalf("GetFirst: %v", err)
	}
	if got := strings.TrimRight(string(result.Data[0:20]), " "); got != "Apple" {
		t.Fatalf("GetFirst: expected Apple, got %q", got)
	}

	sorted := append([]string(nil), fruits...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	for i := 1; i < len(sorted); i++ {
		result, err = GetNext(f, testSession, 0, result.LeafPage, result.LeafIndex)
		if err != nil {
			t.Fatalf("GetNext at index %d: %v", i, err)
		}
		got := strings.TrimRight(string(result.Data[0:20]), " ")
		if got != sorted[i] {
			t.Fatalf("GetNext at index %d: expected %s, got %s", i, sorted[i], got)
		}
	}
	if _, err = GetNext(f, testSession, 0, result.LeafPage, result.LeafIndex); status.CodeOf(err) != status.EndOfFile {
		t.Fatalf("expected EndOfFile after last fruit, got %v", err)
	}

	grapeKey := []byte(padded("Grape", 20))
	eq, err := GetEqual(f, testSession, 0, grapeKey)
	if err != nil {
		t.Fatalf("GetEqual(Grape): %v", err)
	}
	if got := strings.TrimRight(string(eq.Data[0:20]), " "); got != "Grape" {
		t.Fatalf("GetEqual(Grape): got %q", got)
	}

	gt, err := GetGreater(f, testSession, 0, grapeKey)
	if err != nil {
		t.Fatalf("GetGreater(Grape): %v", err)
	}
	if got := strings.TrimRight(string(gt.Data[0:20]), " "); got != "Honeydew" {
		t.Fatalf("GetGreater(Grape): expected Honeydew, got %q", got)
	}

	appleKey := []byte(padded("Apple", 20))
	appleEq, err := GetEqual(f, testSession, 0, appleKey)
	if err != nil {
		t.Fatalf("GetEqual(Apple): %v", err)
	}
	updated := fruitRecord("Apple", "UPDATED description")
	if _, err := Update(f, testSession, appleEq.Addr, updated); err != nil {
		t.Fatalf("Update(Apple): %v", err)
	}
	appleEq, err = GetEqual(f, testSession, 0, appleKey)
	if err != nil {
		t.Fatalf("GetEqual(Apple) after update: %v", err)
	}
	if !strings.Contains(string(appleEq.Data), "UPDATED") {
		t.Fatalf("expected updated description to contain UPDATED, got %q", appleEq.Data)
	}

	if err := Delete(f, testSession, appleEq.Addr); err != nil {
		t.Fatalf("Delete(Apple): %v", err)
	}
	if _, err := GetEqual(f, testSession, 0, appleKey); status.CodeOf(err) != status.KeyNotFound {
		t.Fatalf("expected KeyNotFound after delete, got %v", err)
	}
	st = Stat(f)
	if st.NumRecords != 9 {
		t.Fatalf("expected 9 records after delete, got %d", st.NumRecords)
	}
}

// TestStepTraversalAfterDelete implements seed scenario 4: physical
// traversal skips a deleted record without disturbing its neighbors.
func TestStepTraversalAfterDelete(t *testing.T) {
	spec := CreateFileSpec{
		RecordLength: 10,
		PageSize:     512,
		Keys:         []keyspec.Spec{{Position: 0, Length: 2, Type: keyspec.TypeString}},
	}
	f := newFile(t, spec)

	rec := func(key string) []byte {
		r := make([]byte, 10)
		copy(r[0:2], key)
		return r
	}

	aa, err := Insert(f, testSession, rec("aa"))
	if err != nil {
		t.Fatalf("insert aa: %v", err)
	}
	bb, err := Insert(f, testSession, rec("bb"))
	if err != nil {
		t.Fatalf("insert bb: %v", err)
	}
	if _, err := Insert(f, testSession, rec("cc")); err != nil {
		t.Fatalf("insert cc: %v", err)
	}

	if err := Delete(f, testSession, bb.Addr); err != nil {
		t.Fatalf("delete bb: %v", err)
	}

	first, err := StepFirst(f, testSession)
	if err != nil {
		t.Fatalf("StepFirst: %v", err)
	}
	if string(first.Data[0:2]) != "aa" {
		t.Fatalf("StepFirst: expected aa, got %q", first.Data[0:2])
	}
	if first.Addr != aa.Addr {
		t.Fatalf("StepFirst address mismatch: got %+v want %+v", first.Addr, aa.Addr)
	}

	next, err := StepNext(f, testSession, first.Addr)
	if err != nil {
		t.Fatalf("StepNext: %v", err)
	}
	if string(next.Data[0:2]) != "cc" {
		t.Fatalf("StepNext: expected cc (bb skipped), got %q", next.Data[0:2])
	}

	if _, err := StepNext(f, testSession, next.Addr); status.CodeOf(err) != status.EndOfFile {
		t.Fatalf("expected EndOfFile after cc, got %v", err)
	}
}

// TestKeyRangeEdges implements seed scenario 5 for an unsigned 4-byte
// integer key over values {1,2,5,9}.
func TestKeyRangeEdges(t *testing.T) {
	spec := CreateFileSpec{
		RecordLength: 8,
		PageSize:     512,
		Keys:         []keyspec.Spec{{Position: 0, Length: 4, Type: keyspec.TypeUnsignedBinary}},
	}
	f := newFile(t, spec)

	encode := func(v uint32) []byte {
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}
	rec := func(v uint32) []byte {
		r := make([]byte, 8)
		copy(r[0:4], encode(v))
		return r
	}
	for _, v := range []uint32{1, 2, 5, 9} {
		if _, err := Insert(f, testSession, rec(v)); err != nil {
			t.Fatalf("insert %d: %v", v, err)
		}
	}

	ge, err := GetGreaterOrEqual(f, testSession, 0, encode(3))
	if err != nil {
		t.Fatalf("GetGreaterOrEqual(3): %v", err)
	}
	if got := uint32(ge.Data[0]) | uint32(ge.Data[1])<<8 | uint32(ge.Data[2])<<16 | uint32(ge.Data[3])<<24; got != 5 {
		t.Fatalf("GetGreaterOrEqual(3): expected 5, got %d", got)
	}

	le, err := GetLessOrEqual(f, testSession, 0, encode(3))
	if err != nil {
		t.Fatalf("GetLessOrEqual(3): %v", err)
	}
	if got := uint32(le.Data[0]) | uint32(le.Data[1])<<8 | uint32(le.Data[2])<<16 | uint32(le.Data[3])<<24; got != 2 {
		t.Fatalf("GetLessOrEqual(3): expected 2, got %d", got)
	}

	if _, err := GetGreater(f, testSession, 0, encode(9)); status.CodeOf(err) != status.EndOfFile {
		t.Fatalf("GetGreater(9): expected EndOfFile, got %v", err)
	}
	gt, err := GetGreater(f, testSession, 0, encode(5))
	if err != nil {
		t.Fatalf("GetGreater(5): %v", err)
	}
	if got := uint32(gt.Data[0]) | uint32(gt.Data[1])<<8 | uint32(gt.Data[2])<<16 | uint32(gt.Data[3])<<24; got != 9 {
		t.Fatalf("GetGreater(5): expected 9, got %d", got)
	}
}

func TestInsertRejectsWrongRecordLength(t *testing.T) {
	f := newFile(t, CreateFileSpec{RecordLength: 10, PageSize: 512})
	if _, err := Insert(f, testSession, make([]byte, 4)); status.CodeOf(err) != status.InvalidRecordLength {
		t.Fatalf("expected InvalidRecordLength, got %v", err)
	}
}

func TestCreateFileValidation(t *testing.T) {
	cache, err := pagecache.New(8, nil)
	if err != nil {
		t.Fatalf("pagecache.New: %v", err)
	}
	table := openfiles.NewTable(cache)
	dir := t.TempDir()

	big := CreateFileSpec{RecordLength: 4080, PageSize: 4096}
	if err := CreateFile(table, filepath.Join(dir, "a.dat"), big); status.CodeOf(err) != status.InvalidRecordLength {
		t.Fatalf("expected InvalidRecordLength, got %v", err)
	}

	oddPage := CreateFileSpec{RecordLength: 10, PageSize: 777}
	if err := CreateFile(table, filepath.Join(dir, "b.dat"), oddPage); status.CodeOf(err) != status.PageSizeError {
		t.Fatalf("expected PageSizeError, got %v", err)
	}

	badKey := CreateFileSpec{
		RecordLength: 10,
		PageSize:     512,
		Keys:         []keyspec.Spec{{Position: 8, Length: 4, Type: keyspec.TypeString}},
	}
	if err := CreateFile(table, filepath.Join(dir, "c.dat"), badKey); status.CodeOf(err) != status.InvalidKeyPosition {
		t.Fatalf("expected InvalidKeyPosition, got %v", err)
	}
}
