package dispatch

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/intellect4all/xtrieved/keyspec"
	"github.com/intellect4all/xtrieved/ops"
	"github.com/intellect4all/xtrieved/status"
	"github.com/intellect4all/xtrieved/wire"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(64, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// encodeCreateSpec builds Opcode 14's data buffer: record_length(u16)
// page_size(u16) num_keys(u16) reserved(u32), then one 16-byte key spec
// per key (position(u16) length(u16) flags(u16) type(u8) null_value(u8)
// + 8 reserved bytes), per ops.ParseCreateFileSpec.
func encodeCreateSpec(recordLength, pageSize uint16, keys []keyspec.Spec) []byte {
	out := make([]byte, 10+len(keys)*16)
	binary.LittleEndian.PutUint16(out[0:2], recordLength)
	binary.LittleEndian.PutUint16(out[2:4], pageSize)
	binary.LittleEndian.PutUint16(out[4:6], uint16(len(keys)))
	for i, k := range keys {
		base := 10 + i*16
		binary.LittleEndian.PutUint16(out[base:base+2], k.Position)
		binary.LittleEndian.PutUint16(out[base+2:base+4], k.Length)
		binary.LittleEndian.PutUint16(out[base+4:base+6], uint16(k.Flags))
		out[base+6] = byte(k.Type)
		out[base+7] = k.NullValue
	}
	return out
}

func padKey(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	for i := len(s); i < n; i++ {
		b[i] = ' '
	}
	return b
}

func mustCreate(t *testing.T, e *Engine, path string, recordLength, pageSize uint16, keys []keyspec.Spec) {
	t.Helper()
	resp := e.Execute(e.NewSession(), &wire.Request{
		Operation: uint16(ops.Create),
		FilePath:  path,
		Data:      encodeCreateSpec(recordLength, pageSize, keys),
	})
	if resp.Status != uint16(status.Success) {
		t.Fatalf("Create: status %d", resp.Status)
	}
}

func open(t *testing.T, e *Engine, s *ops.Session, path string) {
	t.Helper()
	resp := e.Execute(s, &wire.Request{Operation: uint16(ops.Open), FilePath: path})
	if resp.Status != uint16(status.Success) {
		t.Fatalf("Open: status %d", resp.Status)
	}
}

// TestTransactionRollback implements seed scenario 2: an aborted
// transaction is invisible to every session, including the one that
// made it, once Abort completes.
func TestTransactionRollback(t *testing.T) {
	e := newEngine(t)
	path := filepath.Join(t.TempDir(), "veg.dat")
	keys := []keyspec.Spec{{Position: 0, Length: 20, Type: keyspec.TypeString}}
	mustCreate(t, e, path, 30, 1024, keys)

	a := e.NewSession()
	b := e.NewSession()
	open(t, e, a, path)
	open(t, e, b, path)

	if resp := e.Execute(a, &wire.Request{Operation: uint16(ops.BeginTransaction), FilePath: path}); resp.Status != uint16(status.Success) {
		t.Fatalf("Begin: status %d", resp.Status)
	}

	zucchiniKey := padKey("Zucchini", 20)
	insertResp := e.Execute(a, &wire.Request{
		Operation: uint16(ops.Insert),
		FilePath:  path,
		Data:      append(append([]byte(nil), zucchiniKey...), make([]byte, 10)...),
	})
	if insertResp.Status != uint16(status.Success) {
		t.Fatalf("Insert(Zucchini): status %d", insertResp.Status)
	}

	aGet := e.Execute(a, &wire.Request{Operation: uint16(ops.GetEqual), FilePath: path, Key: zucchiniKey})
	if aGet.Status != uint16(status.Success) {
		t.Fatalf("A's GetEqual(Zucchini) during transaction: status %d", aGet.Status)
	}

	bGet := e.Execute(b, &wire.Request{Operation: uint16(ops.GetEqual), FilePath: path, Key: zucchiniKey})
	if bGet.Status != uint16(status.RecordInUse) {
		t.Fatalf("B's GetEqual(Zucchini) during transaction: expected RecordInUse(79), got %d", bGet.Status)
	}

	if resp := e.Execute(a, &wire.Request{Operation: uint16(ops.AbortTransaction)}); resp.Status != uint16(status.Success) {
		t.Fatalf("Abort: status %d", resp.Status)
	}

	aAfter := e.Execute(a, &wire.Request{Operation: uint16(ops.GetEqual), FilePath: path, Key: zucchiniKey})
	if aAfter.Status != uint16(status.KeyNotFound) {
		t.Fatalf("A's GetEqual(Zucchini) after abort: expected KeyNotFound(4), got %d", aAfter.Status)
	}

	statResp := e.Execute(a, &wire.Request{Operation: uint16(ops.Stat), FilePath: path})
	st := decodeStat(statResp.Data)
	if st != 0 {
		t.Fatalf("expected record count unchanged (0) after abort, got %d", st)
	}
}

// TestTransactionCommit implements seed scenario 3: a committed
// transaction's writes are durable and visible to every session.
func TestTransactionCommit(t *testing.T) {
	e := newEngine(t)
	path := filepath.Join(t.TempDir(), "yam.dat")
	keys := []keyspec.Spec{{Position: 0, Length: 20, Type: keyspec.TypeString}}
	mustCreate(t, e, path, 30, 1024, keys)

	a := e.NewSession()
	b := e.NewSession()
	open(t, e, a, path)
	open(t, e, b, path)

	if resp := e.Execute(a, &wire.Request{Operation: uint16(ops.BeginTransaction), FilePath: path}); resp.Status != uint16(status.Success) {
		t.Fatalf("Begin: status %d", resp.Status)
	}

	yamKey := padKey("Yam", 20)
	insertResp := e.Execute(a, &wire.Request{
		Operation: uint16(ops.Insert),
		FilePath:  path,
		Data:      append(append([]byte(nil), yamKey...), make([]byte, 10)...),
	})
	if insertResp.Status != uint16(status.Success) {
		t.Fatalf("Insert(Yam): status %d", insertResp.Status)
	}

	if resp := e.Execute(a, &wire.Request{Operation: uint16(ops.EndTransaction)}); resp.Status != uint16(status.Success) {
		t.Fatalf("End: status %d", resp.Status)
	}

	for _, s := range []*ops.Session{a, b} {
		resp := e.Execute(s, &wire.Request{Operation: uint16(ops.GetEqual), FilePath: path, Key: yamKey})
		if resp.Status != uint16(status.Success) {
			t.Fatalf("GetEqual(Yam) after commit: status %d", resp.Status)
		}
	}

	statResp := e.Execute(a, &wire.Request{Operation: uint16(ops.Stat), FilePath: path})
	if got := decodeStat(statResp.Data); got != 1 {
		t.Fatalf("expected num_records=1 after commit, got %d", got)
	}
}

// TestOpenExistingFileIteratesInKeyOrder implements seed scenario 6: a
// freshly created (standing in for "externally provided") file with an
// unsigned 4-byte integer key iterates every record exactly once in
// ascending order via Get First/Get Next, terminating in EndOfFile.
func TestOpenExistingFileIteratesInKeyOrder(t *testing.T) {
	e := newEngine(t)
	path := filepath.Join(t.TempDir(), "existing.dat")
	keys := []keyspec.Spec{{Position: 0, Length: 4, Type: keyspec.TypeUnsignedBinary}}
	mustCreate(t, e, path, 32, 1024, keys)

	s := e.NewSession()
	open(t, e, s, path)

	values := []uint32{9, 1, 5, 2}
	for _, v := range values {
		rec := make([]byte, 32)
		binary.LittleEndian.PutUint32(rec[0:4], v)
		resp := e.Execute(s, &wire.Request{Operation: uint16(ops.Insert), FilePath: path, Data: rec})
		if resp.Status != uint16(status.Success) {
			t.Fatalf("Insert(%d): status %d", v, resp.Status)
		}
	}

	// Re-open with a fresh session/cursor, as a second client discovering
	// the file fresh would.
	reader := e.NewSession()
	open(t, e, reader, path)

	var seen []uint32
	resp := e.Execute(reader, &wire.Request{Operation: uint16(ops.GetFirst), FilePath: path})
	block := resp.PositionBlock
	for resp.Status == uint16(status.Success) {
		seen = append(seen, binary.LittleEndian.Uint32(resp.Data[0:4]))
		resp = e.Execute(reader, &wire.Request{Operation: uint16(ops.GetNext), PositionBlock: block})
		block = resp.PositionBlock
	}
	if resp.Status != uint16(status.EndOfFile) {
		t.Fatalf("expected terminal EndOfFile(9), got %d", resp.Status)
	}
	want := []uint32{1, 2, 5, 9}
	if len(seen) != len(want) {
		t.Fatalf("expected %d records, saw %d (%v)", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("record %d out of order: got %v want %v", i, seen, want)
		}
	}
}

func TestCreateRejectsInvalidRecordLength(t *testing.T) {
	e := newEngine(t)
	path := filepath.Join(t.TempDir(), "bad.dat")
	resp := e.Execute(e.NewSession(), &wire.Request{
		Operation: uint16(ops.Create),
		FilePath:  path,
		Data:      encodeCreateSpec(4080, 4096, nil),
	})
	if resp.Status != uint16(status.InvalidRecordLength) {
		t.Fatalf("expected InvalidRecordLength(28), got %d", resp.Status)
	}
}

// TestVersionOpcode exercises the literal wire opcode 26 (spec.md §4.7
// "26 | Version | Stats-only"), not just the ops.Version symbol, since a
// real client sends the raw number over the wire.
func TestVersionOpcode(t *testing.T) {
	e := newEngine(t)
	resp := e.Execute(e.NewSession(), &wire.Request{Operation: 26})
	if resp.Status != uint16(status.Success) {
		t.Fatalf("expected Success, got %d", resp.Status)
	}
	if string(resp.Data) != "xtrieved 1.0" {
		t.Fatalf("expected version string, got %q", resp.Data)
	}
}

func TestUnknownOpcodeReturnsInvalidOperation(t *testing.T) {
	e := newEngine(t)
	resp := e.Execute(e.NewSession(), &wire.Request{Operation: 9999})
	if resp.Status != uint16(status.InvalidOperation) {
		t.Fatalf("expected InvalidOperation(1), got %d", resp.Status)
	}
}

func decodeStat(data []byte) uint32 {
	if len(data) < 10 {
		return 0
	}
	return binary.LittleEndian.Uint32(data[6:10])
}
