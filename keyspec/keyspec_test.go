package keyspec

import (
	"encoding/binary"
	"testing"
)

func TestSpecRoundtrip(t *testing.T) {
	s := Spec{Position: 20, Length: 4, Flags: FlagDuplicates, Type: TypeUnsignedBinary, NullValue: 0}
	b := s.ToBytes()
	got := FromBytes(b[:])
	if got.Position != s.Position || got.Length != s.Length || got.Flags != s.Flags || got.Type != s.Type {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, s)
	}
}

func TestCompareStringLexicographic(t *testing.T) {
	s := Spec{Type: TypeString}
	if s.Compare([]byte("Apple               "), []byte("Banana              ")) >= 0 {
		t.Fatal("expected Apple < Banana")
	}
}

func TestCompareUnsignedInteger(t *testing.T) {
	s := Spec{Type: TypeUnsignedBinary}
	a := make([]byte, 4)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(a, 5)
	binary.LittleEndian.PutUint32(b, 9)
	if s.Compare(a, b) >= 0 {
		t.Fatal("expected 5 < 9")
	}
	if s.Compare(b, a) <= 0 {
		t.Fatal("expected 9 > 5")
	}
}

func TestCompareDescendingReverses(t *testing.T) {
	asc := Spec{Type: TypeUnsignedBinary}
	desc := Spec{Type: TypeUnsignedBinary, Flags: FlagDescending}
	a := make([]byte, 4)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(a, 1)
	binary.LittleEndian.PutUint32(b, 2)
	if asc.Compare(a, b) >= 0 {
		t.Fatal("ascending: expected 1 < 2")
	}
	if desc.Compare(a, b) <= 0 {
		t.Fatal("descending: expected reversed order, 1 > 2")
	}
}

func TestCompareSignedIsSigned(t *testing.T) {
	s := Spec{Type: TypeInteger}
	neg := []byte{0xFF, 0xFF, 0xFF, 0xFF} // -1 as little-endian i32
	zero := []byte{0x00, 0x00, 0x00, 0x00}
	if s.Compare(neg, zero) >= 0 {
		t.Fatal("expected -1 < 0 under signed comparison")
	}
}

func TestIsNullKey(t *testing.T) {
	s := Spec{Flags: FlagNull, NullValue: 0x20, Length: 4}
	blank := []byte{0x20, 0x20, 0x20, 0x20}
	if !s.IsNullKey(blank) {
		t.Fatal("expected all-null-value bytes to be a null key")
	}
	nonNull := []byte{0x20, 0x41, 0x20, 0x20}
	if s.IsNullKey(nonNull) {
		t.Fatal("expected mixed bytes to not be a null key")
	}
}
