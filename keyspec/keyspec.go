// Package keyspec implements Btrieve key specifications and typed key
// comparison. Type/flag discriminants are grounded on
// original_source/xtrieve-engine/src/storage/key.rs; on-disk byte offsets
// follow spec.md §6 (see DESIGN.md, Open Question 3) rather than key.rs's
// own internal serialization, which differs from the legacy layout.
package keyspec

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Type identifies how a key's bytes are interpreted for comparison.
// Values match original_source's KeyType enum.
type Type byte

const (
	TypeString         Type = 0
	TypeInteger        Type = 1
	TypeFloat          Type = 2
	TypeDate           Type = 3
	TypeTime           Type = 4
	TypeDecimal        Type = 5
	TypeMoney          Type = 6
	TypeLogical        Type = 7
	TypeNumeric        Type = 8
	TypeBFloat         Type = 9
	TypeLString        Type = 10
	TypeZString        Type = 11
	TypeUnsignedBinary Type = 14
	TypeAutoIncrement  Type = 15
)

// Flags are the per-key bit flags stored alongside the key type.
type Flags uint16

const (
	FlagDuplicates  Flags = 0x0001
	FlagModifiable  Flags = 0x0002
	FlagBinary      Flags = 0x0004 // obsolete, recognized for byte-compat only
	FlagNull        Flags = 0x0008
	FlagSegmented   Flags = 0x0010 // compound keys are out of scope; flag is recognized, not acted on
	FlagAltSequence Flags = 0x0020
	FlagDescending  Flags = 0x0040
	FlagSupplemental Flags = 0x0080
	FlagExtendedType Flags = 0x0100
	FlagManual      Flags = 0x0200
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Spec is one key's specification, as stored in a file's FCR.
type Spec struct {
	Position    uint16 // record-relative byte offset (1-based on disk, see FromBytes)
	Length      uint16
	Flags       Flags
	Type        Type
	NullValue   byte
	ACSNumber   byte
	IndexRoot   uint32
	UniqueCount uint32
}

// Size is the on-disk size of one key spec entry per spec.md §6: 16 bytes
// starting with position/length/flags/type/null_value then reserved
// padding (index root and autoincrement/unique-count live in the FCR's own
// per-key arrays, adjacent to but outside this 16-byte stride — see
// package fcr).
const Size = 16

// FromBytes parses a 16-byte key spec at spec.md §6's layout: position at
// +8 (1-based), length at +10, flags at +12, type at +14, null value at
// +15. Bytes 0-7 are reserved/historical padding in the legacy format.
func FromBytes(b []byte) Spec {
	var s Spec
	pos1based := binary.LittleEndian.Uint16(b[8:10])
	if pos1based > 0 {
		s.Position = pos1based - 1
	}
	s.Length = binary.LittleEndian.Uint16(b[10:12])
	s.Flags = Flags(binary.LittleEndian.Uint16(b[12:14]))
	s.Type = Type(b[14])
	s.NullValue = b[15]
	return s
}

// ToBytes serializes the spec back into the 16-byte legacy layout.
func (s Spec) ToBytes() [Size]byte {
	var b [Size]byte
	binary.LittleEndian.PutUint16(b[8:10], s.Position+1)
	binary.LittleEndian.PutUint16(b[10:12], s.Length)
	binary.LittleEndian.PutUint16(b[12:14], uint16(s.Flags))
	b[14] = byte(s.Type)
	b[15] = s.NullValue
	return b
}

// Extract slices the key's bytes out of a full record per Position/Length.
func (s Spec) Extract(record []byte) []byte {
	return record[s.Position : s.Position+s.Length]
}

// IsNullKey reports whether every byte of the extracted key equals the
// key's configured null-value byte (only meaningful when FlagNull is set).
func (s Spec) IsNullKey(keyBytes []byte) bool {
	if !s.Flags.Has(FlagNull) {
		return false
	}
	for _, b := range keyBytes {
		if b != s.NullValue {
			return false
		}
	}
	return true
}

// Compare performs a typed comparison of two key-byte-slices according to
// s.Type, sign-reversed when FlagDescending is set. Unrecognized types
// fall back to lexicographic byte comparison (spec.md §9 "Key ordering
// polymorphism").
func (s Spec) Compare(a, b []byte) int {
	cmp := compareTyped(s.Type, a, b)
	if s.Flags.Has(FlagDescending) {
		return -cmp
	}
	return cmp
}

func compareTyped(t Type, a, b []byte) int {
	switch t {
	case TypeInteger:
		return compareSigned(a, b)
	case TypeUnsignedBinary, TypeAutoIncrement:
		return compareUnsigned(a, b)
	case TypeFloat, TypeBFloat:
		return compareFloat(a, b)
	case TypeLString:
		return compareLString(a, b)
	case TypeString, TypeZString:
		return bytes.Compare(a, b)
	default:
		return bytes.Compare(a, b)
	}
}

func compareSigned(a, b []byte) int {
	switch len(a) {
	case 1:
		return sign(int64(int8(a[0])) - int64(int8(b[0])))
	case 2:
		return sign(int64(int16(binary.LittleEndian.Uint16(a))) - int64(int16(binary.LittleEndian.Uint16(b))))
	case 4:
		return sign(int64(int32(binary.LittleEndian.Uint32(a))) - int64(int32(binary.LittleEndian.Uint32(b))))
	case 8:
		av, bv := int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b))
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return bytes.Compare(a, b)
	}
}

func compareUnsigned(a, b []byte) int {
	switch len(a) {
	case 1:
		return sign(int64(a[0]) - int64(b[0]))
	case 2:
		return sign(int64(binary.LittleEndian.Uint16(a)) - int64(binary.LittleEndian.Uint16(b)))
	case 4:
		av, bv := binary.LittleEndian.Uint32(a), binary.LittleEndian.Uint32(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case 8:
		av, bv := binary.LittleEndian.Uint64(a), binary.LittleEndian.Uint64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return bytes.Compare(a, b)
	}
}

func compareFloat(a, b []byte) int {
	af, bf := decodeFloat(a), decodeFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func decodeFloat(b []byte) float64 {
	switch len(b) {
	case 4:
		bits := binary.LittleEndian.Uint32(b)
		return float64(math.Float32frombits(bits))
	case 8:
		bits := binary.LittleEndian.Uint64(b)
		return math.Float64frombits(bits)
	default:
		return 0
	}
}

// compareLString compares the length-prefixed substring: the first byte
// is the logical string length, remaining bytes are payload.
func compareLString(a, b []byte) int {
	if len(a) == 0 || len(b) == 0 {
		return bytes.Compare(a, b)
	}
	al, bl := int(a[0]), int(b[0])
	if al+1 > len(a) {
		al = len(a) - 1
	}
	if bl+1 > len(b) {
		bl = len(b) - 1
	}
	return bytes.Compare(a[1:1+al], b[1:1+bl])
}

func sign(v int64) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
