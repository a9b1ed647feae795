// Package ops implements the per-opcode operation handlers: file
// lifecycle, record CRUD, key-ordered and physical navigation, and
// transaction control. Opcode numbering matches
// original_source/xtrieve-engine/src/operations/dispatcher.rs's
// OperationCode, extended per spec.md §6/SPEC_FULL.md with the
// supplemental-index opcodes (31/32).
package ops

// Code identifies a requested operation.
type Code uint16

const (
	Open                      Code = 0
	Close                     Code = 1
	Insert                    Code = 2
	Update                    Code = 3
	Delete                    Code = 4
	GetEqual                  Code = 5
	GetNext                   Code = 6
	GetPrevious               Code = 7
	GetGreater                Code = 8
	GetGreaterOrEqual         Code = 9
	GetLessThan               Code = 10
	GetLessOrEqual            Code = 11
	GetFirst                  Code = 12
	GetLast                   Code = 13
	Create                    Code = 14
	Stat                      Code = 15
	Extend                    Code = 17
	BeginTransaction          Code = 19
	EndTransaction            Code = 20
	AbortTransaction          Code = 21
	GetPosition               Code = 22
	GetDirect                 Code = 23
	StepNext                  Code = 24
	Version                   Code = 26
	Reset                     Code = 28
	SetOwner                  Code = 29
	ClearOwner                Code = 30
	CreateSupplementalIndex   Code = 31
	DropSupplementalIndex     Code = 32
	StepFirst                 Code = 33
	StepLast                  Code = 34
	StepPrevious              Code = 35
	GetNextExtended           Code = 36
	GetPreviousExtended       Code = 37
	StepNextExtended          Code = 38
	StepPreviousExtended      Code = 39
	InsertExtended            Code = 40
	GetKey                    Code = 50
	Stop                      Code = 25
	Unlock                    Code = 53
	Unknown                   Code = 255
)

var codeNames = map[Code]string{
	Open: "Open", Close: "Close", Insert: "Insert", Update: "Update", Delete: "Delete",
	GetEqual: "GetEqual", GetNext: "GetNext", GetPrevious: "GetPrevious", GetGreater: "GetGreater",
	GetGreaterOrEqual: "GetGreaterOrEqual", GetLessThan: "GetLessThan", GetLessOrEqual: "GetLessOrEqual",
	GetFirst: "GetFirst", GetLast: "GetLast", Create: "Create", Stat: "Stat", Extend: "Extend",
	BeginTransaction: "BeginTransaction", EndTransaction: "EndTransaction", AbortTransaction: "AbortTransaction",
	GetPosition: "GetPosition", GetDirect: "GetDirect", StepNext: "StepNext", Version: "Version",
	Reset: "Reset", SetOwner: "SetOwner", ClearOwner: "ClearOwner",
	CreateSupplementalIndex: "CreateSupplementalIndex", DropSupplementalIndex: "DropSupplementalIndex",
	StepFirst: "StepFirst", StepLast: "StepLast", StepPrevious: "StepPrevious",
	GetNextExtended: "GetNextExtended", GetPreviousExtended: "GetPreviousExtended",
	StepNextExtended: "StepNextExtended", StepPreviousExtended: "StepPreviousExtended",
	InsertExtended: "InsertExtended", GetKey: "GetKey", Stop: "Stop", Unlock: "Unlock",
	Unknown: "Unknown",
}

// String renders the opcode's name, falling back to its bare number for
// any value not in the table above.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Code(" + itoa(uint16(c)) + ")"
}

func itoa(v uint16) string {
	if v == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// RequiresPosition reports whether the operation consumes an incoming
// position block to resume a cursor, per spec.md §4.4.
func (c Code) RequiresPosition() bool {
	switch c {
	case GetNext, GetPrevious, StepNext, StepPrevious, GetNextExtended, GetPreviousExtended,
		StepNextExtended, StepPreviousExtended, Update, Delete, GetPosition:
		return true
	default:
		return false
	}
}

// IsRead reports whether the operation only reads file state.
func (c Code) IsRead() bool {
	switch c {
	case GetEqual, GetNext, GetPrevious, GetGreater, GetGreaterOrEqual, GetLessThan, GetLessOrEqual,
		GetFirst, GetLast, Stat, GetPosition, GetDirect, StepNext, StepFirst, StepLast, StepPrevious,
		Version, GetKey:
		return true
	default:
		return false
	}
}

// IsWrite reports whether the operation mutates file state.
func (c Code) IsWrite() bool {
	switch c {
	case Insert, Update, Delete, Create, InsertExtended, CreateSupplementalIndex, DropSupplementalIndex:
		return true
	default:
		return false
	}
}
