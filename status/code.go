// Package status defines the Btrieve wire status-code taxonomy and the
// typed error used to carry one through the engine.
package status

// Code is a Btrieve status code as carried on the wire (u16) and
// internally. Discriminants below match the original Btrieve 5.1 numbering.
// The source material assigns 78 and 79 to two different name pairs
// (WaitLockError/RecordInUse vs DeadlockDetected/LockTimeout); spec.md's own
// interface table is authoritative here and is the pair kept (see
// DESIGN.md, Open Question 2).
type Code uint16

const (
	Success                       Code = 0
	InvalidOperation              Code = 1
	IoError                       Code = 2
	FileNotOpen                   Code = 3
	KeyNotFound                   Code = 4
	DuplicateKey                  Code = 5
	InvalidKeyNumber              Code = 6
	DifferentKeyNumber            Code = 7
	InvalidPositioning            Code = 8
	EndOfFile                     Code = 9
	ModifiableKeyChanged          Code = 10
	InvalidFileName               Code = 11
	FileNotFound                  Code = 12
	ExtendedFileError             Code = 13
	PreImageOpenError             Code = 14
	PreImageIoError               Code = 15
	ExpansionError                Code = 16
	CloseError                    Code = 17
	DiskFull                      Code = 18
	UnrecoverableError            Code = 19
	RecordManagerInactive         Code = 20
	KeyBufferTooShort             Code = 21
	DataBufferTooShort            Code = 22
	PositionBlockLengthError      Code = 23
	PageSizeError                 Code = 24
	CreateIoError                 Code = 25
	NumberOfKeysError             Code = 26
	InvalidKeyPosition            Code = 27
	InvalidRecordLength           Code = 28
	InvalidKeyLength              Code = 29
	NotBtrieveFile                Code = 30
	FileAlreadyExtended           Code = 31
	ExtendIoError                 Code = 32
	InvalidExtensionName          Code = 33
	DirectoryError                Code = 34
	TransactionError              Code = 35
	TransactionActive             Code = 36
	TransactionControlFileIoError Code = 37
	EndAbortTransactionError      Code = 38
	TransactionMaxFiles           Code = 39
	OperationNotAllowed           Code = 40
	IncompleteAcceleratedAccess   Code = 41
	InvalidRecordAddress          Code = 42
	NullKeyPath                   Code = 43
	InconsistentKeyFlags          Code = 44
	AccessDenied                  Code = 45
	MaxOpenFiles                  Code = 46
	InvalidACS                    Code = 47
	KeyTypeError                  Code = 48
	OwnerAlreadySet               Code = 49
	InvalidOwner                  Code = 50
	CacheWriteError               Code = 51
	InvalidInterface              Code = 52
	VariablePageError             Code = 54
	AutoincrementError            Code = 55
	IncompleteIndex               Code = 56
	ExpandedMemoryError           Code = 57
	CompressBufferTooShort        Code = 58
	FileAlreadyExists             Code = 59
	RejectCountReached            Code = 60
	WorkSpaceTooSmall             Code = 61
	DescriptorBad                 Code = 62
	ExtendedGetBufferTooSmall     Code = 63
	GetStepExtendedError          Code = 64
	InvalidExtendedInsertBuffer   Code = 65
	OptimizeLimitReached          Code = 66
	InvalidExtractor              Code = 67
	RiViolation                   Code = 68
	RiReferenceFileError          Code = 69
	RiOutOfSync                   Code = 70
	// 71-77 unassigned in the source taxonomy.
	WaitLockError         Code = 78 // spec.md name for 78 (see Open Question 2)
	RecordInUse           Code = 79 // spec.md name for 79 (see Open Question 2)
	FileInUse             Code = 80
	FileTableFull         Code = 81
	HandleTableFull       Code = 82
	IncompatibleMode      Code = 83
	DeviceTableFull       Code = 84
	ServerError           Code = 85
	TransactionTableFull  Code = 86
	IncompatibleLockType  Code = 87
	PermissionError       Code = 88
	SessionInvalid        Code = 89
	CommunicationsError   Code = 90
	DataMessageTooSmall   Code = 91
	InternalTransactionError Code = 92
	RequesterCantAccess   Code = 93
	RecordLocked          Code = 94
	LostPosition          Code = 95
	ReadOutsideTransaction Code = 96
	RecordPageConflict    Code = 97
	FileGone              Code = 99
	ServerCrashLocksLost  Code = 100

	// Unknown is returned when no other code applies; it is the
	// "pessimistic unrecoverable" code spec.md §6 asks for when a raw
	// value doesn't match any assigned discriminant.
	Unknown Code = 65535
)

var names = map[Code]string{
	Success: "Success", InvalidOperation: "InvalidOperation", IoError: "IoError",
	FileNotOpen: "FileNotOpen", KeyNotFound: "KeyNotFound", DuplicateKey: "DuplicateKey",
	InvalidKeyNumber: "InvalidKeyNumber", DifferentKeyNumber: "DifferentKeyNumber",
	InvalidPositioning: "InvalidPositioning", EndOfFile: "EndOfFile",
	ModifiableKeyChanged: "ModifiableKeyChanged", InvalidFileName: "InvalidFileName",
	FileNotFound: "FileNotFound", ExtendedFileError: "ExtendedFileError",
	PreImageOpenError: "PreImageOpenError", PreImageIoError: "PreImageIoError",
	ExpansionError: "ExpansionError", CloseError: "CloseError", DiskFull: "DiskFull",
	UnrecoverableError: "UnrecoverableError", RecordManagerInactive: "RecordManagerInactive",
	KeyBufferTooShort: "KeyBufferTooShort", DataBufferTooShort: "DataBufferTooShort",
	PositionBlockLengthError: "PositionBlockLengthError", PageSizeError: "PageSizeError",
	CreateIoError: "CreateIoError", NumberOfKeysError: "NumberOfKeysError",
	InvalidKeyPosition: "InvalidKeyPosition", InvalidRecordLength: "InvalidRecordLength",
	InvalidKeyLength: "InvalidKeyLength", NotBtrieveFile: "NotBtrieveFile",
	TransactionError: "TransactionError", TransactionActive: "TransactionActive",
	TransactionMaxFiles: "TransactionMaxFiles", OperationNotAllowed: "OperationNotAllowed",
	InvalidRecordAddress: "InvalidRecordAddress", NullKeyPath: "NullKeyPath",
	InconsistentKeyFlags: "InconsistentKeyFlags", AccessDenied: "AccessDenied",
	MaxOpenFiles: "MaxOpenFiles", InvalidACS: "InvalidACS", KeyTypeError: "KeyTypeError",
	OwnerAlreadySet: "OwnerAlreadySet", InvalidOwner: "InvalidOwner",
	FileAlreadyExists: "FileAlreadyExists", WaitLockError: "WaitLockError",
	RecordInUse: "RecordInUse", FileInUse: "FileInUse", FileTableFull: "FileTableFull",
	IncompatibleMode: "IncompatibleMode", PermissionError: "PermissionError",
	SessionInvalid: "SessionInvalid", RecordLocked: "RecordLocked",
	LostPosition: "LostPosition", FileGone: "FileGone",
	ServerCrashLocksLost: "ServerCrashLocksLost", Unknown: "Unknown",
}

// String returns the code's name, falling back to "Code(<n>)" for
// discriminants not given a name above.
func (c Code) String() string {
	if name, ok := names[c]; ok {
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

// IsSuccess reports whether the code represents no error.
func (c Code) IsSuccess() bool { return c == Success }

// IsEOF reports whether clients should treat this as normal loop
// termination rather than an error (spec.md §7): Get/Step loops end on
// KeyNotFound or EndOfFile, neither of which is an application error.
func (c Code) IsEOF() bool { return c == EndOfFile || c == KeyNotFound }
