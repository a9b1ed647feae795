package status

import "fmt"

// Kind distinguishes how an Error should be reported on the wire (spec.md
// §7: "Error kinds (internal enum): typed status, I/O, invalid-format,
// internal"). Every Kind maps to exactly one Code.
type Kind int

const (
	KindStatus Kind = iota
	KindIO
	KindInvalidFormat
	KindInternal
)

// Error is the engine-wide error type. It is modeled on the
// iamNilotpal-ignite baseError fluent-builder pattern (cause, message,
// code, details), adapted to carry a Kind/Code pair instead of a bare
// string error code, since every Btrieve condition an implementer can
// distinguish must resolve to one numeric Code.
type Error struct {
	kind    Kind
	code    Code
	message string
	cause   error
	details map[string]any
}

// New builds a typed-status error: the Code passes straight through to the
// wire (spec.md §7 "typed statuses pass through").
func New(code Code, message string) *Error {
	return &Error{kind: KindStatus, code: code, message: message}
}

// Wrap classifies an arbitrary Go error as an I/O failure, mapping to
// IoError on the wire.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{kind: KindIO, code: IoError, message: err.Error(), cause: err}
}

// InvalidFormat reports that a file does not parse as a Btrieve 5.1 file,
// mapping to NotBtrieveFile on the wire.
func InvalidFormat(format string, args ...any) *Error {
	return &Error{kind: KindInvalidFormat, code: NotBtrieveFile, message: fmt.Sprintf(format, args...)}
}

// Internal reports a bug, mapping to UnrecoverableError on the wire.
func Internal(format string, args ...any) *Error {
	return &Error{kind: KindInternal, code: UnrecoverableError, message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches a diagnostic key/value pair, returning the receiver
// for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// WithCause attaches an underlying error for Unwrap, returning the
// receiver for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.message == "" {
		return e.code.String()
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the single wire status code this error maps to (spec.md §7:
// "Every internal error maps to exactly one status code for the wire").
func (e *Error) Code() Code { return e.code }

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Details() map[string]any { return e.details }

// CodeOf resolves any error (typed *Error or not) to its wire Code,
// returning Success for a nil error. This is the single conversion point
// the dispatcher uses to build a status-only response.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	if e, ok := err.(*Error); ok {
		return e.code
	}
	return UnrecoverableError
}
