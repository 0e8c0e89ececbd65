package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in bridge processing the error occurred
type Phase string

const (
	PhaseInit      Phase = "init"      // runtime construction
	PhaseOpen      Phase = "open"      // connection open protocol
	PhaseClose     Phase = "close"     // connection close
	PhaseRegister  Phase = "register"  // hook/function/collation registration
	PhaseDispatch  Phase = "dispatch"  // engine-to-Go callback dispatch
	PhaseExtension Phase = "extension" // auto-extension handling
	PhaseShutdown  Phase = "shutdown"  // runtime teardown
	PhaseConfig    Phase = "config"    // configuration handling
	PhaseStatement Phase = "statement" // statement compile and run
)

// Kind categorizes the error
type Kind string

const (
	KindMisuse         Kind = "misuse"
	KindAllocation     Kind = "allocation"
	KindCallback       Kind = "callback"
	KindEngine         Kind = "engine"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindInvalidInput   Kind = "invalid_input"
	KindEncoding       Kind = "encoding"
	KindUnsupported    Kind = "unsupported"
	KindRegistration   Kind = "registration"
)

// Engine result codes the bridge maps errors onto. These mirror the
// stable primary result codes of the SQLite C ABI.
const (
	CodeOK     int32 = 0
	CodeError  int32 = 1
	CodeBusy   int32 = 5
	CodeNomem  int32 = 7
	CodeMisuse int32 = 21
	CodeFormat int32 = 24
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Code   int32  // engine result code, CodeError when unset
	Func   string // SQL function or collation name, when relevant
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Func != "" {
		b.WriteString(" in ")
		b.WriteString(e.Func)
	}

	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// ResultCode returns the engine result code for this error, deriving one
// from the Kind when no explicit code was attached.
func (e *Error) ResultCode() int32 {
	if e.Code != 0 {
		return e.Code
	}
	switch e.Kind {
	case KindMisuse, KindNotInitialized:
		return CodeMisuse
	case KindAllocation:
		return CodeNomem
	case KindEncoding:
		return CodeFormat
	default:
		return CodeError
	}
}

// Code maps an arbitrary error to an engine result code. Nil maps to
// CodeOK, non-bridge errors to CodeError.
func Code(err error) int32 {
	if err == nil {
		return CodeOK
	}
	if e, ok := err.(*Error); ok {
		return e.ResultCode()
	}
	return CodeError
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Func sets the SQL function or collation name
func (b *Builder) Func(name string) *Builder {
	b.err.Func = name
	return b
}

// Code sets the engine result code
func (b *Builder) Code(code int32) *Builder {
	b.err.Code = code
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Misuse creates a precondition-violation error
func Misuse(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMisuse,
		Code:   CodeMisuse,
		Detail: detail,
	}
}

// Allocation creates an allocation failure error
func Allocation(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Code:   CodeNomem,
		Detail: fmt.Sprintf("failed to allocate %s", what),
	}
}

// CallbackFailed wraps an error raised by a registered callback
func CallbackFailed(phase Phase, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCallback,
		Code:   CodeError,
		Cause:  cause,
		Detail: detail,
	}
}

// Engine creates an error carrying an engine result code and message
func Engine(phase Phase, code int32, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEngine,
		Code:   code,
		Detail: detail,
	}
}

// NotFound creates a lookup failure error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// NotInitialized creates an error for operations on unopened state
func NotInitialized(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Code:   CodeMisuse,
		Detail: fmt.Sprintf("%s not initialized", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Encoding creates an invalid text-encoding error
func Encoding(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEncoding,
		Code:   CodeFormat,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Registration creates a registration failure error
func Registration(phase Phase, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Cause:  cause,
		Detail: detail,
	}
}

// Wrap attaches phase and kind to an existing error
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Cause:  cause,
		Detail: detail,
	}
}
