package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wippyai/js-runtime/jsrt"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRuntime  Phase = "runtime"  // runtime lifecycle and collection
	PhaseContext  Phase = "context"  // context creation and switching
	PhaseValue    Phase = "value"    // value and property operations
	PhaseScript   Phase = "script"   // script evaluation and parsing
	PhaseCallback Phase = "callback" // native callbacks invoked by script
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindScriptException Kind = "script_exception"
	KindScriptCompile   Kind = "script_compile"
	KindCall            Kind = "call"
	KindTypeMismatch    Kind = "type_mismatch"
	KindDisposed        Kind = "disposed"
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindUnsupported     Kind = "unsupported"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
	Code   jsrt.ErrorCode
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Code != jsrt.NoError {
		b.WriteString(" (")
		b.WriteString(e.Code.String())
		b.WriteByte(')')
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

// Op sets the name of the failing operation
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Code sets the engine status code
func (b *Builder) Code(code jsrt.ErrorCode) *Builder {
	b.err.Code = code
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
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

// ScriptException creates an error for an uncaught script exception.
// message is the string conversion of the thrown value.
func ScriptException(message string) *Error {
	return &Error{
		Phase:  PhaseScript,
		Kind:   KindScriptException,
		Code:   jsrt.ScriptException,
		Detail: message,
	}
}

// ScriptCompile creates an error for source that failed to compile
func ScriptCompile(message string) *Error {
	return &Error{
		Phase:  PhaseScript,
		Kind:   KindScriptCompile,
		Code:   jsrt.ScriptCompile,
		Detail: message,
	}
}

// Call creates an error for a hosting call that returned a non-script status
func Call(phase Phase, op string, code jsrt.ErrorCode) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindCall,
		Op:    op,
		Code:  code,
	}
}

// TypeMismatch creates an error for a value of the wrong engine type
func TypeMismatch(phase Phase, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// Disposed creates an error for use of a disposed runtime or context
func Disposed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDisposed,
		Detail: fmt.Sprintf("%s has been disposed", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
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

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IsScriptException reports whether err is an uncaught script exception
func IsScriptException(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == KindScriptException
}

// IsScriptCompile reports whether err is a compile failure
func IsScriptCompile(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == KindScriptCompile
}

// CodeOf returns the engine status carried by err, or NoError.
func CodeOf(err error) jsrt.ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return jsrt.NoError
}
