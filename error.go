package jsruntime

import (
	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
)

// Error is an Object created by one of the error constructors.
type Error struct{ Object }

type errorCtor func(message jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode)

func newError(g *ContextGuard, op string, ctor errorCtor, message string) (Error, error) {
	msg, code := api.CreateString(message)
	if err := check(errors.PhaseValue, "CreateString", code); err != nil {
		return Error{}, err
	}
	raw, code := ctor(msg)
	v, err := wrap(g, op, raw, code)
	return Error{Object{v}}, err
}

// NewError creates an Error.
func NewError(g *ContextGuard, message string) (Error, error) {
	return newError(g, "CreateError", api.CreateError, message)
}

// NewRangeError creates a RangeError.
func NewRangeError(g *ContextGuard, message string) (Error, error) {
	return newError(g, "CreateRangeError", api.CreateRangeError, message)
}

// NewReferenceError creates a ReferenceError.
func NewReferenceError(g *ContextGuard, message string) (Error, error) {
	return newError(g, "CreateReferenceError", api.CreateReferenceError, message)
}

// NewSyntaxError creates a SyntaxError.
func NewSyntaxError(g *ContextGuard, message string) (Error, error) {
	return newError(g, "CreateSyntaxError", api.CreateSyntaxError, message)
}

// NewTypeError creates a TypeError.
func NewTypeError(g *ContextGuard, message string) (Error, error) {
	return newError(g, "CreateTypeError", api.CreateTypeError, message)
}

// NewURIError creates a URIError.
func NewURIError(g *ContextGuard, message string) (Error, error) {
	return newError(g, "CreateURIError", api.CreateURIError, message)
}

// Message returns the error's message property.
func (e Error) Message(g *ContextGuard) (string, error) {
	raw, err := property(e.raw(), "message")
	if err != nil {
		return "", err
	}
	str, code := api.ConvertValueToString(raw)
	if err := check(errors.PhaseValue, "ConvertValueToString", code); err != nil {
		return "", err
	}
	s, code := api.CopyString(str)
	return s, check(errors.PhaseValue, "CopyString", code)
}
