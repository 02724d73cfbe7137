// Package errors provides structured error types for the js-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the engine status code that caused it,
// the hosting call that reported it, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValue, errors.KindCall).
//		Op("GetProperty").
//		Code(jsrt.InvalidArgument).
//		Detail("property %q", name).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ScriptException("TypeError: x is not a function")
//	err := errors.Call(errors.PhaseContext, "SetCurrentContext", jsrt.WrongThread)
//
// Script failures are detected with IsScriptException and IsScriptCompile.
// All errors implement the standard error interface and support errors.Is/As.
package errors
