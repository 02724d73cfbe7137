// Package jsruntime is a safe Go layer over a JavaScript hosting API.
//
// The hosting API (package jsrt) hands out raw handles, counts references
// manually and keeps one "current context" per thread. This package turns
// that into an object model where handles cannot outlive their references,
// every value operation is scoped to a current context and host callbacks
// cross the boundary without leaking.
//
// # Architecture Overview
//
//	jsruntime/     Runtime, Context, guards, the Value hierarchy, callbacks
//	├── jsrt/      Hosting API vocabulary: handles, status codes, the API interface
//	├── engine/    goja backed implementation of jsrt.API
//	├── resource/  Reference counted handle tables
//	├── errors/    Structured error types
//	├── config/    YAML runtime configuration
//	└── cmd/jsrun  Command line runner and REPL
//
// # Quick Start
//
//	rt, err := jsruntime.NewRuntime()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Dispose()
//
//	ctx, err := jsruntime.NewContext(rt)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = ctx.Exec(func(g *jsruntime.ContextGuard) error {
//	    v, err := jsruntime.Eval(g, "6 * 7")
//	    if err != nil {
//	        return err
//	    }
//	    defer v.Release()
//	    fmt.Println(v) // 42
//	    return nil
//	})
//
// # Contexts and Guards
//
// MakeCurrent returns a ContextGuard proving the context is current on the
// calling goroutine. Every function that creates or inspects values takes
// the guard. Guards nest and must be exited in reverse order; Exit restores
// whatever was current before. PeekCurrent and ExecWithCurrent observe the
// current context without owning it and are the only ambient accessors.
//
// A runtime is used by one goroutine at a time. Another goroutine may take
// over once every guard has exited.
//
// # Values
//
// Value holds one counted engine reference. Copies share it; Clone takes
// another and Release drops it. Releasing switches to the value's context
// when a different one is current. References nobody released are queued
// by a cleanup and released the next time a context of the same runtime
// becomes current.
//
// Object, Array, Function, Error, External, Promise and ArrayBuffer embed
// the Value they refine. The AsX methods check the engine type and return a
// view of the same reference:
//
//	if arr, ok := v.AsArray(); ok {
//	    for i, el := range arr.All(g) {
//	        ...
//	    }
//	}
//
// # Host Functions
//
// NewFunction boxes a FunctionCallback in a handle table and gives the
// engine the box handle. The box is freed when the engine collects the
// function. A callback error becomes a script exception: Throw(v) throws v
// itself, other errors throw an Error with the Go message.
//
// # Promises
//
// Promise reactions are queued on the context they belong to and run when
// the host calls ExecuteTasks. Tasks queued while draining run in the same
// call.
//
// # Errors
//
// Failed engine calls return *errors.Error. Script exceptions and compile
// errors carry the thrown value's string form as detail and the value
// itself in Value; the exception is always cleared so the context stays
// usable.
package jsruntime
