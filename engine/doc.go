// Package engine implements the jsrt hosting API on top of goja.
//
// The engine plays the role a native script engine plays for the jsruntime
// package: it owns runtimes, contexts and values, and hands out integer
// handles for them. Everything above it sees only jsrt.Ref words and
// jsrt.ErrorCode results, the same surface a C hosting API exposes.
//
// # Architecture
//
//	Engine        - Process wide handle table and per goroutine current context
//	runtimeState  - Contexts sharing an owner goroutine, GC and exception state
//	contextState  - One goja.Runtime with its helpers and object bookkeeping
//
// # Handles
//
// Every value crossing the API gets a handle in a shared resource table.
// Handles start with a zero count and behave like stack references: the next
// collection reclaims them unless the host took ownership with AddRef. An
// object keeps one stable handle for as long as a handle to it is live.
//
// # Collection
//
// goja memory is managed by the Go collector, so a collection here reclaims
// handles and fires callbacks:
//
//   - host created objects that never reached script and have no counted
//     handle get their before collect callback and finalizer
//   - zero count handles are dropped
//   - contexts with no counted handle that are not current are collected,
//     firing every outstanding object callback
//
// Collections run on CollectGarbage, Idle, DisposeRuntime and at top level
// script entries once enough handles accumulated.
//
// # Promises
//
// Each context installs a Promise.prototype.then hook at creation. Every
// reaction becomes a task handed to the context's continuation callback; the
// host runs it by calling the task with no arguments. Without a callback the
// task runs immediately.
//
// # Threading
//
// A runtime is bound to the goroutine that has one of its contexts current.
// Calls from other goroutines fail with WrongThread, except
// DisableRuntimeExecution, which may be called from anywhere.
package engine
