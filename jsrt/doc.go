// Package jsrt defines the vocabulary of the JavaScript hosting API that the
// jsruntime package wraps.
//
// The hosting API is deliberately low level. Every engine object is reached
// through an opaque pointer sized Ref, every call reports an ErrorCode, and
// values are kept alive by explicit AddRef/Release pairs. A runtime is bound
// to a single thread while one of its contexts is current, and the current
// context is ambient state: most entry points operate on whatever context the
// calling thread has made current.
//
// The package contains no behavior of its own. It declares:
//
//   - Ref and RuntimeHandle, the opaque handle types
//   - ErrorCode, the status taxonomy grouped into categories
//   - ValueType, the engine's type tags
//   - RuntimeAttributes, the immutable runtime construction flags
//   - callback signatures the engine invokes on the host
//   - API, the full set of entry points an engine exposes
//
// The engine package provides the implementation used by default.
package jsrt
