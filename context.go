package jsruntime

import (
	"reflect"
	"sync/atomic"

	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap"
)

// contextHandle is shared by a Context, its guards and every value created
// in it.
type contextHandle struct {
	raw  jsrt.Ref
	rt   *Runtime
	box  uintptr
	data *contextData
	dead atomic.Bool
}

// contextData is the side table attached to the engine context.
type contextData struct {
	tasks    []Value
	userData map[reflect.Type]any
}

func newContextData() *contextData {
	return &contextData{userData: make(map[reflect.Type]any)}
}

// Context is a sandboxed global scope. A Context holds a counted reference
// on the engine context; Clone and Release manage it like a Value.
type Context struct {
	h   *contextHandle
	own *reference
}

// NewContext creates a context in rt.
func NewContext(rt *Runtime) (*Context, error) {
	if rt.disposed.Load() {
		return nil, errors.Disposed(errors.PhaseContext, "runtime")
	}

	raw, code := api.CreateContext(rt.handle)
	if err := check(errors.PhaseContext, "CreateContext", code); err != nil {
		return nil, err
	}

	h := &contextHandle{raw: raw, rt: rt, data: newContextData()}
	h.box = boxes.put(kindContextBox, h)
	if err := check(errors.PhaseContext, "SetObjectBeforeCollectCallback",
		api.SetObjectBeforeCollectCallback(raw, h.box, contextCollectTrampoline)); err != nil {
		boxes.take(h.box)
		return nil, err
	}
	// From here on the collect trampoline owns the side table.
	if err := check(errors.PhaseContext, "SetContextData", api.SetContextData(raw, h.box)); err != nil {
		return nil, err
	}

	prev, code := api.GetCurrentContext()
	if err := check(errors.PhaseContext, "GetCurrentContext", code); err != nil {
		return nil, err
	}
	if err := check(errors.PhaseContext, "SetCurrentContext", api.SetCurrentContext(raw)); err != nil {
		return nil, err
	}
	code = api.SetPromiseContinuationCallback(promiseTrampoline, h.box)
	must("SetCurrentContext", api.SetCurrentContext(prev))
	if err := check(errors.PhaseContext, "SetPromiseContinuationCallback", code); err != nil {
		return nil, err
	}

	n, code := api.AddRef(raw)
	if err := check(errors.PhaseContext, "AddRef", code); err != nil {
		return nil, err
	}
	rt.addContext(h)

	Logger().Debug("context created", zap.Uintptr("context", uintptr(raw)), zap.Uint32("refs", n))
	return &Context{h: h, own: newReference(h, raw)}, nil
}

// contextCollectTrampoline runs right before the engine frees a context.
func contextCollectTrampoline(_ jsrt.Ref, state uintptr) {
	v, ok := boxes.take(state)
	if !ok {
		return
	}
	h := v.(*contextHandle)
	h.dead.Store(true)
	h.data = nil
	h.rt.removeContext(h)
	Logger().Debug("context collected", zap.Uintptr("context", uintptr(h.raw)))
}

// handleOf maps an engine context back to its handle through the context
// data slot.
func handleOf(raw jsrt.Ref) (*contextHandle, bool) {
	state, code := api.GetContextData(raw)
	if code != jsrt.NoError || state == 0 {
		return nil, false
	}
	v, ok := boxes.get(state, kindContextBox)
	if !ok {
		return nil, false
	}
	return v.(*contextHandle), true
}

// MakeCurrent makes c current on the calling goroutine. The returned guard
// restores the previously current context on Exit.
func (c *Context) MakeCurrent() (*ContextGuard, error) {
	if c.h.dead.Load() {
		return nil, errors.Disposed(errors.PhaseContext, "context")
	}
	prev, code := api.GetCurrentContext()
	if err := check(errors.PhaseContext, "GetCurrentContext", code); err != nil {
		return nil, err
	}
	if err := check(errors.PhaseContext, "SetCurrentContext", api.SetCurrentContext(c.h.raw)); err != nil {
		return nil, err
	}
	c.h.rt.releaseLeaks()
	return &ContextGuard{h: c.h, prev: prev, restore: true}, nil
}

// Exec runs fn with c current.
func (c *Context) Exec(fn func(g *ContextGuard) error) error {
	g, err := c.MakeCurrent()
	if err != nil {
		return err
	}
	defer g.Exit()
	return fn(g)
}

// Runtime returns the runtime c was created from.
func (c *Context) Runtime() *Runtime {
	return c.h.rt
}

// Equal reports whether c and other refer to the same engine context.
func (c *Context) Equal(other *Context) bool {
	return other != nil && c.h == other.h
}

// Clone returns another counted reference to the same context.
func (c *Context) Clone() *Context {
	return &Context{h: c.h, own: c.own.clone()}
}

// Release drops this reference. The engine collects the context once no
// reference remains and it is not current.
func (c *Context) Release() {
	c.own.release()
}

// PeekCurrent returns an observing guard for the current context. The guard
// never restores anything on Exit. ok is false when no context is current.
func PeekCurrent() (g *ContextGuard, ok bool) {
	raw, code := api.GetCurrentContext()
	if code != jsrt.NoError || raw == jsrt.Invalid {
		return nil, false
	}
	h, ok := handleOf(raw)
	if !ok {
		return nil, false
	}
	return &ContextGuard{h: h}, true
}

// ExecWithCurrent runs fn with the current context. It reports false
// without calling fn when no context is current.
func ExecWithCurrent(fn func(g *ContextGuard)) bool {
	g, ok := PeekCurrent()
	if !ok {
		return false
	}
	fn(g)
	return true
}

// InsertUserData stores v in c, replacing and returning any previous value
// of type T.
func InsertUserData[T any](c *Context, v T) (T, bool) {
	key := reflect.TypeFor[T]()
	prev, ok := c.h.data.userData[key]
	c.h.data.userData[key] = &v
	if !ok {
		var zero T
		return zero, false
	}
	return *prev.(*T), true
}

// RemoveUserData removes and returns the value of type T.
func RemoveUserData[T any](c *Context) (T, bool) {
	key := reflect.TypeFor[T]()
	prev, ok := c.h.data.userData[key]
	if !ok {
		var zero T
		return zero, false
	}
	delete(c.h.data.userData, key)
	return *prev.(*T), true
}

// GetUserData returns a copy of the value of type T.
func GetUserData[T any](c *Context) (T, bool) {
	p, ok := GetUserDataMut[T](c)
	if !ok {
		var zero T
		return zero, false
	}
	return *p, true
}

// GetUserDataMut returns a pointer to the stored value of type T.
func GetUserDataMut[T any](c *Context) (*T, bool) {
	v, ok := c.h.data.userData[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return v.(*T), true
}
