package engine

import (
	"github.com/dop251/goja"
	"github.com/petermattis/goid"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap"
)

const evalDisabledMessage = "Code generation from strings disallowed for this context"

type contextState struct {
	ref jsrt.Ref
	rt  *runtimeState
	vm  *goja.Runtime
	h   *helpers

	// identity maps live objects to their handle.
	identity map[*goja.Object]jsrt.Ref
	// objects holds objects created by the host and objects with
	// collection callbacks.
	objects map[*goja.Object]*objectInfo

	data         uintptr
	collect      jsrt.BeforeCollectCallback
	collectState uintptr
	promiseCB    jsrt.PromiseContinuationCallback
	promiseState uintptr
	disposed     bool
}

type objectInfo struct {
	collect      jsrt.BeforeCollectCallback
	collectState uintptr
	finalize     jsrt.FinalizeCallback
	data         uintptr
	external     bool

	// hostOnly objects were created by the host and may be reclaimed at a
	// collection once no handle to them is held, unless they escaped into
	// script.
	hostOnly bool
	escaped  bool
}

// track records an object the host just created.
func (c *contextState) track(obj *goja.Object) *objectInfo {
	info := &objectInfo{hostOnly: true}
	c.objects[obj] = info
	return info
}

func (c *contextState) info(obj *goja.Object) *objectInfo {
	info := c.objects[obj]
	if info == nil {
		info = &objectInfo{}
		c.objects[obj] = info
	}
	return info
}

// escape marks v as reachable from script.
func (c *contextState) escape(v goja.Value) {
	if obj, ok := v.(*goja.Object); ok {
		if info := c.objects[obj]; info != nil {
			info.escaped = true
		}
	}
}

// enqueue is the promise hook target; task is a zero argument function.
func (e *Engine) enqueue(c *contextState) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		task := call.Argument(0)
		if c.promiseCB == nil {
			if fn, ok := goja.AssertFunction(task); ok {
				if _, err := fn(goja.Undefined()); err != nil {
					panic(err)
				}
			}
			return goja.Undefined()
		}
		c.promiseCB(e.ref(c, task), c.promiseState)
		return goja.Undefined()
	}
}

// CreateContext implements jsrt.API.
func (e *Engine) CreateContext(h jsrt.RuntimeHandle) (jsrt.Ref, jsrt.ErrorCode) {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	if code := e.checkOwner(rt); code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	if code := rt.reserve(entryOverhead); code != jsrt.NoError {
		return jsrt.Invalid, code
	}

	c := &contextState{
		rt:       rt,
		vm:       goja.New(),
		identity: make(map[*goja.Object]jsrt.Ref),
		objects:  make(map[*goja.Object]*objectInfo),
	}
	hs, err := loadHelpers(c.vm, e.enqueue(c))
	if err != nil {
		Logger().Error("context bootstrap failed", zap.Error(err))
		return jsrt.Invalid, jsrt.Fatal
	}
	c.h = hs

	if rt.attrs.Has(jsrt.AttributeDisableEval) {
		global := c.vm.GlobalObject()
		if _, err := hs.disableEval(goja.Undefined(), global, c.vm.ToValue(evalDisabledMessage)); err != nil {
			Logger().Error("disable eval failed", zap.Error(err))
			return jsrt.Invalid, jsrt.Fatal
		}
	}

	c.ref = jsrt.Ref(e.table.Insert(kindContext, c))
	rt.usage += entryOverhead
	rt.ctxMu.Lock()
	rt.contexts = append(rt.contexts, c)
	rt.ctxMu.Unlock()

	Logger().Debug("context created", zap.Uintptr("context", uintptr(c.ref)), zap.Uintptr("runtime", uintptr(h)))
	return c.ref, jsrt.NoError
}

// GetCurrentContext implements jsrt.API. Invalid means no context.
func (e *Engine) GetCurrentContext() (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, jsrt.NoError
	}
	return c.ref, jsrt.NoError
}

// SetCurrentContext implements jsrt.API. A runtime is bound to the goroutine
// that has one of its contexts current.
func (e *Engine) SetCurrentContext(ref jsrt.Ref) jsrt.ErrorCode {
	gid := goid.Get()

	if ref == jsrt.Invalid {
		e.mu.Lock()
		if prev := e.current[gid]; prev != nil {
			prev.rt.owner = 0
			delete(e.current, gid)
		}
		e.mu.Unlock()
		return jsrt.NoError
	}

	c, code := e.context(ref)
	if code != jsrt.NoError {
		return code
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c.rt.owner != 0 && c.rt.owner != gid {
		return jsrt.WrongThread
	}
	if prev := e.current[gid]; prev != nil && prev.rt != c.rt {
		prev.rt.owner = 0
	}
	e.current[gid] = c
	c.rt.owner = gid
	return jsrt.NoError
}

// isCurrent reports whether any goroutine has c current.
func (e *Engine) isCurrent(c *contextState) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, cur := range e.current {
		if cur == c {
			return true
		}
	}
	return false
}

// GetContextOfObject implements jsrt.API.
func (e *Engine) GetContextOfObject(obj jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	ve, _, code := e.object(obj)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return ve.ctx.ref, jsrt.NoError
}

// GetContextData implements jsrt.API.
func (e *Engine) GetContextData(ref jsrt.Ref) (uintptr, jsrt.ErrorCode) {
	c, code := e.context(ref)
	if code != jsrt.NoError {
		return 0, code
	}
	return c.data, jsrt.NoError
}

// SetContextData implements jsrt.API.
func (e *Engine) SetContextData(ref jsrt.Ref, data uintptr) jsrt.ErrorCode {
	c, code := e.context(ref)
	if code != jsrt.NoError {
		return code
	}
	c.data = data
	return jsrt.NoError
}

// GetRuntime implements jsrt.API.
func (e *Engine) GetRuntime(ref jsrt.Ref) (jsrt.RuntimeHandle, jsrt.ErrorCode) {
	c, code := e.context(ref)
	if code != jsrt.NoError {
		return 0, code
	}
	return c.rt.handle, jsrt.NoError
}

// SetPromiseContinuationCallback implements jsrt.API for the current
// context. Without a callback reactions run as soon as they are queued.
func (e *Engine) SetPromiseContinuationCallback(cb jsrt.PromiseContinuationCallback, state uintptr) jsrt.ErrorCode {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return code
	}
	c.promiseCB = cb
	c.promiseState = state
	return jsrt.NoError
}

// GetGlobalObject implements jsrt.API.
func (e *Engine) GetGlobalObject() (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, c.vm.GlobalObject()), jsrt.NoError
}
