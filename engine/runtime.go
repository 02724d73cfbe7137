package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/petermattis/goid"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap"
)

// idleInterval is the delay suggested to hosts between idle calls.
const idleInterval = time.Second

var epoch = time.Now()

var errExecutionDisabled = errors.New("script execution disabled")

type runtimeState struct {
	handle   jsrt.RuntimeHandle
	attrs    jsrt.RuntimeAttributes
	contexts []*contextState
	ctxMu    sync.Mutex
	props    map[string]jsrt.Ref

	// owner is the goroutine that has one of the contexts current, or 0.
	// Guarded by Engine.mu.
	owner int64

	usage   uint64
	limit   uint64
	created int
	depth   int

	exception    goja.Value
	exceptionCtx *contextState

	collectCB    jsrt.RuntimeBeforeCollectCallback
	collectState uintptr
	collecting   bool
	disabled     atomic.Bool
	disposed     bool
}

func (rt *runtimeState) snapshot() []*contextState {
	rt.ctxMu.Lock()
	defer rt.ctxMu.Unlock()
	out := make([]*contextState, len(rt.contexts))
	copy(out, rt.contexts)
	return out
}

func (rt *runtimeState) removeContext(c *contextState) {
	rt.ctxMu.Lock()
	defer rt.ctxMu.Unlock()
	for i, other := range rt.contexts {
		if other == c {
			rt.contexts = append(rt.contexts[:i], rt.contexts[i+1:]...)
			return
		}
	}
}

// reserve fails with OutOfMemory when n more bytes would exceed the limit.
func (rt *runtimeState) reserve(n uint64) jsrt.ErrorCode {
	if rt.limit > 0 && rt.usage+n > rt.limit {
		return jsrt.OutOfMemory
	}
	return jsrt.NoError
}

func (rt *runtimeState) setException(c *contextState, v goja.Value) {
	if v == nil {
		v = goja.Undefined()
	}
	rt.exception = v
	rt.exceptionCtx = c
}

// CreateRuntime implements jsrt.API.
func (e *Engine) CreateRuntime(attrs jsrt.RuntimeAttributes) (jsrt.RuntimeHandle, jsrt.ErrorCode) {
	e.mu.Lock()
	e.nextRT++
	rt := &runtimeState{
		handle: e.nextRT,
		attrs:  attrs,
		props:  make(map[string]jsrt.Ref),
	}
	e.runtimes[rt.handle] = rt
	e.mu.Unlock()

	Logger().Debug("runtime created", zap.Uintptr("runtime", uintptr(rt.handle)), zap.Uint32("attributes", uint32(attrs)))
	return rt.handle, jsrt.NoError
}

// DisposeRuntime implements jsrt.API. Every context is collected and every
// handle of the runtime becomes invalid.
func (e *Engine) DisposeRuntime(h jsrt.RuntimeHandle) jsrt.ErrorCode {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return code
	}

	e.mu.Lock()
	if rt.owner != 0 {
		e.mu.Unlock()
		return jsrt.RuntimeInUse
	}
	delete(e.runtimes, h)
	e.mu.Unlock()

	rt.collecting = true
	for _, c := range rt.snapshot() {
		e.collectContext(c)
	}
	for _, ref := range e.valueHandles(rt) {
		e.table.Forget(ref)
	}
	for _, ref := range rt.props {
		e.table.Forget(handleOf(ref))
	}
	rt.props = nil
	rt.disposed = true
	rt.collecting = false

	Logger().Debug("runtime disposed", zap.Uintptr("runtime", uintptr(h)))
	return jsrt.NoError
}

// CollectGarbage implements jsrt.API.
func (e *Engine) CollectGarbage(h jsrt.RuntimeHandle) jsrt.ErrorCode {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return code
	}
	if code := e.checkOwner(rt); code != jsrt.NoError {
		return code
	}
	e.collect(rt)
	return jsrt.NoError
}

// GetRuntimeMemoryUsage implements jsrt.API. The figure counts handles and
// host provided payloads, not the script heap.
func (e *Engine) GetRuntimeMemoryUsage(h jsrt.RuntimeHandle) (uint64, jsrt.ErrorCode) {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return 0, code
	}
	return rt.usage, jsrt.NoError
}

// GetRuntimeMemoryLimit implements jsrt.API. Zero means unlimited.
func (e *Engine) GetRuntimeMemoryLimit(h jsrt.RuntimeHandle) (uint64, jsrt.ErrorCode) {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return 0, code
	}
	return rt.limit, jsrt.NoError
}

// SetRuntimeMemoryLimit implements jsrt.API.
func (e *Engine) SetRuntimeMemoryLimit(h jsrt.RuntimeHandle, limit uint64) jsrt.ErrorCode {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return code
	}
	rt.limit = limit
	return jsrt.NoError
}

// SetRuntimeBeforeCollectCallback implements jsrt.API.
func (e *Engine) SetRuntimeBeforeCollectCallback(h jsrt.RuntimeHandle, state uintptr, cb jsrt.RuntimeBeforeCollectCallback) jsrt.ErrorCode {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return code
	}
	rt.collectCB = cb
	rt.collectState = state
	return jsrt.NoError
}

// DisableRuntimeExecution implements jsrt.API. It may be called from any
// goroutine; running scripts terminate with ScriptTerminated.
func (e *Engine) DisableRuntimeExecution(h jsrt.RuntimeHandle) jsrt.ErrorCode {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return code
	}
	if !rt.attrs.Has(jsrt.AttributeAllowScriptInterrupt) {
		return jsrt.CannotDisableExecution
	}
	rt.disabled.Store(true)
	for _, c := range rt.snapshot() {
		c.vm.Interrupt(errExecutionDisabled)
	}
	return jsrt.NoError
}

// EnableRuntimeExecution implements jsrt.API.
func (e *Engine) EnableRuntimeExecution(h jsrt.RuntimeHandle) jsrt.ErrorCode {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return code
	}
	if !rt.attrs.Has(jsrt.AttributeAllowScriptInterrupt) {
		return jsrt.CannotDisableExecution
	}
	if rt.disabled.Swap(false) {
		for _, c := range rt.snapshot() {
			c.vm.ClearInterrupt()
		}
	}
	return jsrt.NoError
}

// IsRuntimeExecutionDisabled implements jsrt.API.
func (e *Engine) IsRuntimeExecutionDisabled(h jsrt.RuntimeHandle) (bool, jsrt.ErrorCode) {
	rt, code := e.runtime(h)
	if code != jsrt.NoError {
		return false, code
	}
	return rt.disabled.Load(), jsrt.NoError
}

// Idle implements jsrt.API. Idle work is a collection of the current
// context's runtime.
func (e *Engine) Idle() (uint32, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return 0, code
	}
	if !c.rt.attrs.Has(jsrt.AttributeEnableIdleProcessing) {
		return 0, jsrt.IdleNotEnabled
	}
	e.collect(c.rt)
	return tickCount() + uint32(idleInterval/time.Millisecond), jsrt.NoError
}

// tickCount returns milliseconds since the engine package was loaded.
func tickCount() uint32 {
	return uint32(time.Since(epoch) / time.Millisecond)
}

// TickCount implements jsrt.API.
func (e *Engine) TickCount() uint32 {
	return tickCount()
}

// checkOwner fails when another goroutine has the runtime bound.
func (e *Engine) checkOwner(rt *runtimeState) jsrt.ErrorCode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if rt.owner != 0 && rt.owner != goid.Get() {
		return jsrt.WrongThread
	}
	return jsrt.NoError
}
