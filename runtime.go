package jsruntime

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap"
)

// Runtime owns one isolated engine heap. Contexts created from it share
// its collector and may only be used from one goroutine at a time.
type Runtime struct {
	handle     jsrt.RuntimeHandle
	attrs      jsrt.RuntimeAttributes
	collectBox uintptr

	// nextIdle is the engine tick before which RunIdleTasks does nothing.
	nextIdle uint32

	mu       sync.Mutex
	contexts map[*contextHandle]struct{}
	leaks    []leakedRef
	disposed atomic.Bool
}

// Builder configures a Runtime.
type Builder struct {
	attrs   jsrt.RuntimeAttributes
	limit   uint64
	collect func()
}

// NewBuilder creates a builder with no attributes set.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewRuntime creates a runtime with default settings.
func NewRuntime() (*Runtime, error) {
	return NewBuilder().Build()
}

// Attributes replaces the attribute set.
func (b *Builder) Attributes(attrs jsrt.RuntimeAttributes) *Builder {
	b.attrs = attrs
	return b
}

// DisableBackgroundWork keeps all engine work on the calling goroutine.
func (b *Builder) DisableBackgroundWork() *Builder {
	b.attrs |= jsrt.AttributeDisableBackgroundWork
	return b
}

// AllowScriptInterrupt enables DisableExecution and EvalContext.
func (b *Builder) AllowScriptInterrupt() *Builder {
	b.attrs |= jsrt.AttributeAllowScriptInterrupt
	return b
}

// EnableIdleProcessing enables RunIdleTasks.
func (b *Builder) EnableIdleProcessing() *Builder {
	b.attrs |= jsrt.AttributeEnableIdleProcessing
	return b
}

// DisableNativeCodeGeneration turns off the JIT.
func (b *Builder) DisableNativeCodeGeneration() *Builder {
	b.attrs |= jsrt.AttributeDisableNativeCodeGen
	return b
}

// DisableEval makes eval and the Function constructor throw.
func (b *Builder) DisableEval() *Builder {
	b.attrs |= jsrt.AttributeDisableEval
	return b
}

// EnableExperimentalFeatures turns on experimental language features.
func (b *Builder) EnableExperimentalFeatures() *Builder {
	b.attrs |= jsrt.AttributeEnableExperimental
	return b
}

// DispatchSetExceptionsToDebugger reports host set exceptions to an
// attached debugger.
func (b *Builder) DispatchSetExceptionsToDebugger() *Builder {
	b.attrs |= jsrt.AttributeDispatchSetExceptions
	return b
}

// MemoryLimit caps the runtime's memory usage in bytes; zero is unlimited.
func (b *Builder) MemoryLimit(limit uint64) *Builder {
	b.limit = limit
	return b
}

// CollectCallback registers fn to run at the start of every collection.
func (b *Builder) CollectCallback(fn func()) *Builder {
	b.collect = fn
	return b
}

// Build creates the runtime.
func (b *Builder) Build() (*Runtime, error) {
	h, code := api.CreateRuntime(b.attrs)
	if err := check(errors.PhaseRuntime, "CreateRuntime", code); err != nil {
		return nil, err
	}
	r := &Runtime{
		handle:   h,
		attrs:    b.attrs,
		contexts: make(map[*contextHandle]struct{}),
	}

	if b.limit > 0 {
		if err := check(errors.PhaseRuntime, "SetRuntimeMemoryLimit", api.SetRuntimeMemoryLimit(h, b.limit)); err != nil {
			api.DisposeRuntime(h)
			return nil, err
		}
	}
	if b.collect != nil {
		r.collectBox = boxes.put(kindRuntimeBox, b.collect)
		code := api.SetRuntimeBeforeCollectCallback(h, r.collectBox, runtimeCollectTrampoline)
		if err := check(errors.PhaseRuntime, "SetRuntimeBeforeCollectCallback", code); err != nil {
			boxes.take(r.collectBox)
			api.DisposeRuntime(h)
			return nil, err
		}
	}

	Logger().Debug("runtime created", zap.Uintptr("runtime", uintptr(h)), zap.Uint32("attributes", uint32(b.attrs)))
	return r, nil
}

// Attributes returns the attributes the runtime was built with.
func (r *Runtime) Attributes() jsrt.RuntimeAttributes {
	return r.attrs
}

// Collect runs a full collection synchronously.
func (r *Runtime) Collect() error {
	return check(errors.PhaseRuntime, "CollectGarbage", api.CollectGarbage(r.handle))
}

// MemoryUsage returns the runtime's current memory usage in bytes.
func (r *Runtime) MemoryUsage() (uint64, error) {
	n, code := api.GetRuntimeMemoryUsage(r.handle)
	return n, check(errors.PhaseRuntime, "GetRuntimeMemoryUsage", code)
}

// MemoryLimit returns the configured limit; zero is unlimited.
func (r *Runtime) MemoryLimit() (uint64, error) {
	n, code := api.GetRuntimeMemoryLimit(r.handle)
	return n, check(errors.PhaseRuntime, "GetRuntimeMemoryLimit", code)
}

// RunIdleTasks runs engine idle work if the previous run asked to be
// called again by now. It reports whether work ran. One of the runtime's
// contexts must be current.
func (r *Runtime) RunIdleTasks() (bool, error) {
	if r.nextIdle != 0 && api.TickCount() < r.nextIdle {
		return false, nil
	}
	next, code := api.Idle()
	if err := check(errors.PhaseRuntime, "Idle", code); err != nil {
		return false, err
	}
	r.nextIdle = next
	return true, nil
}

// DisableExecution terminates running script and refuses new script until
// EnableExecution. It may be called from any goroutine.
func (r *Runtime) DisableExecution() error {
	return check(errors.PhaseRuntime, "DisableRuntimeExecution", api.DisableRuntimeExecution(r.handle))
}

// EnableExecution lifts DisableExecution.
func (r *Runtime) EnableExecution() error {
	return check(errors.PhaseRuntime, "EnableRuntimeExecution", api.EnableRuntimeExecution(r.handle))
}

// IsExecutionDisabled reports whether script execution is disabled.
func (r *Runtime) IsExecutionDisabled() (bool, error) {
	disabled, code := api.IsRuntimeExecutionDisabled(r.handle)
	return disabled, check(errors.PhaseRuntime, "IsRuntimeExecutionDisabled", code)
}

// Dispose destroys the runtime and every context created from it. Values
// that outlive it release as no-ops. Disposing while one of its contexts is
// current panics.
func (r *Runtime) Dispose() {
	if r.disposed.Load() {
		return
	}
	if code := api.DisposeRuntime(r.handle); code != jsrt.NoError {
		panic(errors.Call(errors.PhaseRuntime, "DisposeRuntime", code))
	}
	r.disposed.Store(true)

	r.mu.Lock()
	for h := range r.contexts {
		h.dead.Store(true)
	}
	r.contexts = nil
	r.leaks = nil
	r.mu.Unlock()

	if r.collectBox != 0 {
		boxes.take(r.collectBox)
	}
	Logger().Debug("runtime disposed", zap.Uintptr("runtime", uintptr(r.handle)))
}

func (r *Runtime) addContext(h *contextHandle) {
	r.mu.Lock()
	r.contexts[h] = struct{}{}
	r.mu.Unlock()
}

func (r *Runtime) removeContext(h *contextHandle) {
	r.mu.Lock()
	delete(r.contexts, h)
	r.mu.Unlock()
}

func (r *Runtime) queueLeak(l leakedRef) {
	r.mu.Lock()
	r.leaks = append(r.leaks, l)
	r.mu.Unlock()
}

// releaseLeaks releases references collected by the safety net. It runs on
// the goroutine that owns the runtime.
func (r *Runtime) releaseLeaks() {
	r.mu.Lock()
	leaks := r.leaks
	r.leaks = nil
	r.mu.Unlock()
	if len(leaks) == 0 {
		return
	}

	Logger().Warn("releasing leaked references", zap.Int("count", len(leaks)))
	for _, l := range leaks {
		releaseIn(l.ctx, l.raw)
	}
}

func runtimeCollectTrampoline(state uintptr) {
	if fn, ok := boxes.get(state, kindRuntimeBox); ok {
		fn.(func())()
	}
}
