package jsruntime

import (
	"math"
	"runtime"

	"github.com/wippyai/js-runtime/jsrt"
)

// reference is one counted engine reference. Plain copies of a Value share
// it, so releasing any copy releases it once.
type reference struct {
	raw      jsrt.Ref
	ctx      *contextHandle
	released bool
	cleanup  runtime.Cleanup
}

// leakedRef is what the cleanup safety net hands back to the runtime.
type leakedRef struct {
	raw jsrt.Ref
	ctx *contextHandle
}

// fromRaw takes a counted reference on raw and wraps it.
func fromRaw(ctx *contextHandle, raw jsrt.Ref) Value {
	if raw == jsrt.Invalid {
		return Value{}
	}
	n, code := api.AddRef(raw)
	must("AddRef", code)
	if n == math.MaxUint32 {
		panic("jsruntime: reference count overflow")
	}
	return Value{ref: newReference(ctx, raw)}
}

func newReference(ctx *contextHandle, raw jsrt.Ref) *reference {
	r := &reference{raw: raw, ctx: ctx}
	r.cleanup = runtime.AddCleanup(r, leak, leakedRef{raw: raw, ctx: ctx})
	return r
}

// leak runs on the cleanup goroutine for references nobody released.
func leak(l leakedRef) {
	if l.ctx.rt.disposed.Load() {
		return
	}
	l.ctx.rt.queueLeak(l)
}

func (r *reference) clone() *reference {
	n, code := api.AddRef(r.raw)
	must("AddRef", code)
	if n == math.MaxUint32 {
		panic("jsruntime: reference count overflow")
	}
	return newReference(r.ctx, r.raw)
}

// release drops the reference once. The engine call needs the value's
// context, so a different current context is switched out transiently.
func (r *reference) release() {
	if r == nil || r.released {
		return
	}
	r.released = true
	r.cleanup.Stop()
	releaseIn(r.ctx, r.raw)
}

// releaseIn releases raw on behalf of ctx. Handles of a disposed runtime are
// gone; handles of a collected context are orphans the engine drops on
// their last release.
func releaseIn(ctx *contextHandle, raw jsrt.Ref) {
	switch {
	case ctx.rt.disposed.Load():
		return
	case ctx.dead.Load():
		api.Release(raw)
		return
	}
	cur, code := api.GetCurrentContext()
	must("GetCurrentContext", code)
	if cur != ctx.raw {
		must("SetCurrentContext", api.SetCurrentContext(ctx.raw))
		defer func() {
			must("SetCurrentContext", api.SetCurrentContext(cur))
		}()
	}
	if _, code := api.Release(raw); code != jsrt.NoError {
		panic("jsruntime: release failed: " + code.String())
	}
}
