package engine

import (
	"github.com/dop251/goja"
	"github.com/wippyai/js-runtime/jsrt"
	"github.com/wippyai/js-runtime/resource"
	"go.uber.org/zap"
)

func handleOf(r jsrt.Ref) resource.Handle {
	return resource.Handle(r)
}

// valueHandles lists every value handle owned by rt.
func (e *Engine) valueHandles(rt *runtimeState) []resource.Handle {
	var out []resource.Handle
	e.table.Each(func(h resource.Handle, typeID uint32, v any) bool {
		if typeID == kindValue && v.(*valueEntry).ctx.rt == rt {
			out = append(out, h)
		}
		return true
	})
	return out
}

// maybeCollect runs a collection at a top level script entry once enough
// handles accumulated.
func (e *Engine) maybeCollect(rt *runtimeState) {
	if rt.depth == 0 && rt.created >= autoCollectThreshold {
		e.collect(rt)
	}
}

// collect reclaims zero count handles, host objects script never saw and
// contexts nobody references.
func (e *Engine) collect(rt *runtimeState) {
	if rt.collecting {
		return
	}
	rt.collecting = true
	defer func() { rt.collecting = false }()

	if rt.collectCB != nil {
		rt.collectCB(rt.collectState)
	}

	contexts := rt.snapshot()
	for _, c := range contexts {
		e.sweepObjects(c)
	}

	dropped := 0
	for _, h := range e.valueHandles(rt) {
		if n, ok := e.table.RefCount(h); !ok || n > 0 {
			continue
		}
		if v, ok := e.table.GetTyped(h, kindValue); ok {
			e.dropValue(jsrt.Ref(h), v.(*valueEntry))
			dropped++
		}
	}

	for _, c := range contexts {
		if n, _ := e.table.RefCount(handleOf(c.ref)); n == 0 && !e.isCurrent(c) {
			e.collectContext(c)
		}
	}

	rt.created = 0
	Logger().Debug("collected",
		zap.Uintptr("runtime", uintptr(rt.handle)),
		zap.Int("values", dropped),
		zap.Uint64("usage", rt.usage),
	)
}

// sweepObjects finalizes host objects that never escaped and have no
// counted handle.
func (e *Engine) sweepObjects(c *contextState) {
	var dead []*goja.Object
	for obj, info := range c.objects {
		if !info.hostOnly || info.escaped {
			continue
		}
		if ref, ok := c.identity[obj]; ok {
			if n, _ := e.table.RefCount(handleOf(ref)); n > 0 {
				continue
			}
		}
		dead = append(dead, obj)
	}
	for _, obj := range dead {
		info := c.objects[obj]
		delete(c.objects, obj)
		e.finalize(c, obj, info)
	}
}

// finalize fires the collect callback and then the external finalizer.
func (e *Engine) finalize(c *contextState, obj *goja.Object, info *objectInfo) {
	if info.collect == nil && info.finalize == nil {
		return
	}
	if info.collect != nil {
		info.collect(e.ref(c, obj), info.collectState)
	}
	if info.finalize != nil {
		info.finalize(info.data)
	}
}

// collectContext fires every pending callback of c and invalidates it.
// Counted value handles survive as orphans until released.
func (e *Engine) collectContext(c *contextState) {
	objects := c.objects
	c.objects = make(map[*goja.Object]*objectInfo)
	for obj, info := range objects {
		e.finalize(c, obj, info)
	}
	if c.collect != nil {
		c.collect(c.ref, c.collectState)
	}

	c.disposed = true
	for _, h := range e.valueHandles(c.rt) {
		v, ok := e.table.GetTyped(h, kindValue)
		if !ok || v.(*valueEntry).ctx != c {
			continue
		}
		if n, _ := e.table.RefCount(h); n == 0 {
			e.dropValue(jsrt.Ref(h), v.(*valueEntry))
		}
	}

	e.table.Forget(handleOf(c.ref))
	c.rt.usage -= entryOverhead
	c.rt.removeContext(c)
	if c.rt.exceptionCtx == c {
		c.rt.exception = nil
		c.rt.exceptionCtx = nil
	}
	Logger().Debug("context collected", zap.Uintptr("context", uintptr(c.ref)))
}
