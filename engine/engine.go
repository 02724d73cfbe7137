package engine

import (
	"sync"

	"github.com/dop251/goja"
	"github.com/petermattis/goid"
	"github.com/wippyai/js-runtime/jsrt"
	"github.com/wippyai/js-runtime/resource"
)

// Handle kinds stored in the shared table.
const (
	kindContext uint32 = iota + 1
	kindValue
	kindProperty
)

func kindName(id uint32) string {
	switch id {
	case kindContext:
		return "context"
	case kindValue:
		return "value"
	case kindProperty:
		return "property"
	}
	return "unknown"
}

// entryOverhead approximates the bookkeeping cost of one handle.
const entryOverhead = 48

// autoCollectThreshold is the number of handles created since the last
// collection after which a top level script entry collects first.
const autoCollectThreshold = 1 << 14

// Engine implements jsrt.API on top of goja. Every context owns one
// goja.Runtime; every runtime groups contexts that share an owner goroutine,
// collection and exception state.
type Engine struct {
	table    *resource.UnifiedTable
	runtimes map[jsrt.RuntimeHandle]*runtimeState
	current  map[int64]*contextState
	nextRT   jsrt.RuntimeHandle
	mu       sync.RWMutex
}

type valueEntry struct {
	ctx  *contextState
	val  goja.Value
	size uint64
}

type propertyEntry struct {
	rt   *runtimeState
	name string
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// New creates an engine with an empty handle table.
func New() *Engine {
	e := &Engine{
		table:    resource.NewTable(),
		runtimes: make(map[jsrt.RuntimeHandle]*runtimeState),
		current:  make(map[int64]*contextState),
	}
	e.table.Subscribe(tableLogger{})
	return e
}

// Default returns the process wide engine.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// Handles returns the number of live handles across all runtimes.
func (e *Engine) Handles() int {
	return e.table.Len()
}

// currentContext returns the calling goroutine's current context.
func (e *Engine) currentContext() (*contextState, jsrt.ErrorCode) {
	e.mu.RLock()
	c := e.current[goid.Get()]
	e.mu.RUnlock()
	if c == nil {
		return nil, jsrt.NoCurrentContext
	}
	return c, jsrt.NoError
}

func (e *Engine) runtime(h jsrt.RuntimeHandle) (*runtimeState, jsrt.ErrorCode) {
	e.mu.RLock()
	rt := e.runtimes[h]
	e.mu.RUnlock()
	if rt == nil {
		return nil, jsrt.InvalidArgument
	}
	return rt, jsrt.NoError
}

func (e *Engine) context(ref jsrt.Ref) (*contextState, jsrt.ErrorCode) {
	v, ok := e.table.GetTyped(resource.Handle(ref), kindContext)
	if !ok {
		return nil, jsrt.InvalidArgument
	}
	c := v.(*contextState)
	if c.disposed {
		return nil, jsrt.InvalidArgument
	}
	return c, jsrt.NoError
}

func (e *Engine) value(ref jsrt.Ref) (*valueEntry, jsrt.ErrorCode) {
	if ref == jsrt.Invalid {
		return nil, jsrt.NullArgument
	}
	v, ok := e.table.GetTyped(resource.Handle(ref), kindValue)
	if !ok {
		return nil, jsrt.InvalidArgument
	}
	ve := v.(*valueEntry)
	if ve.ctx.disposed {
		return nil, jsrt.InvalidContext
	}
	return ve, jsrt.NoError
}

func (e *Engine) object(ref jsrt.Ref) (*valueEntry, *goja.Object, jsrt.ErrorCode) {
	ve, code := e.value(ref)
	if code != jsrt.NoError {
		return nil, nil, code
	}
	obj, ok := ve.val.(*goja.Object)
	if !ok {
		return nil, nil, jsrt.ArgumentNotObject
	}
	return ve, obj, jsrt.NoError
}

func (e *Engine) property(ref jsrt.Ref) (*propertyEntry, jsrt.ErrorCode) {
	if ref == jsrt.Invalid {
		return nil, jsrt.NullArgument
	}
	v, ok := e.table.GetTyped(resource.Handle(ref), kindProperty)
	if !ok {
		return nil, jsrt.InvalidArgument
	}
	return v.(*propertyEntry), jsrt.NoError
}

// arg resolves a value that is about to be used inside home. Objects must
// belong to home; primitives move freely between contexts of one runtime.
func (e *Engine) arg(home *contextState, ref jsrt.Ref) (goja.Value, jsrt.ErrorCode) {
	ve, code := e.value(ref)
	if code != jsrt.NoError {
		return nil, code
	}
	if ve.ctx.rt != home.rt {
		return nil, jsrt.WrongRuntime
	}
	if _, ok := ve.val.(*goja.Object); ok && ve.ctx != home {
		return nil, jsrt.InvalidContext
	}
	return ve.val, jsrt.NoError
}

// escapingArg is arg for values handed over to script.
func (e *Engine) escapingArg(home *contextState, ref jsrt.Ref) (goja.Value, jsrt.ErrorCode) {
	v, code := e.arg(home, ref)
	if code == jsrt.NoError {
		home.escape(v)
	}
	return v, code
}

// ref returns a zero count handle for v owned by c. Objects keep a stable
// handle for as long as one is live.
func (e *Engine) ref(c *contextState, v goja.Value) jsrt.Ref {
	if v == nil {
		v = goja.Undefined()
	}
	obj, isObj := v.(*goja.Object)
	if isObj {
		if r, ok := c.identity[obj]; ok {
			return r
		}
	}

	size := uint64(entryOverhead)
	switch {
	case goja.IsString(v):
		size += uint64(len(v.String()))
	case isObj && obj.ExportType() == arrayBufferType:
		size += uint64(len(obj.Export().(goja.ArrayBuffer).Bytes()))
	}

	h := e.table.Insert(kindValue, &valueEntry{ctx: c, val: v, size: size})
	r := jsrt.Ref(h)
	if isObj {
		c.identity[obj] = r
	}
	c.rt.usage += size
	c.rt.created++
	return r
}

// dropValue removes a value handle regardless of its count.
func (e *Engine) dropValue(ref jsrt.Ref, ve *valueEntry) {
	if obj, ok := ve.val.(*goja.Object); ok && ve.ctx.identity[obj] == ref {
		delete(ve.ctx.identity, obj)
	}
	ve.ctx.rt.usage -= ve.size
	e.table.Forget(resource.Handle(ref))
}

// AddRef implements jsrt.API.
func (e *Engine) AddRef(ref jsrt.Ref) (uint32, jsrt.ErrorCode) {
	if ref == jsrt.Invalid {
		return 0, jsrt.NullArgument
	}
	n, ok := e.table.Retain(resource.Handle(ref))
	if !ok {
		return 0, jsrt.InvalidArgument
	}
	return n, jsrt.NoError
}

// Release implements jsrt.API. Handles of collected contexts are removed as
// soon as their count reaches zero.
func (e *Engine) Release(ref jsrt.Ref) (uint32, jsrt.ErrorCode) {
	if ref == jsrt.Invalid {
		return 0, jsrt.NullArgument
	}
	h := resource.Handle(ref)
	n, ok := e.table.Release(h)
	if !ok {
		return 0, jsrt.InvalidArgument
	}
	if n == 0 {
		if v, ok := e.table.GetTyped(h, kindValue); ok {
			if ve := v.(*valueEntry); ve.ctx.disposed {
				e.dropValue(ref, ve)
			}
		}
	}
	return n, jsrt.NoError
}

var _ jsrt.API = (*Engine)(nil)
