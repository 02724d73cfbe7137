package engine

import (
	"github.com/dop251/goja"
	"github.com/wippyai/js-runtime/jsrt"
)

// key resolves a property id for use on an object of c's runtime.
func (e *Engine) key(c *contextState, id jsrt.Ref) (goja.Value, jsrt.ErrorCode) {
	p, code := e.property(id)
	if code != jsrt.NoError {
		return nil, code
	}
	if p.rt != c.rt {
		return nil, jsrt.WrongRuntime
	}
	return c.vm.ToValue(p.name), jsrt.NoError
}

// invoke runs one of the Reflect helpers against obj in c.
func (e *Engine) invoke(c *contextState, fn goja.Callable, args ...goja.Value) (goja.Value, jsrt.ErrorCode) {
	return e.exec(c, func() goja.Value {
		return must(fn(goja.Undefined(), args...))
	})
}

// SetObjectBeforeCollectCallback implements jsrt.API. ref may be a context
// or an object; a nil callback clears the registration.
func (e *Engine) SetObjectBeforeCollectCallback(ref jsrt.Ref, state uintptr, cb jsrt.BeforeCollectCallback) jsrt.ErrorCode {
	if ref == jsrt.Invalid {
		return jsrt.NullArgument
	}
	if c, code := e.context(ref); code == jsrt.NoError {
		c.collect = cb
		c.collectState = state
		return jsrt.NoError
	}
	ve, obj, code := e.object(ref)
	if code != jsrt.NoError {
		return code
	}
	info := ve.ctx.info(obj)
	info.collect = cb
	info.collectState = state
	return jsrt.NoError
}

// CreateObject implements jsrt.API.
func (e *Engine) CreateObject() (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	if code := c.rt.reserve(entryOverhead); code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	obj := c.vm.NewObject()
	c.track(obj)
	return e.ref(c, obj), jsrt.NoError
}

// CreateExternalObject implements jsrt.API. finalize runs once, when the
// object is reclaimed.
func (e *Engine) CreateExternalObject(data uintptr, finalize jsrt.FinalizeCallback) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	if code := c.rt.reserve(entryOverhead); code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	obj := c.vm.NewObject()
	info := c.track(obj)
	info.external = true
	info.data = data
	info.finalize = finalize
	return e.ref(c, obj), jsrt.NoError
}

// GetExternalData implements jsrt.API.
func (e *Engine) GetExternalData(ref jsrt.Ref) (uintptr, jsrt.ErrorCode) {
	ve, obj, code := e.object(ref)
	if code != jsrt.NoError {
		return 0, code
	}
	info := ve.ctx.objects[obj]
	if info == nil || !info.external {
		return 0, jsrt.InvalidArgument
	}
	return info.data, jsrt.NoError
}

// HasExternalData implements jsrt.API.
func (e *Engine) HasExternalData(ref jsrt.Ref) (bool, jsrt.ErrorCode) {
	ve, obj, code := e.object(ref)
	if code != jsrt.NoError {
		return false, code
	}
	info := ve.ctx.objects[obj]
	return info != nil && info.external, jsrt.NoError
}

// GetProperty implements jsrt.API.
func (e *Engine) GetProperty(ref, id jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	k, code := e.key(c, id)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.get(c, obj, k)
}

func (e *Engine) get(c *contextState, obj *goja.Object, k goja.Value) (jsrt.Ref, jsrt.ErrorCode) {
	res, code := e.invoke(c, c.h.get, obj, k)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, res), jsrt.NoError
}

// SetProperty implements jsrt.API. In strict mode a rejected assignment
// throws a TypeError.
func (e *Engine) SetProperty(ref, id, value jsrt.Ref, strict bool) jsrt.ErrorCode {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return code
	}
	k, code := e.key(c, id)
	if code != jsrt.NoError {
		return code
	}
	v, code := e.escapingArg(c, value)
	if code != jsrt.NoError {
		return code
	}
	return e.set(c, obj, k, v, strict)
}

func (e *Engine) set(c *contextState, obj *goja.Object, k, v goja.Value, strict bool) jsrt.ErrorCode {
	_, code := e.exec(c, func() goja.Value {
		ok := must(c.h.set(goja.Undefined(), obj, k, v))
		if strict && !ok.ToBoolean() {
			panic(c.vm.NewTypeError("Cannot assign to read-only property '%s'", k.String()))
		}
		return ok
	})
	return code
}

// HasProperty implements jsrt.API.
func (e *Engine) HasProperty(ref, id jsrt.Ref) (bool, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return false, code
	}
	k, code := e.key(c, id)
	if code != jsrt.NoError {
		return false, code
	}
	res, code := e.invoke(c, c.h.has, obj, k)
	if code != jsrt.NoError {
		return false, code
	}
	return res.ToBoolean(), jsrt.NoError
}

// DeleteProperty implements jsrt.API. The result is a boolean value.
func (e *Engine) DeleteProperty(ref, id jsrt.Ref, strict bool) (jsrt.Ref, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	k, code := e.key(c, id)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	res, code := e.remove(c, obj, k, strict)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, res), jsrt.NoError
}

func (e *Engine) remove(c *contextState, obj *goja.Object, k goja.Value, strict bool) (goja.Value, jsrt.ErrorCode) {
	return e.exec(c, func() goja.Value {
		ok := must(c.h.deleteProperty(goja.Undefined(), obj, k))
		if strict && !ok.ToBoolean() {
			panic(c.vm.NewTypeError("Cannot delete property '%s'", k.String()))
		}
		return ok
	})
}

// GetIndexedProperty implements jsrt.API.
func (e *Engine) GetIndexedProperty(ref, index jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	k, code := e.arg(c, index)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.get(c, obj, k)
}

// SetIndexedProperty implements jsrt.API.
func (e *Engine) SetIndexedProperty(ref, index, value jsrt.Ref) jsrt.ErrorCode {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return code
	}
	k, code := e.arg(c, index)
	if code != jsrt.NoError {
		return code
	}
	v, code := e.escapingArg(c, value)
	if code != jsrt.NoError {
		return code
	}
	return e.set(c, obj, k, v, false)
}

// HasIndexedProperty implements jsrt.API.
func (e *Engine) HasIndexedProperty(ref, index jsrt.Ref) (bool, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return false, code
	}
	k, code := e.arg(c, index)
	if code != jsrt.NoError {
		return false, code
	}
	res, code := e.invoke(c, c.h.has, obj, k)
	if code != jsrt.NoError {
		return false, code
	}
	return res.ToBoolean(), jsrt.NoError
}

// DeleteIndexedProperty implements jsrt.API.
func (e *Engine) DeleteIndexedProperty(ref, index jsrt.Ref) jsrt.ErrorCode {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return code
	}
	k, code := e.arg(c, index)
	if code != jsrt.NoError {
		return code
	}
	_, code = e.remove(c, obj, k, false)
	return code
}

// DefineProperty implements jsrt.API.
func (e *Engine) DefineProperty(ref, id, descriptor jsrt.Ref) (bool, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return false, code
	}
	k, code := e.key(c, id)
	if code != jsrt.NoError {
		return false, code
	}
	d, code := e.escapingArg(c, descriptor)
	if code != jsrt.NoError {
		return false, code
	}
	desc, ok := d.(*goja.Object)
	if !ok {
		return false, jsrt.ArgumentNotObject
	}
	accessor := false
	for _, field := range []string{"value", "get", "set"} {
		if v := desc.Get(field); v != nil && !goja.IsUndefined(v) {
			c.escape(v)
			accessor = accessor || field != "value"
		}
	}
	if accessor {
		c.escape(obj)
	}

	res, code := e.invoke(c, c.h.defineProperty, obj, k, desc)
	if code != jsrt.NoError {
		return false, code
	}
	return res.ToBoolean(), jsrt.NoError
}

// GetOwnPropertyNames implements jsrt.API.
func (e *Engine) GetOwnPropertyNames(ref jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	res, code := e.invoke(c, c.h.ownKeys, obj)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, res), jsrt.NoError
}

// GetPrototype implements jsrt.API.
func (e *Engine) GetPrototype(ref jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	res, code := e.invoke(c, c.h.getPrototypeOf, obj)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, res), jsrt.NoError
}

// SetPrototype implements jsrt.API. proto is an object or null.
func (e *Engine) SetPrototype(ref, proto jsrt.Ref) jsrt.ErrorCode {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return code
	}
	p, code := e.escapingArg(c, proto)
	if code != jsrt.NoError {
		return code
	}
	if _, ok := p.(*goja.Object); !ok && !goja.IsNull(p) {
		return jsrt.InvalidArgument
	}
	_, code = e.exec(c, func() goja.Value {
		ok := must(c.h.setPrototypeOf(goja.Undefined(), obj, p))
		if !ok.ToBoolean() {
			panic(c.vm.NewTypeError("Cannot set prototype of a non-extensible object"))
		}
		return ok
	})
	return code
}

// InstanceOf implements jsrt.API.
func (e *Engine) InstanceOf(ref, constructor jsrt.Ref) (bool, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return false, code
	}
	v, code := e.arg(c, constructor)
	if code != jsrt.NoError {
		return false, code
	}
	ctor, ok := v.(*goja.Object)
	if !ok {
		return false, jsrt.ArgumentNotObject
	}
	var res bool
	code = e.try(c, func() {
		res = c.vm.InstanceOf(obj, ctor)
	})
	return res, code
}

// PreventExtension implements jsrt.API.
func (e *Engine) PreventExtension(ref jsrt.Ref) jsrt.ErrorCode {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return code
	}
	_, code = e.invoke(c, c.h.preventExtensions, obj)
	return code
}

// GetExtensionAllowed implements jsrt.API.
func (e *Engine) GetExtensionAllowed(ref jsrt.Ref) (bool, jsrt.ErrorCode) {
	c, obj, code := e.target(ref)
	if code != jsrt.NoError {
		return false, code
	}
	res, code := e.invoke(c, c.h.isExtensible, obj)
	if code != jsrt.NoError {
		return false, code
	}
	return res.ToBoolean(), jsrt.NoError
}

// CreatePropertyID implements jsrt.API. Ids are interned per runtime and
// live until the runtime is disposed.
func (e *Engine) CreatePropertyID(name string) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	rt := c.rt
	if ref, ok := rt.props[name]; ok {
		return ref, jsrt.NoError
	}
	size := uint64(entryOverhead + len(name))
	if code := rt.reserve(size); code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	ref := jsrt.Ref(e.table.Insert(kindProperty, &propertyEntry{rt: rt, name: name}))
	rt.props[name] = ref
	rt.usage += size
	return ref, jsrt.NoError
}

// GetPropertyNameFromID implements jsrt.API.
func (e *Engine) GetPropertyNameFromID(id jsrt.Ref) (string, jsrt.ErrorCode) {
	p, code := e.property(id)
	if code != jsrt.NoError {
		return "", code
	}
	return p.name, jsrt.NoError
}

// CreateArray implements jsrt.API.
func (e *Engine) CreateArray(length uint32) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	if code := c.rt.reserve(entryOverhead); code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	arr := c.vm.NewArray()
	if length > 0 {
		if err := arr.Set("length", length); err != nil {
			return jsrt.Invalid, e.fail(c, err)
		}
	}
	c.track(arr)
	return e.ref(c, arr), jsrt.NoError
}

// CreateArrayBuffer implements jsrt.API.
func (e *Engine) CreateArrayBuffer(length uint32) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createArrayBuffer(make([]byte, length), nil, 0)
}

// CreateExternalArrayBuffer implements jsrt.API. data is used in place;
// finalize receives state once the buffer is reclaimed.
func (e *Engine) CreateExternalArrayBuffer(data []byte, finalize jsrt.FinalizeCallback, state uintptr) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createArrayBuffer(data, finalize, state)
}

func (e *Engine) createArrayBuffer(data []byte, finalize jsrt.FinalizeCallback, state uintptr) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	if code := c.rt.reserve(entryOverhead + uint64(len(data))); code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	obj := c.vm.ToValue(c.vm.NewArrayBuffer(data)).(*goja.Object)
	info := c.track(obj)
	info.finalize = finalize
	info.data = state
	return e.ref(c, obj), jsrt.NoError
}

// GetArrayBufferStorage implements jsrt.API.
func (e *Engine) GetArrayBufferStorage(ref jsrt.Ref) ([]byte, jsrt.ErrorCode) {
	_, obj, code := e.object(ref)
	if code != jsrt.NoError {
		return nil, code
	}
	buf, ok := obj.Export().(goja.ArrayBuffer)
	if !ok {
		return nil, jsrt.InvalidArgument
	}
	return buf.Bytes(), jsrt.NoError
}
