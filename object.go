package jsruntime

import (
	"iter"

	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
)

// Object is a Value of the object family.
type Object struct{ Value }

// Array is an Object created by the array constructor.
type Array struct{ Object }

// ArrayBuffer is an Object owning a byte buffer.
type ArrayBuffer struct{ Object }

// NewObject creates an empty object.
func NewObject(g *ContextGuard) (Object, error) {
	raw, code := api.CreateObject()
	v, err := wrap(g, "CreateObject", raw, code)
	return Object{v}, err
}

// Get reads a property.
func (o Object) Get(g *ContextGuard, p Property) (Value, error) {
	raw, code := api.GetProperty(o.raw(), p.ref.raw)
	return wrap(g, "GetProperty", raw, code)
}

// Set writes a property in strict mode: a rejected assignment is an error.
func (o Object) Set(g *ContextGuard, p Property, v Value) error {
	return check(errors.PhaseValue, "SetProperty", api.SetProperty(o.raw(), p.ref.raw, v.raw(), true))
}

// Has reports whether the property exists on o or its prototype chain.
func (o Object) Has(g *ContextGuard, p Property) (bool, error) {
	has, code := api.HasProperty(o.raw(), p.ref.raw)
	return has, check(errors.PhaseValue, "HasProperty", code)
}

// Delete removes a property and reports whether it is gone.
func (o Object) Delete(g *ContextGuard, p Property) (bool, error) {
	raw, code := api.DeleteProperty(o.raw(), p.ref.raw, false)
	if err := check(errors.PhaseValue, "DeleteProperty", code); err != nil {
		return false, err
	}
	ok, code := api.BooleanToBool(raw)
	return ok, check(errors.PhaseValue, "BooleanToBool", code)
}

// GetIndex reads an indexed property.
func (o Object) GetIndex(g *ContextGuard, index int32) (Value, error) {
	idx, code := api.IntToNumber(index)
	if err := check(errors.PhaseValue, "IntToNumber", code); err != nil {
		return Value{}, err
	}
	raw, code := api.GetIndexedProperty(o.raw(), idx)
	return wrap(g, "GetIndexedProperty", raw, code)
}

// SetIndex writes an indexed property.
func (o Object) SetIndex(g *ContextGuard, index int32, v Value) error {
	idx, code := api.IntToNumber(index)
	if err := check(errors.PhaseValue, "IntToNumber", code); err != nil {
		return err
	}
	return check(errors.PhaseValue, "SetIndexedProperty", api.SetIndexedProperty(o.raw(), idx, v.raw()))
}

// HasIndex reports whether an indexed property exists.
func (o Object) HasIndex(g *ContextGuard, index int32) (bool, error) {
	idx, code := api.IntToNumber(index)
	if err := check(errors.PhaseValue, "IntToNumber", code); err != nil {
		return false, err
	}
	has, code := api.HasIndexedProperty(o.raw(), idx)
	return has, check(errors.PhaseValue, "HasIndexedProperty", code)
}

// DeleteIndex removes an indexed property.
func (o Object) DeleteIndex(g *ContextGuard, index int32) error {
	idx, code := api.IntToNumber(index)
	if err := check(errors.PhaseValue, "IntToNumber", code); err != nil {
		return err
	}
	return check(errors.PhaseValue, "DeleteIndexedProperty", api.DeleteIndexedProperty(o.raw(), idx))
}

// DefineProperty defines p from a property descriptor object.
func (o Object) DefineProperty(g *ContextGuard, p Property, descriptor Object) (bool, error) {
	ok, code := api.DefineProperty(o.raw(), p.ref.raw, descriptor.raw())
	return ok, check(errors.PhaseValue, "DefineProperty", code)
}

// OwnPropertyNames lists the object's own string keys.
func (o Object) OwnPropertyNames(g *ContextGuard) (Array, error) {
	raw, code := api.GetOwnPropertyNames(o.raw())
	v, err := wrap(g, "GetOwnPropertyNames", raw, code)
	return Array{Object{v}}, err
}

// Prototype returns the object's prototype, which may be null.
func (o Object) Prototype(g *ContextGuard) (Value, error) {
	raw, code := api.GetPrototype(o.raw())
	return wrap(g, "GetPrototype", raw, code)
}

// SetPrototype replaces the prototype with an object or null.
func (o Object) SetPrototype(g *ContextGuard, proto Value) error {
	return check(errors.PhaseValue, "SetPrototype", api.SetPrototype(o.raw(), proto.raw()))
}

// InstanceOf evaluates o instanceof ctor.
func (o Object) InstanceOf(g *ContextGuard, ctor Function) (bool, error) {
	is, code := api.InstanceOf(o.raw(), ctor.raw())
	return is, check(errors.PhaseValue, "InstanceOf", code)
}

// PreventExtension makes the object non-extensible.
func (o Object) PreventExtension(g *ContextGuard) error {
	return check(errors.PhaseValue, "PreventExtension", api.PreventExtension(o.raw()))
}

// IsExtensible reports whether properties may be added.
func (o Object) IsExtensible(g *ContextGuard) (bool, error) {
	ok, code := api.GetExtensionAllowed(o.raw())
	return ok, check(errors.PhaseValue, "GetExtensionAllowed", code)
}

// SetCollectCallback registers fn to run once, right before the engine
// reclaims the object. Functions keep their own callback and refuse this.
func (o Object) SetCollectCallback(g *ContextGuard, fn func()) error {
	if o.IsFunction() {
		return errors.Unsupported(errors.PhaseValue, "collect callback on a function object")
	}
	box := boxes.put(kindCollectBox, fn)
	code := api.SetObjectBeforeCollectCallback(o.raw(), box, objectCollectTrampoline)
	if err := check(errors.PhaseValue, "SetObjectBeforeCollectCallback", code); err != nil {
		boxes.take(box)
		return err
	}
	return nil
}

func objectCollectTrampoline(_ jsrt.Ref, state uintptr) {
	if fn, ok := boxes.take(state); ok {
		fn.(func())()
	}
}

// NewArray creates an array of the given length.
func NewArray(g *ContextGuard, length uint32) (Array, error) {
	raw, code := api.CreateArray(length)
	v, err := wrap(g, "CreateArray", raw, code)
	return Array{Object{v}}, err
}

// Len returns the array's length.
func (a Array) Len(g *ContextGuard) (int, error) {
	length, err := property(a.raw(), "length")
	if err != nil {
		return 0, err
	}
	n, code := api.NumberToInt(length)
	return int(n), check(errors.PhaseValue, "NumberToInt", code)
}

// All iterates over the elements in index order. Iteration stops at the
// first element that cannot be read. Yielded values are owned by the
// caller.
func (a Array) All(g *ContextGuard) iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		n, err := a.Len(g)
		if err != nil {
			return
		}
		for i := 0; i < n; i++ {
			v, err := a.GetIndex(g, int32(i))
			if err != nil || !yield(i, v) {
				return
			}
		}
	}
}

// NewArrayBuffer creates a zeroed buffer.
func NewArrayBuffer(g *ContextGuard, length uint32) (ArrayBuffer, error) {
	raw, code := api.CreateArrayBuffer(length)
	v, err := wrap(g, "CreateArrayBuffer", raw, code)
	return ArrayBuffer{Object{v}}, err
}

// NewArrayBufferWithData creates a buffer over data without copying.
// Writes from either side are visible to the other.
func NewArrayBufferWithData(g *ContextGuard, data []byte) (ArrayBuffer, error) {
	raw, code := api.CreateExternalArrayBuffer(data, nil, 0)
	v, err := wrap(g, "CreateExternalArrayBuffer", raw, code)
	return ArrayBuffer{Object{v}}, err
}

// Bytes returns the live backing store.
func (b ArrayBuffer) Bytes(g *ContextGuard) ([]byte, error) {
	data, code := api.GetArrayBufferStorage(b.raw())
	return data, check(errors.PhaseValue, "GetArrayBufferStorage", code)
}
