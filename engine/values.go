package engine

import (
	"reflect"

	"github.com/dop251/goja"
	"github.com/wippyai/js-runtime/jsrt"
)

var arrayBufferType = reflect.TypeOf(goja.ArrayBuffer{})

// classify maps a goja value onto the hosting type tags.
func classify(c *contextState, v goja.Value) jsrt.ValueType {
	switch {
	case v == nil || goja.IsUndefined(v):
		return jsrt.Undefined
	case goja.IsNull(v):
		return jsrt.Null
	case goja.IsNumber(v) || goja.IsBigInt(v):
		return jsrt.Number
	case goja.IsString(v):
		return jsrt.String
	}

	switch t := v.(type) {
	case *goja.Symbol:
		return jsrt.Symbol
	case *goja.Object:
		if _, ok := goja.AssertFunction(t); ok {
			return jsrt.Function
		}
		switch t.ClassName() {
		case "Array":
			return jsrt.Array
		case "Error":
			return jsrt.Error
		}
		if t.ExportType() == arrayBufferType {
			return jsrt.ArrayBuffer
		}
		if view, err := c.h.isView(goja.Undefined(), t); err == nil && view.ToBoolean() {
			if c.vm.InstanceOf(t, c.h.dataView) {
				return jsrt.DataView
			}
			return jsrt.TypedArray
		}
		return jsrt.Object
	}
	return jsrt.Boolean
}

// home returns the context a value operation runs in: the owner of an
// object operand, otherwise the current context.
func (e *Engine) home(ve *valueEntry) (*contextState, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return nil, code
	}
	if c.rt != ve.ctx.rt {
		return nil, jsrt.WrongRuntime
	}
	if _, ok := ve.val.(*goja.Object); ok {
		return ve.ctx, jsrt.NoError
	}
	return c, jsrt.NoError
}

// create hands out a handle for a host created primitive.
func (e *Engine) create(v goja.Value, payload uint64) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	if code := c.rt.reserve(entryOverhead + payload); code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, v), jsrt.NoError
}

// typed returns the value behind ref when it carries tag want.
func (e *Engine) typed(ref jsrt.Ref, want jsrt.ValueType) (goja.Value, jsrt.ErrorCode) {
	ve, code := e.value(ref)
	if code != jsrt.NoError {
		return nil, code
	}
	if classify(ve.ctx, ve.val) != want {
		return nil, jsrt.InvalidArgument
	}
	return ve.val, jsrt.NoError
}

// try runs f in c, turning a thrown value into the pending exception.
func (e *Engine) try(c *contextState, f func()) jsrt.ErrorCode {
	_, code := e.exec(c, func() goja.Value {
		f()
		return goja.Undefined()
	})
	return code
}

// GetValueType implements jsrt.API.
func (e *Engine) GetValueType(ref jsrt.Ref) (jsrt.ValueType, jsrt.ErrorCode) {
	ve, code := e.value(ref)
	if code != jsrt.NoError {
		return jsrt.Undefined, code
	}
	return classify(ve.ctx, ve.val), jsrt.NoError
}

// GetUndefinedValue implements jsrt.API.
func (e *Engine) GetUndefinedValue() (jsrt.Ref, jsrt.ErrorCode) {
	return e.create(goja.Undefined(), 0)
}

// GetNullValue implements jsrt.API.
func (e *Engine) GetNullValue() (jsrt.Ref, jsrt.ErrorCode) {
	return e.create(goja.Null(), 0)
}

// GetTrueValue implements jsrt.API.
func (e *Engine) GetTrueValue() (jsrt.Ref, jsrt.ErrorCode) {
	return e.BoolToBoolean(true)
}

// GetFalseValue implements jsrt.API.
func (e *Engine) GetFalseValue() (jsrt.Ref, jsrt.ErrorCode) {
	return e.BoolToBoolean(false)
}

// BoolToBoolean implements jsrt.API.
func (e *Engine) BoolToBoolean(b bool) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.create(c.vm.ToValue(b), 0)
}

// BooleanToBool implements jsrt.API.
func (e *Engine) BooleanToBool(ref jsrt.Ref) (bool, jsrt.ErrorCode) {
	v, code := e.typed(ref, jsrt.Boolean)
	if code != jsrt.NoError {
		return false, code
	}
	return v.ToBoolean(), jsrt.NoError
}

// IntToNumber implements jsrt.API.
func (e *Engine) IntToNumber(n int32) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.create(c.vm.ToValue(n), 0)
}

// DoubleToNumber implements jsrt.API.
func (e *Engine) DoubleToNumber(f float64) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.create(c.vm.ToValue(f), 0)
}

// NumberToInt implements jsrt.API. Conversion truncates toward zero and
// wraps like ToInt32.
func (e *Engine) NumberToInt(ref jsrt.Ref) (int32, jsrt.ErrorCode) {
	v, code := e.typed(ref, jsrt.Number)
	if code != jsrt.NoError {
		return 0, code
	}
	return int32(v.ToInteger()), jsrt.NoError
}

// NumberToDouble implements jsrt.API.
func (e *Engine) NumberToDouble(ref jsrt.Ref) (float64, jsrt.ErrorCode) {
	v, code := e.typed(ref, jsrt.Number)
	if code != jsrt.NoError {
		return 0, code
	}
	return v.ToFloat(), jsrt.NoError
}

// CreateString implements jsrt.API.
func (e *Engine) CreateString(s string) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.create(c.vm.ToValue(s), uint64(len(s)))
}

// CopyString implements jsrt.API.
func (e *Engine) CopyString(ref jsrt.Ref) (string, jsrt.ErrorCode) {
	v, code := e.typed(ref, jsrt.String)
	if code != jsrt.NoError {
		return "", code
	}
	return v.String(), jsrt.NoError
}

func (e *Engine) convert(ref jsrt.Ref, conv func(c *contextState, v goja.Value) goja.Value) (jsrt.Ref, jsrt.ErrorCode) {
	ve, code := e.value(ref)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	c, code := e.home(ve)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	var res goja.Value
	if code := e.try(c, func() { res = conv(c, ve.val) }); code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, res), jsrt.NoError
}

// ConvertValueToString implements jsrt.API.
func (e *Engine) ConvertValueToString(ref jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.convert(ref, func(c *contextState, v goja.Value) goja.Value {
		// goja's ToString leaves numbers untouched; String applies the
		// script conversion and calls toString on objects.
		return c.vm.ToValue(v.String())
	})
}

// ConvertValueToNumber implements jsrt.API.
func (e *Engine) ConvertValueToNumber(ref jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.convert(ref, func(_ *contextState, v goja.Value) goja.Value {
		return v.ToNumber()
	})
}

// ConvertValueToBoolean implements jsrt.API.
func (e *Engine) ConvertValueToBoolean(ref jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.convert(ref, func(c *contextState, v goja.Value) goja.Value {
		return c.vm.ToValue(v.ToBoolean())
	})
}

// ConvertValueToObject implements jsrt.API.
func (e *Engine) ConvertValueToObject(ref jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.convert(ref, func(c *contextState, v goja.Value) goja.Value {
		return v.ToObject(c.vm)
	})
}

func (e *Engine) compare(a, b jsrt.Ref, strict bool) (bool, jsrt.ErrorCode) {
	va, code := e.value(a)
	if code != jsrt.NoError {
		return false, code
	}
	vb, code := e.value(b)
	if code != jsrt.NoError {
		return false, code
	}
	c, code := e.home(va)
	if code != jsrt.NoError {
		return false, code
	}
	var eq bool
	code = e.try(c, func() {
		if strict {
			eq = va.val.StrictEquals(vb.val)
		} else {
			eq = va.val.Equals(vb.val)
		}
	})
	return eq, code
}

// Equals implements jsrt.API.
func (e *Engine) Equals(a, b jsrt.Ref) (bool, jsrt.ErrorCode) {
	return e.compare(a, b, false)
}

// StrictEquals implements jsrt.API.
func (e *Engine) StrictEquals(a, b jsrt.Ref) (bool, jsrt.ErrorCode) {
	return e.compare(a, b, true)
}
