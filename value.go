package jsruntime

import (
	"fmt"

	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
)

// Value is a counted reference to an engine value. Copies share the
// reference: Release on any copy releases it once. Clone takes a new one.
//
// Refinements (Object, Array, Function, ...) embed Value and view the same
// reference; AsX checks the engine type tag and never copies.
type Value struct {
	ref *reference
}

// Number is a Value holding a number.
type Number struct{ Value }

// String is a Value holding a string.
type String struct{ Value }

// Boolean is a Value holding a boolean.
type Boolean struct{ Value }

func (v Value) raw() jsrt.Ref {
	if v.ref == nil {
		return jsrt.Invalid
	}
	return v.ref.raw
}

// IsEmpty reports whether v holds no reference.
func (v Value) IsEmpty() bool {
	return v.ref == nil || v.ref.released
}

// Clone returns a new counted reference to the same value.
func (v Value) Clone() Value {
	if v.ref == nil {
		return Value{}
	}
	return Value{ref: v.ref.clone()}
}

// Release drops the reference. Releasing twice is a no-op.
func (v Value) Release() {
	v.ref.release()
}

// Type returns the engine type tag.
func (v Value) Type() jsrt.ValueType {
	t, code := api.GetValueType(v.raw())
	if code != jsrt.NoError {
		return jsrt.Undefined
	}
	return t
}

// IsUndefined reports whether v is undefined.
func (v Value) IsUndefined() bool { return v.Type() == jsrt.Undefined }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Type() == jsrt.Null }

// IsNumber reports whether v is a number.
func (v Value) IsNumber() bool { return v.Type() == jsrt.Number }

// IsString reports whether v is a string.
func (v Value) IsString() bool { return v.Type() == jsrt.String }

// IsBoolean reports whether v is a boolean.
func (v Value) IsBoolean() bool { return v.Type() == jsrt.Boolean }

// IsObject reports whether v belongs to the object family.
func (v Value) IsObject() bool { return v.Type().IsObject() }

// IsFunction reports whether v is callable.
func (v Value) IsFunction() bool { return v.Type() == jsrt.Function }

// IsArray reports whether v is an array.
func (v Value) IsArray() bool { return v.Type() == jsrt.Array }

// IsError reports whether v is an error object.
func (v Value) IsError() bool { return v.Type() == jsrt.Error }

// IsArrayBuffer reports whether v is an ArrayBuffer.
func (v Value) IsArrayBuffer() bool { return v.Type() == jsrt.ArrayBuffer }

// IsExternal reports whether v is an object carrying host data.
func (v Value) IsExternal() bool {
	if !v.IsObject() {
		return false
	}
	has, code := api.HasExternalData(v.raw())
	return code == jsrt.NoError && has
}

// IsPromise reports whether v is an instance of the context's Promise.
func (v Value) IsPromise(g *ContextGuard) bool {
	if !v.IsObject() {
		return false
	}
	ctor, err := globalProperty(g, "Promise")
	if err != nil {
		return false
	}
	is, code := api.InstanceOf(v.raw(), ctor)
	return code == jsrt.NoError && is
}

// AsObject views v as an Object.
func (v Value) AsObject() (Object, bool) {
	if !v.IsObject() {
		return Object{}, false
	}
	return Object{v}, true
}

// AsArray views v as an Array.
func (v Value) AsArray() (Array, bool) {
	if !v.IsArray() {
		return Array{}, false
	}
	return Array{Object{v}}, true
}

// AsFunction views v as a Function.
func (v Value) AsFunction() (Function, bool) {
	if !v.IsFunction() {
		return Function{}, false
	}
	return Function{Object{v}}, true
}

// AsError views v as an Error.
func (v Value) AsError() (Error, bool) {
	if !v.IsError() {
		return Error{}, false
	}
	return Error{Object{v}}, true
}

// AsArrayBuffer views v as an ArrayBuffer.
func (v Value) AsArrayBuffer() (ArrayBuffer, bool) {
	if !v.IsArrayBuffer() {
		return ArrayBuffer{}, false
	}
	return ArrayBuffer{Object{v}}, true
}

// AsExternal views v as an External.
func (v Value) AsExternal() (External, bool) {
	if !v.IsExternal() {
		return External{}, false
	}
	return External{Object{v}}, true
}

// AsPromise views v as a Promise.
func (v Value) AsPromise(g *ContextGuard) (Promise, bool) {
	if !v.IsPromise(g) {
		return Promise{}, false
	}
	return Promise{Object{v}}, true
}

// AsNumber views v as a Number.
func (v Value) AsNumber() (Number, bool) {
	if !v.IsNumber() {
		return Number{}, false
	}
	return Number{v}, true
}

// AsString views v as a String.
func (v Value) AsString() (String, bool) {
	if !v.IsString() {
		return String{}, false
	}
	return String{v}, true
}

// AsBoolean views v as a Boolean.
func (v Value) AsBoolean() (Boolean, bool) {
	if !v.IsBoolean() {
		return Boolean{}, false
	}
	return Boolean{v}, true
}

// ToString converts v with the language's string conversion.
func (v Value) ToString(g *ContextGuard) (string, error) {
	raw, code := api.ConvertValueToString(v.raw())
	if err := check(errors.PhaseValue, "ConvertValueToString", code); err != nil {
		return "", err
	}
	s, code := api.CopyString(raw)
	return s, check(errors.PhaseValue, "CopyString", code)
}

// ToInteger converts v to a number and truncates it to an int32.
func (v Value) ToInteger(g *ContextGuard) (int32, error) {
	raw, code := api.ConvertValueToNumber(v.raw())
	if err := check(errors.PhaseValue, "ConvertValueToNumber", code); err != nil {
		return 0, err
	}
	n, code := api.NumberToInt(raw)
	return n, check(errors.PhaseValue, "NumberToInt", code)
}

// ToDouble converts v to a number.
func (v Value) ToDouble(g *ContextGuard) (float64, error) {
	raw, code := api.ConvertValueToNumber(v.raw())
	if err := check(errors.PhaseValue, "ConvertValueToNumber", code); err != nil {
		return 0, err
	}
	f, code := api.NumberToDouble(raw)
	return f, check(errors.PhaseValue, "NumberToDouble", code)
}

// ToBool converts v with the language's truthiness rules.
func (v Value) ToBool(g *ContextGuard) (bool, error) {
	raw, code := api.ConvertValueToBoolean(v.raw())
	if err := check(errors.PhaseValue, "ConvertValueToBoolean", code); err != nil {
		return false, err
	}
	b, code := api.BooleanToBool(raw)
	return b, check(errors.PhaseValue, "BooleanToBool", code)
}

// ToJSON serializes v with the context's JSON.stringify. Values JSON
// cannot represent yield "undefined".
func (v Value) ToJSON(g *ContextGuard) (string, error) {
	json, err := globalProperty(g, "JSON")
	if err != nil {
		return "", err
	}
	stringify, err := property(json, "stringify")
	if err != nil {
		return "", err
	}
	res, code := api.CallFunction(stringify, []jsrt.Ref{json, v.raw()})
	if err := check(errors.PhaseValue, "JSON.stringify", code); err != nil {
		return "", err
	}
	if t, _ := api.GetValueType(res); t != jsrt.String {
		return "undefined", nil
	}
	s, code := api.CopyString(res)
	return s, check(errors.PhaseValue, "CopyString", code)
}

// Equals compares with ==.
func (v Value) Equals(g *ContextGuard, other Value) (bool, error) {
	eq, code := api.Equals(v.raw(), other.raw())
	return eq, check(errors.PhaseValue, "Equals", code)
}

// StrictEquals compares with ===.
func (v Value) StrictEquals(g *ContextGuard, other Value) (bool, error) {
	eq, code := api.StrictEquals(v.raw(), other.raw())
	return eq, check(errors.PhaseValue, "StrictEquals", code)
}

// String renders v for debugging. It needs a current context to convert
// the value and falls back to the type tag without one.
func (v Value) String() string {
	if v.IsEmpty() {
		return "<empty>"
	}
	out := fmt.Sprintf("<%s>", v.Type())
	ExecWithCurrent(func(g *ContextGuard) {
		if s, err := v.ToString(g); err == nil {
			out = s
		}
	})
	return out
}

// Int returns the number truncated to an int32.
func (n Number) Int() (int32, error) {
	i, code := api.NumberToInt(n.raw())
	return i, check(errors.PhaseValue, "NumberToInt", code)
}

// Float returns the number.
func (n Number) Float() (float64, error) {
	f, code := api.NumberToDouble(n.raw())
	return f, check(errors.PhaseValue, "NumberToDouble", code)
}

// Text returns the Go string.
func (s String) Text() (string, error) {
	out, code := api.CopyString(s.raw())
	return out, check(errors.PhaseValue, "CopyString", code)
}

// Bool returns the Go bool.
func (b Boolean) Bool() (bool, error) {
	out, code := api.BooleanToBool(b.raw())
	return out, check(errors.PhaseValue, "BooleanToBool", code)
}

// wrap takes ownership of a freshly returned engine value.
func wrap(g *ContextGuard, op string, raw jsrt.Ref, code jsrt.ErrorCode) (Value, error) {
	if err := check(errors.PhaseValue, op, code); err != nil {
		return Value{}, err
	}
	return fromRaw(g.h, raw), nil
}

// Undefined returns the undefined value.
func Undefined(g *ContextGuard) (Value, error) {
	raw, code := api.GetUndefinedValue()
	return wrap(g, "GetUndefinedValue", raw, code)
}

// Null returns the null value.
func Null(g *ContextGuard) (Value, error) {
	raw, code := api.GetNullValue()
	return wrap(g, "GetNullValue", raw, code)
}

// True returns the true value.
func True(g *ContextGuard) (Boolean, error) {
	return NewBoolean(g, true)
}

// False returns the false value.
func False(g *ContextGuard) (Boolean, error) {
	return NewBoolean(g, false)
}

// NewBoolean creates a boolean.
func NewBoolean(g *ContextGuard, b bool) (Boolean, error) {
	raw, code := api.BoolToBoolean(b)
	v, err := wrap(g, "BoolToBoolean", raw, code)
	return Boolean{v}, err
}

// NewNumber creates a number from an int32.
func NewNumber(g *ContextGuard, n int32) (Number, error) {
	raw, code := api.IntToNumber(n)
	v, err := wrap(g, "IntToNumber", raw, code)
	return Number{v}, err
}

// NewNumberFromFloat creates a number from a float64.
func NewNumberFromFloat(g *ContextGuard, f float64) (Number, error) {
	raw, code := api.DoubleToNumber(f)
	v, err := wrap(g, "DoubleToNumber", raw, code)
	return Number{v}, err
}

// NewString creates a string.
func NewString(g *ContextGuard, s string) (String, error) {
	raw, code := api.CreateString(s)
	v, err := wrap(g, "CreateString", raw, code)
	return String{v}, err
}

// globalProperty reads a global by name without taking a reference.
func globalProperty(g *ContextGuard, name string) (jsrt.Ref, error) {
	global, code := api.GetGlobalObject()
	if err := check(errors.PhaseValue, "GetGlobalObject", code); err != nil {
		return jsrt.Invalid, err
	}
	return property(global, name)
}

func property(obj jsrt.Ref, name string) (jsrt.Ref, error) {
	id, code := api.CreatePropertyID(name)
	if err := check(errors.PhaseValue, "CreatePropertyID", code); err != nil {
		return jsrt.Invalid, err
	}
	v, code := api.GetProperty(obj, id)
	return v, check(errors.PhaseValue, "GetProperty", code)
}
