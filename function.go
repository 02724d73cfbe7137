package jsruntime

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap"
)

// Function is a callable Object.
type Function struct{ Object }

// CallbackInfo describes one call from script into a FunctionCallback. The
// values are owned by the trampoline and released when the callback
// returns; Clone anything that must outlive the call.
type CallbackInfo struct {
	IsConstructCall bool
	This            Value
	Callee          Function
	Arguments       []Value
}

// FunctionCallback implements a host function. Returning an error throws:
// an *Exception or a script error rethrows its value, any other error is
// thrown as an Error with err.Error() as the message. The returned Value
// is consumed; an empty Value returns undefined.
type FunctionCallback func(g *ContextGuard, info *CallbackInfo) (Value, error)

// Exception carries a script value thrown by a FunctionCallback.
type Exception struct {
	Value Value
}

// Throw returns an error that throws v from a FunctionCallback. The
// Exception holds its own reference, so the caller may release v before
// returning; the trampoline releases the Exception's reference once the
// value is thrown.
func Throw(v Value) error {
	return &Exception{Value: v.Clone()}
}

func (e *Exception) Error() string {
	return "jsruntime: thrown " + e.Value.String()
}

// NewFunction creates an anonymous host function.
func NewFunction(g *ContextGuard, cb FunctionCallback) (Function, error) {
	box := boxes.put(kindFunctionBox, cb)
	raw, code := api.CreateFunction(nativeTrampoline, box)
	return newFunction(g, "CreateFunction", box, raw, code)
}

// NewNamedFunction creates a host function whose name property is name.
func NewNamedFunction(g *ContextGuard, name string, cb FunctionCallback) (Function, error) {
	str, code := api.CreateString(name)
	if err := check(errors.PhaseValue, "CreateString", code); err != nil {
		return Function{}, err
	}
	box := boxes.put(kindFunctionBox, cb)
	raw, code := api.CreateNamedFunction(str, nativeTrampoline, box)
	return newFunction(g, "CreateNamedFunction", box, raw, code)
}

// newFunction ties the callback box to the function's lifetime.
func newFunction(g *ContextGuard, op string, box uintptr, raw jsrt.Ref, code jsrt.ErrorCode) (Function, error) {
	if err := check(errors.PhaseValue, op, code); err != nil {
		boxes.take(box)
		return Function{}, err
	}
	code = api.SetObjectBeforeCollectCallback(raw, box, functionCollectTrampoline)
	if err := check(errors.PhaseValue, "SetObjectBeforeCollectCallback", code); err != nil {
		boxes.take(box)
		return Function{}, err
	}
	return Function{Object{fromRaw(g.h, raw)}}, nil
}

func functionCollectTrampoline(_ jsrt.Ref, state uintptr) {
	boxes.take(state)
}

// nativeTrampoline is the single native entry point for every host
// function. It runs with the calling context current.
func nativeTrampoline(callee jsrt.Ref, isConstructCall bool, args []jsrt.Ref, state uintptr) (result jsrt.Ref) {
	v, ok := boxes.get(state, kindFunctionBox)
	if !ok {
		return jsrt.Invalid
	}
	cb := v.(FunctionCallback)
	g, ok := PeekCurrent()
	if !ok {
		return jsrt.Invalid
	}

	info := &CallbackInfo{
		IsConstructCall: isConstructCall,
		Callee:          Function{Object{fromRaw(g.h, callee)}},
	}
	if len(args) > 0 {
		info.This = fromRaw(g.h, args[0])
		info.Arguments = make([]Value, len(args)-1)
		for i, a := range args[1:] {
			info.Arguments[i] = fromRaw(g.h, a)
		}
	}
	defer info.release()

	defer func() {
		if r := recover(); r != nil {
			Logger().Error("host function panicked", zap.Any("panic", r))
			throw(g, fmt.Errorf("host function panicked: %v", r))
			result = jsrt.Invalid
		}
	}()

	out, err := cb(g, info)
	if err != nil {
		out.Release()
		throw(g, err)
		return jsrt.Invalid
	}
	// Zero count engine references stay valid until the next collection,
	// which cannot run before the engine has taken the result.
	raw := out.raw()
	out.Release()
	return raw
}

func (info *CallbackInfo) release() {
	info.This.Release()
	info.Callee.Release()
	for _, a := range info.Arguments {
		a.Release()
	}
}

// throw sets err as the pending exception of the current context.
func throw(g *ContextGuard, err error) {
	var ex *Exception
	if stderrors.As(err, &ex) && !ex.Value.IsEmpty() {
		defer ex.Value.Release()
		must("SetException", api.SetException(ex.Value.raw()))
		return
	}
	var se *errors.Error
	if stderrors.As(err, &se) {
		if v, ok := se.Value.(Value); ok && !v.IsEmpty() {
			must("SetException", api.SetException(v.raw()))
			return
		}
	}
	e, cerr := NewError(g, err.Error())
	if cerr != nil {
		// Creating the error failed; the engine already has an exception
		// pending for that.
		return
	}
	defer e.Release()
	must("SetException", api.SetException(e.raw()))
}

// Call invokes f with this bound to undefined.
func (f Function) Call(g *ContextGuard, args ...Value) (Value, error) {
	undefined, code := api.GetUndefinedValue()
	if err := check(errors.PhaseValue, "GetUndefinedValue", code); err != nil {
		return Value{}, err
	}
	return f.call(g, undefined, args)
}

// CallWithThis invokes f with an explicit this value.
func (f Function) CallWithThis(g *ContextGuard, this Value, args ...Value) (Value, error) {
	return f.call(g, this.raw(), args)
}

func (f Function) call(g *ContextGuard, this jsrt.Ref, args []Value) (Value, error) {
	raw, code := api.CallFunction(f.raw(), refs(this, args))
	return wrap(g, "CallFunction", raw, code)
}

// Construct invokes f as a constructor.
func (f Function) Construct(g *ContextGuard, args ...Value) (Object, error) {
	undefined, code := api.GetUndefinedValue()
	if err := check(errors.PhaseValue, "GetUndefinedValue", code); err != nil {
		return Object{}, err
	}
	raw, code := api.ConstructObject(f.raw(), refs(undefined, args))
	v, err := wrap(g, "ConstructObject", raw, code)
	return Object{v}, err
}

func refs(this jsrt.Ref, args []Value) []jsrt.Ref {
	out := make([]jsrt.Ref, 0, len(args)+1)
	out = append(out, this)
	for _, a := range args {
		out = append(out, a.raw())
	}
	return out
}
