package engine

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap"
)

const stackOverflowMessage = "Out of stack space"

// must rethrows a failed nested call into the running script.
func must(v goja.Value, err error) goja.Value {
	if err != nil {
		panic(err)
	}
	return v
}

// enter checks that script may run in c's runtime.
func (e *Engine) enter(c *contextState) jsrt.ErrorCode {
	rt := c.rt
	switch {
	case rt.disabled.Load():
		return jsrt.InDisabledState
	case rt.exception != nil:
		return jsrt.InExceptionState
	case rt.collecting:
		return jsrt.InObjectBeforeCollectCallback
	}
	return jsrt.NoError
}

// exec runs f as script in c. A top level entry may collect first and
// drains goja's internal job queue when it returns.
func (e *Engine) exec(c *contextState, f func() goja.Value) (goja.Value, jsrt.ErrorCode) {
	if code := e.enter(c); code != jsrt.NoError {
		return nil, code
	}
	e.maybeCollect(c.rt)

	c.rt.depth++
	defer func() { c.rt.depth-- }()

	thunk, _ := goja.AssertFunction(c.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return f()
	}))
	res, err := thunk(goja.Undefined())
	if err != nil {
		return nil, e.fail(c, err)
	}
	return res, jsrt.NoError
}

// fail maps an error escaping script onto a status code, leaving thrown
// values pending on the runtime.
func (e *Engine) fail(c *contextState, err error) jsrt.ErrorCode {
	var (
		interrupted *goja.InterruptedError
		overflow    *goja.StackOverflowError
		ex          *goja.Exception
	)
	switch {
	case errors.As(err, &interrupted):
		return jsrt.ScriptTerminated
	case errors.As(err, &overflow):
		v, nerr := c.vm.New(c.h.errors[errorRange], c.vm.ToValue(stackOverflowMessage))
		if nerr != nil {
			return jsrt.Fatal
		}
		c.rt.setException(c, v)
		return jsrt.ScriptException
	case errors.As(err, &ex):
		c.rt.setException(c, ex.Value())
		return jsrt.ScriptException
	}
	Logger().Error("unexpected script failure", zap.Error(err))
	return jsrt.Fatal
}

// target resolves an object operand and the context it lives in. A current
// context of the same runtime is required.
func (e *Engine) target(ref jsrt.Ref) (*contextState, *goja.Object, jsrt.ErrorCode) {
	ve, obj, code := e.object(ref)
	if code != jsrt.NoError {
		return nil, nil, code
	}
	cur, code := e.currentContext()
	if code != jsrt.NoError {
		return nil, nil, code
	}
	if cur.rt != ve.ctx.rt {
		return nil, nil, jsrt.WrongRuntime
	}
	return ve.ctx, obj, jsrt.NoError
}

// nativeCall adapts a host callback to the argument layout produced by the
// prelude's wrap helper: isConstructCall, this, callee, arguments...
func (e *Engine) nativeCall(c *contextState, native jsrt.NativeFunction, state uintptr) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		isNew := call.Argument(0).ToBoolean()
		callee := e.ref(c, call.Argument(2))

		args := make([]jsrt.Ref, 0, len(call.Arguments)-2)
		args = append(args, e.ref(c, call.Argument(1)))
		if len(call.Arguments) > 3 {
			for _, a := range call.Arguments[3:] {
				args = append(args, e.ref(c, a))
			}
		}

		res := native(callee, isNew, args, state)

		if ex := c.rt.exception; ex != nil {
			c.rt.exception = nil
			c.rt.exceptionCtx = nil
			panic(ex)
		}
		if res == jsrt.Invalid {
			return goja.Undefined()
		}
		v, code := e.escapingArg(c, res)
		if code != jsrt.NoError {
			panic(c.vm.NewTypeError("native function returned an unusable value: %s", code))
		}
		return v
	}
}

// CreateFunction implements jsrt.API.
func (e *Engine) CreateFunction(native jsrt.NativeFunction, state uintptr) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createFunction("", native, state)
}

// CreateNamedFunction implements jsrt.API.
func (e *Engine) CreateNamedFunction(name jsrt.Ref, native jsrt.NativeFunction, state uintptr) (jsrt.Ref, jsrt.ErrorCode) {
	s, code := e.CopyString(name)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.createFunction(s, native, state)
}

func (e *Engine) createFunction(name string, native jsrt.NativeFunction, state uintptr) (jsrt.Ref, jsrt.ErrorCode) {
	if native == nil {
		return jsrt.Invalid, jsrt.NullArgument
	}
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	if code := c.rt.reserve(entryOverhead); code != jsrt.NoError {
		return jsrt.Invalid, code
	}

	fn, err := c.h.wrap(goja.Undefined(), c.vm.ToValue(e.nativeCall(c, native, state)), c.vm.ToValue(name))
	if err != nil {
		return jsrt.Invalid, e.fail(c, err)
	}
	obj := fn.(*goja.Object)
	c.track(obj)
	return e.ref(c, obj), jsrt.NoError
}

// callArgs resolves this and the arguments of a call made from the host.
func (e *Engine) callArgs(c *contextState, args []jsrt.Ref) (goja.Value, []goja.Value, jsrt.ErrorCode) {
	if len(args) == 0 {
		return nil, nil, jsrt.InvalidArgument
	}
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		v, code := e.escapingArg(c, a)
		if code != jsrt.NoError {
			return nil, nil, code
		}
		vals[i] = v
	}
	return vals[0], vals[1:], jsrt.NoError
}

// CallFunction implements jsrt.API.
func (e *Engine) CallFunction(fn jsrt.Ref, args []jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	c, obj, code := e.target(fn)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	callable, ok := goja.AssertFunction(obj)
	if !ok {
		return jsrt.Invalid, jsrt.InvalidArgument
	}
	this, rest, code := e.callArgs(c, args)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}

	res, code := e.exec(c, func() goja.Value {
		return must(callable(this, rest...))
	})
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, res), jsrt.NoError
}

// ConstructObject implements jsrt.API. args[0] is ignored.
func (e *Engine) ConstructObject(fn jsrt.Ref, args []jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	c, obj, code := e.target(fn)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	ctor, ok := goja.AssertConstructor(obj)
	if !ok {
		return jsrt.Invalid, jsrt.InvalidArgument
	}
	_, rest, code := e.callArgs(c, args)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}

	res, code := e.exec(c, func() goja.Value {
		o, err := ctor(nil, rest...)
		if err != nil {
			panic(err)
		}
		return o
	})
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, res), jsrt.NoError
}

func (e *Engine) createError(kind int, message jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	msg, code := e.arg(c, message)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	res, code := e.exec(c, func() goja.Value {
		o, err := c.vm.New(c.h.errors[kind], msg)
		if err != nil {
			panic(err)
		}
		return o
	})
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	c.track(res.(*goja.Object))
	return e.ref(c, res), jsrt.NoError
}

// CreateError implements jsrt.API.
func (e *Engine) CreateError(message jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createError(errorPlain, message)
}

// CreateRangeError implements jsrt.API.
func (e *Engine) CreateRangeError(message jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createError(errorRange, message)
}

// CreateReferenceError implements jsrt.API.
func (e *Engine) CreateReferenceError(message jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createError(errorReference, message)
}

// CreateSyntaxError implements jsrt.API.
func (e *Engine) CreateSyntaxError(message jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createError(errorSyntax, message)
}

// CreateTypeError implements jsrt.API.
func (e *Engine) CreateTypeError(message jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createError(errorType, message)
}

// CreateURIError implements jsrt.API.
func (e *Engine) CreateURIError(message jsrt.Ref) (jsrt.Ref, jsrt.ErrorCode) {
	return e.createError(errorURI, message)
}

// HasException implements jsrt.API.
func (e *Engine) HasException() (bool, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return false, code
	}
	return c.rt.exception != nil, jsrt.NoError
}

// GetAndClearException implements jsrt.API.
func (e *Engine) GetAndClearException() (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	rt := c.rt
	if rt.exception == nil {
		return jsrt.Invalid, jsrt.InvalidArgument
	}
	owner := rt.exceptionCtx
	if owner == nil || owner.disposed {
		owner = c
	}
	ref := e.ref(owner, rt.exception)
	rt.exception = nil
	rt.exceptionCtx = nil
	return ref, jsrt.NoError
}

// SetException implements jsrt.API.
func (e *Engine) SetException(exception jsrt.Ref) jsrt.ErrorCode {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return code
	}
	ve, code := e.value(exception)
	if code != jsrt.NoError {
		return code
	}
	if ve.ctx.rt != c.rt {
		return jsrt.WrongRuntime
	}
	owner := c
	if _, ok := ve.val.(*goja.Object); ok {
		owner = ve.ctx
	}
	owner.escape(ve.val)
	c.rt.setException(owner, ve.val)
	return jsrt.NoError
}

// CreatePromise implements jsrt.API.
func (e *Engine) CreatePromise() (promise, resolve, reject jsrt.Ref, code jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, jsrt.Invalid, jsrt.Invalid, code
	}
	res, code := e.exec(c, func() goja.Value {
		return must(c.h.newPromise(goja.Undefined()))
	})
	if code != jsrt.NoError {
		return jsrt.Invalid, jsrt.Invalid, jsrt.Invalid, code
	}
	parts := res.(*goja.Object)
	return e.ref(c, parts.Get("0")), e.ref(c, parts.Get("1")), e.ref(c, parts.Get("2")), jsrt.NoError
}
