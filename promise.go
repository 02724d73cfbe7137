package jsruntime

import (
	"github.com/wippyai/js-runtime/errors"
)

// Promise is an Object that is an instance of the context's Promise.
type Promise struct{ Object }

// Executor settles the promise it was created with. Only the first
// settlement has an effect.
type Executor struct {
	resolve Function
	reject  Function
}

// NewPromise creates a pending promise and its executor.
func NewPromise(g *ContextGuard) (Promise, *Executor, error) {
	p, res, rej, code := api.CreatePromise()
	if err := check(errors.PhaseValue, "CreatePromise", code); err != nil {
		return Promise{}, nil, err
	}
	return Promise{Object{fromRaw(g.h, p)}}, &Executor{
		resolve: Function{Object{fromRaw(g.h, res)}},
		reject:  Function{Object{fromRaw(g.h, rej)}},
	}, nil
}

// Resolve fulfills the promise with v.
func (e *Executor) Resolve(g *ContextGuard, v Value) error {
	res, err := e.resolve.Call(g, v)
	res.Release()
	return err
}

// Reject rejects the promise with reason.
func (e *Executor) Reject(g *ContextGuard, reason Value) error {
	res, err := e.reject.Call(g, reason)
	res.Release()
	return err
}

// Release drops the resolving functions.
func (e *Executor) Release() {
	e.resolve.Release()
	e.reject.Release()
}

// Then registers reactions and returns the derived promise. Either
// callback may be an empty Function.
func (p Promise) Then(g *ContextGuard, onFulfilled, onRejected Function) (Promise, error) {
	then, err := property(p.raw(), "then")
	if err != nil {
		return Promise{}, err
	}
	undefined, code := api.GetUndefinedValue()
	if err := check(errors.PhaseValue, "GetUndefinedValue", code); err != nil {
		return Promise{}, err
	}
	args := []Value{onFulfilled.Value, onRejected.Value}
	argv := refs(p.raw(), nil)
	for _, a := range args {
		if a.IsEmpty() {
			argv = append(argv, undefined)
		} else {
			argv = append(argv, a.raw())
		}
	}
	raw, code := api.CallFunction(then, argv)
	v, err := wrap(g, "Promise.then", raw, code)
	return Promise{Object{v}}, err
}
