package jsruntime

import (
	"context"
	"sync/atomic"

	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap"
)

// sourceCounter hands out a fresh source cookie for every script.
var sourceCounter atomic.Uintptr

func nextSource() jsrt.SourceContext {
	return jsrt.SourceContext(sourceCounter.Add(1))
}

// Eval runs code in the guarded context and returns its completion value.
func Eval(g *ContextGuard, code string) (Value, error) {
	return EvalWithName(g, code, "")
}

// EvalWithName runs code, reporting name as its source URL in errors and
// stack traces.
func EvalWithName(g *ContextGuard, code, name string) (Value, error) {
	raw, status := api.Run(code, nextSource(), name)
	if err := check(errors.PhaseScript, "Run", status); err != nil {
		return Value{}, err
	}
	return fromRaw(g.h, raw), nil
}

// Parse compiles code without running it. Calling the returned function
// runs the script.
func Parse(g *ContextGuard, code string) (Function, error) {
	return ParseWithName(g, code, "")
}

// ParseWithName compiles code with name as its source URL.
func ParseWithName(g *ContextGuard, code, name string) (Function, error) {
	raw, status := api.Parse(code, nextSource(), name)
	if err := check(errors.PhaseScript, "Parse", status); err != nil {
		return Function{}, err
	}
	v := fromRaw(g.h, raw)
	fn, ok := v.AsFunction()
	if !ok {
		v.Release()
		return Function{}, errors.TypeMismatch(errors.PhaseScript, "function", v.Type().String())
	}
	return fn, nil
}

// EvalContext runs code like Eval and terminates it when ctx is done. The
// runtime must be built with AllowScriptInterrupt. A terminated script
// returns an error wrapping ctx.Err() and leaves execution enabled.
func EvalContext(ctx context.Context, g *ContextGuard, code string) (Value, error) {
	return EvalContextWithName(ctx, g, code, "")
}

// EvalContextWithName is EvalContext with a source URL.
func EvalContextWithName(ctx context.Context, g *ContextGuard, code, name string) (Value, error) {
	rt := g.h.rt
	if !rt.attrs.Has(jsrt.AttributeAllowScriptInterrupt) {
		return Value{}, errors.Unsupported(errors.PhaseScript, "EvalContext requires AllowScriptInterrupt")
	}
	if err := ctx.Err(); err != nil {
		return Value{}, interrupted(err)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	var fired atomic.Bool
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			fired.Store(true)
			if err := rt.DisableExecution(); err != nil {
				Logger().Warn("interrupt failed", zap.Error(err))
			}
		case <-done:
		}
	}()

	v, err := EvalWithName(g, code, name)
	close(done)
	<-stopped

	if !fired.Load() {
		return v, err
	}
	return afterInterrupt(rt, v, err, ctx.Err())
}

// afterInterrupt re-enables a runtime the watcher disabled. A script that
// finished before the interrupt landed keeps its result.
func afterInterrupt(rt *Runtime, v Value, err, cause error) (Value, error) {
	if eerr := rt.EnableExecution(); eerr != nil {
		v.Release()
		return Value{}, eerr
	}
	if err == nil {
		return v, nil
	}
	v.Release()
	return Value{}, interrupted(cause)
}

func interrupted(cause error) error {
	return errors.New(errors.PhaseScript, errors.KindCall).
		Op("Run").
		Code(jsrt.ScriptTerminated).
		Cause(cause).
		Detail("script interrupted").
		Build()
}
