package jsruntime

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/multierr"
)

func newTestRuntime(t *testing.T, b *Builder) *Runtime {
	t.Helper()
	rt, err := b.Build()
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	t.Cleanup(rt.Dispose)
	return rt
}

func newTestContext(t *testing.T, rt *Runtime) *Context {
	t.Helper()
	ctx, err := NewContext(rt)
	if err != nil {
		t.Fatalf("create context: %v", err)
	}
	return ctx
}

// withContext runs fn with a fresh context current.
func withContext(t *testing.T, b *Builder, fn func(g *ContextGuard)) {
	t.Helper()
	ctx := newTestContext(t, newTestRuntime(t, b))
	g, err := ctx.MakeCurrent()
	if err != nil {
		t.Fatalf("make current: %v", err)
	}
	defer g.Exit()
	fn(g)
}

func eval(t *testing.T, g *ContextGuard, code string) Value {
	t.Helper()
	v, err := Eval(g, code)
	if err != nil {
		t.Fatalf("eval %q: %v", code, err)
	}
	return v
}

func evalInt(t *testing.T, g *ContextGuard, code string) int32 {
	t.Helper()
	v := eval(t, g, code)
	defer v.Release()
	n, err := v.ToInteger(g)
	if err != nil {
		t.Fatalf("to integer: %v", err)
	}
	return n
}

func evalString(t *testing.T, g *ContextGuard, code string) string {
	t.Helper()
	v := eval(t, g, code)
	defer v.Release()
	s, err := v.ToString(g)
	if err != nil {
		t.Fatalf("to string: %v", err)
	}
	return s
}

func setGlobal(t *testing.T, g *ContextGuard, name string, v Value) {
	t.Helper()
	global, err := g.Global()
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	defer global.Release()
	prop, err := NewProperty(g, name)
	if err != nil {
		t.Fatalf("property: %v", err)
	}
	defer prop.Release()
	if err := global.Set(g, prop, v); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
}

func currentIs(ctx *Context) bool {
	g, ok := PeekCurrent()
	return ok && g.h == ctx.h
}

func TestGuardStacking(t *testing.T) {
	rt := newTestRuntime(t, NewBuilder())
	a := newTestContext(t, rt)
	b := newTestContext(t, rt)

	if _, ok := PeekCurrent(); ok {
		t.Fatal("expected no current context")
	}

	ga, err := a.MakeCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if !currentIs(a) {
		t.Fatal("expected A current")
	}

	gb, err := b.MakeCurrent()
	if err != nil {
		t.Fatal(err)
	}
	if !currentIs(b) {
		t.Fatal("expected B current")
	}

	gb.Exit()
	if !currentIs(a) {
		t.Fatal("expected A current after inner exit")
	}
	ga.Exit()
	if _, ok := PeekCurrent(); ok {
		t.Fatal("expected no current context after outer exit")
	}

	// Exit is idempotent.
	ga.Exit()
}

func TestGuardOutOfOrderExit(t *testing.T) {
	rt := newTestRuntime(t, NewBuilder())
	a := newTestContext(t, rt)
	b := newTestContext(t, rt)

	ga, _ := a.MakeCurrent()
	gb, _ := b.MakeCurrent()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on out of order exit")
		}
		gb.Exit()
		api.SetCurrentContext(jsrt.Invalid)
	}()
	ga.Exit()
}

func TestPeekCurrentDoesNotRestore(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		peek, ok := PeekCurrent()
		if !ok {
			t.Fatal("expected a current context")
		}
		peek.Exit()
		if _, ok := PeekCurrent(); !ok {
			t.Fatal("observing guard changed the current context")
		}
		ran := ExecWithCurrent(func(*ContextGuard) {})
		if !ran {
			t.Error("expected ExecWithCurrent to run")
		}
	})
	if ExecWithCurrent(func(*ContextGuard) { t.Error("ran without a context") }) {
		t.Error("expected ExecWithCurrent to report false")
	}
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		name     string
		builder  *Builder
		evalFail bool
	}{
		{"default", NewBuilder(), false},
		{"disable eval", NewBuilder().DisableEval(), true},
		{"no jit", NewBuilder().DisableNativeCodeGeneration().DisableBackgroundWork(), false},
		{"experimental", NewBuilder().EnableExperimentalFeatures(), false},
		{"everything", NewBuilder().Attributes(jsrt.AttributeDisableEval | jsrt.AttributeAllowScriptInterrupt), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withContext(t, tt.builder, func(g *ContextGuard) {
				if got := g.Runtime().Attributes(); got != tt.builder.attrs {
					t.Errorf("expected attributes %b, got %b", tt.builder.attrs, got)
				}
				v, err := Eval(g, "eval('1')")
				if tt.evalFail {
					if !errors.IsScriptException(err) {
						t.Fatalf("expected script exception, got %v", err)
					}
					if !strings.Contains(err.Error(), "EvalError") {
						t.Errorf("expected EvalError, got %v", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("eval: %v", err)
				}
				defer v.Release()
				if n, _ := v.ToInteger(g); n != 1 {
					t.Errorf("expected 1, got %d", n)
				}
			})
		})
	}
}

func TestIdleProcessing(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		_, err := g.Runtime().RunIdleTasks()
		if errors.CodeOf(err) != jsrt.IdleNotEnabled {
			t.Errorf("expected IdleNotEnabled, got %v", err)
		}
	})
	withContext(t, NewBuilder().EnableIdleProcessing(), func(g *ContextGuard) {
		ran, err := g.Runtime().RunIdleTasks()
		if err != nil {
			t.Fatal(err)
		}
		if !ran {
			t.Error("expected the first idle run to do work")
		}
		if ran, _ := g.Runtime().RunIdleTasks(); ran {
			t.Error("expected the second run to wait for the next tick")
		}
	})
}

func TestReferenceCounting(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		obj, err := NewObject(g)
		if err != nil {
			t.Fatal(err)
		}
		fired := 0
		if err := obj.SetCollectCallback(g, func() { fired++ }); err != nil {
			t.Fatal(err)
		}

		handles := []Object{obj}
		for range 3 {
			handles = append(handles, Object{obj.Clone()})
		}

		handles[0].Release()
		if err := g.Runtime().Collect(); err != nil {
			t.Fatal(err)
		}
		if fired != 0 {
			t.Fatal("collected while clones were alive")
		}

		for _, h := range handles[1:] {
			h.Release()
		}
		if err := g.Runtime().Collect(); err != nil {
			t.Fatal(err)
		}
		if fired != 1 {
			t.Fatalf("expected probe to fire once, got %d", fired)
		}
		if err := g.Runtime().Collect(); err != nil {
			t.Fatal(err)
		}
		if fired != 1 {
			t.Errorf("probe fired again: %d", fired)
		}
	})
}

func TestReleaseIsIdempotent(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		v, err := NewString(g, "once")
		if err != nil {
			t.Fatal(err)
		}
		alias := v
		v.Release()
		alias.Release()
		if !alias.IsEmpty() {
			t.Error("expected copies to share the released reference")
		}
	})
}

func TestUserData(t *testing.T) {
	ctx := newTestContext(t, newTestRuntime(t, NewBuilder()))

	if _, replaced := InsertUserData(ctx, []int{10, 20}); replaced {
		t.Error("unexpected previous value")
	}
	got, ok := GetUserData[[]int](ctx)
	if !ok || len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Fatalf("expected [10 20], got %v %v", got, ok)
	}

	p, _ := GetUserDataMut[[]int](ctx)
	*p = append(*p, 30)

	removed, ok := RemoveUserData[[]int](ctx)
	if !ok || len(removed) != 3 {
		t.Fatalf("expected [10 20 30], got %v %v", removed, ok)
	}
	if _, ok := GetUserData[[]int](ctx); ok {
		t.Error("expected no value after remove")
	}

	InsertUserData(ctx, "first")
	prev, replaced := InsertUserData(ctx, "second")
	if !replaced || prev != "first" {
		t.Errorf("expected previous value first, got %q %v", prev, replaced)
	}
}

func TestPromiseDrain(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		obj, _ := NewObject(g)
		defer obj.Release()
		setGlobal(t, g, "object", obj.Value)

		v := eval(t, g, "Promise.resolve(5).then(v => v+5).then(v => v/5).then(v => object.val = v)")
		v.Release()
		if g.PendingTasks() == 0 {
			t.Fatal("expected queued continuations")
		}

		if err := g.ExecuteTasks(); err != nil {
			t.Fatal(err)
		}
		if n := g.PendingTasks(); n != 0 {
			t.Errorf("expected an empty queue, got %d", n)
		}

		prop, _ := NewProperty(g, "val")
		defer prop.Release()
		val, err := obj.Get(g, prop)
		if err != nil {
			t.Fatal(err)
		}
		defer val.Release()
		if n, _ := val.ToInteger(g); n != 2 {
			t.Errorf("expected object.val == 2, got %d", n)
		}
	})
}

func TestRejectedReactionsKeepDraining(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		fail, _ := NewFunction(g, func(*ContextGuard, *CallbackInfo) (Value, error) {
			return Value{}, stderrors.New("reaction failed")
		})
		defer fail.Release()
		setGlobal(t, g, "fail", fail.Value)

		v := eval(t, g, "var caught = '', after = 0; Promise.resolve().then(fail).catch(e => { caught = e.message }); Promise.resolve().then(() => { after = 1 })")
		v.Release()

		if err := g.ExecuteTasks(); err != nil {
			t.Fatal(err)
		}
		if got := evalString(t, g, "caught"); got != "reaction failed" {
			t.Errorf("expected the rejection to reach catch, got %q", got)
		}
		if n := evalInt(t, g, "after"); n != 1 {
			t.Error("a rejected reaction stopped the drain")
		}
	})
}

func TestTaskErrorsAreCollected(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		v := eval(t, g, "var ran = 0; Promise.resolve().then(() => { ran++ })")
		v.Release()

		// Tasks that are not callable fail without stopping the drain.
		for i := int32(0); i < 2; i++ {
			n, _ := NewNumber(g, i)
			g.h.data.tasks = append(g.h.data.tasks, n.Value)
		}

		err := g.ExecuteTasks()
		if n := len(multierr.Errors(err)); n != 2 {
			t.Fatalf("expected 2 task errors, got %d: %v", n, err)
		}
		if errors.CodeOf(multierr.Errors(err)[0]) != jsrt.InvalidArgument {
			t.Errorf("expected InvalidArgument, got %v", err)
		}
		if n := evalInt(t, g, "ran"); n != 1 {
			t.Errorf("expected the real task to run, got %d", n)
		}
	})
}

func TestDowncastSafety(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		v := eval(t, g, "42")
		defer v.Release()

		if _, ok := v.AsObject(); ok {
			t.Fatal("number downcast to object")
		}
		if _, ok := v.AsFunction(); ok {
			t.Fatal("number downcast to function")
		}
		n, ok := v.AsNumber()
		if !ok {
			t.Fatal("expected a number")
		}
		i, err := n.Int()
		if err != nil || i != 42 {
			t.Errorf("expected 42, got %d %v", i, err)
		}
	})
}

func TestScriptErrorRoundTrip(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		_, err := Eval(g, "null[0] = 3;")
		if !errors.IsScriptException(err) {
			t.Fatalf("expected script exception, got %v", err)
		}
		var se *errors.Error
		if !stderrors.As(err, &se) || se.Detail == "" {
			t.Fatalf("expected a message, got %v", err)
		}
		if thrown, ok := se.Value.(Value); !ok || !thrown.IsError() {
			t.Error("expected the thrown error value")
		}

		if n := evalInt(t, g, "5 + 5"); n != 10 {
			t.Errorf("expected 10, got %d", n)
		}
	})
}

func TestCompileError(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		_, err := EvalWithName(g, "var = ;", "bad.js")
		if !errors.IsScriptCompile(err) {
			t.Fatalf("expected compile error, got %v", err)
		}
		if !strings.Contains(err.Error(), "SyntaxError") {
			t.Errorf("expected SyntaxError, got %v", err)
		}
		if _, err := Parse(g, "("); !errors.IsScriptCompile(err) {
			t.Errorf("expected compile error from Parse, got %v", err)
		}
		if n := evalInt(t, g, "1"); n != 1 {
			t.Error("context unusable after compile error")
		}
	})
}

func TestParse(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		fn, err := ParseWithName(g, "var counter = (typeof counter === 'number' ? counter : 0) + 1; counter", "counter.js")
		if err != nil {
			t.Fatal(err)
		}
		defer fn.Release()
		for want := int32(1); want <= 2; want++ {
			res, err := fn.Call(g)
			if err != nil {
				t.Fatal(err)
			}
			if n, _ := res.ToInteger(g); n != want {
				t.Errorf("expected %d, got %d", want, n)
			}
			res.Release()
		}
	})
}

func TestGlobalProperties(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		n, _ := NewNumber(g, 21)
		defer n.Release()
		setGlobal(t, g, "answer", n.Value)
		if got := evalInt(t, g, "answer * 2"); got != 42 {
			t.Errorf("expected 42, got %d", got)
		}

		p1, _ := NewProperty(g, "answer")
		defer p1.Release()
		p2, _ := NewProperty(g, "answer")
		defer p2.Release()
		if !p1.Equal(p2) {
			t.Error("expected interned property ids")
		}
		if name, _ := p1.Name(); name != "answer" {
			t.Errorf("expected answer, got %q", name)
		}

		global, _ := g.Global()
		defer global.Release()
		if has, _ := global.Has(g, p1); !has {
			t.Error("expected the global to have answer")
		}
		if deleted, _ := global.Delete(g, p1); !deleted {
			t.Error("expected delete to succeed")
		}
		if got := evalString(t, g, "typeof answer"); got != "undefined" {
			t.Errorf("expected undefined, got %q", got)
		}
	})
}

func TestObjectProperties(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		obj, _ := NewObject(g)
		defer obj.Release()
		s, _ := NewString(g, "v")
		defer s.Release()

		for i := int32(0); i < 3; i++ {
			if err := obj.SetIndex(g, i, s.Value); err != nil {
				t.Fatal(err)
			}
		}
		if has, _ := obj.HasIndex(g, 2); !has {
			t.Error("expected index 2")
		}
		if err := obj.DeleteIndex(g, 2); err != nil {
			t.Fatal(err)
		}
		names, err := obj.OwnPropertyNames(g)
		if err != nil {
			t.Fatal(err)
		}
		defer names.Release()
		if n, _ := names.Len(g); n != 2 {
			t.Errorf("expected 2 own properties, got %d", n)
		}

		desc := eval(t, g, "({ value: 7, writable: false })")
		defer desc.Release()
		descObj, _ := desc.AsObject()
		fixed, _ := NewProperty(g, "fixed")
		defer fixed.Release()
		if ok, err := obj.DefineProperty(g, fixed, descObj); err != nil || !ok {
			t.Fatalf("define property: %v %v", ok, err)
		}
		if err := obj.Set(g, fixed, s.Value); !errors.IsScriptException(err) {
			t.Errorf("expected strict assignment to throw, got %v", err)
		}

		if err := obj.PreventExtension(g); err != nil {
			t.Fatal(err)
		}
		if ext, _ := obj.IsExtensible(g); ext {
			t.Error("expected a non-extensible object")
		}
	})
}

func TestPrototypeAndInstanceOf(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		inst := eval(t, g, "function Foo() {}; new Foo()")
		defer inst.Release()
		ctorVal := eval(t, g, "Foo")
		defer ctorVal.Release()

		obj, _ := inst.AsObject()
		ctor, ok := ctorVal.AsFunction()
		if !ok {
			t.Fatal("expected a function")
		}
		if is, err := obj.InstanceOf(g, ctor); err != nil || !is {
			t.Errorf("expected instanceof Foo, got %v %v", is, err)
		}

		null, _ := Null(g)
		defer null.Release()
		if err := obj.SetPrototype(g, null); err != nil {
			t.Fatal(err)
		}
		if is, _ := obj.InstanceOf(g, ctor); is {
			t.Error("expected instanceof to fail after clearing the prototype")
		}
		proto, _ := obj.Prototype(g)
		defer proto.Release()
		if !proto.IsNull() {
			t.Errorf("expected null prototype, got %s", proto.Type())
		}
	})
}

func TestFunctionMultiply(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		multiply, err := NewNamedFunction(g, "multiply", func(g *ContextGuard, info *CallbackInfo) (Value, error) {
			if len(info.Arguments) != 2 {
				return Value{}, stderrors.New("multiply takes two arguments")
			}
			a, _ := info.Arguments[0].ToInteger(g)
			b, _ := info.Arguments[1].ToInteger(g)
			n, err := NewNumber(g, a*b)
			return n.Value, err
		})
		if err != nil {
			t.Fatal(err)
		}
		defer multiply.Release()
		setGlobal(t, g, "multiply", multiply.Value)

		if n := evalInt(t, g, "multiply(191, 2)"); n != 382 {
			t.Errorf("expected 382, got %d", n)
		}
		if name := evalString(t, g, "multiply.name"); name != "multiply" {
			t.Errorf("expected name multiply, got %q", name)
		}

		a, _ := NewNumber(g, 6)
		defer a.Release()
		b, _ := NewNumber(g, 7)
		defer b.Release()
		res, err := multiply.Call(g, a.Value, b.Value)
		if err != nil {
			t.Fatal(err)
		}
		defer res.Release()
		if n, _ := res.ToInteger(g); n != 42 {
			t.Errorf("expected 42, got %d", n)
		}
	})
}

func TestFunctionException(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		goErr, _ := NewFunction(g, func(*ContextGuard, *CallbackInfo) (Value, error) {
			return Value{}, stderrors.New("boom")
		})
		defer goErr.Release()
		setGlobal(t, g, "goErr", goErr.Value)

		thrower, _ := NewFunction(g, func(g *ContextGuard, _ *CallbackInfo) (Value, error) {
			e, err := NewTypeError(g, "typed")
			if err != nil {
				return Value{}, err
			}
			defer e.Release()
			return Value{}, Throw(e.Value)
		})
		defer thrower.Release()
		setGlobal(t, g, "thrower", thrower.Value)

		if got := evalString(t, g, "try { goErr() } catch (e) { e.message }"); got != "boom" {
			t.Errorf("expected boom, got %q", got)
		}
		if got := evalString(t, g, "try { thrower() } catch (e) { e.name + ':' + e.message }"); got != "TypeError:typed" {
			t.Errorf("expected TypeError:typed, got %q", got)
		}

		_, err := Eval(g, "goErr()")
		if !errors.IsScriptException(err) || !strings.Contains(err.Error(), "boom") {
			t.Errorf("expected uncaught boom, got %v", err)
		}
		if n := evalInt(t, g, "3"); n != 3 {
			t.Error("context unusable after callback error")
		}
	})
}

func TestThrowOwnsItsValue(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		marker := eval(t, g, "var marker = {tag: 'mine'}; marker")
		defer marker.Release()

		thrower, _ := NewFunction(g, func(g *ContextGuard, _ *CallbackInfo) (Value, error) {
			v := marker.Clone()
			defer v.Release()
			return Value{}, Throw(v)
		})
		defer thrower.Release()
		setGlobal(t, g, "thrower", thrower.Value)

		if got := evalString(t, g, "try { thrower(); 'none' } catch (e) { e === marker ? e.tag : String(e) }"); got != "mine" {
			t.Errorf("expected the released value to be thrown, got %q", got)
		}
	})
}

func TestPrimitiveStrings(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		tests := []struct {
			src  string
			want string
		}{
			{"42", "42"},
			{"2.5", "2.5"},
			{"-1e21", "-1e+21"},
			{"0/0", "NaN"},
			{"true", "true"},
			{"null", "null"},
			{"undefined", "undefined"},
			{"[1, 'a']", "1,a"},
			{"({toString() { return 'custom' }})", "custom"},
		}
		for _, tt := range tests {
			v := eval(t, g, tt.src)
			s, err := v.ToString(g)
			if err != nil {
				t.Errorf("%s: %v", tt.src, err)
			} else if s != tt.want {
				t.Errorf("%s: expected %q, got %q", tt.src, tt.want, s)
			}
			if d := v.String(); d != tt.want {
				t.Errorf("%s: expected debug string %q, got %q", tt.src, tt.want, d)
			}
			v.Release()
		}

		_, err := Eval(g, "throw 42")
		var se *errors.Error
		if !stderrors.As(err, &se) || !errors.IsScriptException(err) {
			t.Fatalf("expected script exception, got %v", err)
		}
		if se.Detail != "42" {
			t.Errorf("expected detail 42, got %q", se.Detail)
		}
		if thrown, ok := se.Value.(Value); !ok || thrown.Type() != jsrt.Number {
			t.Error("expected the thrown number")
		}
	})
}

func TestCallbackInfo(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		var calls []bool
		var argc []int
		ctor, _ := NewFunction(g, func(g *ContextGuard, info *CallbackInfo) (Value, error) {
			calls = append(calls, info.IsConstructCall)
			argc = append(argc, len(info.Arguments))
			if !info.Callee.IsFunction() {
				return Value{}, stderrors.New("callee is not a function")
			}
			return Value{}, nil
		})
		defer ctor.Release()
		setGlobal(t, g, "Ctor", ctor.Value)

		v := eval(t, g, "new Ctor(1, 2); Ctor()")
		defer v.Release()
		if !v.IsUndefined() {
			t.Errorf("expected undefined from an empty result, got %s", v.Type())
		}
		obj, err := ctor.Construct(g)
		if err != nil {
			t.Fatal(err)
		}
		obj.Release()

		if len(calls) != 3 || !calls[0] || calls[1] || !calls[2] {
			t.Errorf("unexpected construct flags %v", calls)
		}
		if argc[0] != 2 || argc[1] != 0 {
			t.Errorf("unexpected argument counts %v", argc)
		}
	})
}

func TestArrays(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		v := eval(t, g, "[1, 2, 3]")
		defer v.Release()
		arr, ok := v.AsArray()
		if !ok {
			t.Fatalf("expected an array, got %s", v.Type())
		}
		if n, _ := arr.Len(g); n != 3 {
			t.Fatalf("expected length 3, got %d", n)
		}
		sum := int32(0)
		for i, el := range arr.All(g) {
			n, _ := el.ToInteger(g)
			if n != int32(i+1) {
				t.Errorf("index %d: expected %d, got %d", i, i+1, n)
			}
			sum += n
			el.Release()
		}
		if sum != 6 {
			t.Errorf("expected sum 6, got %d", sum)
		}

		made, err := NewArray(g, 4)
		if err != nil {
			t.Fatal(err)
		}
		defer made.Release()
		if n, _ := made.Len(g); n != 4 {
			t.Errorf("expected length 4, got %d", n)
		}
	})
}

func TestArrayBuffers(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		data := make([]byte, 4)
		buf, err := NewArrayBufferWithData(g, data)
		if err != nil {
			t.Fatal(err)
		}
		defer buf.Release()
		setGlobal(t, g, "buf", buf.Value)

		v := eval(t, g, "new Uint8Array(buf)[0] = 7")
		v.Release()
		if data[0] != 7 {
			t.Errorf("expected script write to reach host memory, got %d", data[0])
		}

		data[1] = 9
		if n := evalInt(t, g, "new Uint8Array(buf)[1]"); n != 9 {
			t.Errorf("expected host write to reach script, got %d", n)
		}

		zeroed, _ := NewArrayBuffer(g, 8)
		defer zeroed.Release()
		bytes, err := zeroed.Bytes(g)
		if err != nil || len(bytes) != 8 {
			t.Errorf("expected 8 bytes, got %d %v", len(bytes), err)
		}
		if !zeroed.IsArrayBuffer() {
			t.Error("expected an ArrayBuffer")
		}
	})
}

type payload struct {
	name    string
	dropped bool
}

func (p *payload) Drop() { p.dropped = true }

func TestExternal(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		p := &payload{name: "host"}
		ext, err := NewExternal(g, p)
		if err != nil {
			t.Fatal(err)
		}

		got, ok := ExternalData[*payload](ext)
		if !ok || got.name != "host" {
			t.Fatalf("expected host payload, got %v %v", got, ok)
		}
		if _, ok := ExternalData[string](ext); ok {
			t.Error("expected a typed read to fail for the wrong type")
		}
		as, ok := ext.Value.AsExternal()
		if !ok || !as.IsExternal() {
			t.Error("expected AsExternal to succeed")
		}

		plain, _ := NewObject(g)
		defer plain.Release()
		if plain.IsExternal() {
			t.Error("plain object reports external data")
		}

		ext.Release()
		if err := g.Runtime().Collect(); err != nil {
			t.Fatal(err)
		}
		if !p.dropped {
			t.Error("expected the payload to be dropped at collection")
		}
	})
}

func TestPromiseResolve(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		p, exec, err := NewPromise(g)
		if err != nil {
			t.Fatal(err)
		}
		defer p.Release()
		defer exec.Release()

		if !p.IsPromise(g) {
			t.Fatal("expected a promise")
		}
		setGlobal(t, g, "p", p.Value)
		v := eval(t, g, "var got = 0; p.then(v => { got = v })")
		v.Release()

		nine, _ := NewNumber(g, 9)
		defer nine.Release()
		if err := exec.Resolve(g, nine.Value); err != nil {
			t.Fatal(err)
		}
		if err := g.ExecuteTasks(); err != nil {
			t.Fatal(err)
		}
		if n := evalInt(t, g, "got"); n != 9 {
			t.Errorf("expected 9, got %d", n)
		}

		evaluated := eval(t, g, "Promise.reject(new Error('no'))")
		defer evaluated.Release()
		if _, ok := evaluated.AsPromise(g); !ok {
			t.Error("expected a promise from script")
		}
		if err := g.ExecuteTasks(); err != nil {
			t.Errorf("unhandled rejection surfaced as task error: %v", err)
		}
	})
}

func TestPromiseThen(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		p, exec, _ := NewPromise(g)
		defer p.Release()
		defer exec.Release()

		var got int32
		onFulfilled, _ := NewFunction(g, func(g *ContextGuard, info *CallbackInfo) (Value, error) {
			got, _ = info.Arguments[0].ToInteger(g)
			return Value{}, nil
		})
		defer onFulfilled.Release()

		derived, err := p.Then(g, onFulfilled, Function{})
		if err != nil {
			t.Fatal(err)
		}
		defer derived.Release()

		n, _ := NewNumber(g, 4)
		defer n.Release()
		exec.Resolve(g, n.Value)
		if err := g.ExecuteTasks(); err != nil {
			t.Fatal(err)
		}
		if got != 4 {
			t.Errorf("expected 4, got %d", got)
		}
	})
}

func TestErrors(t *testing.T) {
	ctors := map[string]func(*ContextGuard, string) (Error, error){
		"Error":          NewError,
		"RangeError":     NewRangeError,
		"ReferenceError": NewReferenceError,
		"SyntaxError":    NewSyntaxError,
		"TypeError":      NewTypeError,
		"URIError":       NewURIError,
	}
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		for name, ctor := range ctors {
			e, err := ctor(g, "m")
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if !e.IsError() {
				t.Errorf("%s: expected error type, got %s", name, e.Type())
			}
			if msg, _ := e.Message(g); msg != "m" {
				t.Errorf("%s: expected message m, got %q", name, msg)
			}
			if s, _ := e.ToString(g); s != name+": m" {
				t.Errorf("%s: unexpected string %q", name, s)
			}
			e.Release()
		}
	})
}

func TestConversions(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		obj := eval(t, g, "({a: 1, b: [true, null]})")
		defer obj.Release()
		if s, err := obj.ToJSON(g); err != nil || s != `{"a":1,"b":[true,null]}` {
			t.Errorf("unexpected JSON %q %v", s, err)
		}
		undef, _ := Undefined(g)
		defer undef.Release()
		if s, _ := undef.ToJSON(g); s != "undefined" {
			t.Errorf("expected undefined, got %q", s)
		}

		f, _ := NewNumberFromFloat(g, 2.5)
		defer f.Release()
		if d, _ := f.ToDouble(g); d != 2.5 {
			t.Errorf("expected 2.5, got %v", d)
		}
		if i, _ := f.ToInteger(g); i != 2 {
			t.Errorf("expected truncation to 2, got %d", i)
		}
		if s := f.String(); s != "2.5" {
			t.Errorf("expected debug string 2.5, got %q", s)
		}

		one, _ := NewNumber(g, 1)
		defer one.Release()
		str, _ := NewString(g, "1")
		defer str.Release()
		if eq, _ := one.Equals(g, str.Value); !eq {
			t.Error("expected 1 == '1'")
		}
		if eq, _ := one.StrictEquals(g, str.Value); eq {
			t.Error("expected 1 !== '1'")
		}
		if text, _ := str.Text(); text != "1" {
			t.Errorf("expected text 1, got %q", text)
		}

		empty, _ := NewString(g, "")
		defer empty.Release()
		if b, _ := empty.ToBool(g); b {
			t.Error("expected empty string to be falsy")
		}
		tr, _ := True(g)
		defer tr.Release()
		if b, _ := tr.Bool(); !b {
			t.Error("expected true")
		}
	})
}

func TestReleaseSwitchesContext(t *testing.T) {
	rt := newTestRuntime(t, NewBuilder())
	a := newTestContext(t, rt)
	b := newTestContext(t, rt)

	ga, _ := a.MakeCurrent()
	v, err := NewObject(ga)
	if err != nil {
		t.Fatal(err)
	}
	ga.Exit()

	gb, _ := b.MakeCurrent()
	v.Release()
	if !currentIs(b) {
		t.Error("release changed the current context")
	}
	gb.Exit()

	// No context current at all.
	ga, _ = a.MakeCurrent()
	w, _ := NewObject(ga)
	ga.Exit()
	w.Release()
	if _, ok := PeekCurrent(); ok {
		t.Error("release left a context current")
	}
}

func TestContextCollection(t *testing.T) {
	rt := newTestRuntime(t, NewBuilder())
	keep := newTestContext(t, rt)
	gone := newTestContext(t, rt)

	clone := gone.Clone()
	if !clone.Equal(gone) || clone.Runtime() != rt {
		t.Fatal("expected clone to refer to the same context")
	}
	clone.Release()
	gone.Release()

	err := keep.Exec(func(g *ContextGuard) error {
		return g.Runtime().Collect()
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gone.MakeCurrent(); !stderrors.Is(err, errors.Disposed(errors.PhaseContext, "context")) {
		t.Errorf("expected a disposed error, got %v", err)
	}
}

func TestDispose(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatal(err)
	}
	ctx := newTestContext(t, rt)
	g, _ := ctx.MakeCurrent()
	v, _ := NewString(g, "outlives")

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected dispose of a runtime in use to panic")
			}
		}()
		rt.Dispose()
	}()

	g.Exit()
	rt.Dispose()
	rt.Dispose()

	v.Release()
	ctx.Release()
	if _, err := ctx.MakeCurrent(); !stderrors.Is(err, errors.Disposed(errors.PhaseContext, "")) {
		t.Errorf("expected disposed context, got %v", err)
	}
	if _, err := NewContext(rt); err == nil {
		t.Error("expected NewContext on a disposed runtime to fail")
	}
}

func TestBoxesAreFreed(t *testing.T) {
	before := liveBoxes()

	collected := 0
	rt, err := NewBuilder().CollectCallback(func() { collected++ }).Build()
	if err != nil {
		t.Fatal(err)
	}
	ctx := newTestContext(t, rt)
	err = ctx.Exec(func(g *ContextGuard) error {
		fn, err := NewFunction(g, func(*ContextGuard, *CallbackInfo) (Value, error) { return Value{}, nil })
		if err != nil {
			return err
		}
		setGlobal(t, g, "fn", fn.Value)
		if err := fn.SetCollectCallback(g, func() {}); !stderrors.Is(err, errors.Unsupported(errors.PhaseValue, "")) {
			t.Errorf("expected unsupported for functions, got %v", err)
		}
		fn.Release()

		ext, err := NewExternal(g, "data")
		if err != nil {
			return err
		}
		ext.Release()

		obj, _ := NewObject(g)
		if err := obj.SetCollectCallback(g, func() {}); err != nil {
			return err
		}
		obj.Release()
		return g.Runtime().Collect()
	})
	if err != nil {
		t.Fatal(err)
	}
	if collected == 0 {
		t.Error("expected the runtime collect callback to fire")
	}

	rt.Dispose()
	if after := liveBoxes(); after != before {
		t.Errorf("expected %d live boxes after dispose, got %d", before, after)
	}
}

func TestMemoryLimit(t *testing.T) {
	rt := newTestRuntime(t, NewBuilder().MemoryLimit(1<<20))
	if limit, err := rt.MemoryLimit(); err != nil || limit != 1<<20 {
		t.Fatalf("expected 1MiB limit, got %d %v", limit, err)
	}
	ctx := newTestContext(t, rt)
	err := ctx.Exec(func(g *ContextGuard) error {
		usage, err := rt.MemoryUsage()
		if err != nil {
			return err
		}
		if usage == 0 {
			t.Error("expected non-zero usage")
		}
		_, err = NewString(g, strings.Repeat("x", 2<<20))
		if errors.CodeOf(err) != jsrt.OutOfMemory {
			t.Errorf("expected OutOfMemory, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGoroutineTransfer(t *testing.T) {
	rt := newTestRuntime(t, NewBuilder())
	ctx := newTestContext(t, rt)

	g, _ := ctx.MakeCurrent()
	v := eval(t, g, "var shared = 20; shared")
	v.Release()

	var wg sync.WaitGroup
	var busyErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, busyErr = ctx.MakeCurrent()
	}()
	wg.Wait()
	if errors.CodeOf(busyErr) != jsrt.WrongThread {
		t.Errorf("expected WrongThread while in use, got %v", busyErr)
	}
	g.Exit()

	var got int32
	var moveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		moveErr = ctx.Exec(func(g *ContextGuard) error {
			v, err := Eval(g, "shared + 1")
			if err != nil {
				return err
			}
			defer v.Release()
			got, err = v.ToInteger(g)
			return err
		})
	}()
	wg.Wait()
	if moveErr != nil {
		t.Fatal(moveErr)
	}
	if got != 21 {
		t.Errorf("expected 21, got %d", got)
	}
}

func TestExecutionControl(t *testing.T) {
	withContext(t, NewBuilder().AllowScriptInterrupt(), func(g *ContextGuard) {
		rt := g.Runtime()
		if err := rt.DisableExecution(); err != nil {
			t.Fatal(err)
		}
		if disabled, err := rt.IsExecutionDisabled(); err != nil || !disabled {
			t.Fatalf("expected execution disabled, got %v %v", disabled, err)
		}
		if _, err := Eval(g, "1"); errors.CodeOf(err) != jsrt.InDisabledState {
			t.Errorf("expected InDisabledState, got %v", err)
		}
		if err := rt.EnableExecution(); err != nil {
			t.Fatal(err)
		}
		if n := evalInt(t, g, "2"); n != 2 {
			t.Errorf("expected 2, got %d", n)
		}
	})
}

func TestExecutionStateOfDisposedRuntime(t *testing.T) {
	rt, err := NewBuilder().AllowScriptInterrupt().Build()
	if err != nil {
		t.Fatal(err)
	}
	rt.Dispose()
	if _, err := rt.IsExecutionDisabled(); errors.CodeOf(err) != jsrt.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestEvalContext(t *testing.T) {
	withContext(t, NewBuilder(), func(g *ContextGuard) {
		_, err := EvalContext(context.Background(), g, "1")
		if !stderrors.Is(err, errors.Unsupported(errors.PhaseScript, "")) {
			t.Errorf("expected unsupported without script interrupt, got %v", err)
		}
	})

	withContext(t, NewBuilder().AllowScriptInterrupt(), func(g *ContextGuard) {
		v, err := EvalContext(context.Background(), g, "6 * 7")
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := v.ToInteger(g); n != 42 {
			t.Errorf("expected 42, got %d", n)
		}
		v.Release()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = EvalContext(ctx, g, "for (;;) {}")
		if errors.CodeOf(err) != jsrt.ScriptTerminated {
			t.Fatalf("expected ScriptTerminated, got %v", err)
		}
		if !stderrors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded cause, got %v", err)
		}
		if disabled, _ := g.Runtime().IsExecutionDisabled(); disabled {
			t.Error("expected execution to be enabled again")
		}
		if n := evalInt(t, g, "1 + 1"); n != 2 {
			t.Errorf("expected 2, got %d", n)
		}
		// The deadline fired after the script had already completed.
		v = eval(t, g, "'done'")
		if err := g.Runtime().DisableExecution(); err != nil {
			t.Fatal(err)
		}
		v, err = afterInterrupt(g.Runtime(), v, nil, context.DeadlineExceeded)
		if err != nil {
			t.Fatalf("expected the completed result, got %v", err)
		}
		if s, _ := v.ToString(g); s != "done" {
			t.Errorf("expected done, got %q", s)
		}
		v.Release()
		if disabled, _ := g.Runtime().IsExecutionDisabled(); disabled {
			t.Error("expected execution to be enabled again")
		}
	})
}
