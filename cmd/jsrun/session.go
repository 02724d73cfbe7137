package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	jsruntime "github.com/wippyai/js-runtime"
	"github.com/wippyai/js-runtime/config"
)

// session is one runtime with one context and the host bindings installed.
type session struct {
	cfg *config.Config
	rt  *jsruntime.Runtime
	ctx *jsruntime.Context
	out io.Writer
}

func newSession(cfg *config.Config, out io.Writer) (*session, error) {
	rt, err := cfg.Runtime.Apply(jsruntime.NewBuilder()).Build()
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	ctx, err := jsruntime.NewContext(rt)
	if err != nil {
		rt.Dispose()
		return nil, fmt.Errorf("create context: %w", err)
	}
	s := &session{cfg: cfg, rt: rt, ctx: ctx, out: out}
	if err := ctx.Exec(s.installConsole); err != nil {
		s.Close()
		return nil, fmt.Errorf("install console: %w", err)
	}
	return s, nil
}

// installConsole defines print and console.log/info/warn/error.
func (s *session) installConsole(g *jsruntime.ContextGuard) error {
	global, err := g.Global()
	if err != nil {
		return err
	}
	defer global.Release()

	console, err := jsruntime.NewObject(g)
	if err != nil {
		return err
	}
	defer console.Release()

	for _, name := range []string{"log", "info", "warn", "error"} {
		if err := s.define(g, console, name, s.write); err != nil {
			return err
		}
	}
	if err := s.define(g, global, "print", s.write); err != nil {
		return err
	}
	return s.set(g, global, "console", console.Value)
}

func (s *session) define(g *jsruntime.ContextGuard, obj jsruntime.Object, name string, cb jsruntime.FunctionCallback) error {
	fn, err := jsruntime.NewNamedFunction(g, name, cb)
	if err != nil {
		return err
	}
	defer fn.Release()
	return s.set(g, obj, name, fn.Value)
}

func (s *session) set(g *jsruntime.ContextGuard, obj jsruntime.Object, name string, v jsruntime.Value) error {
	prop, err := jsruntime.NewProperty(g, name)
	if err != nil {
		return err
	}
	defer prop.Release()
	return obj.Set(g, prop, v)
}

func (s *session) write(g *jsruntime.ContextGuard, info *jsruntime.CallbackInfo) (jsruntime.Value, error) {
	parts := make([]string, 0, len(info.Arguments))
	for _, arg := range info.Arguments {
		parts = append(parts, format(g, arg))
	}
	fmt.Fprintln(s.out, strings.Join(parts, " "))
	return jsruntime.Value{}, nil
}

// eval runs code, drains promise continuations when configured and
// returns the formatted completion value. It may be called from any
// goroutine as long as calls do not overlap.
func (s *session) eval(ctx context.Context, code, name string) (string, error) {
	var out string
	err := s.ctx.Exec(func(g *jsruntime.ContextGuard) error {
		v, err := s.run(ctx, g, code, name)
		if err != nil {
			return err
		}
		defer v.Release()
		if *s.cfg.Script.DrainTasks {
			if err := g.ExecuteTasks(); err != nil {
				return err
			}
		}
		if !v.IsUndefined() {
			out = format(g, v)
		}
		return nil
	})
	return out, err
}

func (s *session) run(ctx context.Context, g *jsruntime.ContextGuard, code, name string) (jsruntime.Value, error) {
	if !s.cfg.Runtime.AllowScriptInterrupt {
		return jsruntime.EvalWithName(g, code, name)
	}
	if timeout := s.cfg.Script.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return jsruntime.EvalContextWithName(ctx, g, code, name)
}

// format renders v the way a console would: strings as is, plain data as
// JSON and everything else through its string conversion.
func format(g *jsruntime.ContextGuard, v jsruntime.Value) string {
	if v.IsString() {
		s, _ := v.ToString(g)
		return s
	}
	if v.IsObject() && !v.IsFunction() && !v.IsError() {
		if s, err := v.ToJSON(g); err == nil && s != "undefined" {
			return s
		}
	}
	s, err := v.ToString(g)
	if err != nil {
		return "<" + v.Type().String() + ">"
	}
	return s
}

func (s *session) Close() {
	s.ctx.Release()
	s.rt.Dispose()
}
