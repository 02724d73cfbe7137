package jsruntime

import (
	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ContextGuard proves a context is current on the calling goroutine. Every
// operation that creates or touches values takes one.
type ContextGuard struct {
	h       *contextHandle
	prev    jsrt.Ref
	restore bool
	exited  bool
}

// Exit restores the context that was current before MakeCurrent. Guards
// must exit in reverse order of creation; observing guards from
// PeekCurrent do nothing.
func (g *ContextGuard) Exit() {
	if g.exited {
		return
	}
	g.exited = true
	if !g.restore {
		return
	}

	cur, code := api.GetCurrentContext()
	must("GetCurrentContext", code)
	if cur != g.h.raw {
		panic("jsruntime: context guard exited out of order")
	}
	if code := api.SetCurrentContext(g.prev); code != jsrt.NoError {
		// The previous context is gone; leave none current.
		Logger().Warn("previous context unavailable", zap.Stringer("code", code))
		must("SetCurrentContext", api.SetCurrentContext(jsrt.Invalid))
	}
}

// Runtime returns the runtime of the guarded context.
func (g *ContextGuard) Runtime() *Runtime {
	return g.h.rt
}

// Global returns the global object of the guarded context.
func (g *ContextGuard) Global() (Object, error) {
	raw, code := api.GetGlobalObject()
	if err := check(errors.PhaseContext, "GetGlobalObject", code); err != nil {
		return Object{}, err
	}
	return Object{fromRaw(g.h, raw)}, nil
}

// PendingTasks returns the number of queued promise continuations.
func (g *ContextGuard) PendingTasks() int {
	return len(g.h.data.tasks)
}

// ExecuteTasks runs queued promise continuations in order until the queue
// is empty, including tasks queued while draining. Task failures do not
// stop the drain; they are returned together.
func (g *ContextGuard) ExecuteTasks() error {
	var errs error
	ran := 0
	for len(g.h.data.tasks) > 0 {
		task := g.h.data.tasks[0]
		g.h.data.tasks[0] = Value{}
		g.h.data.tasks = g.h.data.tasks[1:]

		undefined, code := api.GetUndefinedValue()
		if code == jsrt.NoError {
			_, code = api.CallFunction(task.raw(), []jsrt.Ref{undefined})
		}
		errs = multierr.Append(errs, check(errors.PhaseContext, "ExecuteTasks", code))
		task.Release()
		ran++
	}
	g.h.data.tasks = nil

	Logger().Debug("tasks drained", zap.Int("count", ran), zap.Int("failed", len(multierr.Errors(errs))))
	return errs
}

// promiseTrampoline queues a continuation on the context it belongs to.
func promiseTrampoline(task jsrt.Ref, state uintptr) {
	v, ok := boxes.get(state, kindContextBox)
	if !ok {
		return
	}
	h := v.(*contextHandle)
	h.data.tasks = append(h.data.tasks, fromRaw(h, task))
}
