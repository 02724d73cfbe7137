package engine

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap"
)

// compile parses script, leaving a SyntaxError pending on failure.
func (e *Engine) compile(c *contextState, script, sourceURL string) (*goja.Program, jsrt.ErrorCode) {
	if code := e.enter(c); code != jsrt.NoError {
		return nil, code
	}
	if code := c.rt.reserve(entryOverhead + uint64(len(script))); code != jsrt.NoError {
		return nil, code
	}

	prg, err := goja.Compile(sourceURL, script, false)
	if err == nil {
		return prg, jsrt.NoError
	}

	msg := err.Error()
	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		msg = syntax.Message
		if syntax.File != nil {
			msg = fmt.Sprintf("%s (%s)", syntax.Message, syntax.File.Position(syntax.Offset))
		}
	}
	ex, nerr := c.vm.New(c.h.errors[errorSyntax], c.vm.ToValue(msg))
	if nerr != nil {
		return nil, jsrt.Fatal
	}
	c.rt.setException(c, ex)
	Logger().Debug("compile failed", zap.String("source", sourceURL), zap.String("error", msg))
	return nil, jsrt.ScriptCompile
}

// Run implements jsrt.API.
func (e *Engine) Run(script string, source jsrt.SourceContext, sourceURL string) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	prg, code := e.compile(c, script, sourceURL)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}

	Logger().Debug("run", zap.String("source", sourceURL), zap.Uintptr("cookie", uintptr(source)))
	res, code := e.exec(c, func() goja.Value {
		return must(c.vm.RunProgram(prg))
	})
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	return e.ref(c, res), jsrt.NoError
}

// Parse implements jsrt.API. The result is a function that runs the
// compiled script each time it is called.
func (e *Engine) Parse(script string, source jsrt.SourceContext, sourceURL string) (jsrt.Ref, jsrt.ErrorCode) {
	c, code := e.currentContext()
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}
	prg, code := e.compile(c, script, sourceURL)
	if code != jsrt.NoError {
		return jsrt.Invalid, code
	}

	fn := c.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return must(c.vm.RunProgram(prg))
	})
	return e.ref(c, fn), jsrt.NoError
}
