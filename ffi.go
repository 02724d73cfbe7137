package jsruntime

import (
	"github.com/wippyai/js-runtime/engine"
	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
)

// api is the hosting API every wrapper call goes through.
var api jsrt.API = engine.Default()

// check translates an engine status. Script failures take the pending
// exception off the current context so the engine stays usable.
func check(phase errors.Phase, op string, code jsrt.ErrorCode) error {
	switch code {
	case jsrt.NoError:
		return nil
	case jsrt.ScriptException, jsrt.ScriptCompile:
		msg, thrown := takeException()
		var err *errors.Error
		if code == jsrt.ScriptException {
			err = errors.ScriptException(msg)
		} else {
			err = errors.ScriptCompile(msg)
		}
		err.Op = op
		if thrown.ref != nil {
			err.Value = thrown
		}
		return err
	}
	return errors.Call(phase, op, code)
}

// takeException clears the pending exception and renders it as a string.
func takeException() (string, Value) {
	raw, code := api.GetAndClearException()
	if code != jsrt.NoError {
		return code.String(), Value{}
	}
	g, ok := PeekCurrent()
	if !ok {
		return "<exception>", Value{}
	}
	v := fromRaw(g.h, raw)

	str, code := api.ConvertValueToString(raw)
	if code != jsrt.NoError {
		// toString itself threw.
		api.GetAndClearException()
		return "<exception>", v
	}
	msg, code := api.CopyString(str)
	if code != jsrt.NoError {
		return "<exception>", v
	}
	return msg, v
}

// must panics on a status that indicates misuse rather than a script or
// call failure the caller could handle.
func must(op string, code jsrt.ErrorCode) {
	if code != jsrt.NoError {
		panic(errors.Call(errors.PhaseRuntime, op, code))
	}
}
