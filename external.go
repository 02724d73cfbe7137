package jsruntime

import (
	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
)

// External is an Object carrying host data. The data is released when the
// engine reclaims the object; data implementing resource.Dropper has Drop
// called at that point.
type External struct{ Object }

// NewExternal creates an object that carries data.
func NewExternal(g *ContextGuard, data any) (External, error) {
	box := boxes.put(kindExternalBox, data)
	raw, code := api.CreateExternalObject(box, externalFinalizeTrampoline)
	if err := check(errors.PhaseValue, "CreateExternalObject", code); err != nil {
		boxes.take(box)
		return External{}, err
	}
	return External{Object{fromRaw(g.h, raw)}}, nil
}

// Data returns the host data.
func (e External) Data() (any, bool) {
	state, code := api.GetExternalData(e.raw())
	if code != jsrt.NoError {
		return nil, false
	}
	return boxes.get(state, kindExternalBox)
}

// ExternalData returns the host data of e as a T.
func ExternalData[T any](e External) (T, bool) {
	v, ok := e.Data()
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func externalFinalizeTrampoline(state uintptr) {
	boxes.take(state)
}
