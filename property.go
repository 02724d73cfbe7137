package jsruntime

import (
	"github.com/wippyai/js-runtime/errors"
)

// Property is an interned property key. The same name on the same runtime
// always yields the same engine id.
type Property struct {
	ref *reference
}

// NewProperty interns name.
func NewProperty(g *ContextGuard, name string) (Property, error) {
	raw, code := api.CreatePropertyID(name)
	if err := check(errors.PhaseValue, "CreatePropertyID", code); err != nil {
		return Property{}, err
	}
	return Property{ref: fromRaw(g.h, raw).ref}, nil
}

// Name returns the key's name.
func (p Property) Name() (string, error) {
	name, code := api.GetPropertyNameFromID(p.ref.raw)
	return name, check(errors.PhaseValue, "GetPropertyNameFromID", code)
}

// Equal reports whether p and other are the same interned key.
func (p Property) Equal(other Property) bool {
	return p.ref != nil && other.ref != nil && p.ref.raw == other.ref.raw
}

// Clone returns a new counted reference to the key.
func (p Property) Clone() Property {
	return Property{ref: p.ref.clone()}
}

// Release drops the reference.
func (p Property) Release() {
	p.ref.release()
}
