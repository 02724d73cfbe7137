package jsrt

// Ref is an opaque handle to an engine object: a context, a value or a
// property id. The zero Ref is the invalid sentinel. A Ref owns nothing;
// lifetime is managed with API.AddRef and API.Release.
type Ref uintptr

// Invalid is the null Ref.
const Invalid Ref = 0

// IsValid reports whether r is not the null sentinel.
func (r Ref) IsValid() bool { return r != Invalid }

// RuntimeHandle is an opaque handle to an isolated engine runtime.
type RuntimeHandle uintptr

// SourceContext is a host chosen cookie identifying a script source.
type SourceContext uintptr

// ValueType is the engine type tag of a value.
type ValueType int

const (
	Undefined ValueType = iota
	Null
	Number
	String
	Boolean
	Object
	Function
	Error
	Array
	Symbol
	ArrayBuffer
	TypedArray
	DataView
)

var valueTypeNames = [...]string{
	Undefined:   "undefined",
	Null:        "null",
	Number:      "number",
	String:      "string",
	Boolean:     "boolean",
	Object:      "object",
	Function:    "function",
	Error:       "error",
	Array:       "array",
	Symbol:      "symbol",
	ArrayBuffer: "arraybuffer",
	TypedArray:  "typedarray",
	DataView:    "dataview",
}

func (t ValueType) String() string {
	if t >= 0 && int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// IsObject reports whether the tag belongs to the object family.
func (t ValueType) IsObject() bool {
	switch t {
	case Object, Function, Error, Array, ArrayBuffer, TypedArray, DataView:
		return true
	}
	return false
}

// RuntimeAttributes are fixed when a runtime is created.
type RuntimeAttributes uint32

const (
	AttributeNone                  RuntimeAttributes = 0
	AttributeDisableBackgroundWork RuntimeAttributes = 1 << 0
	AttributeAllowScriptInterrupt  RuntimeAttributes = 1 << 1
	AttributeEnableIdleProcessing  RuntimeAttributes = 1 << 2
	AttributeDisableNativeCodeGen  RuntimeAttributes = 1 << 3
	AttributeDisableEval           RuntimeAttributes = 1 << 4
	AttributeEnableExperimental    RuntimeAttributes = 1 << 5
	AttributeDispatchSetExceptions RuntimeAttributes = 1 << 6
)

// Has reports whether every bit of flag is set.
func (a RuntimeAttributes) Has(flag RuntimeAttributes) bool {
	return a&flag == flag
}

// NativeFunction is invoked when script calls a host function. args[0] is
// the this value. state is the opaque word passed at creation.
type NativeFunction func(callee Ref, isConstructCall bool, args []Ref, state uintptr) Ref

// BeforeCollectCallback fires once, before the engine reclaims ref.
type BeforeCollectCallback func(ref Ref, state uintptr)

// FinalizeCallback fires once, when an external object is reclaimed.
type FinalizeCallback func(data uintptr)

// PromiseContinuationCallback receives each promise reaction task. The host
// owns scheduling: the task is a function to call with no arguments.
type PromiseContinuationCallback func(task Ref, state uintptr)

// RuntimeBeforeCollectCallback fires at the start of every collection.
type RuntimeBeforeCollectCallback func(state uintptr)
