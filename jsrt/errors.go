package jsrt

import "fmt"

// ErrorCode is the status returned by every hosting API entry point.
type ErrorCode uint32

const (
	NoError ErrorCode = 0

	CategoryUsage ErrorCode = 0x10000
)

const (
	InvalidArgument ErrorCode = CategoryUsage + 1 + iota
	NullArgument
	NoCurrentContext
	InExceptionState
	NotImplemented
	WrongThread
	RuntimeInUse
	BadSerializedScript
	InDisabledState
	CannotDisableExecution
	HeapEnumInProgress
	ArgumentNotObject
	InProfileCallback
	InThreadServiceCallback
	CannotSerializeDebugScript
	AlreadyDebuggingContext
	AlreadyProfilingContext
	IdleNotEnabled
	CannotSetProjectionEnqueueCallback
	CannotStartProjection
	InObjectBeforeCollectCallback
	ObjectNotInspectable
	PropertyNotSymbol
	PropertyNotString
	InvalidContext
	InvalidModuleHostInfoKind
	ModuleParsed
	ModuleEvaluated
)

const (
	CategoryEngine ErrorCode = 0x20000
	OutOfMemory    ErrorCode = CategoryEngine + 1
	BadFPUState    ErrorCode = CategoryEngine + 2
)

const (
	CategoryScript     ErrorCode = 0x30000
	ScriptException    ErrorCode = CategoryScript + 1
	ScriptCompile      ErrorCode = CategoryScript + 2
	ScriptTerminated   ErrorCode = CategoryScript + 3
	ScriptEvalDisabled ErrorCode = CategoryScript + 4
)

const (
	CategoryFatal ErrorCode = 0x40000
	Fatal         ErrorCode = CategoryFatal + 1
	WrongRuntime  ErrorCode = CategoryFatal + 2
)

const (
	CategoryDiagError         ErrorCode = 0x50000
	DiagAlreadyInDebugMode    ErrorCode = CategoryDiagError + 1
	DiagNotInDebugMode        ErrorCode = CategoryDiagError + 2
	DiagNotAtBreak            ErrorCode = CategoryDiagError + 3
	DiagInvalidHandle         ErrorCode = CategoryDiagError + 4
	DiagObjectNotFound        ErrorCode = CategoryDiagError + 5
	DiagUnableToPerformAction ErrorCode = CategoryDiagError + 6
)

var codeNames = map[ErrorCode]string{
	NoError:                            "NoError",
	InvalidArgument:                    "InvalidArgument",
	NullArgument:                       "NullArgument",
	NoCurrentContext:                   "NoCurrentContext",
	InExceptionState:                   "InExceptionState",
	NotImplemented:                     "NotImplemented",
	WrongThread:                        "WrongThread",
	RuntimeInUse:                       "RuntimeInUse",
	BadSerializedScript:                "BadSerializedScript",
	InDisabledState:                    "InDisabledState",
	CannotDisableExecution:             "CannotDisableExecution",
	HeapEnumInProgress:                 "HeapEnumInProgress",
	ArgumentNotObject:                  "ArgumentNotObject",
	InProfileCallback:                  "InProfileCallback",
	InThreadServiceCallback:            "InThreadServiceCallback",
	CannotSerializeDebugScript:         "CannotSerializeDebugScript",
	AlreadyDebuggingContext:            "AlreadyDebuggingContext",
	AlreadyProfilingContext:            "AlreadyProfilingContext",
	IdleNotEnabled:                     "IdleNotEnabled",
	CannotSetProjectionEnqueueCallback: "CannotSetProjectionEnqueueCallback",
	CannotStartProjection:              "CannotStartProjection",
	InObjectBeforeCollectCallback:      "InObjectBeforeCollectCallback",
	ObjectNotInspectable:               "ObjectNotInspectable",
	PropertyNotSymbol:                  "PropertyNotSymbol",
	PropertyNotString:                  "PropertyNotString",
	InvalidContext:                     "InvalidContext",
	InvalidModuleHostInfoKind:          "InvalidModuleHostInfoKind",
	ModuleParsed:                       "ModuleParsed",
	ModuleEvaluated:                    "ModuleEvaluated",
	OutOfMemory:                        "OutOfMemory",
	BadFPUState:                        "BadFPUState",
	ScriptException:                    "ScriptException",
	ScriptCompile:                      "ScriptCompile",
	ScriptTerminated:                   "ScriptTerminated",
	ScriptEvalDisabled:                 "ScriptEvalDisabled",
	Fatal:                              "Fatal",
	WrongRuntime:                       "WrongRuntime",
	DiagAlreadyInDebugMode:             "DiagAlreadyInDebugMode",
	DiagNotInDebugMode:                 "DiagNotInDebugMode",
	DiagNotAtBreak:                     "DiagNotAtBreak",
	DiagInvalidHandle:                  "DiagInvalidHandle",
	DiagObjectNotFound:                 "DiagObjectNotFound",
	DiagUnableToPerformAction:          "DiagUnableToPerformAction",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(0x%x)", uint32(c))
}

// Category returns the category base the code belongs to.
func (c ErrorCode) Category() ErrorCode {
	return c & 0xFFFF0000
}

// IsScript reports whether the code is a script category failure.
func (c ErrorCode) IsScript() bool {
	return c.Category() == CategoryScript
}
