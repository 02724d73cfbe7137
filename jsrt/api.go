package jsrt

// API is the complete set of hosting entry points. Calls that operate on
// values, objects or scripts use the calling thread's current context.
// Returned Refs are "stack" references: they stay valid until the next
// collection unless the host takes ownership with AddRef.
type API interface {
	// Runtime

	CreateRuntime(attrs RuntimeAttributes) (RuntimeHandle, ErrorCode)
	DisposeRuntime(rt RuntimeHandle) ErrorCode
	CollectGarbage(rt RuntimeHandle) ErrorCode
	GetRuntimeMemoryUsage(rt RuntimeHandle) (uint64, ErrorCode)
	GetRuntimeMemoryLimit(rt RuntimeHandle) (uint64, ErrorCode)
	SetRuntimeMemoryLimit(rt RuntimeHandle, limit uint64) ErrorCode
	SetRuntimeBeforeCollectCallback(rt RuntimeHandle, state uintptr, cb RuntimeBeforeCollectCallback) ErrorCode
	DisableRuntimeExecution(rt RuntimeHandle) ErrorCode
	EnableRuntimeExecution(rt RuntimeHandle) ErrorCode
	IsRuntimeExecutionDisabled(rt RuntimeHandle) (bool, ErrorCode)
	// Idle runs idle work and returns the tick count at which it should
	// next be called.
	Idle() (uint32, ErrorCode)
	// TickCount is the millisecond clock Idle schedules against.
	TickCount() uint32

	// Contexts

	CreateContext(rt RuntimeHandle) (Ref, ErrorCode)
	GetCurrentContext() (Ref, ErrorCode)
	// SetCurrentContext makes ctx current for the calling thread; Invalid
	// clears it.
	SetCurrentContext(ctx Ref) ErrorCode
	GetContextOfObject(obj Ref) (Ref, ErrorCode)
	GetContextData(ctx Ref) (uintptr, ErrorCode)
	SetContextData(ctx Ref, data uintptr) ErrorCode
	GetRuntime(ctx Ref) (RuntimeHandle, ErrorCode)
	SetPromiseContinuationCallback(cb PromiseContinuationCallback, state uintptr) ErrorCode
	GetGlobalObject() (Ref, ErrorCode)

	// References

	AddRef(ref Ref) (uint32, ErrorCode)
	Release(ref Ref) (uint32, ErrorCode)

	// Objects

	SetObjectBeforeCollectCallback(ref Ref, state uintptr, cb BeforeCollectCallback) ErrorCode
	CreateObject() (Ref, ErrorCode)
	CreateExternalObject(data uintptr, finalize FinalizeCallback) (Ref, ErrorCode)
	GetExternalData(obj Ref) (uintptr, ErrorCode)
	HasExternalData(obj Ref) (bool, ErrorCode)
	GetProperty(obj, id Ref) (Ref, ErrorCode)
	SetProperty(obj, id, value Ref, strict bool) ErrorCode
	HasProperty(obj, id Ref) (bool, ErrorCode)
	DeleteProperty(obj, id Ref, strict bool) (Ref, ErrorCode)
	GetIndexedProperty(obj, index Ref) (Ref, ErrorCode)
	SetIndexedProperty(obj, index, value Ref) ErrorCode
	HasIndexedProperty(obj, index Ref) (bool, ErrorCode)
	DeleteIndexedProperty(obj, index Ref) ErrorCode
	DefineProperty(obj, id, descriptor Ref) (bool, ErrorCode)
	GetOwnPropertyNames(obj Ref) (Ref, ErrorCode)
	GetPrototype(obj Ref) (Ref, ErrorCode)
	SetPrototype(obj, proto Ref) ErrorCode
	InstanceOf(obj, constructor Ref) (bool, ErrorCode)
	PreventExtension(obj Ref) ErrorCode
	GetExtensionAllowed(obj Ref) (bool, ErrorCode)

	// Property ids

	CreatePropertyID(name string) (Ref, ErrorCode)
	GetPropertyNameFromID(id Ref) (string, ErrorCode)

	// Values

	GetValueType(value Ref) (ValueType, ErrorCode)
	GetUndefinedValue() (Ref, ErrorCode)
	GetNullValue() (Ref, ErrorCode)
	GetTrueValue() (Ref, ErrorCode)
	GetFalseValue() (Ref, ErrorCode)
	BoolToBoolean(b bool) (Ref, ErrorCode)
	BooleanToBool(value Ref) (bool, ErrorCode)
	IntToNumber(n int32) (Ref, ErrorCode)
	DoubleToNumber(f float64) (Ref, ErrorCode)
	NumberToInt(value Ref) (int32, ErrorCode)
	NumberToDouble(value Ref) (float64, ErrorCode)
	CreateString(s string) (Ref, ErrorCode)
	CopyString(value Ref) (string, ErrorCode)
	ConvertValueToString(value Ref) (Ref, ErrorCode)
	ConvertValueToNumber(value Ref) (Ref, ErrorCode)
	ConvertValueToBoolean(value Ref) (Ref, ErrorCode)
	ConvertValueToObject(value Ref) (Ref, ErrorCode)
	Equals(a, b Ref) (bool, ErrorCode)
	StrictEquals(a, b Ref) (bool, ErrorCode)

	// Arrays and buffers

	CreateArray(length uint32) (Ref, ErrorCode)
	CreateArrayBuffer(length uint32) (Ref, ErrorCode)
	CreateExternalArrayBuffer(data []byte, finalize FinalizeCallback, state uintptr) (Ref, ErrorCode)
	// GetArrayBufferStorage returns the live backing store; writes are
	// visible to script.
	GetArrayBufferStorage(buffer Ref) ([]byte, ErrorCode)

	// Functions

	CreateFunction(native NativeFunction, state uintptr) (Ref, ErrorCode)
	CreateNamedFunction(name Ref, native NativeFunction, state uintptr) (Ref, ErrorCode)
	// CallFunction invokes fn; args[0] is the this value.
	CallFunction(fn Ref, args []Ref) (Ref, ErrorCode)
	ConstructObject(fn Ref, args []Ref) (Ref, ErrorCode)

	// Errors

	CreateError(message Ref) (Ref, ErrorCode)
	CreateRangeError(message Ref) (Ref, ErrorCode)
	CreateReferenceError(message Ref) (Ref, ErrorCode)
	CreateSyntaxError(message Ref) (Ref, ErrorCode)
	CreateTypeError(message Ref) (Ref, ErrorCode)
	CreateURIError(message Ref) (Ref, ErrorCode)
	HasException() (bool, ErrorCode)
	GetAndClearException() (Ref, ErrorCode)
	SetException(exception Ref) ErrorCode

	// Promises

	CreatePromise() (promise, resolve, reject Ref, code ErrorCode)

	// Scripts

	Run(script string, source SourceContext, sourceURL string) (Ref, ErrorCode)
	Parse(script string, source SourceContext, sourceURL string) (Ref, ErrorCode)
}
