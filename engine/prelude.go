package engine

import (
	"strconv"

	"github.com/dop251/goja"
)

// preludeSource installs the promise continuation hook and returns the
// helpers the engine calls directly. It runs once per context, before any
// user code, so the captured builtins are the pristine ones.
const preludeSource = `(function(enqueue) {
	'use strict';
	var R = Reflect, P = Promise, apply = R.apply, origThen = P.prototype.then;
	var defineProperty = Object.defineProperty;

	// settle runs one reaction and settles the derived promise with its
	// outcome. It never returns a promise, so a task queues nothing beyond
	// the reactions of whatever it settles.
	function settle(fn, arg, fulfilled, resolve, reject) {
		if (typeof fn !== 'function') {
			(fulfilled ? resolve : reject)(arg);
			return;
		}
		var result;
		try {
			result = fn(arg);
		} catch (e) {
			reject(e);
			return;
		}
		resolve(result);
	}

	defineProperty(P.prototype, 'then', {
		value: function then(onFulfilled, onRejected) {
			var resolve, reject;
			var derived = new P(function(a, b) { resolve = a; reject = b; });
			apply(origThen, this, [
				function(value) {
					enqueue(function() { settle(onFulfilled, value, true, resolve, reject); });
				},
				function(reason) {
					enqueue(function() { settle(onRejected, reason, false, resolve, reject); });
				}
			]);
			return derived;
		},
		writable: true,
		configurable: true
	});

	return {
		wrap: function(fn, name) {
			var f = function() {
				return fn(new.target !== undefined, this, f, ...arguments);
			};
			defineProperty(f, 'name', { value: name, configurable: true });
			return f;
		},
		newPromise: function() {
			var res, rej;
			var p = new P(function(a, b) { res = a; rej = b; });
			return [p, res, rej];
		},
		disableEval: function(global, message) {
			var EE = EvalError, F = Function;
			var deny = function Function() { throw new EE(message); };
			deny.prototype = F.prototype;
			defineProperty(F.prototype, 'constructor', { value: deny, writable: true, configurable: true });
			defineProperty(global, 'Function', { value: deny, writable: true, configurable: true });
			defineProperty(global, 'eval', {
				value: function() { throw new EE(message); },
				writable: true,
				configurable: true
			});
		},
		get: R.get,
		set: R.set,
		has: R.has,
		deleteProperty: R.deleteProperty,
		defineProperty: R.defineProperty,
		getPrototypeOf: R.getPrototypeOf,
		setPrototypeOf: R.setPrototypeOf,
		isExtensible: R.isExtensible,
		preventExtensions: R.preventExtensions,
		ownKeys: Object.getOwnPropertyNames,
		isView: ArrayBuffer.isView,
		DataView: DataView,
		stringify: JSON.stringify,
		errors: [Error, RangeError, ReferenceError, SyntaxError, TypeError, URIError]
	};
})`

var preludeProgram = goja.MustCompile("prelude.js", preludeSource, true)

// Error constructor slots in helpers.errors.
const (
	errorPlain = iota
	errorRange
	errorReference
	errorSyntax
	errorType
	errorURI
)

// helpers are builtins captured from a fresh context.
type helpers struct {
	wrap              goja.Callable
	newPromise        goja.Callable
	disableEval       goja.Callable
	get               goja.Callable
	set               goja.Callable
	has               goja.Callable
	deleteProperty    goja.Callable
	defineProperty    goja.Callable
	getPrototypeOf    goja.Callable
	setPrototypeOf    goja.Callable
	isExtensible      goja.Callable
	preventExtensions goja.Callable
	ownKeys           goja.Callable
	isView            goja.Callable
	stringify         goja.Callable
	dataView          *goja.Object
	promise           *goja.Object
	errors            [6]*goja.Object
}

func loadHelpers(vm *goja.Runtime, enqueue func(goja.FunctionCall) goja.Value) (*helpers, error) {
	factory, err := vm.RunProgram(preludeProgram)
	if err != nil {
		return nil, err
	}
	install, _ := goja.AssertFunction(factory)
	res, err := install(goja.Undefined(), vm.ToValue(enqueue))
	if err != nil {
		return nil, err
	}

	obj := res.ToObject(vm)
	fn := func(name string) goja.Callable {
		f, ok := goja.AssertFunction(obj.Get(name))
		if !ok {
			panic("prelude: missing helper " + name)
		}
		return f
	}

	h := &helpers{
		wrap:              fn("wrap"),
		newPromise:        fn("newPromise"),
		disableEval:       fn("disableEval"),
		get:               fn("get"),
		set:               fn("set"),
		has:               fn("has"),
		deleteProperty:    fn("deleteProperty"),
		defineProperty:    fn("defineProperty"),
		getPrototypeOf:    fn("getPrototypeOf"),
		setPrototypeOf:    fn("setPrototypeOf"),
		isExtensible:      fn("isExtensible"),
		preventExtensions: fn("preventExtensions"),
		ownKeys:           fn("ownKeys"),
		isView:            fn("isView"),
		stringify:         fn("stringify"),
		dataView:          obj.Get("DataView").ToObject(vm),
		promise:           vm.Get("Promise").ToObject(vm),
	}
	ctors := obj.Get("errors").ToObject(vm)
	for i := range h.errors {
		h.errors[i] = ctors.Get(strconv.Itoa(i)).ToObject(vm)
	}
	return h, nil
}
