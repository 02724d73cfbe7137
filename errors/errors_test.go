package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/js-runtime/jsrt"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseValue,
				Kind:   KindCall,
				Op:     "GetProperty",
				Code:   jsrt.InvalidArgument,
				Detail: "property \"x\"",
			},
			contains: []string{"[value]", "call", "in GetProperty", "InvalidArgument", "property \"x\""},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseContext,
				Kind:  KindDisposed,
			},
			contains: []string{"[context]", "disposed"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindInvalidInput,
				Detail: "bad file",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[config]", "invalid_input", "bad file", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseScript,
		Kind:  KindScriptException,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseScript,
		Kind:   KindScriptException,
		Detail: "boom",
	}

	if !err.Is(&Error{Phase: PhaseScript, Kind: KindScriptException}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseCallback, Kind: KindScriptException}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseScript, Kind: KindScriptCompile}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("eval: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseScript, Kind: KindScriptException}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseValue, KindCall).
		Op("SetProperty").
		Code(jsrt.ArgumentNotObject).
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "object", "number").
		Build()

	if err.Phase != PhaseValue {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseValue)
	}
	if err.Kind != KindCall {
		t.Errorf("Kind = %v, want %v", err.Kind, KindCall)
	}
	if err.Op != "SetProperty" {
		t.Errorf("Op = %v, want SetProperty", err.Op)
	}
	if err.Code != jsrt.ArgumentNotObject {
		t.Errorf("Code = %v, want %v", err.Code, jsrt.ArgumentNotObject)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected object, got number" {
		t.Errorf("Detail = %v, want 'expected object, got number'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("ScriptException", func(t *testing.T) {
		err := ScriptException("Error: boom")
		if err.Kind != KindScriptException || err.Code != jsrt.ScriptException {
			t.Errorf("Kind=%v Code=%v", err.Kind, err.Code)
		}
		if err.Detail != "Error: boom" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("ScriptCompile", func(t *testing.T) {
		err := ScriptCompile("SyntaxError: Unexpected token")
		if err.Kind != KindScriptCompile || err.Code != jsrt.ScriptCompile {
			t.Errorf("Kind=%v Code=%v", err.Kind, err.Code)
		}
	})

	t.Run("Call", func(t *testing.T) {
		err := Call(PhaseContext, "SetCurrentContext", jsrt.WrongThread)
		if err.Kind != KindCall || err.Op != "SetCurrentContext" || err.Code != jsrt.WrongThread {
			t.Errorf("unexpected %+v", err)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseValue, "function", "number")
		if !strings.Contains(err.Detail, "function") || !strings.Contains(err.Detail, "number") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Disposed", func(t *testing.T) {
		err := Disposed(PhaseRuntime, "runtime")
		if err.Kind != KindDisposed {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDisposed)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseConfig, "file", "runtime.yaml")
		if !strings.Contains(err.Detail, "runtime.yaml") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("io")
		err := Wrap(PhaseConfig, KindInvalidInput, cause, "read config")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep the cause")
		}
	})
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		exception bool
		compile   bool
		code      jsrt.ErrorCode
	}{
		{"exception", ScriptException("x"), true, false, jsrt.ScriptException},
		{"compile", ScriptCompile("x"), false, true, jsrt.ScriptCompile},
		{"wrapped", fmt.Errorf("ctx: %w", ScriptException("x")), true, false, jsrt.ScriptException},
		{"call", Call(PhaseValue, "op", jsrt.OutOfMemory), false, false, jsrt.OutOfMemory},
		{"plain", errors.New("plain"), false, false, jsrt.NoError},
		{"nil", nil, false, false, jsrt.NoError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsScriptException(tt.err); got != tt.exception {
				t.Errorf("IsScriptException = %v, want %v", got, tt.exception)
			}
			if got := IsScriptCompile(tt.err); got != tt.compile {
				t.Errorf("IsScriptCompile = %v, want %v", got, tt.compile)
			}
			if got := CodeOf(tt.err); got != tt.code {
				t.Errorf("CodeOf = %v, want %v", got, tt.code)
			}
		})
	}
}
