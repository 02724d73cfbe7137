package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsruntime "github.com/wippyai/js-runtime"
	"github.com/wippyai/js-runtime/errors"
	"github.com/wippyai/js-runtime/jsrt"
	"go.uber.org/zap/zapcore"
)

func TestParse(t *testing.T) {
	data := []byte(`
runtime:
  memory_limit: 1048576
  disable_eval: true
  allow_script_interrupt: true
script:
  timeout: 250ms
  drain_tasks: false
log:
  level: debug
`)
	cfg, err := Parse(data, "test.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Runtime.MemoryLimit != 1<<20 {
		t.Errorf("expected 1MiB, got %d", cfg.Runtime.MemoryLimit)
	}
	if cfg.Script.Timeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Script.Timeout)
	}
	if *cfg.Script.DrainTasks {
		t.Error("expected drain_tasks false")
	}
	if cfg.Log.ZapLevel() != zapcore.DebugLevel {
		t.Errorf("expected debug, got %v", cfg.Log.ZapLevel())
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("runtime: {}\n"), "empty.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Script.DrainTasks == nil || !*cfg.Script.DrainTasks {
		t.Error("expected drain_tasks to default to true")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected info, got %q", cfg.Log.Level)
	}
	if d := Default(); d.Log.Level != "info" || !*d.Script.DrainTasks {
		t.Errorf("unexpected defaults %+v", d)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative timeout", "runtime: {allow_script_interrupt: true}\nscript: {timeout: -1s}\n"},
		{"timeout without interrupt", "script: {timeout: 1s}\n"},
		{"bad level", "log: {level: loud}\n"},
		{"bad yaml", "runtime: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "bad.yaml")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !stderrors.Is(err, errors.InvalidInput(errors.PhaseConfig, "")) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsrun.yaml")
	if err := os.WriteFile(path, []byte("runtime:\n  enable_idle_processing: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Runtime.EnableIdleProcessing {
		t.Error("expected idle processing")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestApply(t *testing.T) {
	r := Runtime{
		MemoryLimit:          1 << 20,
		DisableEval:          true,
		AllowScriptInterrupt: true,
	}
	rt, err := r.Apply(jsruntime.NewBuilder()).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Dispose()

	want := jsrt.AttributeDisableEval | jsrt.AttributeAllowScriptInterrupt
	if got := rt.Attributes(); got != want {
		t.Errorf("expected attributes %b, got %b", want, got)
	}
	if limit, _ := rt.MemoryLimit(); limit != 1<<20 {
		t.Errorf("expected 1MiB limit, got %d", limit)
	}
}
