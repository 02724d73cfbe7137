// Package config loads runtime settings from YAML.
//
// A file looks like:
//
//	runtime:
//	  memory_limit: 67108864
//	  disable_eval: true
//	  allow_script_interrupt: true
//	script:
//	  timeout: 5s
//	  drain_tasks: true
//	log:
//	  level: debug
//
// Apply copies the runtime section onto a jsruntime.Builder.
package config

import (
	"fmt"
	"os"
	"time"

	jsruntime "github.com/wippyai/js-runtime"
	"github.com/wippyai/js-runtime/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the top level configuration file.
type Config struct {
	Runtime Runtime `yaml:"runtime"`
	Script  Script  `yaml:"script"`
	Log     Log     `yaml:"log"`
}

// Runtime mirrors the Builder options.
type Runtime struct {
	// MemoryLimit caps the heap in bytes. Zero is unlimited.
	MemoryLimit uint64 `yaml:"memory_limit,omitempty"`

	DisableBackgroundWork       bool `yaml:"disable_background_work,omitempty"`
	AllowScriptInterrupt        bool `yaml:"allow_script_interrupt,omitempty"`
	EnableIdleProcessing        bool `yaml:"enable_idle_processing,omitempty"`
	DisableNativeCodeGeneration bool `yaml:"disable_native_code_generation,omitempty"`
	DisableEval                 bool `yaml:"disable_eval,omitempty"`
	EnableExperimentalFeatures  bool `yaml:"enable_experimental_features,omitempty"`
	DispatchSetExceptions       bool `yaml:"dispatch_set_exceptions,omitempty"`
}

// Script controls how the CLI runs scripts.
type Script struct {
	// Timeout terminates a script that runs longer. It needs
	// runtime.allow_script_interrupt.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// DrainTasks runs promise continuations after each script.
	// Defaults to true.
	DrainTasks *bool `yaml:"drain_tasks,omitempty"`
}

// Log selects the logger.
type Log struct {
	// Level is a zap level name. Defaults to "info".
	Level string `yaml:"level,omitempty"`

	// Development selects the human readable encoder.
	Development bool `yaml:"development,omitempty"`
}

// LoadFile reads and parses a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "reading "+path)
	}
	return Parse(data, path)
}

// Parse parses configuration content. path is used in error messages.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parsing "+path)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) validate(path string) error {
	if c.Script.Timeout < 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("%s: script.timeout must not be negative", path))
	}
	if c.Script.Timeout > 0 && !c.Runtime.AllowScriptInterrupt {
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("%s: script.timeout needs runtime.allow_script_interrupt", path))
	}
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, path+": log.level")
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Script.DrainTasks == nil {
		drain := true
		c.Script.DrainTasks = &drain
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Apply copies the runtime settings onto b.
func (r Runtime) Apply(b *jsruntime.Builder) *jsruntime.Builder {
	if r.DisableBackgroundWork {
		b.DisableBackgroundWork()
	}
	if r.AllowScriptInterrupt {
		b.AllowScriptInterrupt()
	}
	if r.EnableIdleProcessing {
		b.EnableIdleProcessing()
	}
	if r.DisableNativeCodeGeneration {
		b.DisableNativeCodeGeneration()
	}
	if r.DisableEval {
		b.DisableEval()
	}
	if r.EnableExperimentalFeatures {
		b.EnableExperimentalFeatures()
	}
	if r.DispatchSetExceptions {
		b.DispatchSetExceptionsToDebugger()
	}
	return b.MemoryLimit(r.MemoryLimit)
}

// ZapLevel returns the parsed log level.
func (l Log) ZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
