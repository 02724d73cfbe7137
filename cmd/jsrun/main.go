package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	jsruntime "github.com/wippyai/js-runtime"
	"github.com/wippyai/js-runtime/config"
	"github.com/wippyai/js-runtime/engine"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	var (
		expr        = flag.String("e", "", "Expression to evaluate")
		file        = flag.String("f", "", "Script file to run")
		configPath  = flag.String("config", "", "Path to a YAML config file")
		timeout     = flag.Duration("timeout", 0, "Terminate scripts running longer than this")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()
	if *file == "" && flag.NArg() > 0 {
		*file = flag.Arg(0)
	}

	cfg, err := loadConfig(*configPath, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	jsruntime.SetLogger(logger.Named("jsruntime"))
	engine.SetLogger(logger.Named("engine"))

	if *interactive || (*expr == "" && *file == "" && term.IsTerminal(int(os.Stdin.Fd()))) {
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, *expr, *file); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string, timeout time.Duration) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if timeout > 0 {
		cfg.Script.Timeout = timeout
		cfg.Runtime.AllowScriptInterrupt = true
	}
	return cfg, nil
}

func newLogger(l config.Log, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level := l.ZapLevel()
	if verbose {
		level = zap.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(cfg *config.Config, expr, file string) error {
	code, name := expr, "<eval>"
	switch {
	case expr != "":
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		code, name = string(data), file
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		code, name = string(data), "<stdin>"
	}

	s, err := newSession(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.eval(context.Background(), code, name)
	if err != nil {
		return err
	}
	if out != "" && expr != "" {
		fmt.Println(out)
	}
	return nil
}
