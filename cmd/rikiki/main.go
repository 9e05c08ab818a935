package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/rikiki/engine"
	"github.com/wippyai/rikiki/runtime"
	"github.com/wippyai/rikiki/slab"
	"github.com/wippyai/rikiki/wasmext"
)

func main() {
	var (
		script      = flag.String("script", "", "Load and evaluate a source file, then exit")
		expr        = flag.String("e", "", "Evaluate an expression and print the result")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		debugLog    = flag.Bool("debug", false, "Enable development logging on stderr")
		slabSize    = flag.Int("slab", slab.DefaultCapacity, "Arena capacity in cells")
		maxDepth    = flag.Int("depth", 0, "Maximum evaluation depth (0 = default)")
		exts        = flag.String("ext", "", "WASM extensions (comma-separated .wasm paths, each with a .wit beside it)")
		bare        = flag.Bool("bare", false, "Skip the default library")
	)
	flag.Parse()

	log := zap.NewNop()
	if *debugLog {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log = l
		engine.SetLogger(l)
	}
	defer log.Sync()

	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	useREPL := *interactive || (*script == "" && *expr == "" && stdinTTY)

	cfg := &runtime.Config{
		Logger:   log,
		MaxDepth: *maxDepth,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Bare:     *bare,
	}
	// The REPL owns the terminal; program output is collected and shown
	// in its transcript.
	var transcript *bytes.Buffer
	if useREPL {
		transcript = &bytes.Buffer{}
		cfg.Stdout = transcript
		cfg.Stderr = transcript
		cfg.Stdin = strings.NewReader("")
	}

	for _, path := range splitList(*exts) {
		ext, err := wasmext.Open(path, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Modules = append(cfg.Modules, ext)
	}

	if err := run(cfg, *slabSize, *script, *expr, useREPL, transcript); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *runtime.Config, slabSize int, script, expr string, repl bool, transcript *bytes.Buffer) error {
	ctx := context.Background()

	s := slab.New(slabSize)
	defer s.Close()

	rt, err := runtime.Open(ctx, s, cfg)
	if err != nil {
		return fmt.Errorf("open runtime: %w", err)
	}
	defer rt.Close(ctx)

	if script != "" {
		v, err := rt.LoadFile(ctx, script)
		if err != nil {
			return err
		}
		v.Release()
	}

	if expr != "" {
		if err := evalAndPrint(ctx, rt, cfg.Stdout, expr); err != nil {
			return err
		}
	}

	switch {
	case repl:
		return runInteractive(rt, transcript)
	case script == "" && expr == "":
		// Piped program on stdin.
		v, err := rt.LoadReader(ctx, "stdin", cfg.Stdin)
		if err != nil {
			return err
		}
		v.Release()
	}
	return nil
}

func evalAndPrint(ctx context.Context, rt *runtime.Runtime, w io.Writer, src string) error {
	v, err := rt.EvalString(ctx, src)
	if err != nil {
		return err
	}
	defer v.Release()
	out, err := rt.Sprint(v.Borrow())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
