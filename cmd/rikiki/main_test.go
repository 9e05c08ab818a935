package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/rikiki/runtime"
)

func TestBalanced(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"(+ 1 2)", true},
		{"(def f (\\ (x)", false},
		{"(prinl \"(\")", true},
		{"(list #\\( 1)", true},
		{"(a ; (\n b)", true},
		{"\"open", false},
		{"())", true},
		{"", true},
	}
	for _, tt := range tests {
		if got := balanced(tt.src); got != tt.want {
			t.Errorf("balanced(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a.wasm, ,b.wasm ")
	if len(got) != 2 || got[0] != "a.wasm" || got[1] != "b.wasm" {
		t.Fatalf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Fatal("empty list should be nil")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "lib.l")
	if err := os.WriteFile(script, []byte("(def sq (\\ (x) (* x x)))\n(prinl '\"loaded\")"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cfg := &runtime.Config{Stdout: &out, Stdin: strings.NewReader("")}
	if err := run(cfg, 1<<14, script, "(sq 12)", false, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "loaded\n144\n" {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	cfg = &runtime.Config{Stdout: &out, Stdin: strings.NewReader("(prin (+ 40 2))")}
	if err := run(cfg, 1<<14, "", "", false, nil); err != nil {
		t.Fatalf("run from stdin: %v", err)
	}
	if out.String() != "42" {
		t.Fatalf("stdin output = %q", out.String())
	}

	if err := run(&runtime.Config{Stdout: &out}, 1<<14, "", "(car 1)", false, nil); err == nil {
		t.Fatal("expected eval error")
	}
}
