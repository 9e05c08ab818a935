package wasmext_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/rikiki/engine"
	rerrors "github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/runtime"
	"github.com/wippyai/rikiki/slab"
	"github.com/wippyai/rikiki/wasmext"
)

// arithWasm exports add(i64, i64) i64, mul(i64, i64) i64 and inc(i32) i32.
var arithWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i64 i64) -> i64, (i32) -> i32
	0x01, 0x0c, 0x02,
	0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	// function section
	0x03, 0x04, 0x03, 0x00, 0x00, 0x01,
	// export section
	0x07, 0x13, 0x03,
	0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x03, 'm', 'u', 'l', 0x00, 0x01,
	0x03, 'i', 'n', 'c', 0x00, 0x02,
	// code section
	0x0a, 0x19, 0x03,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7c, 0x0b, // i64.add
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7e, 0x0b, // i64.mul
	0x07, 0x00, 0x20, 0x00, 0x41, 0x01, 0x6a, 0x0b, // i32.add 1
}

const arithWIT = `
package test:arith;

world arith {
	export add: func(a: s64, b: s64) -> s64;
	export mul: func(a: s64, b: s64) -> s64;
	export inc: func(x: s32) -> s32;
}
`

func open(t *testing.T, mods ...engine.Module) *runtime.Runtime {
	t.Helper()
	ctx := context.Background()
	s := slab.New(1 << 15)
	rt, err := runtime.Open(ctx, s, &runtime.Config{Modules: mods})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		rt.Close(ctx)
		if n := s.Len(); n != 0 {
			t.Errorf("leaked %d cells", n)
		}
		s.Close()
	})
	return rt
}

func eval(t *testing.T, rt *runtime.Runtime, src string) (string, error) {
	t.Helper()
	v, err := rt.EvalString(context.Background(), src)
	if err != nil {
		return "", err
	}
	defer v.Release()
	return rt.Sprint(v.Borrow())
}

func TestExtension_Calls(t *testing.T) {
	ext, err := wasmext.New("arith", arithWasm, arithWIT, nil)
	if err != nil {
		t.Fatal(err)
	}
	rt := open(t, ext)

	tests := []struct {
		src  string
		want string
	}{
		{"(add 40 2)", "42"},
		{"(mul 6 7)", "42"},
		{"(add -5 3)", "-2"},
		{"(inc 41)", "42"},
		{"(inc 2147483647)", "-2147483648"},
		{"(map (\\ (x) (mul x x)) '(1 2 3))", "(1 4 9)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := eval(t, rt, tt.src)
			if err != nil {
				t.Fatalf("eval %s: %v", tt.src, err)
			}
			if got != tt.want {
				t.Fatalf("eval %s = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestExtension_CallErrors(t *testing.T) {
	ext, err := wasmext.New("arith", arithWasm, arithWIT, nil)
	if err != nil {
		t.Fatal(err)
	}
	rt := open(t, ext)

	tests := []struct {
		src  string
		want *rerrors.Error
	}{
		{"(add 1)", rerrors.ErrArityMismatch},
		{"(add 1 'x)", rerrors.ErrTypeMismatch},
		{"(inc 3000000000)", rerrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if _, err := eval(t, rt, tt.src); !errors.Is(err, tt.want) {
				t.Fatalf("eval %s error = %v, want %s", tt.src, err, tt.want.Kind)
			}
		})
	}
}

func TestExtension_ScalarTypes(t *testing.T) {
	tests := []struct {
		name string
		wit  string
		src  string
		want string
	}{
		{"char", "inc: func(c: char) -> char;", `(inc #\a)`, `#\b`},
		{"bool from nil", "inc: func(b: bool) -> bool;", "(inc NIL)", "T"},
		{"bool from number", "inc: func(b: bool) -> bool;", "(inc 0)", "T"},
		{"u8", "inc: func(x: u8) -> u8;", "(inc 255)", "0"},
		{"s8", "inc: func(x: s8) -> s8;", "(inc 127)", "-128"},
		{"u32", "inc: func(x: u32) -> u32;", "(inc 4294967295)", "0"},
		{"parenthesized result", "inc: func(x: u16) -> (u16);", "(inc 7)", "8"},
		{"prefixed", "add: func(a: u64, b: u64) -> u64;", "(m.add 1 2)", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg *wasmext.Config
			if tt.name == "prefixed" {
				cfg = &wasmext.Config{Prefix: "m."}
			}
			ext, err := wasmext.New("arith", arithWasm, tt.wit, cfg)
			if err != nil {
				t.Fatal(err)
			}
			rt := open(t, ext)
			got, err := eval(t, rt, tt.src)
			if err != nil {
				t.Fatalf("eval %s: %v", tt.src, err)
			}
			if got != tt.want {
				t.Fatalf("eval %s = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestExtension_InitFailures(t *testing.T) {
	tests := []struct {
		name  string
		wasm  []byte
		wit   string
		check func(error) bool
	}{
		{
			name: "missing export",
			wasm: arithWasm,
			wit:  "add: func(a: s64, b: s64) -> s64; sub: func(a: s64, b: s64) -> s64;",
			check: func(err error) bool {
				var me *rerrors.MissingExportsError
				return errors.As(err, &me) && len(me.Exports) == 1 &&
					me.Exports[0].Module == "arith" && me.Exports[0].Function == "sub"
			},
		},
		{
			name:  "core type mismatch",
			wasm:  arithWasm,
			wit:   "add: func(a: s32, b: s32) -> s32;",
			check: func(err error) bool { return errors.Is(err, rerrors.ErrTypeMismatch) },
		},
		{
			name:  "arity mismatch",
			wasm:  arithWasm,
			wit:   "inc: func() -> s32;",
			check: func(err error) bool { return errors.Is(err, rerrors.ErrTypeMismatch) },
		},
		{
			name:  "invalid module",
			wasm:  []byte("not wasm"),
			wit:   "add: func(a: s64, b: s64) -> s64;",
			check: func(err error) bool { return errors.Is(err, rerrors.ErrInvalidInput) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ext, err := wasmext.New("arith", tt.wasm, tt.wit, nil)
			if err != nil {
				t.Fatal(err)
			}
			s := slab.New(1 << 15)
			_, err = runtime.Open(ctx, s, &runtime.Config{Modules: []engine.Module{ext}})
			if !errors.Is(err, rerrors.ErrModuleInit) {
				t.Fatalf("Open error = %v, want module init", err)
			}
			if !tt.check(err) {
				t.Fatalf("unexpected cause: %v", err)
			}
			if s.Len() != 0 {
				t.Fatalf("failed init leaked %d cells", s.Len())
			}
			if err := s.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestExtension_Reinit(t *testing.T) {
	ctx := context.Background()
	ext, err := wasmext.New("arith", arithWasm, arithWIT, nil)
	if err != nil {
		t.Fatal(err)
	}
	rt := open(t, ext)

	rt.FiniModules(ctx)
	if _, err := eval(t, rt, "(add 1 2)"); !errors.Is(err, rerrors.ErrUnboundSymbol) {
		t.Fatalf("after fini: %v, want unbound", err)
	}
	if err := rt.InitModules(ctx); err != nil {
		t.Fatal(err)
	}
	if got, err := eval(t, rt, "(add 1 2)"); err != nil || got != "3" {
		t.Fatalf("after re-init: %s, %v", got, err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arith.wasm")
	if err := os.WriteFile(path, arithWasm, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := wasmext.Open(path, nil); !errors.Is(err, rerrors.ErrNotFound) {
		t.Fatalf("Open without WIT: %v, want not found", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "arith.wit"), []byte(arithWIT), 0o644); err != nil {
		t.Fatal(err)
	}
	ext, err := wasmext.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ext.Name() != "arith" || len(ext.Signatures()) != 3 {
		t.Fatalf("Open = %s with %d functions", ext.Name(), len(ext.Signatures()))
	}
	rt := open(t, ext)
	if got, _ := eval(t, rt, "(mul 3 (add 1 1))"); got != "6" {
		t.Fatalf("(mul 3 (add 1 1)) = %s", got)
	}
}
