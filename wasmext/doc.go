// Package wasmext binds the exports of a core WebAssembly module as
// interpreter builtins.
//
// The module is hosted by wazero. Its functions are declared in WIT text,
// one per line:
//
//	export add: func(a: s64, b: s64) -> s64;
//	export upcase: func(c: char) -> char;
//
// Supported types are bool, char, s8..s64 and u8..u64. Numbers are range
// checked on the way in; bool arguments follow Lisp truth (only NIL is
// false) and bool results become T or NIL.
//
// An Extension is an engine.Module, so it is registered like any other:
//
//	ext, err := wasmext.Open("math.wasm", nil) // reads math.wit alongside
//	rt, err := runtime.Open(ctx, s, &runtime.Config{Modules: []engine.Module{ext}})
package wasmext
