// Package rikiki is an embeddable interpreter for a minimal Lisp.
//
// A host links the runtime in, binds it to a fixed-capacity arena, feeds it
// source files or expressions and reads back results. Memory is managed by
// explicit reference counting at the host boundary; the language itself has
// no garbage collector.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	rikiki/
//	├── slab/       Fixed-capacity refcounted arena backing every value
//	├── atom/       Tags, fixed-width symbols and decoded value snapshots
//	├── reader/     Source text to atoms, with line tracking
//	├── engine/     Evaluator, builtins, modules, I/O frames and printer
//	├── resource/   Handle table used by the host boundary
//	├── runtime/    Host-facing API: owned and borrowed handles over engine
//	├── stdlib/     Default natives and the embedded prelude
//	├── wasmext/    WASM exports bound as builtins (wazero, WIT signatures)
//	├── errors/     Structured error types for debugging
//	└── cmd/rikiki  Command line runner and interactive REPL
//
// # Quick Start
//
//	s := slab.New(1 << 16)
//	defer s.Close()
//
//	rt, err := runtime.Open(ctx, s, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	v, err := rt.EvalString(ctx, "(map (\\ (x) (* x x)) '(1 2 3))")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Release()
//
//	out, _ := rt.Sprint(v.Borrow())
//	fmt.Println(out) // (1 4 9)
//
// # Host Functions
//
// Register Go functions callable from Lisp code:
//
//	rt.RegisterFunc("now", func(ctx context.Context, rt *runtime.Runtime, args []runtime.Borrowed) (*runtime.Atom, error) {
//	    return rt.Number(time.Now().Unix())
//	})
//
// # Thread Safety
//
// A Runtime and its arena are NOT safe for concurrent use. Use one runtime
// per goroutine, or synchronize access.
//
// # Memory Model
//
// Every value lives in the arena the runtime is bound to. The arena never
// grows; exhausting it fails the allocating operation with
// errors.KindOutOfSpace and leaves the runtime usable.
package rikiki
