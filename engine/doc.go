// Package engine implements the interpreter: a tree-walking evaluator over
// slab cells, the builtin table, module lifecycle, the I/O context stack,
// the printer and file loading.
//
// # Ownership
//
// Every slab.Ref handed to or returned from the engine is a counted
// reference. Eval consumes its expression and borrows its environment;
// builtins borrow their arguments and return an owned result.
//
// # Representations
//
// All runtime structure is built from the eight atom tags:
//
//	environment   list of frames; a frame is a list of (symbol . value)
//	closure       (params body-forms . captured-env)
//	builtin       (None . Number(epoch<<32 | index))
//
// The reader never yields None, so source text cannot forge a builtin.
//
// # Special forms
//
//	(quote x)            x, unevaluated
//	(\ params body...)   closure; lambda is an alias
//	(if c then [else])   Nil is the only false value
//	(def name expr)      global binding, returns the value
//	(prog form...)       sequence, returns the last value
//
// # Lifecycle
//
//	New -> RegisterModule* -> InitModules -> LoadDefaults -> PushIO
//	    -> Eval / LoadFile ...
//	    -> PopIO -> FiniModules -> Close
//
// A failed InitModules leaves the interpreter unusable: every later call
// except Close reports KindNotInitialized.
package engine
