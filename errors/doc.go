// Package errors provides structured error types for the rikiki runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: source position, expected/actual tag, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEval, errors.KindTypeMismatch).
//		Want("pair").
//		Got("number").
//		Detail("car of a non-pair").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseRuntime, "symbol", "number")
//	err := errors.ArityMismatch(errors.PhaseEval, 2, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
// The Err* values are phase-agnostic match targets:
//
//	if errors.Is(err, rerrors.ErrUnboundSymbol) { ... }
package errors
