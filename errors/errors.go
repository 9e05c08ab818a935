package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAlloc     Phase = "alloc"     // slab allocation
	PhaseRead      Phase = "read"      // source text to atoms
	PhaseEval      Phase = "eval"      // evaluation
	PhaseLoad      Phase = "load"      // file loading
	PhaseModule    Phase = "module"    // module init/fini/defaults
	PhaseHost      Phase = "host"      // host function registration and calls
	PhaseIO        Phase = "io"        // I/O context stack
	PhaseRuntime   Phase = "runtime"   // boundary handle operations
	PhaseExtension Phase = "extension" // WASM native extensions
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfSpace        Kind = "out_of_space"
	KindTypeMismatch      Kind = "type_mismatch"
	KindUnboundSymbol     Kind = "unbound_symbol"
	KindArityMismatch     Kind = "arity_mismatch"
	KindIllFormedList     Kind = "ill_formed_list"
	KindModuleInit        Kind = "module_init"
	KindNotInitialized    Kind = "not_initialized"
	KindStaleHandle       Kind = "stale_handle"
	KindConsumed          Kind = "consumed"
	KindOutstandingBorrow Kind = "outstanding_borrow"
	KindInUse             Kind = "in_use"
	KindStackExhausted    Kind = "stack_exhausted"
	KindSymbolTooLong     Kind = "symbol_too_long"
	KindSyntax            Kind = "syntax"
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindRegistration      Kind = "registration"
	KindUnsupported       Kind = "unsupported"
	KindMissingExport     Kind = "missing_export"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Want   string // expected tag or type
	Got    string // actual tag or type
	Detail string
	Source string // file or module name
	Line   int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Source != "" {
		b.WriteString(" at ")
		b.WriteString(e.Source)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}

	if e.Want != "" || e.Got != "" {
		b.WriteString(": ")
		if e.Want != "" && e.Got != "" {
			b.WriteString("want ")
			b.WriteString(e.Want)
			b.WriteString(", got ")
			b.WriteString(e.Got)
		} else if e.Want != "" {
			b.WriteString("want ")
			b.WriteString(e.Want)
		} else {
			b.WriteString("got ")
			b.WriteString(e.Got)
		}
	}

	if e.Detail != "" {
		if e.Want != "" || e.Got != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && e.Phase != t.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Want sets the expected tag or type name
func (b *Builder) Want(t string) *Builder {
	b.err.Want = t
	return b
}

// Got sets the actual tag or type name
func (b *Builder) Got(t string) *Builder {
	b.err.Got = t
	return b
}

// Source sets the source name and line
func (b *Builder) Source(name string, line int) *Builder {
	b.err.Source = name
	b.err.Line = line
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Match targets for errors.Is, phase-agnostic.
var (
	ErrOutOfSpace        = &Error{Kind: KindOutOfSpace}
	ErrTypeMismatch      = &Error{Kind: KindTypeMismatch}
	ErrUnboundSymbol     = &Error{Kind: KindUnboundSymbol}
	ErrArityMismatch     = &Error{Kind: KindArityMismatch}
	ErrIllFormedList     = &Error{Kind: KindIllFormedList}
	ErrNotInitialized    = &Error{Kind: KindNotInitialized}
	ErrStaleHandle       = &Error{Kind: KindStaleHandle}
	ErrConsumed          = &Error{Kind: KindConsumed}
	ErrOutstandingBorrow = &Error{Kind: KindOutstandingBorrow}
	ErrInUse             = &Error{Kind: KindInUse}
	ErrStackExhausted    = &Error{Kind: KindStackExhausted}
	ErrSymbolTooLong     = &Error{Kind: KindSymbolTooLong}
	ErrSyntax            = &Error{Kind: KindSyntax}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrModuleInit        = &Error{Kind: KindModuleInit}
	ErrUnsupported       = &Error{Kind: KindUnsupported}
)

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, want, got string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindTypeMismatch,
		Want:  want,
		Got:   got,
	}
}

// OutOfSpace creates an arena exhaustion error
func OutOfSpace(capacity int) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindOutOfSpace,
		Detail: fmt.Sprintf("slab capacity %d exhausted", capacity),
		Value:  capacity,
	}
}

// UnboundSymbol creates an unbound symbol error
func UnboundSymbol(name string) *Error {
	return &Error{
		Phase:  PhaseEval,
		Kind:   KindUnboundSymbol,
		Detail: fmt.Sprintf("symbol %q is not bound", name),
		Value:  name,
	}
}

// ArityMismatch creates an arity mismatch error
func ArityMismatch(phase Phase, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArityMismatch,
		Detail: fmt.Sprintf("expected %d argument(s), got %d", want, got),
		Value:  got,
	}
}

// IllFormedList creates an ill-formed list error
func IllFormedList(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIllFormedList,
		Detail: detail,
	}
}

// StaleHandle creates a stale reference error
func StaleHandle(phase Phase, what string, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStaleHandle,
		Detail: fmt.Sprintf("%s %#x is stale or released", what, id),
		Value:  id,
	}
}

// Consumed creates a use-after-transfer error
func Consumed(op string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindConsumed,
		Detail: fmt.Sprintf("%s: handle was consumed or released", op),
	}
}

// SymbolTooLong creates a symbol length error
func SymbolTooLong(phase Phase, name string, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSymbolTooLong,
		Detail: fmt.Sprintf("symbol %q is %d bytes, limit is %d", name, len(name), limit),
		Value:  name,
	}
}

// StackExhausted creates an evaluation depth error
func StackExhausted(limit int) *Error {
	return &Error{
		Phase:  PhaseEval,
		Kind:   KindStackExhausted,
		Detail: fmt.Sprintf("evaluation depth exceeded %d", limit),
		Value:  limit,
	}
}

// Syntax creates a reader error
func Syntax(source string, line int, detail string) *Error {
	return &Error{
		Phase:  PhaseRead,
		Kind:   KindSyntax,
		Source: source,
		Line:   line,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, module, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", module, name),
		Cause:  cause,
	}
}

// ModuleInit creates a module initialization error
func ModuleInit(module string, cause error) *Error {
	return &Error{
		Phase:  PhaseModule,
		Kind:   KindModuleInit,
		Source: module,
		Detail: "module init failed",
		Cause:  cause,
	}
}

// Load creates a file loading error
func Load(source string, line int, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   kindOf(cause, KindInvalidInput),
		Source: source,
		Line:   line,
		Detail: "load aborted",
		Cause:  cause,
	}
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == k {
			return true
		}
		err = e.Cause
	}
	return false
}

// kindOf returns the Kind of err if it is an *Error, else def.
func kindOf(err error, def Kind) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return def
}

// MissingExport represents a single declared but absent extension export
type MissingExport struct {
	Module   string // e.g., "math"
	Function string // e.g., "add"
}

// MissingExportsError is returned when a native extension declares functions
// its WASM module does not export
type MissingExportsError struct {
	Exports []MissingExport
}

// NewMissingExportsError creates an error from a list of "module#function" strings
func NewMissingExportsError(exports []string) *MissingExportsError {
	result := &MissingExportsError{
		Exports: make([]MissingExport, 0, len(exports)),
	}
	for _, exp := range exports {
		mod, fn := parseExportKey(exp)
		result.Exports = append(result.Exports, MissingExport{
			Module:   mod,
			Function: fn,
		})
	}
	return result
}

func parseExportKey(key string) (module, function string) {
	mod, fn, found := strings.Cut(key, "#")
	if found {
		return mod, fn
	}
	return key, ""
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[extension] missing_export: no exports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d extension export(s):\n", len(e.Exports)))

	// Group by module for cleaner output
	byMod := make(map[string][]string)
	var modOrder []string
	for _, exp := range e.Exports {
		if _, exists := byMod[exp.Module]; !exists {
			modOrder = append(modOrder, exp.Module)
		}
		byMod[exp.Module] = append(byMod[exp.Module], exp.Function)
	}

	for _, mod := range modOrder {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byMod[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	if _, ok := target.(*MissingExportsError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Kind == KindMissingExport
	}
	return false
}
