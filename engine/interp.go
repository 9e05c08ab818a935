package engine

import (
	"bufio"
	"context"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// DefaultMaxDepth bounds nested evaluation when Config.MaxDepth is zero.
const DefaultMaxDepth = 10000

// Config holds configuration for interpreter creation
type Config struct {
	// Logger overrides the package logger for this interpreter.
	Logger *zap.Logger

	// MaxDepth bounds nested evaluation. 0 means DefaultMaxDepth.
	// Exceeding it fails the evaluation with KindStackExhausted.
	MaxDepth int

	// Streams of the default I/O frame. nil means the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type state uint8

const (
	stateFresh state = iota
	stateReady
	stateFailed
	stateFinalized
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateFresh:
		return "fresh"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	case stateFinalized:
		return "finalized"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// Interp is a single interpreter instance bound to one slab.
// It is not safe for concurrent use.
type Interp struct {
	slab      *slab.Slab
	log       *zap.Logger
	globals   map[atom.Symbol]slab.Ref
	builtins  []builtin
	hostFuncs []hostFunc
	modules   []Module
	inited    int
	epoch     uint32
	io        []*IOFrame
	base      *IOFrame
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	maxDepth  int
	depth     int
	state     state
}

// New creates an interpreter and binds it to s.
// A slab serves at most one interpreter at a time.
func New(s *slab.Slab, cfg *Config) (*Interp, error) {
	if s == nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "slab is nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	in := &Interp{
		slab:     s,
		log:      cfg.Logger,
		globals:  make(map[atom.Symbol]slab.Ref),
		stdin:    cfg.Stdin,
		stdout:   cfg.Stdout,
		stderr:   cfg.Stderr,
		maxDepth: cfg.MaxDepth,
		epoch:    1,
	}
	if in.log == nil {
		in.log = Logger()
	}
	if in.maxDepth <= 0 {
		in.maxDepth = DefaultMaxDepth
	}
	if in.stdin == nil {
		in.stdin = os.Stdin
	}
	// Frames over stdin share one buffer so no frame swallows another's input.
	if _, ok := in.stdin.(*bufio.Reader); !ok {
		in.stdin = bufio.NewReader(in.stdin)
	}
	if in.stdout == nil {
		in.stdout = os.Stdout
	}
	if in.stderr == nil {
		in.stderr = os.Stderr
	}

	if err := s.Bind(in); err != nil {
		return nil, err
	}
	return in, nil
}

// Slab returns the arena backing this interpreter.
func (in *Interp) Slab() *slab.Slab {
	return in.slab
}

// Log returns the interpreter's logger.
func (in *Interp) Log() *zap.Logger {
	return in.log
}

// MaxDepth returns the configured evaluation depth limit.
func (in *Interp) MaxDepth() int {
	return in.maxDepth
}

// Failed reports whether module initialization failed.
func (in *Interp) Failed() bool {
	return in.state == stateFailed
}

// Ready reports whether modules are initialized.
func (in *Interp) Ready() bool {
	return in.state == stateReady
}

// usable fails for interpreters whose init failed or that were closed.
func (in *Interp) usable(phase errors.Phase) error {
	switch in.state {
	case stateFailed:
		return errors.New(phase, errors.KindNotInitialized).
			Detail("interpreter unusable after module init failure").
			Build()
	case stateClosed:
		return errors.NotInitialized(phase, "interpreter (closed)")
	}
	return nil
}

// Close finalizes modules when needed, releases every global binding and
// unbinds the slab. The I/O stack must already be balanced; leftover
// frames are dropped with a warning.
func (in *Interp) Close(ctx context.Context) error {
	if in.state == stateClosed {
		return nil
	}
	if in.state == stateReady {
		in.FiniModules(ctx)
	}
	in.releaseGlobals()
	if n := len(in.io); n > 0 {
		in.log.Warn("closing interpreter with unbalanced I/O stack", zap.Int("frames", n))
		in.io = nil
	}
	in.state = stateClosed
	in.slab.Unbind(in)
	in.log.Debug("interpreter closed", zap.Int("live", in.slab.Len()))
	return nil
}

func (in *Interp) releaseGlobals() {
	for sym, ref := range in.globals {
		in.slab.Release(ref)
		delete(in.globals, sym)
	}
}

// Define binds name in the global table, consuming value.
func (in *Interp) Define(name atom.Symbol, value slab.Ref) error {
	if err := in.usable(errors.PhaseEval); err != nil {
		in.slab.Release(value)
		return err
	}
	if old, ok := in.globals[name]; ok {
		in.slab.Release(old)
	}
	in.globals[name] = value
	return nil
}

// Global returns a borrowed reference to a global binding.
func (in *Interp) Global(name atom.Symbol) (slab.Ref, bool) {
	r, ok := in.globals[name]
	return r, ok
}

// Alloc allocates a cell; pair children are consumed.
func (in *Interp) Alloc(c slab.Cell) (slab.Ref, error) {
	r, err := in.slab.Alloc(c)
	if err != nil && errors.IsKind(err, errors.KindOutOfSpace) {
		in.log.Warn("slab exhausted", zap.Int("capacity", in.slab.Cap()))
	}
	return r, err
}

// Get returns a copy of the cell behind r.
func (in *Interp) Get(r slab.Ref) (slab.Cell, error) {
	return in.slab.Get(r)
}

// Retain adds a reference to r and returns it.
func (in *Interp) Retain(r slab.Ref) (slab.Ref, error) {
	if err := in.slab.Retain(r); err != nil {
		return 0, err
	}
	return r, nil
}

// Release drops a reference.
func (in *Interp) Release(r slab.Ref) error {
	return in.slab.Release(r)
}

// Nil allocates a Nil atom.
func (in *Interp) Nil() (slab.Ref, error) {
	return in.Alloc(slab.Cell{Tag: atom.TagNil})
}

// True allocates a True atom.
func (in *Interp) True() (slab.Ref, error) {
	return in.Alloc(slab.Cell{Tag: atom.TagTrue})
}

// None allocates a None atom.
func (in *Interp) None() (slab.Ref, error) {
	return in.Alloc(slab.Cell{Tag: atom.TagNone})
}

// Bool allocates True or Nil.
func (in *Interp) Bool(b bool) (slab.Ref, error) {
	if b {
		return in.True()
	}
	return in.Nil()
}

// Number allocates a Number atom.
func (in *Interp) Number(n int64) (slab.Ref, error) {
	return in.Alloc(slab.Cell{Tag: atom.TagNumber, Number: n})
}

// Char allocates a Char atom.
func (in *Interp) Char(c int8) (slab.Ref, error) {
	return in.Alloc(slab.Cell{Tag: atom.TagChar, Char: c})
}

// Symbol allocates a Symbol atom.
func (in *Interp) Symbol(name string) (slab.Ref, error) {
	sym, err := atom.NewSymbol(errors.PhaseAlloc, name)
	if err != nil {
		return 0, err
	}
	return in.Alloc(slab.Cell{Tag: atom.TagSymbol, Symbol: sym})
}

// Cons allocates a pair, consuming first and rest.
func (in *Interp) Cons(first, rest slab.Ref) (slab.Ref, error) {
	return in.Alloc(slab.Cell{Tag: atom.TagPair, First: first, Rest: rest})
}

// List builds a proper list, consuming every item.
func (in *Interp) List(items ...slab.Ref) (slab.Ref, error) {
	tail, err := in.Nil()
	if err != nil {
		for _, it := range items {
			in.slab.Release(it)
		}
		return 0, err
	}
	for i := len(items) - 1; i >= 0; i-- {
		tail, err = in.Cons(items[i], tail)
		if err != nil {
			for _, it := range items[:i] {
				in.slab.Release(it)
			}
			return 0, err
		}
	}
	return tail, nil
}

// Slice returns borrowed references to the elements of a proper list.
func (in *Interp) Slice(list slab.Ref) ([]slab.Ref, error) {
	var out []slab.Ref
	for {
		c, err := in.slab.Get(list)
		if err != nil {
			return nil, err
		}
		switch c.Tag {
		case atom.TagNil:
			return out, nil
		case atom.TagPair:
			out = append(out, c.First)
			list = c.Rest
		default:
			return nil, errors.IllFormedList(errors.PhaseEval, "list ends in "+c.Tag.String())
		}
	}
}

// Equal reports structural equality: same tag and payload, pairs
// compared element-wise.
func (in *Interp) Equal(a, b slab.Ref) (bool, error) {
	for {
		if a == b {
			return true, nil
		}
		ca, err := in.slab.Get(a)
		if err != nil {
			return false, err
		}
		cb, err := in.slab.Get(b)
		if err != nil {
			return false, err
		}
		if ca.Tag != cb.Tag {
			return false, nil
		}
		switch ca.Tag {
		case atom.TagNone, atom.TagNil, atom.TagTrue, atom.TagWildcard:
			return true, nil
		case atom.TagChar:
			return ca.Char == cb.Char, nil
		case atom.TagNumber:
			return ca.Number == cb.Number, nil
		case atom.TagSymbol:
			return ca.Symbol == cb.Symbol, nil
		case atom.TagPair:
			eq, err := in.Equal(ca.First, cb.First)
			if err != nil || !eq {
				return false, err
			}
			a, b = ca.Rest, cb.Rest
		default:
			return false, nil
		}
	}
}

func typeMismatch(want, got atom.Tag) error {
	return errors.TypeMismatch(errors.PhaseEval, want.String(), got.String())
}
