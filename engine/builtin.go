package engine

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// Func is a native builtin. Call arguments are borrowed for the duration
// of the call; the returned reference is owned by the caller. A builtin
// that returns one of its arguments must Retain it first.
type Func func(c *Call) (slab.Ref, error)

// Call carries the state of one builtin invocation.
type Call struct {
	Ctx    context.Context
	Interp *Interp
	Name   string
	Args   []slab.Ref
	Env    slab.Ref
}

// Arity fails unless exactly n arguments were passed.
func (c *Call) Arity(n int) error {
	if len(c.Args) != n {
		return c.arityError(strconv.Itoa(n))
	}
	return nil
}

// ArityRange fails unless min <= len(args) <= max. max < 0 means unbounded.
func (c *Call) ArityRange(min, max int) error {
	if len(c.Args) < min || (max >= 0 && len(c.Args) > max) {
		want := strconv.Itoa(min) + ".."
		if max >= 0 {
			want += strconv.Itoa(max)
		}
		return c.arityError(want)
	}
	return nil
}

func (c *Call) arityError(want string) error {
	return errors.New(errors.PhaseEval, errors.KindArityMismatch).
		Want(want + " argument(s)").
		Got(strconv.Itoa(len(c.Args))).
		Detail("builtin %s", c.Name).
		Build()
}

// Cell returns the i-th argument's cell.
func (c *Call) Cell(i int) (slab.Cell, error) {
	return c.Interp.Get(c.Args[i])
}

// Number returns the i-th argument as an integer.
func (c *Call) Number(i int) (int64, error) {
	cell, err := c.Cell(i)
	if err != nil {
		return 0, err
	}
	if cell.Tag != atom.TagNumber {
		return 0, errors.New(errors.PhaseEval, errors.KindTypeMismatch).
			Want(atom.TagNumber.String()).
			Got(cell.Tag.String()).
			Detail("argument %d of %s", i+1, c.Name).
			Build()
	}
	return cell.Number, nil
}

// Arg returns a new owned reference to the i-th argument.
func (c *Call) Arg(i int) (slab.Ref, error) {
	return c.Interp.Retain(c.Args[i])
}

type builtin struct {
	fn   Func
	name string
}

type hostFunc struct {
	fn   Func
	name string
}

// designator encodes a builtin as (None . Number(epoch<<32 | index)).
// The reader never produces None, so source text cannot forge one.
func (in *Interp) designator(index int) (slab.Ref, error) {
	head, err := in.None()
	if err != nil {
		return 0, err
	}
	id, err := in.Number(int64(in.epoch)<<32 | int64(index))
	if err != nil {
		in.slab.Release(head)
		return 0, err
	}
	return in.Cons(head, id)
}

// builtinOf decodes a designator. ok is false when c is not one.
func (in *Interp) builtinOf(c slab.Cell) (b *builtin, ok bool, err error) {
	if c.Tag != atom.TagPair {
		return nil, false, nil
	}
	head, err := in.slab.Get(c.First)
	if err != nil {
		return nil, false, err
	}
	if head.Tag != atom.TagNone {
		return nil, false, nil
	}
	id, err := in.slab.Get(c.Rest)
	if err != nil {
		return nil, false, err
	}
	if id.Tag != atom.TagNumber {
		return nil, false, nil
	}
	epoch := uint32(uint64(id.Number) >> 32)
	index := int(uint32(id.Number))
	if epoch != in.epoch || index >= len(in.builtins) {
		return nil, true, errors.New(errors.PhaseEval, errors.KindNotFound).
			Detail("builtin #%d is no longer installed", index).
			Build()
	}
	return &in.builtins[index], true, nil
}

// BuiltinName returns the name of the builtin r designates.
func (in *Interp) BuiltinName(r slab.Ref) (string, bool) {
	c, err := in.slab.Get(r)
	if err != nil {
		return "", false
	}
	b, ok, err := in.builtinOf(c)
	if !ok || err != nil {
		return "", ok
	}
	return b.name, true
}

// Register installs a builtin under name in the global table. It is
// meant to be called from Module.Init.
func (in *Interp) Register(name string, fn Func) error {
	if err := in.usable(errors.PhaseModule); err != nil {
		return err
	}
	if fn == nil {
		return errors.Registration(errors.PhaseModule, "", name,
			errors.InvalidInput(errors.PhaseModule, "nil function"))
	}
	sym, err := atom.NewSymbol(errors.PhaseModule, name)
	if err != nil {
		return errors.Registration(errors.PhaseModule, "", name, err)
	}

	in.builtins = append(in.builtins, builtin{fn: fn, name: name})
	d, err := in.designator(len(in.builtins) - 1)
	if err != nil {
		in.builtins = in.builtins[:len(in.builtins)-1]
		return errors.Registration(errors.PhaseModule, "", name, err)
	}
	in.log.Debug("builtin installed", zap.String("name", name), zap.Int("index", len(in.builtins)-1))
	return in.Define(sym, d)
}

// RegisterFunc adds a host function. Functions registered before
// InitModules are installed by it; afterwards they are installed at once.
// Host functions survive FiniModules and are reinstalled on the next init.
func (in *Interp) RegisterFunc(name string, fn Func) error {
	if err := in.usable(errors.PhaseHost); err != nil {
		return err
	}
	if _, err := atom.NewSymbol(errors.PhaseHost, name); err != nil {
		return errors.Registration(errors.PhaseHost, "host", name, err)
	}
	if fn == nil {
		return errors.Registration(errors.PhaseHost, "host", name,
			errors.InvalidInput(errors.PhaseHost, "nil function"))
	}
	in.hostFuncs = append(in.hostFuncs, hostFunc{fn: fn, name: name})
	if in.state == stateReady {
		if err := in.Register(name, fn); err != nil {
			return err
		}
	}
	in.log.Debug("host function registered", zap.String("name", name))
	return nil
}

func (in *Interp) callBuiltin(ctx context.Context, b *builtin, env slab.Ref, args []slab.Ref) (slab.Ref, error) {
	c := &Call{
		Ctx:    ctx,
		Interp: in,
		Name:   b.name,
		Args:   args,
		Env:    env,
	}
	r, err := b.fn(c)
	if err != nil {
		return 0, err
	}
	if r.IsZero() {
		return in.None()
	}
	return r, nil
}
