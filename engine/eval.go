package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// Special form names.
var (
	symQuote  = atom.MustSymbol("quote")
	symLambda = atom.MustSymbol("lambda")
	symLam    = atom.MustSymbol(`\`)
	symIf     = atom.MustSymbol("if")
	symDef    = atom.MustSymbol("def")
	symProg   = atom.MustSymbol("prog")
)

// Eval evaluates expr under env and returns an owned result.
// expr is consumed, env is borrowed. A zero env means no lexical frames.
//
// env is a list whose elements are either bindings (sym . value) or
// frames, themselves lists of bindings, innermost first. This is the
// shape a closure captures as its third part; pass that part, not the
// closure itself, since a closure's parameter list would read as bindings.
func (in *Interp) Eval(ctx context.Context, env, expr slab.Ref) (slab.Ref, error) {
	defer in.slab.Release(expr)
	if err := in.usable(errors.PhaseEval); err != nil {
		return 0, err
	}
	if env.IsZero() {
		empty, err := in.Nil()
		if err != nil {
			return 0, err
		}
		defer in.slab.Release(empty)
		env = empty
	}
	return in.eval(ctx, env, expr)
}

// eval borrows both env and expr.
func (in *Interp) eval(ctx context.Context, env, expr slab.Ref) (slab.Ref, error) {
	in.depth++
	defer func() { in.depth-- }()
	if in.depth > in.maxDepth {
		return 0, errors.StackExhausted(in.maxDepth)
	}

	c, err := in.slab.Get(expr)
	if err != nil {
		return 0, err
	}

	switch c.Tag {
	case atom.TagNone, atom.TagNil, atom.TagTrue, atom.TagChar, atom.TagNumber, atom.TagWildcard:
		return in.Retain(expr)
	case atom.TagSymbol:
		v, err := in.lookup(env, c.Symbol)
		if err != nil {
			return 0, err
		}
		return in.Retain(v)
	case atom.TagPair:
		return in.evalPair(ctx, env, c)
	}
	return 0, errors.TypeMismatch(errors.PhaseEval, "atom", c.Tag.String())
}

func (in *Interp) evalPair(ctx context.Context, env slab.Ref, form slab.Cell) (slab.Ref, error) {
	head, err := in.slab.Get(form.First)
	if err != nil {
		return 0, err
	}
	if head.Tag == atom.TagSymbol {
		switch head.Symbol {
		case symQuote:
			return in.evalQuote(form.Rest)
		case symLambda, symLam:
			return in.evalLambda(env, form.Rest)
		case symIf:
			return in.evalIf(ctx, env, form.Rest)
		case symDef:
			return in.evalDef(ctx, env, form.Rest)
		case symProg:
			return in.evalBody(ctx, env, form.Rest)
		}
	}

	fn, err := in.eval(ctx, env, form.First)
	if err != nil {
		return 0, err
	}
	defer in.slab.Release(fn)

	args, err := in.evalArgs(ctx, env, form.Rest)
	if err != nil {
		return 0, err
	}
	defer in.releaseAll(args)

	return in.apply(ctx, env, fn, args)
}

// Apply calls fn with args. Both are borrowed.
func (in *Interp) Apply(ctx context.Context, fn slab.Ref, args []slab.Ref) (slab.Ref, error) {
	if err := in.usable(errors.PhaseEval); err != nil {
		return 0, err
	}
	env, err := in.Nil()
	if err != nil {
		return 0, err
	}
	defer in.slab.Release(env)
	return in.apply(ctx, env, fn, args)
}

func (in *Interp) apply(ctx context.Context, env, fn slab.Ref, args []slab.Ref) (slab.Ref, error) {
	c, err := in.slab.Get(fn)
	if err != nil {
		return 0, err
	}
	b, ok, err := in.builtinOf(c)
	if err != nil {
		return 0, err
	}
	if ok {
		if ce := in.log.Check(zap.DebugLevel, "apply builtin"); ce != nil {
			ce.Write(zap.String("name", b.name), zap.Int("args", len(args)))
		}
		return in.callBuiltin(ctx, b, env, args)
	}
	if c.Tag == atom.TagPair {
		return in.applyClosure(ctx, c, args)
	}
	return 0, errors.New(errors.PhaseEval, errors.KindTypeMismatch).
		Want("procedure").
		Got(c.Tag.String()).
		Detail("not applicable").
		Build()
}

// applyClosure runs a closure (params body-forms . captured-env).
func (in *Interp) applyClosure(ctx context.Context, closure slab.Cell, args []slab.Ref) (slab.Ref, error) {
	inner, err := in.slab.Get(closure.Rest)
	if err != nil {
		return 0, err
	}
	if inner.Tag != atom.TagPair {
		return 0, errors.IllFormedList(errors.PhaseEval, "closure without body")
	}

	frame, err := in.bindParams(closure.First, args)
	if err != nil {
		return 0, err
	}
	captured, err := in.Retain(inner.Rest)
	if err != nil {
		in.slab.Release(frame)
		return 0, err
	}
	scope, err := in.Cons(frame, captured)
	if err != nil {
		return 0, err
	}
	defer in.slab.Release(scope)

	return in.evalBody(ctx, scope, inner.First)
}

// bindParams builds a frame of (symbol . value) pairs. A symbol parameter
// list binds the whole argument list; a dotted tail binds the remainder.
// The wildcard parameter accepts an argument without binding it.
func (in *Interp) bindParams(params slab.Ref, args []slab.Ref) (slab.Ref, error) {
	var bindings []slab.Ref
	fail := func(err error) (slab.Ref, error) {
		in.releaseAll(bindings)
		return 0, err
	}

	fixed := 0
	p := params
	for {
		pc, err := in.slab.Get(p)
		if err != nil {
			return fail(err)
		}
		switch pc.Tag {
		case atom.TagNil:
			if fixed != len(args) {
				return fail(errors.ArityMismatch(errors.PhaseEval, fixed, len(args)))
			}
			return in.List(bindings...)
		case atom.TagSymbol:
			if fixed > len(args) {
				return fail(errors.ArityMismatch(errors.PhaseEval, fixed, len(args)))
			}
			rest, err := in.retainList(args[fixed:])
			if err != nil {
				return fail(err)
			}
			b, err := in.binding(p, rest)
			if err != nil {
				return fail(err)
			}
			return in.List(append(bindings, b)...)
		case atom.TagPair:
			name, err := in.slab.Get(pc.First)
			if err != nil {
				return fail(err)
			}
			if name.Tag != atom.TagSymbol && name.Tag != atom.TagWildcard {
				return fail(errors.New(errors.PhaseEval, errors.KindTypeMismatch).
					Want(atom.TagSymbol.String()).
					Got(name.Tag.String()).
					Detail("parameter %d", fixed+1).
					Build())
			}
			if fixed >= len(args) {
				return fail(errors.ArityMismatch(errors.PhaseEval, in.countParams(params), len(args)))
			}
			if name.Tag == atom.TagSymbol {
				v, err := in.Retain(args[fixed])
				if err != nil {
					return fail(err)
				}
				b, err := in.binding(pc.First, v)
				if err != nil {
					return fail(err)
				}
				bindings = append(bindings, b)
			}
			fixed++
			p = pc.Rest
		default:
			return fail(errors.TypeMismatch(errors.PhaseEval, "parameter list", pc.Tag.String()))
		}
	}
}

// countParams counts the fixed parameters of a list for error reporting.
func (in *Interp) countParams(params slab.Ref) int {
	n := 0
	for {
		c, err := in.slab.Get(params)
		if err != nil || c.Tag != atom.TagPair {
			return n
		}
		n++
		params = c.Rest
	}
}

// binding allocates (symbol . value), retaining symbol and consuming value.
func (in *Interp) binding(symbol, value slab.Ref) (slab.Ref, error) {
	s, err := in.Retain(symbol)
	if err != nil {
		in.slab.Release(value)
		return 0, err
	}
	return in.Cons(s, value)
}

func (in *Interp) retainList(items []slab.Ref) (slab.Ref, error) {
	owned := make([]slab.Ref, 0, len(items))
	for _, it := range items {
		r, err := in.Retain(it)
		if err != nil {
			in.releaseAll(owned)
			return 0, err
		}
		owned = append(owned, r)
	}
	return in.List(owned...)
}

// evalArgs evaluates a proper argument list left to right.
func (in *Interp) evalArgs(ctx context.Context, env, list slab.Ref) ([]slab.Ref, error) {
	var out []slab.Ref
	for {
		c, err := in.slab.Get(list)
		if err != nil {
			in.releaseAll(out)
			return nil, err
		}
		switch c.Tag {
		case atom.TagNil:
			return out, nil
		case atom.TagPair:
			v, err := in.eval(ctx, env, c.First)
			if err != nil {
				in.releaseAll(out)
				return nil, err
			}
			out = append(out, v)
			list = c.Rest
		default:
			in.releaseAll(out)
			return nil, errors.IllFormedList(errors.PhaseEval, "argument list ends in "+c.Tag.String())
		}
	}
}

// evalBody evaluates forms in order and returns the last result, or Nil
// for an empty body.
func (in *Interp) evalBody(ctx context.Context, env, forms slab.Ref) (slab.Ref, error) {
	var last slab.Ref
	for {
		c, err := in.slab.Get(forms)
		if err != nil {
			in.slab.Release(last)
			return 0, err
		}
		switch c.Tag {
		case atom.TagNil:
			if last.IsZero() {
				return in.Nil()
			}
			return last, nil
		case atom.TagPair:
			v, err := in.eval(ctx, env, c.First)
			in.slab.Release(last)
			if err != nil {
				return 0, err
			}
			last = v
			forms = c.Rest
		default:
			in.slab.Release(last)
			return 0, errors.IllFormedList(errors.PhaseEval, "body ends in "+c.Tag.String())
		}
	}
}

// formArgs returns the borrowed operands of a special form, requiring
// between min and max of them.
func (in *Interp) formArgs(name string, list slab.Ref, min, max int) ([]slab.Ref, error) {
	var out []slab.Ref
	for {
		c, err := in.slab.Get(list)
		if err != nil {
			return nil, err
		}
		if c.Tag == atom.TagNil {
			break
		}
		if c.Tag != atom.TagPair {
			return nil, errors.IllFormedList(errors.PhaseEval, name+" form ends in "+c.Tag.String())
		}
		out = append(out, c.First)
		list = c.Rest
	}
	if len(out) < min || len(out) > max {
		want := min
		if len(out) > max {
			want = max
		}
		e := errors.ArityMismatch(errors.PhaseEval, want, len(out))
		e.Detail = name + ": " + e.Detail
		return nil, e
	}
	return out, nil
}

func (in *Interp) evalQuote(rest slab.Ref) (slab.Ref, error) {
	ops, err := in.formArgs("quote", rest, 1, 1)
	if err != nil {
		return 0, err
	}
	return in.Retain(ops[0])
}

// evalLambda builds (params body-forms . env).
func (in *Interp) evalLambda(env, rest slab.Ref) (slab.Ref, error) {
	c, err := in.slab.Get(rest)
	if err != nil {
		return 0, err
	}
	if c.Tag != atom.TagPair {
		return 0, errors.ArityMismatch(errors.PhaseEval, 1, 0)
	}
	body, err := in.Retain(c.Rest)
	if err != nil {
		return 0, err
	}
	captured, err := in.Retain(env)
	if err != nil {
		in.slab.Release(body)
		return 0, err
	}
	inner, err := in.Cons(body, captured)
	if err != nil {
		return 0, err
	}
	params, err := in.Retain(c.First)
	if err != nil {
		in.slab.Release(inner)
		return 0, err
	}
	return in.Cons(params, inner)
}

func (in *Interp) evalIf(ctx context.Context, env, rest slab.Ref) (slab.Ref, error) {
	ops, err := in.formArgs("if", rest, 2, 3)
	if err != nil {
		return 0, err
	}
	cond, err := in.eval(ctx, env, ops[0])
	if err != nil {
		return 0, err
	}
	cc, err := in.slab.Get(cond)
	in.slab.Release(cond)
	if err != nil {
		return 0, err
	}
	if cc.Tag != atom.TagNil {
		return in.eval(ctx, env, ops[1])
	}
	if len(ops) == 3 {
		return in.eval(ctx, env, ops[2])
	}
	return in.Nil()
}

// evalDef binds a global and returns the bound value.
func (in *Interp) evalDef(ctx context.Context, env, rest slab.Ref) (slab.Ref, error) {
	ops, err := in.formArgs("def", rest, 2, 2)
	if err != nil {
		return 0, err
	}
	name, err := in.slab.Get(ops[0])
	if err != nil {
		return 0, err
	}
	if name.Tag != atom.TagSymbol {
		return 0, errors.TypeMismatch(errors.PhaseEval, atom.TagSymbol.String(), name.Tag.String())
	}
	v, err := in.eval(ctx, env, ops[1])
	if err != nil {
		return 0, err
	}
	if _, err := in.Retain(v); err != nil {
		in.slab.Release(v)
		return 0, err
	}
	if err := in.Define(name.Symbol, v); err != nil {
		in.slab.Release(v)
		return 0, err
	}
	return v, nil
}

// lookup resolves a symbol through env, innermost frame first, then the
// global table. env is a list whose elements are frames (lists of
// (symbol . value) pairs) or bare (symbol . value) bindings.
func (in *Interp) lookup(env slab.Ref, sym atom.Symbol) (slab.Ref, error) {
	for {
		ec, err := in.slab.Get(env)
		if err != nil {
			return 0, err
		}
		if ec.Tag != atom.TagPair {
			break
		}
		v, found, err := in.lookupElem(ec.First, sym)
		if err != nil {
			return 0, err
		}
		if found {
			return v, nil
		}
		env = ec.Rest
	}
	if v, ok := in.globals[sym]; ok {
		return v, nil
	}
	return 0, errors.UnboundSymbol(sym.String())
}

func (in *Interp) lookupElem(elem slab.Ref, sym atom.Symbol) (slab.Ref, bool, error) {
	c, err := in.slab.Get(elem)
	if err != nil {
		return 0, false, err
	}
	if c.Tag != atom.TagPair {
		return 0, false, nil
	}
	head, err := in.slab.Get(c.First)
	if err != nil {
		return 0, false, err
	}
	if head.Tag == atom.TagSymbol {
		return c.Rest, head.Symbol == sym, nil
	}

	// A frame: walk its bindings.
	frame := elem
	for {
		fc, err := in.slab.Get(frame)
		if err != nil {
			return 0, false, err
		}
		if fc.Tag != atom.TagPair {
			return 0, false, nil
		}
		b, err := in.slab.Get(fc.First)
		if err != nil {
			return 0, false, err
		}
		if b.Tag == atom.TagPair {
			name, err := in.slab.Get(b.First)
			if err != nil {
				return 0, false, err
			}
			if name.Tag == atom.TagSymbol && name.Symbol == sym {
				return b.Rest, true, nil
			}
		}
		frame = fc.Rest
	}
}

func (in *Interp) releaseAll(refs []slab.Ref) {
	for _, r := range refs {
		in.slab.Release(r)
	}
}
