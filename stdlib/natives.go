package stdlib

import (
	"io"

	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/engine"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

type native struct {
	fn   engine.Func
	name string
}

var natives = []native{
	{car, "car"},
	{cdr, "cdr"},
	{cons, "cons"},
	{eq, "eq"},
	{isAtom, "atom"},
	{isPair, "pair?"},
	{isList, "list?"},
	{not, "not"},
	{add, "+"},
	{sub, "-"},
	{mul, "*"},
	{div, "/"},
	{less, "<"},
	{numEq, "="},
	{prin, "prin"},
	{prinl, "prinl"},
	{read, "read"},
	{load, "load"},
}

// pairPart returns First or Rest of the sole argument. Nil yields Nil.
func pairPart(c *engine.Call, first bool) (slab.Ref, error) {
	if err := c.Arity(1); err != nil {
		return 0, err
	}
	cell, err := c.Cell(0)
	if err != nil {
		return 0, err
	}
	switch cell.Tag {
	case atom.TagNil:
		return c.Arg(0)
	case atom.TagPair:
		if first {
			return c.Interp.Retain(cell.First)
		}
		return c.Interp.Retain(cell.Rest)
	}
	return 0, errors.New(errors.PhaseEval, errors.KindTypeMismatch).
		Want(atom.TagPair.String()).
		Got(cell.Tag.String()).
		Detail("%s", c.Name).
		Build()
}

func car(c *engine.Call) (slab.Ref, error) { return pairPart(c, true) }

func cdr(c *engine.Call) (slab.Ref, error) { return pairPart(c, false) }

func cons(c *engine.Call) (slab.Ref, error) {
	if err := c.Arity(2); err != nil {
		return 0, err
	}
	a, err := c.Arg(0)
	if err != nil {
		return 0, err
	}
	b, err := c.Arg(1)
	if err != nil {
		c.Interp.Release(a)
		return 0, err
	}
	return c.Interp.Cons(a, b)
}

func eq(c *engine.Call) (slab.Ref, error) {
	if err := c.Arity(2); err != nil {
		return 0, err
	}
	same, err := c.Interp.Equal(c.Args[0], c.Args[1])
	if err != nil {
		return 0, err
	}
	return c.Interp.Bool(same)
}

func tagTest(c *engine.Call, pred func(atom.Tag) bool) (slab.Ref, error) {
	if err := c.Arity(1); err != nil {
		return 0, err
	}
	cell, err := c.Cell(0)
	if err != nil {
		return 0, err
	}
	return c.Interp.Bool(pred(cell.Tag))
}

func isAtom(c *engine.Call) (slab.Ref, error) {
	return tagTest(c, func(t atom.Tag) bool { return t != atom.TagPair })
}

func isPair(c *engine.Call) (slab.Ref, error) {
	return tagTest(c, func(t atom.Tag) bool { return t == atom.TagPair })
}

func not(c *engine.Call) (slab.Ref, error) {
	return tagTest(c, func(t atom.Tag) bool { return t == atom.TagNil })
}

func isList(c *engine.Call) (slab.Ref, error) {
	if err := c.Arity(1); err != nil {
		return 0, err
	}
	_, err := c.Interp.Slice(c.Args[0])
	if errors.IsKind(err, errors.KindIllFormedList) {
		return c.Interp.Nil()
	}
	if err != nil {
		return 0, err
	}
	return c.Interp.True()
}

func numbers(c *engine.Call) ([]int64, error) {
	out := make([]int64, len(c.Args))
	for i := range c.Args {
		n, err := c.Number(i)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// fold applies op left to right; with one argument, unary applies.
func fold(c *engine.Call, identity int64, unary func(int64) (int64, error), op func(a, b int64) (int64, error)) (slab.Ref, error) {
	ns, err := numbers(c)
	if err != nil {
		return 0, err
	}
	switch len(ns) {
	case 0:
		return c.Interp.Number(identity)
	case 1:
		if unary != nil {
			v, err := unary(ns[0])
			if err != nil {
				return 0, err
			}
			return c.Interp.Number(v)
		}
	}
	acc := ns[0]
	for _, n := range ns[1:] {
		if acc, err = op(acc, n); err != nil {
			return 0, err
		}
	}
	return c.Interp.Number(acc)
}

func add(c *engine.Call) (slab.Ref, error) {
	return fold(c, 0, nil, func(a, b int64) (int64, error) { return a + b, nil })
}

func mul(c *engine.Call) (slab.Ref, error) {
	return fold(c, 1, nil, func(a, b int64) (int64, error) { return a * b, nil })
}

func sub(c *engine.Call) (slab.Ref, error) {
	if err := c.ArityRange(1, -1); err != nil {
		return 0, err
	}
	return fold(c, 0,
		func(a int64) (int64, error) { return -a, nil },
		func(a, b int64) (int64, error) { return a - b, nil })
}

func div(c *engine.Call) (slab.Ref, error) {
	if err := c.ArityRange(2, -1); err != nil {
		return 0, err
	}
	return fold(c, 1, nil, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errors.InvalidInput(errors.PhaseEval, "division by zero")
		}
		return a / b, nil
	})
}

// chain reports whether rel holds for every adjacent pair of arguments.
func chain(c *engine.Call, rel func(a, b int64) bool) (slab.Ref, error) {
	if err := c.ArityRange(1, -1); err != nil {
		return 0, err
	}
	ns, err := numbers(c)
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(ns); i++ {
		if !rel(ns[i-1], ns[i]) {
			return c.Interp.Nil()
		}
	}
	return c.Interp.True()
}

func less(c *engine.Call) (slab.Ref, error) {
	return chain(c, func(a, b int64) bool { return a < b })
}

func numEq(c *engine.Call) (slab.Ref, error) {
	return chain(c, func(a, b int64) bool { return a == b })
}

// write displays every argument on the current output and returns the
// last one, or Nil when called without arguments.
func write(c *engine.Call, newline bool) (slab.Ref, error) {
	out := c.Interp.CurrentIO().Out
	for _, a := range c.Args {
		if err := c.Interp.Display(out, a); err != nil {
			return 0, errors.Wrap(errors.PhaseIO, errors.KindInvalidInput, err, c.Name)
		}
	}
	if newline {
		if _, err := io.WriteString(out, "\n"); err != nil {
			return 0, errors.Wrap(errors.PhaseIO, errors.KindInvalidInput, err, c.Name)
		}
	}
	if len(c.Args) == 0 {
		return c.Interp.Nil()
	}
	return c.Arg(len(c.Args) - 1)
}

func prin(c *engine.Call) (slab.Ref, error) { return write(c, false) }

func prinl(c *engine.Call) (slab.Ref, error) { return write(c, true) }

// read parses the next form from the current input; None at end of input.
func read(c *engine.Call) (slab.Ref, error) {
	if err := c.Arity(0); err != nil {
		return 0, err
	}
	r, err := c.Interp.CurrentIO().Reader(c.Interp).Read()
	if err == io.EOF {
		return c.Interp.None()
	}
	return r, err
}

func load(c *engine.Call) (slab.Ref, error) {
	if err := c.Arity(1); err != nil {
		return 0, err
	}
	path, err := c.Interp.Text(c.Args[0])
	if err != nil {
		return 0, err
	}
	return c.Interp.LoadFile(c.Ctx, path)
}
