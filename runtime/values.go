package runtime

import (
	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// Nil returns a new Nil atom.
func (r *Runtime) Nil() (*Atom, error) {
	return r.alloc("nil", slab.Cell{Tag: atom.TagNil})
}

// True returns a new True atom.
func (r *Runtime) True() (*Atom, error) {
	return r.alloc("true", slab.Cell{Tag: atom.TagTrue})
}

// None returns a new None atom.
func (r *Runtime) None() (*Atom, error) {
	return r.alloc("none", slab.Cell{Tag: atom.TagNone})
}

// Wildcard returns a new Wildcard atom.
func (r *Runtime) Wildcard() (*Atom, error) {
	return r.alloc("wildcard", slab.Cell{Tag: atom.TagWildcard})
}

// Number returns a new Number atom.
func (r *Runtime) Number(n int64) (*Atom, error) {
	return r.alloc("number", slab.Cell{Tag: atom.TagNumber, Number: n})
}

// Char returns a new Char atom.
func (r *Runtime) Char(c int8) (*Atom, error) {
	return r.alloc("char", slab.Cell{Tag: atom.TagChar, Char: c})
}

// Quote returns the quote marker symbol, so that
// List(Quote(), x) evaluates to x.
func (r *Runtime) Quote() (*Atom, error) {
	return r.Symbol("quote")
}

// Symbol returns a new Symbol atom. Names longer than atom.MaxSymbolLen
// bytes are rejected with KindSymbolTooLong.
func (r *Runtime) Symbol(name string) (*Atom, error) {
	sym, err := atom.NewSymbol(errors.PhaseRuntime, name)
	if err != nil {
		return nil, err
	}
	return r.alloc("symbol", slab.Cell{Tag: atom.TagSymbol, Symbol: sym})
}

// String returns s as a proper list of Char atoms. The empty string is Nil.
func (r *Runtime) String(s []byte) (*Atom, error) {
	if err := r.check("string"); err != nil {
		return nil, err
	}
	items := make([]slab.Ref, 0, len(s))
	for _, c := range s {
		ref, err := r.interp.Char(int8(c))
		if err != nil {
			for _, it := range items {
				r.slab.Release(it)
			}
			return nil, err
		}
		items = append(items, ref)
	}
	return r.wrapErr(r.interp.List(items...))
}

func (r *Runtime) alloc(op string, c slab.Cell) (*Atom, error) {
	if err := r.check(op); err != nil {
		return nil, err
	}
	return r.wrapErr(r.interp.Alloc(c))
}

func (r *Runtime) cell(op string, b Borrowed) (slab.Cell, error) {
	ref, err := r.deref(op, b)
	if err != nil {
		return slab.Cell{}, err
	}
	return r.slab.Get(ref)
}

func (r *Runtime) expect(op string, b Borrowed, tag atom.Tag) (slab.Cell, error) {
	c, err := r.cell(op, b)
	if err != nil {
		return c, err
	}
	if c.Tag != tag {
		return c, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
			Want(tag.String()).
			Got(c.Tag.String()).
			Detail("%s", op).
			Build()
	}
	return c, nil
}

// TypeOf returns the tag of b. It never consumes.
func (r *Runtime) TypeOf(b Borrowed) (atom.Tag, error) {
	c, err := r.cell("type of", b)
	if err != nil {
		return atom.TagNone, err
	}
	return c.Tag, nil
}

// CharValue returns the payload of a Char atom.
func (r *Runtime) CharValue(b Borrowed) (int8, error) {
	c, err := r.expect("char value", b, atom.TagChar)
	return c.Char, err
}

// NumberValue returns the payload of a Number atom.
func (r *Runtime) NumberValue(b Borrowed) (int64, error) {
	c, err := r.expect("number value", b, atom.TagNumber)
	return c.Number, err
}

// SymbolName returns the name of a Symbol atom.
func (r *Runtime) SymbolName(b Borrowed) (string, error) {
	c, err := r.expect("symbol name", b, atom.TagSymbol)
	if err != nil {
		return "", err
	}
	return c.Symbol.String(), nil
}

// Value decodes b into an arena-independent snapshot.
func (r *Runtime) Value(b Borrowed) (atom.Value, error) {
	c, err := r.cell("value", b)
	if err != nil {
		return atom.Value{}, err
	}
	v := atom.Value{Tag: c.Tag}
	switch c.Tag {
	case atom.TagChar:
		v.Char = c.Char
	case atom.TagNumber:
		v.Number = c.Number
	case atom.TagSymbol:
		v.Symbol = c.Symbol.String()
	case atom.TagNone, atom.TagNil, atom.TagTrue, atom.TagPair, atom.TagWildcard:
	}
	return v, nil
}

// Text decodes a proper list of Char atoms.
func (r *Runtime) Text(b Borrowed) (string, error) {
	ref, err := r.deref("text", b)
	if err != nil {
		return "", err
	}
	return r.interp.Text(ref)
}
