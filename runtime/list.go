package runtime

import (
	"github.com/wippyai/rikiki/atom"
	"github.com/wippyai/rikiki/slab"
)

// Cons returns a new pair of first and rest. Both arguments are consumed,
// whether or not Cons succeeds.
func (r *Runtime) Cons(first, rest *Atom) (*Atom, error) {
	a, err := r.take("cons", first)
	if err != nil {
		releaseAll([]*Atom{first, rest})
		return nil, err
	}
	b, err := r.take("cons", rest)
	if err != nil {
		r.slab.Release(a)
		rest.Release()
		return nil, err
	}
	return r.wrapErr(r.interp.Cons(a, b))
}

// First returns the first element of a pair.
func (r *Runtime) First(p Borrowed) (*Atom, error) {
	c, err := r.expect("first", p, atom.TagPair)
	if err != nil {
		return nil, err
	}
	return r.wrapErr(r.interp.Retain(c.First))
}

// Rest returns the rest of a pair.
func (r *Runtime) Rest(p Borrowed) (*Atom, error) {
	c, err := r.expect("rest", p, atom.TagPair)
	if err != nil {
		return nil, err
	}
	return r.wrapErr(r.interp.Retain(c.Rest))
}

// List builds a proper list, consuming every item.
func (r *Runtime) List(items ...*Atom) (*Atom, error) {
	refs := make([]slab.Ref, 0, len(items))
	for i, it := range items {
		ref, err := r.take("list", it)
		if err != nil {
			for _, taken := range refs {
				r.slab.Release(taken)
			}
			releaseAll(items[i:])
			return nil, err
		}
		refs = append(refs, ref)
	}
	return r.wrapErr(r.interp.List(refs...))
}

// Slice returns new handles to the elements of a proper list.
func (r *Runtime) Slice(list Borrowed) ([]*Atom, error) {
	ref, err := r.deref("slice", list)
	if err != nil {
		return nil, err
	}
	elems, err := r.interp.Slice(ref)
	if err != nil {
		return nil, err
	}
	out := make([]*Atom, 0, len(elems))
	for _, e := range elems {
		a, err := r.wrapErr(r.interp.Retain(e))
		if err != nil {
			releaseAll(out)
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Equal reports structural equality.
func (r *Runtime) Equal(a, b Borrowed) (bool, error) {
	ra, err := r.deref("equal", a)
	if err != nil {
		return false, err
	}
	rb, err := r.deref("equal", b)
	if err != nil {
		return false, err
	}
	return r.interp.Equal(ra, rb)
}
