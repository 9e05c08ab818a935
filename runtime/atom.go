package runtime

import (
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/resource"
	"github.com/wippyai/rikiki/slab"
)

// Atom is an owned handle to a runtime value. The holder must call Release
// exactly once unless the handle is passed to a consuming operation, which
// empties it. Releasing an empty or nil handle is a no-op.
type Atom struct {
	rt *Runtime
	h  resource.Handle
}

// Borrowed is a non-owning view of an Atom, valid while the Atom is.
// It has no Release method.
type Borrowed struct {
	rt *Runtime
	h  resource.Handle
}

// Borrow returns a borrowed view of a.
func (a *Atom) Borrow() Borrowed {
	if a == nil {
		return Borrowed{}
	}
	return Borrowed{rt: a.rt, h: a.h}
}

// Valid reports whether a still holds a reference.
func (a *Atom) Valid() bool {
	return a != nil && a.h != 0
}

// Release drops the reference a holds and empties it.
func (a *Atom) Release() error {
	if a == nil || a.h == 0 {
		return nil
	}
	rt := a.rt
	if rt.closed {
		// Reclaimed by Close.
		a.h = 0
		return nil
	}
	ref, err := rt.handles.Remove(a.h)
	if err != nil {
		return err
	}
	a.h = 0
	return rt.slab.Release(ref)
}

// IsZero reports whether b is the zero Borrowed, which Eval accepts as
// "no environment". A view of a consumed Atom is not zero.
func (b Borrowed) IsZero() bool {
	return b.rt == nil && b.h == 0
}

// wrap places an owned reference behind a new handle. ref is consumed.
func (r *Runtime) wrap(ref slab.Ref) (*Atom, error) {
	h, err := r.handles.Insert(ref)
	if err != nil {
		r.slab.Release(ref)
		return nil, err
	}
	return &Atom{rt: r, h: h}, nil
}

// wrapErr is wrap for the common (ref, err) return pair.
func (r *Runtime) wrapErr(ref slab.Ref, err error) (*Atom, error) {
	if err != nil {
		return nil, err
	}
	return r.wrap(ref)
}

// take consumes a, transferring its reference to the caller.
func (r *Runtime) take(op string, a *Atom) (slab.Ref, error) {
	if err := r.check(op); err != nil {
		return 0, err
	}
	if a == nil || a.h == 0 {
		return 0, errors.Consumed(op)
	}
	if a.rt != r {
		return 0, foreign(op)
	}
	ref, err := r.handles.Remove(a.h)
	if err != nil {
		return 0, err
	}
	a.h = 0
	return ref, nil
}

// deref resolves a borrowed view without taking ownership.
func (r *Runtime) deref(op string, b Borrowed) (slab.Ref, error) {
	if err := r.check(op); err != nil {
		return 0, err
	}
	if b.h == 0 {
		return 0, errors.Consumed(op)
	}
	if b.rt != r {
		return 0, foreign(op)
	}
	return r.handles.Get(b.h)
}

// releaseAll releases owned handles; used to honor consume-on-failure.
func releaseAll(atoms []*Atom) {
	for _, a := range atoms {
		a.Release()
	}
}

func foreign(op string) error {
	return errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
		Detail("%s: handle belongs to another runtime", op).
		Build()
}
