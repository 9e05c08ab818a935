package runtime

import (
	"context"

	"github.com/wippyai/rikiki/engine"
	"github.com/wippyai/rikiki/resource"
	"github.com/wippyai/rikiki/slab"
)

// HostFunc is a Go function callable from Lisp code. Arguments are
// borrowed for the duration of the call. The returned Atom is consumed;
// a nil result evaluates to None.
type HostFunc func(ctx context.Context, rt *Runtime, args []Borrowed) (*Atom, error)

// RegisterFunc binds fn to name. Functions registered before InitModules
// are installed by it; later registrations take effect at once.
func (r *Runtime) RegisterFunc(name string, fn HostFunc) error {
	if err := r.check("register func"); err != nil {
		return err
	}
	var native engine.Func
	if fn != nil {
		native = r.native(fn)
	}
	return r.interp.RegisterFunc(name, native)
}

// native adapts a HostFunc to the engine calling convention. Arguments
// are published as borrowed handles and withdrawn when the call returns.
func (r *Runtime) native(fn HostFunc) engine.Func {
	return func(c *engine.Call) (slab.Ref, error) {
		handles := make([]resource.Handle, 0, len(c.Args))
		defer func() {
			for _, h := range handles {
				r.handles.ReturnBorrow(h)
				if ref, err := r.handles.Remove(h); err == nil {
					r.slab.Release(ref)
				}
			}
		}()

		args := make([]Borrowed, 0, len(c.Args))
		for _, ref := range c.Args {
			if err := r.slab.Retain(ref); err != nil {
				return 0, err
			}
			h, err := r.handles.Insert(ref)
			if err != nil {
				r.slab.Release(ref)
				return 0, err
			}
			handles = append(handles, h)
			if _, err := r.handles.Borrow(h); err != nil {
				return 0, err
			}
			args = append(args, Borrowed{rt: r, h: h})
		}

		res, err := fn(c.Ctx, r, args)
		if err != nil {
			res.Release()
			return 0, err
		}
		if res == nil {
			return 0, nil
		}
		return r.take("host result", res)
	}
}
