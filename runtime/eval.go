package runtime

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// Eval evaluates expr under env and returns the result. expr is consumed
// even on failure; env is borrowed and may be zero for no lexical frames.
// While Eval runs, the Atom behind env cannot be released.
//
// env must be a list of bindings (sym . value) or of frames of bindings.
// To evaluate inside a closure's context pass its captured environment,
// the rest of its rest, never the closure itself.
func (r *Runtime) Eval(ctx context.Context, env Borrowed, expr *Atom) (*Atom, error) {
	e, err := r.take("eval", expr)
	if err != nil {
		expr.Release()
		return nil, err
	}

	var envRef slab.Ref
	if !env.IsZero() {
		if env.rt != r {
			r.slab.Release(e)
			return nil, foreign("eval")
		}
		if env.h == 0 {
			r.slab.Release(e)
			return nil, errors.Consumed("eval environment")
		}
		envRef, err = r.handles.Borrow(env.h)
		if err != nil {
			r.slab.Release(e)
			return nil, err
		}
		defer r.handles.ReturnBorrow(env.h)
	}

	return r.wrapErr(r.interp.Eval(ctx, envRef, e))
}

// LoadFile evaluates every form of the file at path and returns the value
// of the last one, or None for an empty file. The first failing form
// aborts the load.
func (r *Runtime) LoadFile(ctx context.Context, path string) (*Atom, error) {
	if err := r.check("load file"); err != nil {
		return nil, err
	}
	r.log.Debug("load file", zap.String("path", path))
	return r.wrapErr(r.interp.LoadFile(ctx, path))
}

// LoadReader is LoadFile over an arbitrary source.
func (r *Runtime) LoadReader(ctx context.Context, name string, src io.Reader) (*Atom, error) {
	if err := r.check("load"); err != nil {
		return nil, err
	}
	return r.wrapErr(r.interp.LoadReader(ctx, name, src))
}

// EvalString evaluates every form in src and returns the last value.
func (r *Runtime) EvalString(ctx context.Context, src string) (*Atom, error) {
	return r.LoadReader(ctx, "string", strings.NewReader(src))
}

// Sprint renders b in reader syntax.
func (r *Runtime) Sprint(b Borrowed) (string, error) {
	ref, err := r.deref("print", b)
	if err != nil {
		return "", err
	}
	return r.interp.Sprint(ref)
}

// Display writes b for humans, strings and characters unquoted.
func (r *Runtime) Display(w io.Writer, b Borrowed) error {
	ref, err := r.deref("display", b)
	if err != nil {
		return err
	}
	return r.interp.Display(w, ref)
}
