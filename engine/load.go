package engine

import (
	"bufio"
	"context"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// MaxPathLen is the longest path LoadFile accepts.
const MaxPathLen = 255

// LoadFile reads and evaluates every form in the file at path under its
// own I/O frame and returns the value of the last form. An empty file
// yields None. The first read or evaluation failure aborts the load.
func (in *Interp) LoadFile(ctx context.Context, path string) (slab.Ref, error) {
	if err := in.usable(errors.PhaseLoad); err != nil {
		return 0, err
	}
	if path == "" {
		return 0, errors.InvalidInput(errors.PhaseLoad, "empty path")
	}
	if len(path) > MaxPathLen {
		return 0, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Detail("path is %d bytes, limit is %d", len(path), MaxPathLen).
			Build()
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Source(path, 0).
			Cause(err).
			Build()
	}
	defer f.Close()

	return in.LoadReader(ctx, path, bufio.NewReader(f))
}

// LoadReader is LoadFile over an arbitrary source; name labels errors.
func (in *Interp) LoadReader(ctx context.Context, name string, src io.Reader) (slab.Ref, error) {
	if err := in.usable(errors.PhaseLoad); err != nil {
		return 0, err
	}
	frame := &IOFrame{Name: name, In: src}
	if err := in.PushIO(frame); err != nil {
		return 0, err
	}
	defer in.PopIO()

	in.log.Debug("load start", zap.String("source", name))

	rd := frame.Reader(in)
	env, err := in.Nil()
	if err != nil {
		return 0, err
	}
	defer in.slab.Release(env)

	var last slab.Ref
	forms := 0
	for {
		form, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			in.slab.Release(last)
			return 0, in.loadFailed(name, rd.Line(), err)
		}
		line := rd.Line()
		v, err := in.Eval(ctx, env, form)
		if err != nil {
			in.slab.Release(last)
			return 0, in.loadFailed(name, line, err)
		}
		in.slab.Release(last)
		last = v
		forms++
	}

	in.log.Debug("load finish", zap.String("source", name), zap.Int("forms", forms))
	if last.IsZero() {
		return in.None()
	}
	return last, nil
}

func (in *Interp) loadFailed(name string, line int, cause error) error {
	in.log.Debug("load aborted", zap.String("source", name), zap.Int("line", line), zap.Error(cause))
	return errors.Load(name, line, cause)
}
