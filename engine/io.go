package engine

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/reader"
)

// IOFrame is one entry of the I/O context stack. The frame on top supplies
// the streams used by prin, prinl and read.
type IOFrame struct {
	In   io.Reader
	Out  io.Writer
	Err  io.Writer
	Name string

	rd *reader.Reader
}

// DefaultFrame returns a frame over the interpreter's configured streams.
func (in *Interp) DefaultFrame() *IOFrame {
	return &IOFrame{
		Name: "stdin",
		In:   in.stdin,
		Out:  in.stdout,
		Err:  in.stderr,
	}
}

// PushIO installs frame on top of the I/O stack. A nil frame pushes
// DefaultFrame. Missing streams are inherited from the current top.
func (in *Interp) PushIO(frame *IOFrame) error {
	if err := in.usable(errors.PhaseIO); err != nil {
		return err
	}
	if frame == nil {
		frame = in.DefaultFrame()
	}
	top := in.CurrentIO()
	if frame.In == nil {
		frame.In = top.In
		if frame.Name == "" {
			frame.Name = top.Name
		}
	}
	if frame.Out == nil {
		frame.Out = top.Out
	}
	if frame.Err == nil {
		frame.Err = top.Err
	}
	in.io = append(in.io, frame)
	in.log.Debug("io push", zap.String("frame", frame.Name), zap.Int("depth", len(in.io)))
	return nil
}

// PopIO removes the most recently pushed frame.
func (in *Interp) PopIO() error {
	if len(in.io) == 0 {
		return errors.InvalidInput(errors.PhaseIO, "I/O stack is empty")
	}
	top := in.io[len(in.io)-1]
	in.io[len(in.io)-1] = nil
	in.io = in.io[:len(in.io)-1]
	in.log.Debug("io pop", zap.String("frame", top.Name), zap.Int("depth", len(in.io)))
	return nil
}

// IODepth returns the number of pushed frames.
func (in *Interp) IODepth() int {
	return len(in.io)
}

// CurrentIO returns the top frame, or a base frame over the configured
// streams when the stack is empty.
func (in *Interp) CurrentIO() *IOFrame {
	if len(in.io) == 0 {
		if in.base == nil {
			in.base = in.DefaultFrame()
		}
		return in.base
	}
	return in.io[len(in.io)-1]
}

// Reader returns the frame's form reader, created on first use so that
// successive reads share buffered input.
func (f *IOFrame) Reader(in *Interp) *reader.Reader {
	if f.rd == nil {
		f.rd = reader.New(in.slab, f.Name, f.In)
	}
	return f.rd
}
