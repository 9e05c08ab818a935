package runtime

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/engine"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/resource"
	"github.com/wippyai/rikiki/slab"
	"github.com/wippyai/rikiki/stdlib"
)

// Config holds configuration for runtime creation
type Config struct {
	// Logger overrides the engine logger. nil uses engine.Logger().
	Logger *zap.Logger

	// MaxDepth bounds nested evaluation. 0 means engine.DefaultMaxDepth.
	MaxDepth int

	// Streams of the default I/O frame. nil means the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Modules are registered before init, after the default library.
	Modules []engine.Module

	// Bare skips the default library in Open.
	Bare bool
}

// Runtime is the host-facing entry point: one interpreter over one slab
// plus the handle table that tracks every Atom given to the host.
// It is not safe for concurrent use.
type Runtime struct {
	interp   *engine.Interp
	slab     *slab.Slab
	handles  *resource.Table
	stats    *handleStats
	log      *zap.Logger
	ioPushed bool
	closed   bool
}

// New creates a runtime bound to s. Modules are not initialized; see Open
// for the full startup sequence.
func New(ctx context.Context, s *slab.Slab, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	in, err := engine.New(s, &engine.Config{
		Logger:   cfg.Logger,
		MaxDepth: cfg.MaxDepth,
		Stdin:    cfg.Stdin,
		Stdout:   cfg.Stdout,
		Stderr:   cfg.Stderr,
	})
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		interp:  in,
		slab:    s,
		handles: resource.NewTable(),
		stats:   &handleStats{},
		log:     in.Log(),
	}
	r.handles.Subscribe(r.stats)

	if !cfg.Bare {
		if err := in.RegisterModule(ctx, stdlib.New()); err != nil {
			in.Close(ctx)
			return nil, err
		}
	}
	for _, m := range cfg.Modules {
		if err := in.RegisterModule(ctx, m); err != nil {
			in.Close(ctx)
			return nil, err
		}
	}
	return r, nil
}

// Open creates a runtime and runs the startup sequence: module init,
// default library load, and a pushed default I/O frame. Any failure
// closes the partially constructed runtime.
func Open(ctx context.Context, s *slab.Slab, cfg *Config) (*Runtime, error) {
	r, err := New(ctx, s, cfg)
	if err != nil {
		return nil, err
	}
	if err := r.InitModules(ctx); err != nil {
		r.Close(ctx)
		return nil, err
	}
	if err := r.LoadDefaults(ctx); err != nil {
		r.Close(ctx)
		return nil, err
	}
	if err := r.PushIO(nil); err != nil {
		r.Close(ctx)
		return nil, err
	}
	r.ioPushed = true
	r.log.Debug("runtime open", zap.Int("live", s.Len()), zap.Int("capacity", s.Cap()))
	return r, nil
}

// Close tears the runtime down: pops the I/O frame pushed by Open,
// reclaims handles the host never released, finalizes modules and unbinds
// the slab. The slab itself can be closed afterwards.
func (r *Runtime) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	if r.ioPushed {
		r.interp.PopIO()
		r.ioPushed = false
	}

	if leaked := r.handles.Drain(func(ref slab.Ref) { r.slab.Release(ref) }); leaked > 0 {
		r.log.Warn("released leaked handles", zap.Int("count", leaked))
	}
	r.handles.Close()

	err := r.interp.Close(ctx)
	r.closed = true
	r.log.Debug("runtime closed", zap.Int("live", r.slab.Len()))
	return err
}

func (r *Runtime) check(op string) error {
	if r.closed {
		return errors.NotInitialized(errors.PhaseRuntime, "runtime (closed) in "+op)
	}
	return nil
}

// Interp exposes the underlying interpreter.
func (r *Runtime) Interp() *engine.Interp {
	return r.interp
}

// Slab returns the arena the runtime is bound to.
func (r *Runtime) Slab() *slab.Slab {
	return r.slab
}

// InitModules installs host functions and registered modules.
func (r *Runtime) InitModules(ctx context.Context) error {
	if err := r.check("init"); err != nil {
		return err
	}
	return r.interp.InitModules(ctx)
}

// FiniModules finalizes modules and releases the builtin table.
func (r *Runtime) FiniModules(ctx context.Context) {
	if r.closed {
		return
	}
	r.interp.FiniModules(ctx)
}

// LoadDefaults evaluates the default library source.
func (r *Runtime) LoadDefaults(ctx context.Context) error {
	if err := r.check("load defaults"); err != nil {
		return err
	}
	return r.interp.LoadDefaults(ctx)
}

// PushIO installs an I/O frame; nil pushes the default frame.
func (r *Runtime) PushIO(frame *engine.IOFrame) error {
	if err := r.check("push io"); err != nil {
		return err
	}
	return r.interp.PushIO(frame)
}

// PopIO removes the most recently pushed I/O frame.
func (r *Runtime) PopIO() error {
	if err := r.check("pop io"); err != nil {
		return err
	}
	return r.interp.PopIO()
}

// RegisterModule adds a module; see engine.Interp.RegisterModule.
func (r *Runtime) RegisterModule(ctx context.Context, m engine.Module) error {
	if err := r.check("register module"); err != nil {
		return err
	}
	return r.interp.RegisterModule(ctx, m)
}

// LiveHandles returns the number of Atoms the host currently holds.
func (r *Runtime) LiveHandles() int {
	return r.handles.Len()
}

// HandleStats summarizes handle traffic over the runtime's lifetime.
type HandleStats struct {
	Created  int
	Dropped  int
	Borrowed int
}

// Stats returns handle traffic counters.
func (r *Runtime) Stats() HandleStats {
	return HandleStats(*r.stats)
}

type handleStats HandleStats

func (s *handleStats) OnResourceEvent(e resource.Event) {
	switch e.Type {
	case resource.EventCreated:
		s.Created++
	case resource.EventDropped:
		s.Dropped++
	case resource.EventBorrowed:
		s.Borrowed++
	}
}
