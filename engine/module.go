package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/errors"
)

// Module contributes builtins to an interpreter.
type Module interface {
	// Name identifies the module in logs and errors.
	Name() string
	// Init installs the module's bindings, typically with Interp.Register.
	Init(ctx context.Context, in *Interp) error
	// Fini releases module resources. Bindings are released by the
	// interpreter afterwards.
	Fini(ctx context.Context, in *Interp)
}

// DefaultsProvider is implemented by modules that ship library source,
// evaluated into the global scope by LoadDefaults.
type DefaultsProvider interface {
	Defaults() string
}

// RegisterModule adds m to the modules installed by InitModules.
// Modules registered after a successful init are initialized at once.
func (in *Interp) RegisterModule(ctx context.Context, m Module) error {
	if err := in.usable(errors.PhaseModule); err != nil {
		return err
	}
	if m == nil {
		return errors.InvalidInput(errors.PhaseModule, "module is nil")
	}
	for _, existing := range in.modules {
		if existing.Name() == m.Name() {
			return errors.Registration(errors.PhaseModule, m.Name(), "",
				errors.InvalidInput(errors.PhaseModule, "module already registered"))
		}
	}
	in.modules = append(in.modules, m)
	if in.state != stateReady {
		return nil
	}
	if err := in.initModule(ctx, m); err != nil {
		in.modules = in.modules[:len(in.modules)-1]
		return err
	}
	in.inited++
	return nil
}

// Modules returns the registered modules in init order.
func (in *Interp) Modules() []Module {
	return append([]Module(nil), in.modules...)
}

// InitModules installs host functions and then every registered module,
// in registration order. On failure the modules already initialized are
// finalized and the interpreter becomes unusable; only Close remains valid.
func (in *Interp) InitModules(ctx context.Context) error {
	if err := in.usable(errors.PhaseModule); err != nil {
		return err
	}
	if in.state == stateReady {
		return errors.InvalidInput(errors.PhaseModule, "modules already initialized")
	}

	for _, hf := range in.hostFuncs {
		if err := in.Register(hf.name, hf.fn); err != nil {
			err = errors.ModuleInit("host", err)
			in.failInit(ctx, err)
			return err
		}
	}

	in.inited = 0
	for _, m := range in.modules {
		if err := in.initModule(ctx, m); err != nil {
			in.failInit(ctx, err)
			return err
		}
		in.inited++
	}

	in.state = stateReady
	in.log.Info("modules initialized",
		zap.Int("modules", len(in.modules)),
		zap.Int("builtins", len(in.builtins)))
	return nil
}

func (in *Interp) initModule(ctx context.Context, m Module) error {
	if err := m.Init(ctx, in); err != nil {
		in.log.Error("module init failed", zap.String("module", m.Name()), zap.Error(err))
		return errors.ModuleInit(m.Name(), err)
	}
	in.log.Debug("module initialized", zap.String("module", m.Name()))
	return nil
}

func (in *Interp) failInit(ctx context.Context, err error) {
	in.finiInited(ctx)
	in.dropBuiltins()
	in.state = stateFailed
	in.log.Warn("interpreter unusable", zap.Error(err))
}

// FiniModules finalizes initialized modules in reverse order and releases
// every global binding along with the builtin table. Values the host still
// holds that designate builtins stay valid cells; applying them reports
// KindNotFound.
func (in *Interp) FiniModules(ctx context.Context) {
	if in.state != stateReady {
		return
	}
	in.finiInited(ctx)
	in.dropBuiltins()
	in.state = stateFinalized
	in.log.Info("modules finalized")
}

func (in *Interp) finiInited(ctx context.Context) {
	for i := in.inited - 1; i >= 0; i-- {
		m := in.modules[i]
		m.Fini(ctx, in)
		in.log.Debug("module finalized", zap.String("module", m.Name()))
	}
	in.inited = 0
}

func (in *Interp) dropBuiltins() {
	in.releaseGlobals()
	in.builtins = nil
	in.epoch++
}

// LoadDefaults evaluates the library source of every initialized module
// that provides one. It requires a successful InitModules.
func (in *Interp) LoadDefaults(ctx context.Context) error {
	if err := in.usable(errors.PhaseModule); err != nil {
		return err
	}
	if in.state != stateReady {
		return errors.NotInitialized(errors.PhaseModule, "modules")
	}
	for _, m := range in.modules[:in.inited] {
		dp, ok := m.(DefaultsProvider)
		if !ok {
			continue
		}
		res, err := in.LoadReader(ctx, m.Name()+".l", strings.NewReader(dp.Defaults()))
		if err != nil {
			return errors.Wrap(errors.PhaseModule, errors.KindModuleInit, err, "load defaults of "+m.Name())
		}
		in.slab.Release(res)
		in.log.Debug("defaults loaded", zap.String("module", m.Name()))
	}
	return nil
}
