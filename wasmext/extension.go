package wasmext

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/rikiki/engine"
	"github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// Config holds configuration for extension instantiation
type Config struct {
	// MemoryLimitPages caps guest memory in 64KB pages. 0 means the
	// wazero default.
	MemoryLimitPages uint32

	// Prefix is prepended to every builtin name, e.g. "m." binds add as m.add.
	Prefix string
}

// Extension is an engine.Module whose builtins are the exports of a core
// WASM module. Signatures come from WIT text; each declared function must
// be exported with the matching flat core type.
type Extension struct {
	name    string
	wasm    []byte
	sigs    []Signature
	cfg     Config
	runtime wazero.Runtime
	inst    api.Module
}

// New parses witText and returns an extension that compiles wasm on Init.
func New(name string, wasm []byte, witText string, cfg *Config) (*Extension, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseExtension, "empty extension name")
	}
	sigs, err := ParseSignatures(witText)
	if err != nil {
		return nil, err
	}
	e := &Extension{name: name, wasm: wasm, sigs: sigs}
	if cfg != nil {
		e.cfg = *cfg
	}
	return e, nil
}

// Open loads path and the WIT file next to it (same base name, .wit
// extension). The extension is named after the file.
func Open(path string, cfg *Config) (*Extension, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseExtension, errors.KindNotFound).
			Detail("read %s", path).
			Cause(err).
			Build()
	}
	witPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".wit"
	witText, err := os.ReadFile(witPath)
	if err != nil {
		return nil, errors.New(errors.PhaseExtension, errors.KindNotFound).
			Detail("read %s", witPath).
			Cause(err).
			Build()
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(name, wasm, string(witText), cfg)
}

func (e *Extension) Name() string { return e.name }

// Signatures returns the declared functions.
func (e *Extension) Signatures() []Signature {
	return e.sigs
}

// Init compiles and instantiates the module, then registers one builtin
// per declared function. Missing exports are reported together.
func (e *Extension) Init(ctx context.Context, in *engine.Interp) error {
	log := in.Log().With(zap.String("extension", e.name))

	rcfg := wazero.NewRuntimeConfig()
	if e.cfg.MemoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rcfg)

	compiled, err := rt.CompileModule(ctx, e.wasm)
	if err != nil {
		rt.Close(ctx)
		return errors.Wrap(errors.PhaseExtension, errors.KindInvalidInput, err, "compile "+e.name)
	}

	exports := compiled.ExportedFunctions()
	var missing []string
	for _, sig := range e.sigs {
		def, ok := exports[sig.Name]
		if !ok {
			missing = append(missing, e.name+"#"+sig.Name)
			continue
		}
		if err := sig.check(def); err != nil {
			rt.Close(ctx)
			return err
		}
	}
	if len(missing) > 0 {
		rt.Close(ctx)
		return errors.NewMissingExportsError(missing)
	}

	inst, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		rt.Close(ctx)
		return errors.Wrap(errors.PhaseExtension, errors.KindModuleInit, err, "instantiate "+e.name)
	}
	e.runtime, e.inst = rt, inst

	for _, sig := range e.sigs {
		if err := in.Register(e.cfg.Prefix+sig.Name, e.builtin(sig, inst.ExportedFunction(sig.Name))); err != nil {
			e.close(ctx)
			return err
		}
	}
	log.Debug("extension instantiated", zap.Int("functions", len(e.sigs)))
	return nil
}

func (e *Extension) Fini(ctx context.Context, in *engine.Interp) {
	if err := e.close(ctx); err != nil {
		in.Log().Warn("extension close failed", zap.String("extension", e.name), zap.Error(err))
	}
}

func (e *Extension) close(ctx context.Context) error {
	if e.runtime == nil {
		return nil
	}
	err := e.runtime.Close(ctx)
	e.runtime, e.inst = nil, nil
	return err
}

// builtin adapts one export to the builtin calling convention. No results
// yield None, one result its atom, several results a proper list.
func (e *Extension) builtin(sig Signature, fn api.Function) engine.Func {
	return func(c *engine.Call) (slab.Ref, error) {
		if err := c.Arity(len(sig.Params)); err != nil {
			return 0, err
		}
		params := make([]uint64, len(sig.Params))
		for i, p := range sig.Params {
			v, err := lower(c, i, p)
			if err != nil {
				return 0, err
			}
			params[i] = v
		}

		results, err := fn.Call(c.Ctx, params...)
		if err != nil {
			return 0, errors.New(errors.PhaseExtension, errors.KindInvalidInput).
				Detail("call %s", c.Name).
				Cause(err).
				Build()
		}

		switch len(sig.Results) {
		case 0:
			return 0, nil
		case 1:
			return lift(c.Interp, sig.Results[0], results[0])
		}
		refs := make([]slab.Ref, 0, len(sig.Results))
		for i, t := range sig.Results {
			r, err := lift(c.Interp, t, results[i])
			if err != nil {
				for _, done := range refs {
					c.Interp.Release(done)
				}
				return 0, err
			}
			refs = append(refs, r)
		}
		return c.Interp.List(refs...)
	}
}
