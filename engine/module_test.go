package engine

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/rikiki/atom"
	rerrors "github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

type recordingModule struct {
	name     string
	log      *[]string
	initErr  error
	defaults string
}

func (m *recordingModule) Name() string { return m.name }

func (m *recordingModule) Init(ctx context.Context, in *Interp) error {
	*m.log = append(*m.log, "init "+m.name)
	if m.initErr != nil {
		return m.initErr
	}
	return in.Register(m.name, func(c *Call) (slab.Ref, error) {
		return c.Interp.Symbol(m.name)
	})
}

func (m *recordingModule) Fini(ctx context.Context, in *Interp) {
	*m.log = append(*m.log, "fini "+m.name)
}

type defaultsModule struct {
	recordingModule
}

func (m *defaultsModule) Defaults() string { return m.defaults }

func TestModules_InitFiniOrder(t *testing.T) {
	in := newInterp(t, nil)
	ctx := context.Background()
	var log []string

	for _, name := range []string{"a", "b", "c"} {
		if err := in.RegisterModule(ctx, &recordingModule{name: name, log: &log}); err != nil {
			t.Fatal(err)
		}
	}
	if err := in.InitModules(ctx); err != nil {
		t.Fatalf("InitModules: %v", err)
	}
	if !in.Ready() {
		t.Fatal("expected ready interpreter")
	}
	if got := mustEval(t, in, "(b)"); got != "b" {
		t.Fatalf("(b) = %s", got)
	}

	in.FiniModules(ctx)
	want := []string{"init a", "init b", "init c", "fini c", "fini b", "fini a"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
	if _, err := evalIn(t, in, 0, "(b)"); !errors.Is(err, rerrors.ErrUnboundSymbol) {
		t.Fatalf("builtin should be unbound after fini, got %v", err)
	}
}

func TestModules_InitFailureLeavesInterpUnusable(t *testing.T) {
	in := newInterp(t, nil)
	ctx := context.Background()
	var log []string
	boom := errors.New("boom")

	in.RegisterModule(ctx, &recordingModule{name: "good", log: &log})
	in.RegisterModule(ctx, &recordingModule{name: "bad", log: &log, initErr: boom})
	in.RegisterModule(ctx, &recordingModule{name: "never", log: &log})

	err := in.InitModules(ctx)
	if err == nil {
		t.Fatal("expected init failure")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause not preserved: %v", err)
	}
	var e *rerrors.Error
	if !errors.As(err, &e) || e.Kind != rerrors.KindModuleInit || e.Source != "bad" {
		t.Fatalf("unexpected error %v", err)
	}
	if !in.Failed() {
		t.Fatal("interpreter should be marked failed")
	}

	want := []string{"init good", "init bad", "fini good"}
	if len(log) != len(want) || log[0] != want[0] || log[1] != want[1] || log[2] != want[2] {
		t.Fatalf("log = %v, want %v", log, want)
	}

	checks := map[string]error{
		"InitModules":  in.InitModules(ctx),
		"LoadDefaults": in.LoadDefaults(ctx),
		"PushIO":       in.PushIO(nil),
		"Register":     in.Register("x", func(*Call) (slab.Ref, error) { return 0, nil }),
	}
	_, checks["Eval"] = in.Eval(ctx, 0, 0)
	_, checks["LoadReader"] = in.LoadReader(ctx, "x", nil)
	for name, err := range checks {
		if !errors.Is(err, rerrors.ErrNotInitialized) {
			t.Errorf("%s after failed init: %v, want not initialized", name, err)
		}
	}
}

func TestModules_LoadDefaults(t *testing.T) {
	in := newInterp(t, nil)
	ctx := context.Background()
	var log []string

	m := &defaultsModule{recordingModule{name: "lib", log: &log, defaults: "(def answer 42)\n(def again answer)"}}
	in.RegisterModule(ctx, m)

	if err := in.LoadDefaults(ctx); !errors.Is(err, rerrors.ErrNotInitialized) {
		t.Fatalf("LoadDefaults before init: %v", err)
	}
	if err := in.InitModules(ctx); err != nil {
		t.Fatal(err)
	}
	if err := in.LoadDefaults(ctx); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	if got := mustEval(t, in, "again"); got != "42" {
		t.Fatalf("again = %s", got)
	}
	if in.IODepth() != 0 {
		t.Fatalf("LoadDefaults left %d I/O frames", in.IODepth())
	}
}

func TestModules_LoadDefaultsFailure(t *testing.T) {
	in := newInterp(t, nil)
	ctx := context.Background()
	var log []string

	in.RegisterModule(ctx, &defaultsModule{recordingModule{name: "lib", log: &log, defaults: "(undefined)"}})
	if err := in.InitModules(ctx); err != nil {
		t.Fatal(err)
	}
	err := in.LoadDefaults(ctx)
	if !errors.Is(err, rerrors.ErrUnboundSymbol) || !errors.Is(err, rerrors.ErrModuleInit) {
		t.Fatalf("LoadDefaults error = %v", err)
	}
}

func TestModules_StaleDesignatorAfterFini(t *testing.T) {
	in := newInterp(t, nil)
	ctx := context.Background()
	var log []string
	in.RegisterModule(ctx, &recordingModule{name: "m", log: &log})
	if err := in.InitModules(ctx); err != nil {
		t.Fatal(err)
	}

	// Keep the designator alive past fini.
	g, ok := in.Global(atom.MustSymbol("m"))
	if !ok {
		t.Fatal("m not bound")
	}
	held, err := in.Retain(g)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Release(held)

	in.FiniModules(ctx)
	if err := in.InitModules(ctx); err != nil {
		t.Fatalf("re-init: %v", err)
	}

	_, err = in.Apply(ctx, held, nil)
	if !errors.Is(err, rerrors.ErrNotFound) {
		t.Fatalf("stale designator: %v, want not found", err)
	}
	if s, _ := in.Sprint(held); s != "<builtin ?>" {
		t.Fatalf("stale designator prints %s", s)
	}
	if got := mustEval(t, in, "(m)"); got != "m" {
		t.Fatalf("fresh binding (m) = %s", got)
	}
}

func TestModules_HostFuncs(t *testing.T) {
	in := newInterp(t, nil)
	ctx := context.Background()

	answer := func(c *Call) (slab.Ref, error) { return c.Interp.Number(42) }
	if err := in.RegisterFunc("answer", answer); err != nil {
		t.Fatal(err)
	}
	if _, err := evalIn(t, in, 0, "(answer)"); !errors.Is(err, rerrors.ErrUnboundSymbol) {
		t.Fatalf("host func installed before init: %v", err)
	}
	if err := in.InitModules(ctx); err != nil {
		t.Fatal(err)
	}
	if got := mustEval(t, in, "(answer)"); got != "42" {
		t.Fatalf("(answer) = %s", got)
	}

	// Registered after init: installed at once.
	if err := in.RegisterFunc("zero", func(c *Call) (slab.Ref, error) { return c.Interp.Number(0) }); err != nil {
		t.Fatal(err)
	}
	if got := mustEval(t, in, "(zero)"); got != "0" {
		t.Fatalf("(zero) = %s", got)
	}

	// Reinstalled after a fini/init cycle.
	in.FiniModules(ctx)
	if err := in.InitModules(ctx); err != nil {
		t.Fatal(err)
	}
	if got := mustEval(t, in, "(answer)"); got != "42" {
		t.Fatalf("(answer) after re-init = %s", got)
	}

	if err := in.RegisterFunc("this-name-is-too-long", answer); !errors.Is(err, rerrors.ErrSymbolTooLong) {
		t.Fatalf("long name: %v", err)
	}
	if err := in.RegisterFunc("nilfn", nil); err == nil {
		t.Fatal("expected error for nil function")
	}
}

func TestModules_DuplicateAndLateRegistration(t *testing.T) {
	in := newInterp(t, nil)
	ctx := context.Background()
	var log []string

	if err := in.RegisterModule(ctx, &recordingModule{name: "a", log: &log}); err != nil {
		t.Fatal(err)
	}
	if err := in.RegisterModule(ctx, &recordingModule{name: "a", log: &log}); err == nil {
		t.Fatal("duplicate module name should fail")
	}
	if err := in.InitModules(ctx); err != nil {
		t.Fatal(err)
	}
	if err := in.InitModules(ctx); err == nil {
		t.Fatal("second InitModules should fail")
	}

	if err := in.RegisterModule(ctx, &recordingModule{name: "late", log: &log}); err != nil {
		t.Fatal(err)
	}
	if got := mustEval(t, in, "(late)"); got != "late" {
		t.Fatalf("(late) = %s", got)
	}
	if n := len(in.Modules()); n != 2 {
		t.Fatalf("Modules() = %d, want 2", n)
	}
}

func TestModules_DebugEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	in := newArithInterp(t, &Config{Logger: zap.New(core)})

	if got := mustEval(t, in, "(+ 1 2)"); got != "3" {
		t.Fatalf("(+ 1 2) = %s", got)
	}

	installed := logs.FilterMessage("builtin installed").FilterField(zap.String("name", "+"))
	if installed.Len() != 1 {
		t.Fatalf("builtin installed events for + = %d, want 1", installed.Len())
	}
	applied := logs.FilterMessage("apply builtin").FilterField(zap.Int("args", 2))
	if applied.Len() != 1 {
		t.Fatalf("apply builtin events = %d, want 1", applied.Len())
	}
}
