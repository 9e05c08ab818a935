package runtime

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/rikiki/engine"
	rerrors "github.com/wippyai/rikiki/errors"
	"github.com/wippyai/rikiki/slab"
)

// open returns a fully started runtime over a fresh slab and verifies at
// cleanup that teardown returned every cell.
func open(t *testing.T, cfg *Config) *Runtime {
	t.Helper()
	ctx := context.Background()
	s := slab.New(1 << 15)
	rt, err := Open(ctx, s, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := rt.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
		if n := s.Len(); n != 0 {
			t.Errorf("leaked %d cells", n)
		}
		if err := s.Close(); err != nil {
			t.Errorf("slab Close: %v", err)
		}
	})
	return rt
}

func TestRuntime_OpenClose(t *testing.T) {
	ctx := context.Background()
	s := slab.New(1 << 15)

	rt, err := Open(ctx, s, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !rt.Interp().Ready() {
		t.Fatal("Open should initialize modules")
	}
	if rt.Interp().IODepth() != 1 {
		t.Fatalf("Open should push one I/O frame, depth = %d", rt.Interp().IODepth())
	}
	if rt.Slab() != s {
		t.Fatal("Slab() mismatch")
	}

	if err := s.Close(); !errors.Is(err, rerrors.ErrInUse) {
		t.Fatalf("closing a bound slab: %v, want in use", err)
	}
	if _, err := New(ctx, s, nil); !errors.Is(err, rerrors.ErrInUse) {
		t.Fatalf("second runtime on a bound slab: %v, want in use", err)
	}

	if err := rt.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Close left %d live cells", s.Len())
	}
	if _, err := rt.Number(1); !errors.Is(err, rerrors.ErrNotInitialized) {
		t.Fatalf("use after Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("slab Close after runtime Close: %v", err)
	}
}

func TestRuntime_LeakedHandlesReclaimed(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	s := slab.New(64)

	rt, err := New(ctx, s, &Config{Logger: zap.New(core), Bare: true})
	if err != nil {
		t.Fatal(err)
	}
	leaked, _ := rt.Number(1)
	list, _ := rt.List(mustNumber(t, rt, 2), mustNumber(t, rt, 3))
	if rt.LiveHandles() != 2 {
		t.Fatalf("LiveHandles = %d, want 2", rt.LiveHandles())
	}

	rt.Close(ctx)
	if s.Len() != 0 {
		t.Fatalf("Close should reclaim leaked handles, Len = %d", s.Len())
	}
	entries := logs.FilterMessage("released leaked handles").All()
	if len(entries) != 1 || entries[0].ContextMap()["count"] != int64(2) {
		t.Fatalf("expected one warning with count 2, got %v", entries)
	}

	// Releasing after Close is a no-op.
	if err := leaked.Release(); err != nil {
		t.Fatalf("Release after Close: %v", err)
	}
	if err := list.Release(); err != nil {
		t.Fatalf("Release after Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

type failingModule struct{}

func (failingModule) Name() string { return "failing" }

func (failingModule) Init(ctx context.Context, in *engine.Interp) error {
	return errors.New("cannot start")
}

func (failingModule) Fini(ctx context.Context, in *engine.Interp) {}

func TestRuntime_InitFailure(t *testing.T) {
	ctx := context.Background()
	s := slab.New(1 << 15)

	_, err := Open(ctx, s, &Config{Modules: []engine.Module{failingModule{}}})
	if !errors.Is(err, rerrors.ErrModuleInit) {
		t.Fatalf("Open error = %v, want module init", err)
	}
	if s.Bound() {
		t.Fatal("failed Open must unbind the slab")
	}
	if s.Len() != 0 {
		t.Fatalf("failed Open leaked %d cells", s.Len())
	}

	// Driving init by hand leaves a runtime only Close accepts.
	rt, err := New(ctx, s, &Config{Bare: true, Modules: []engine.Module{failingModule{}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.InitModules(ctx); err == nil {
		t.Fatal("expected init failure")
	}
	n, err := rt.Number(1)
	if err != nil {
		t.Fatalf("constructors stay available for teardown: %v", err)
	}
	if _, err := rt.Eval(ctx, Borrowed{}, n); !errors.Is(err, rerrors.ErrNotInitialized) {
		t.Fatalf("Eval after failed init: %v, want not initialized", err)
	}
	if err := rt.LoadDefaults(ctx); !errors.Is(err, rerrors.ErrNotInitialized) {
		t.Fatalf("LoadDefaults after failed init: %v", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRuntime_ManualLifecycle(t *testing.T) {
	ctx := context.Background()
	s := slab.New(1 << 15)
	rt, err := New(ctx, s, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := rt.LoadDefaults(ctx); !errors.Is(err, rerrors.ErrNotInitialized) {
		t.Fatalf("LoadDefaults before init: %v", err)
	}
	if err := rt.InitModules(ctx); err != nil {
		t.Fatal(err)
	}
	if err := rt.LoadDefaults(ctx); err != nil {
		t.Fatal(err)
	}
	if err := rt.PushIO(nil); err != nil {
		t.Fatal(err)
	}

	v, err := rt.EvalString(ctx, "(length '(1 2 3))")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := rt.NumberValue(v.Borrow()); n != 3 {
		t.Fatalf("length = %d", n)
	}
	v.Release()

	if err := rt.PopIO(); err != nil {
		t.Fatal(err)
	}
	if err := rt.PopIO(); !errors.Is(err, rerrors.ErrInvalidInput) {
		t.Fatalf("unbalanced PopIO: %v", err)
	}
	rt.FiniModules(ctx)
	if err := rt.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Fatalf("leaked %d cells", s.Len())
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRuntime_Stats(t *testing.T) {
	rt := open(t, &Config{Bare: true})

	a, _ := rt.Number(1)
	b, _ := rt.Number(2)
	p, err := rt.Cons(a, b)
	if err != nil {
		t.Fatal(err)
	}
	p.Release()

	st := rt.Stats()
	if st.Created != 3 || st.Dropped != 3 {
		t.Fatalf("Stats = %+v, want 3 created and 3 dropped", st)
	}
}

func mustNumber(t *testing.T, rt *Runtime, n int64) *Atom {
	t.Helper()
	a, err := rt.Number(n)
	if err != nil {
		t.Fatal(err)
	}
	return a
}
