package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/wippyai/rikiki/reader"
	"github.com/wippyai/rikiki/slab"
)

// newInterp returns an interpreter over a fresh slab and checks at cleanup
// that closing it returned every cell.
func newInterp(t *testing.T, cfg *Config) *Interp {
	t.Helper()
	s := slab.New(1 << 14)
	in, err := New(s, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := in.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
		if n := s.Len(); n != 0 {
			t.Errorf("leaked %d cells", n)
		}
		if err := s.Close(); err != nil {
			t.Errorf("slab Close: %v", err)
		}
	})
	return in
}

// newArithInterp is newInterp with the arith test module initialized.
func newArithInterp(t *testing.T, cfg *Config) *Interp {
	t.Helper()
	in := newInterp(t, cfg)
	ctx := context.Background()
	if err := in.RegisterModule(ctx, arith{}); err != nil {
		t.Fatalf("RegisterModule: %v", err)
	}
	if err := in.InitModules(ctx); err != nil {
		t.Fatalf("InitModules: %v", err)
	}
	return in
}

func read(t *testing.T, in *Interp, src string) slab.Ref {
	t.Helper()
	r, err := reader.New(in.Slab(), "test", strings.NewReader(src)).Read()
	if err != nil {
		t.Fatalf("read %q: %v", src, err)
	}
	return r
}

func evalIn(t *testing.T, in *Interp, env slab.Ref, src string) (string, error) {
	t.Helper()
	v, err := in.Eval(context.Background(), env, read(t, in, src))
	if err != nil {
		return "", err
	}
	defer in.Release(v)
	return in.Sprint(v)
}

func mustEval(t *testing.T, in *Interp, src string) string {
	t.Helper()
	out, err := evalIn(t, in, 0, src)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}
	return out
}

// arith is a small module used to exercise builtin dispatch.
type arith struct{}

func (arith) Name() string { return "arith" }

func (arith) Init(ctx context.Context, in *Interp) error {
	if err := in.Register("+", func(c *Call) (slab.Ref, error) {
		var sum int64
		for i := range c.Args {
			n, err := c.Number(i)
			if err != nil {
				return 0, err
			}
			sum += n
		}
		return c.Interp.Number(sum)
	}); err != nil {
		return err
	}
	if err := in.Register("-", func(c *Call) (slab.Ref, error) {
		if err := c.Arity(2); err != nil {
			return 0, err
		}
		a, err := c.Number(0)
		if err != nil {
			return 0, err
		}
		b, err := c.Number(1)
		if err != nil {
			return 0, err
		}
		return c.Interp.Number(a - b)
	}); err != nil {
		return err
	}
	return in.Register("<", func(c *Call) (slab.Ref, error) {
		if err := c.Arity(2); err != nil {
			return 0, err
		}
		a, err := c.Number(0)
		if err != nil {
			return 0, err
		}
		b, err := c.Number(1)
		if err != nil {
			return 0, err
		}
		return c.Interp.Bool(a < b)
	})
}

func (arith) Fini(ctx context.Context, in *Interp) {}
