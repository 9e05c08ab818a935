package stdlib

import (
	"context"
	_ "embed"

	"go.uber.org/zap"

	"github.com/wippyai/rikiki/engine"
)

//go:embed prelude.l
var prelude string

// Module installs the default natives and ships the prelude.
type Module struct{}

// New returns the default library module.
func New() *Module {
	return &Module{}
}

func (*Module) Name() string { return "stdlib" }

// Init registers every native in natives order.
func (*Module) Init(ctx context.Context, in *engine.Interp) error {
	for _, n := range natives {
		if err := in.Register(n.name, n.fn); err != nil {
			return err
		}
	}
	in.Log().Debug("stdlib natives installed", zap.Int("count", len(natives)))
	return nil
}

func (*Module) Fini(ctx context.Context, in *engine.Interp) {}

// Defaults returns the prelude source.
func (*Module) Defaults() string {
	return prelude
}
