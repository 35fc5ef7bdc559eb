// Package print provides a trivial action that logs its inputs. Useful as a
// pipeline smoke test and as the reference for writing action modules.
package print

import (
	"context"
	"sort"

	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("builtin/print", &registry.RegisteredAction{
		Description: "logs its inputs",
		Fn:          OnRunPrint,
	})
}

// OnRunPrint logs every input in sorted key order.
func OnRunPrint(ctx context.Context, inv *registry.Invocation) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	keys := make([]string, 0, len(inv.Inputs))
	for k := range inv.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		logger.Info("print", "key", k, "value", inv.Inputs[k].GoString())
	}
	return cty.NilVal, nil
}
