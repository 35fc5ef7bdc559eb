// Package env_vars provides an action exposing the process environment as
// step output, mostly for debugging runner environments.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("builtin/env", &registry.RegisteredAction{
		Description: "reads process environment variables",
		Fn:          OnRunEnvVars,
	})
}

// OnRunEnvVars returns the environment as an object. With a 'prefix' input,
// only variables carrying that prefix are included.
func OnRunEnvVars(ctx context.Context, inv *registry.Invocation) (cty.Value, error) {
	prefix, _ := inv.StringInput("prefix")

	envMap := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) != 2 {
			continue
		}
		if prefix != "" && !strings.HasPrefix(pair[0], prefix) {
			continue
		}
		envMap[pair[0]] = cty.StringVal(pair[1])
	}

	if len(envMap) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(envMap), nil
}
