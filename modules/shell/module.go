// Package shell provides the reserved action every 'run' step is dispatched
// through. Commands execute in a subshell with the instance's matrix
// parameters exported into the environment.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the shell handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction(registry.ShellRef, &registry.RegisteredAction{
		Description: "executes a command in a subshell",
		Fn:          OnRunShell,
	})
}

// OnRunShell runs the 'command' input via sh -c. Stdout and stderr are
// captured together and returned as the step output alongside the exit code.
func OnRunShell(ctx context.Context, inv *registry.Invocation) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	command, ok := inv.StringInput("command")
	if !ok || command == "" {
		return cty.NilVal, fmt.Errorf("shell action requires a 'command' input")
	}

	shellBin, ok := inv.StringInput("shell")
	if !ok {
		shellBin = "sh"
	}

	cmd := exec.CommandContext(ctx, shellBin, "-c", command)
	cmd.Env = append(os.Environ(), matrixEnv(inv.Matrix)...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Debug("Running shell command.", "command", command)
	err := cmd.Run()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cty.NilVal, fmt.Errorf("command interrupted: %w", ctxErr)
		}
		return cty.NilVal, fmt.Errorf("command failed (exit %d): %w\n%s", exitCode, err, out.String())
	}

	return cty.ObjectVal(map[string]cty.Value{
		"output":    cty.StringVal(out.String()),
		"exit_code": cty.NumberIntVal(int64(exitCode)),
	}), nil
}

// matrixEnv exports matrix bindings as MATRIX_<AXIS> variables so commands
// can read their parameters without templating.
func matrixEnv(params map[string]string) []string {
	if len(params) == 0 {
		return nil
	}
	axes := make([]string, 0, len(params))
	for axis := range params {
		axes = append(axes, axis)
	}
	sort.Strings(axes)

	env := make([]string, 0, len(axes))
	for _, axis := range axes {
		name := "MATRIX_" + strings.ToUpper(strings.Map(sanitizeEnvRune, axis))
		env = append(env, name+"="+params[axis])
	}
	return env
}

func sanitizeEnvRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	default:
		return '_'
	}
}
