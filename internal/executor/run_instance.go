package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gridci/internal/config"
	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/dag"
	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// runInstance executes one instance's steps strictly in declared order,
// stopping at the first failure. Matrix parameters are bound into the
// evaluation context so step expressions resolve against them.
func (e *Executor) runInstance(ctx context.Context, n *dag.Node) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Starting instance", "job", n.Job.Name, "matrix", n.Assignment.String())

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix": n.Assignment.Object(),
		},
	}

	for _, step := range n.Job.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runStep(ctx, n, step, evalCtx); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}

	logger.Info("✅ Finished instance")
	return nil
}

// runStep evaluates a step's expressions against the instance's bindings and
// dispatches the invocation to the registered handler. Shell steps are routed
// through the reserved shell action.
func (e *Executor) runStep(ctx context.Context, n *dag.Node, step *config.Step, evalCtx *hcl.EvalContext) error {
	logger := ctxlog.FromContext(ctx).With("step", step.Name)

	ref := registry.ShellRef
	inputs := make(map[string]cty.Value)

	if step.IsAction() {
		ref = step.Uses
		for _, name := range sortedKeys(step.With) {
			val, diags := step.With[name].Value(evalCtx)
			if diags.HasErrors() {
				return fmt.Errorf("evaluating input %q: %w", name, diags)
			}
			inputs[name] = val
		}
	} else {
		val, diags := step.Run.Value(evalCtx)
		if diags.HasErrors() {
			return fmt.Errorf("evaluating run command: %w", diags)
		}
		cmd, err := convert.Convert(val, cty.String)
		if err != nil {
			return fmt.Errorf("run command is not a string: %w", err)
		}
		inputs["command"] = cmd
	}

	handler, ok := e.registry.Action(ref)
	if !ok {
		return fmt.Errorf("unknown action %q", ref)
	}

	stepCtx := ctx
	if e.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.opts.StepTimeout)
		defer cancel()
	}

	logger.Debug("Calling step handler.", "ref", ref)
	output, err := handler.Fn(stepCtx, &registry.Invocation{
		Ref:    ref,
		Inputs: inputs,
		Matrix: n.Assignment.Map(),
		RunsOn: n.Job.RunsOn,
	})
	if err != nil {
		return err
	}

	if output != cty.NilVal && !output.IsNull() {
		logger.Debug("Step output.", "ref", ref, "output", output.GoString())
	}
	return nil
}

// sortedKeys gives the with-inputs a stable evaluation order.
func sortedKeys(m map[string]hcl.Expression) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
