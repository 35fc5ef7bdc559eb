// Package registry maps action references from pipeline steps to the Go
// handlers that implement them. Handlers are contributed by modules at
// startup; the step runner only sequences invocations, it never implements
// action semantics itself.
package registry

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// ShellRef is the reserved action every 'run' step is routed through.
const ShellRef = "builtin/shell"

// Invocation carries everything a handler receives for one step execution.
type Invocation struct {
	// Ref is the action reference the step used.
	Ref string

	// Inputs are the evaluated 'with' values, keyed by input name.
	Inputs map[string]cty.Value

	// Matrix exposes the owning instance's parameter bindings.
	Matrix map[string]string

	// RunsOn is the job's environment constraint, opaque to the core.
	RunsOn string
}

// Input returns a named input value, or cty.NilVal when absent.
func (inv *Invocation) Input(name string) cty.Value {
	if v, ok := inv.Inputs[name]; ok {
		return v
	}
	return cty.NilVal
}

// StringInput returns a named input as a string, with ok reporting whether it
// was present and a string.
func (inv *Invocation) StringInput(name string) (string, bool) {
	v := inv.Input(name)
	if v == cty.NilVal || v.IsNull() || v.Type() != cty.String {
		return "", false
	}
	return v.AsString(), true
}

// ActionFunc executes one action invocation. The returned value is the
// action's output, logged at debug level; cty.NilVal is fine for actions
// without output.
type ActionFunc func(ctx context.Context, inv *Invocation) (cty.Value, error)

// RegisteredAction pairs a handler with its registration metadata.
type RegisteredAction struct {
	// Description is shown in debug logs when the handler is bound.
	Description string
	Fn          ActionFunc
}

// Module is the interface every action provider implements to contribute its
// handlers to an application instance.
type Module interface {
	Register(r *Registry)
}

// Registry holds the action handlers of a single application instance.
type Registry struct {
	ActionRegistry map[string]*RegisteredAction
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		ActionRegistry: make(map[string]*RegisteredAction),
	}
}

// RegisterAction binds a handler to an action reference. Re-registering a
// reference replaces the previous handler, which is how tests substitute
// mock actions for built-ins.
func (r *Registry) RegisterAction(ref string, action *RegisteredAction) {
	r.ActionRegistry[ref] = action
}

// Action resolves an action reference.
func (r *Registry) Action(ref string) (*RegisteredAction, bool) {
	a, ok := r.ActionRegistry[ref]
	return a, ok
}
