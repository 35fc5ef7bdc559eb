package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridci/internal/config"
	"github.com/specialistvlad/gridci/internal/ctxlog"
)

// ValidateModel checks that every step in the model resolves to a registered
// handler, so unresolvable references fail at startup instead of mid-run.
func (r *Registry) ValidateModel(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	for _, job := range model.Jobs {
		for _, step := range job.Steps {
			ref := ShellRef
			if step.IsAction() {
				ref = step.Uses
			}
			if _, ok := r.ActionRegistry[ref]; !ok {
				return fmt.Errorf("job %q step %q uses unregistered action %q", job.Name, step.Name, ref)
			}
			logger.Debug("Step handler resolved.", "job", job.Name, "step", step.Name, "ref", ref)
		}
	}
	return nil
}
