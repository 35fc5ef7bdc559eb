// Package dag builds the dependency graph of a pipeline run: jobs filtered by
// the triggering event, expanded over their matrices, and linked by their
// needs edges. Construction is a pure transformation of the config model;
// definition errors abort before any execution starts.
package dag

import (
	"context"

	"github.com/specialistvlad/gridci/internal/config"
	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/event"
	"github.com/specialistvlad/gridci/internal/matrix"
	"github.com/specialistvlad/gridci/internal/runstate"
)

// Build constructs the validated instance graph for one run and registers
// every instance as pending in the status table.
//
// Validation covers the whole definition set, not just the triggered subset:
// a cycle or an unknown needs reference is fatal even inside jobs the event
// does not select.
func Build(ctx context.Context, model *config.Model, desc *event.Descriptor, store *runstate.Store, failFastDefault bool) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.", "jobs", len(model.Jobs))

	if err := validateNeeds(model); err != nil {
		return nil, err
	}
	if err := detectCycles(model); err != nil {
		return nil, err
	}
	logger.Debug("Build: definition validation passed.")

	included := selectJobs(ctx, model, desc)
	logger.Debug("Build: trigger filtering complete.", "included", len(included))

	graph := newGraph()
	for _, job := range model.Jobs {
		if !included[job.Name] {
			continue
		}
		assignments, err := matrix.Expand(job)
		if err != nil {
			return nil, err
		}
		for _, a := range assignments {
			id := store.Add(job.Name, a)
			graph.addNode(&Node{
				ID:         id,
				Job:        job,
				Assignment: a,
				FailFast:   job.FailFastOr(failFastDefault),
				Deps:       make(map[string]*Node),
				Dependents: make(map[string]*Node),
			})
		}
	}
	logger.Debug("Build: node creation complete.", "node_count", graph.Len())

	// Needs edges link every instance of the upstream job to every instance
	// of the downstream one: a downstream instance may only start once the
	// whole upstream job is done.
	for _, job := range model.Jobs {
		if !included[job.Name] {
			continue
		}
		for _, need := range job.Needs {
			for _, from := range graph.JobInstances(need) {
				for _, to := range graph.JobInstances(job.Name) {
					to.Deps[from.ID] = from
					from.Dependents[to.ID] = to
				}
			}
		}
	}

	for _, n := range graph.Nodes {
		n.SetInitialCounters()
	}
	logger.Debug("Build: graph construction successful.")
	return graph, nil
}

// validateNeeds checks every needs entry against the full job set.
func validateNeeds(model *config.Model) error {
	for _, job := range model.Jobs {
		for _, need := range job.Needs {
			if model.Job(need) == nil {
				return &UnknownDependencyError{Job: job.Name, Needs: need}
			}
		}
	}
	return nil
}

// selectJobs returns the set of job names admitted by the event. A job whose
// needs chain leaves the set is dropped as well, since its upstream was
// excluded from the graph entirely rather than skipped.
func selectJobs(ctx context.Context, model *config.Model, desc *event.Descriptor) map[string]bool {
	logger := ctxlog.FromContext(ctx)

	included := make(map[string]bool, len(model.Jobs))
	for _, job := range model.Jobs {
		if desc.Matches(job.Trigger) {
			included[job.Name] = true
		} else {
			logger.Debug("Job excluded by trigger.", "job", job.Name, "event", desc.Event, "ref", desc.Ref)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, job := range model.Jobs {
			if !included[job.Name] {
				continue
			}
			for _, need := range job.Needs {
				if !included[need] {
					logger.Debug("Job excluded transitively.", "job", job.Name, "excluded_need", need)
					delete(included, job.Name)
					changed = true
					break
				}
			}
		}
	}
	return included
}

// detectCycles runs a three-color depth-first search over the job-level
// needs edges. Self-referential needs are caught here as one-node cycles.
func detectCycles(model *config.Model) error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(job *config.JobDefinition) error
	visit = func(job *config.JobDefinition) error {
		if permanent[job.Name] {
			return nil
		}
		if temporary[job.Name] {
			return &CycleError{Job: job.Name}
		}
		temporary[job.Name] = true

		for _, need := range job.Needs {
			if err := visit(model.Job(need)); err != nil {
				return err
			}
		}

		delete(temporary, job.Name)
		permanent[job.Name] = true
		return nil
	}

	for _, job := range model.Jobs {
		if !permanent[job.Name] {
			if err := visit(job); err != nil {
				return err
			}
		}
	}
	return nil
}
