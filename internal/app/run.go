package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/dag"
	"github.com/specialistvlad/gridci/internal/event"
	"github.com/specialistvlad/gridci/internal/executor"
	"github.com/specialistvlad/gridci/internal/report"
	"github.com/specialistvlad/gridci/internal/runstate"
)

// Run executes the loaded pipeline for the configured event. It returns an
// error when the run fails; a run where every reachable instance succeeded
// returns nil.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	desc, err := a.eventDescriptor()
	if err != nil {
		return err
	}
	a.logger.Info("Run triggered.", "event", desc.Event, "ref", desc.Ref)

	a.store = runstate.NewStore()
	reporter := report.New(a.streamW, a.store.RunID())

	graph, err := dag.Build(ctx, a.model, desc, a.store, a.config.FailFast)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "instances", graph.Len())

	if a.config.StatusPort > 0 {
		srv := a.startStatusServer(ctx, a.config.StatusPort)
		defer a.stopStatusServer(ctx, srv)
	}

	if graph.Len() == 0 {
		a.logger.Warn("No jobs matched the trigger, nothing to execute.")
		reporter.Run(a.store)
		return nil
	}

	a.logger.Info("🚀 Starting concurrent execution...", "run_id", a.store.RunID(), "workers", a.config.Workers)
	exec := executor.New(graph, a.store, a.registry, reporter, executor.Options{
		Workers:     a.config.Workers,
		StepTimeout: a.config.StepTimeout,
	})
	runErr := exec.Run(ctx)

	summary := reporter.Run(a.store)
	a.logger.Info("🏁 Execution finished.",
		"run_id", a.store.RunID(),
		"status", summary.Status,
		"instances", summary.Instances,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	return nil
}

// eventDescriptor resolves the trigger from the configuration: an event file
// takes precedence over inline flags.
func (a *App) eventDescriptor() (*event.Descriptor, error) {
	if a.config.EventFile != "" {
		return event.FromFile(a.config.EventFile)
	}
	return &event.Descriptor{Event: a.config.Event, Ref: a.config.Ref}, nil
}
