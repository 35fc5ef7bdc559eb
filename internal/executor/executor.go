// Package executor walks the instance graph on a bounded worker pool,
// admitting an instance only once every dependency reached a terminal state
// and succeeded. Failures are contained: they skip their own matrix siblings
// (under fail-fast) and their transitive dependents, never unrelated
// branches.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/dag"
	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/specialistvlad/gridci/internal/report"
	"github.com/specialistvlad/gridci/internal/runstate"
)

// Options are the externally supplied execution parameters. No defaults are
// baked in here; the CLI owns them.
type Options struct {
	// Workers bounds the number of instances executing concurrently.
	Workers int

	// StepTimeout limits each step's execution; zero means no limit.
	StepTimeout time.Duration
}

// Executor orchestrates one pipeline run over a pre-built graph.
type Executor struct {
	graph    *dag.Graph
	store    *runstate.Store
	registry *registry.Registry
	reporter *report.Reporter
	opts     Options

	wg    sync.WaitGroup
	ready chan *dag.Node
}

// New creates an Executor for the given graph and status table.
func New(graph *dag.Graph, store *runstate.Store, reg *registry.Registry, rep *report.Reporter, opts Options) *Executor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Executor{
		graph:    graph,
		store:    store,
		registry: reg,
		reporter: rep,
		opts:     opts,
	}
}

// Run executes the graph and blocks until every instance reached a terminal
// state. It returns an error when any instance failed; skipped instances on
// their own do not fail the run.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if e.graph.Len() == 0 {
		logger.Warn("No instances in graph, nothing to execute.")
		return nil
	}

	// Buffered to the node count so completion paths never block on dispatch.
	e.ready = make(chan *dag.Node, e.graph.Len())

	roots := e.graph.Roots()
	logger.Debug("Found root instances.", "count", len(roots))
	for _, n := range roots {
		e.ready <- n
	}

	e.wg.Add(e.graph.Len())

	workers := e.opts.Workers
	logger.Debug("Starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		go e.worker(ctx, i)
	}

	logger.Info("Waiting for all instances to complete...")
	e.wg.Wait()
	close(e.ready)
	logger.Info("All instances completed.")

	if failed := e.store.Failed(); len(failed) > 0 {
		return fmt.Errorf("execution failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

// finish moves a running instance to its terminal state and unlocks or skips
// its dependents. The worker that started the instance is the only caller,
// so the running→terminal transition always wins.
func (e *Executor) finish(ctx context.Context, n *dag.Node, status runstate.Status, err error) {
	e.store.Transition(n.ID, runstate.Running, status)
	if err != nil {
		e.store.SetOutcome(n.ID, err, "")
	}
	e.emit(n)

	if status == runstate.Succeeded {
		for _, dep := range n.Dependents {
			if dep.DecrementDepCount() == 0 {
				e.ready <- dep
			}
		}
	} else {
		if n.FailFast {
			e.skipSiblings(ctx, n)
		}
		e.skipDependents(ctx, n, n.ID)
	}

	e.wg.Done()
}

// skip moves a pending instance directly to skipped. It returns false when
// the instance already left pending, in which case another writer owns it:
// a running sibling is left to finish naturally.
func (e *Executor) skip(ctx context.Context, n *dag.Node, cause, rootCause string) bool {
	if !e.store.Transition(n.ID, runstate.Pending, runstate.Skipped) {
		return false
	}
	e.store.SetOutcome(n.ID, nil, cause)
	e.emit(n)
	e.wg.Done()

	e.skipDependents(ctx, n, rootCause)
	return true
}

// skipSiblings applies the fail-fast policy: pending instances of the same
// matrix group are cancelled without ever acquiring a worker.
func (e *Executor) skipSiblings(ctx context.Context, failed *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	cause := fmt.Sprintf("fail-fast: sibling instance %q failed", failed.ID)

	for _, sibling := range e.graph.JobInstances(failed.Job.Name) {
		if sibling == failed {
			continue
		}
		if e.skip(ctx, sibling, cause, failed.ID) {
			logger.Warn("Skipping matrix sibling after failure.", "instance", sibling.ID, "failed", failed.ID)
		}
	}
}

// skipDependents propagates a non-success outcome downstream, attributing
// every transitive skip to the original failed instance.
func (e *Executor) skipDependents(ctx context.Context, n *dag.Node, rootCause string) {
	logger := ctxlog.FromContext(ctx)
	cause := fmt.Sprintf("upstream failure of %q", rootCause)

	for _, dep := range n.Dependents {
		if e.skip(ctx, dep, cause, rootCause) {
			logger.Warn("Skipping dependent instance.", "instance", dep.ID, "upstream", rootCause)
		}
	}
}

// emit publishes the instance's current state onto the status stream.
func (e *Executor) emit(n *dag.Node) {
	if inst, ok := e.store.Get(n.ID); ok {
		e.reporter.Instance(inst)
	}
}
