package executor

import (
	"context"

	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/runstate"
)

// worker is the processing loop of one concurrent execution context. Each
// dequeued instance is either started via the status table's compare-and-set
// (so a skipped instance is never executed) or passed over because another
// writer already moved it to a terminal state.
func (e *Executor) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range e.ready {
		workerLogger := logger.With("workerID", workerID, "instance", n.ID)

		if err := ctx.Err(); err != nil {
			if e.skip(ctx, n, "run canceled", n.ID) {
				workerLogger.Warn("Context canceled, skipping instance.")
			}
			continue
		}

		if !e.store.Transition(n.ID, runstate.Pending, runstate.Running) {
			// Already skipped by fail-fast or upstream propagation.
			workerLogger.Debug("Instance no longer pending, not executing.")
			continue
		}
		e.emit(n)

		workerLogger.Debug("Worker picked up instance for execution.")
		if err := e.runInstance(ctxlog.With(ctx, "instance", n.ID), n); err != nil {
			workerLogger.Error("Instance execution failed.", "error", err)
			e.finish(ctx, n, runstate.Failed, err)
			continue
		}

		workerLogger.Debug("Instance execution succeeded.")
		e.finish(ctx, n, runstate.Succeeded, nil)
	}

	logger.Debug("Worker finished.", "workerID", workerID)
}
