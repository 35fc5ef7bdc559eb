// Package report emits the machine-readable status stream of a pipeline run
// and folds instance outcomes into the run-level result. Each status change
// is one JSON line on the stream writer; logs stay on the logger.
package report

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/specialistvlad/gridci/internal/runstate"
)

// Event is one line of the status stream.
type Event struct {
	RunID      string            `json:"run_id"`
	Instance   string            `json:"instance"`
	Job        string            `json:"job"`
	Matrix     map[string]string `json:"matrix,omitempty"`
	Status     string            `json:"status"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// RunEvent is the final line of the stream, summarizing the whole run.
type RunEvent struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Instances int    `json:"instances"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// Reporter serializes events from concurrent workers onto one writer.
type Reporter struct {
	runID string

	mu  sync.Mutex
	enc *json.Encoder
}

// New creates a Reporter writing JSON lines to w.
func New(w io.Writer, runID string) *Reporter {
	return &Reporter{runID: runID, enc: json.NewEncoder(w)}
}

// Instance emits the current state of one instance.
func (r *Reporter) Instance(inst runstate.Instance) {
	ev := Event{
		RunID:    r.runID,
		Instance: inst.ID,
		Job:      inst.Job,
		Status:   inst.Status.String(),
		Cause:    inst.Cause,
	}
	if !inst.Assignment.Empty() {
		ev.Matrix = inst.Assignment.Map()
	}
	if !inst.StartedAt.IsZero() {
		t := inst.StartedAt
		ev.StartedAt = &t
	}
	if !inst.FinishedAt.IsZero() {
		t := inst.FinishedAt
		ev.FinishedAt = &t
	}
	if inst.Err != nil {
		ev.Error = inst.Err.Error()
	}
	r.emit(ev)
}

// Run emits the final run summary computed from the status table.
func (r *Reporter) Run(store *runstate.Store) RunEvent {
	snapshot := store.Snapshot()
	ev := RunEvent{
		RunID:     r.runID,
		Status:    store.RunStatus().String(),
		Instances: len(snapshot),
	}
	for _, inst := range snapshot {
		switch inst.Status {
		case runstate.Failed:
			ev.Failed++
		case runstate.Skipped:
			ev.Skipped++
		}
	}
	r.emit(ev)
	return ev
}

func (r *Reporter) emit(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Encode errors mean the stream writer is gone; nothing useful to do.
	_ = r.enc.Encode(v)
}
