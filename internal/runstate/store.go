// Package runstate is the shared status table of a pipeline run: an arena of
// job instances indexed by stable id, with every state change funneled
// through a single synchronized compare-and-set accessor.
package runstate

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/gridci/internal/matrix"
)

// Instance is the mutable record of one parameter-bound job execution. All
// fields are owned by the store; readers get copies via Snapshot.
type Instance struct {
	ID         string
	Job        string
	Assignment matrix.Assignment

	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time

	// Err is the execution failure, nil unless Status is Failed.
	Err error
	// Cause attributes a skip to its trigger (upstream failure or fail-fast).
	Cause string
}

// InstanceID derives the stable arena key for a job and its assignment,
// e.g. "test[os=linux,version=3.11]".
func InstanceID(job string, a matrix.Assignment) string {
	if a.Empty() {
		return job
	}
	return fmt.Sprintf("%s[%s]", job, a.String())
}

// Store holds all instances of one pipeline run.
type Store struct {
	runID string

	mu        sync.RWMutex
	instances map[string]*Instance
	order     []string
}

// NewStore creates an empty status table with a fresh run id.
func NewStore() *Store {
	return &Store{
		runID:     uuid.NewString(),
		instances: make(map[string]*Instance),
	}
}

// RunID returns the unique identifier of this run.
func (s *Store) RunID() string {
	return s.runID
}

// Add registers a pending instance. Adding a duplicate id is a builder bug
// and panics.
func (s *Store) Add(job string, a matrix.Assignment) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := InstanceID(job, a)
	if _, dup := s.instances[id]; dup {
		panic(fmt.Sprintf("runstate: duplicate instance id %q", id))
	}
	s.instances[id] = &Instance{ID: id, Job: job, Assignment: a, Status: Pending}
	s.order = append(s.order, id)
	return id
}

// Transition attempts the from→to state change for an instance. It returns
// false when the instance is no longer in the expected state, so exactly one
// caller wins any race to move an instance out of pending or running.
// Disallowed transitions indicate a scheduler bug and panic.
func (s *Store) Transition(id string, from, to Status) bool {
	if !transitionAllowed(from, to) {
		panic(fmt.Sprintf("runstate: illegal transition %s → %s for %q", from, to, id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inst := s.instances[id]
	if inst == nil || inst.Status != from {
		return false
	}
	inst.Status = to

	now := time.Now()
	switch to {
	case Running:
		inst.StartedAt = now
	case Succeeded, Failed, Skipped:
		inst.FinishedAt = now
	}
	return true
}

// SetOutcome records the failure or skip attribution of an instance. Called
// by the single writer that won the terminal transition.
func (s *Store) SetOutcome(id string, err error, cause string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst := s.instances[id]; inst != nil {
		inst.Err = err
		inst.Cause = cause
	}
}

// Get returns a copy of the instance record, or false if unknown.
func (s *Store) Get(id string) (Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// Snapshot returns copies of all instances in registration order.
func (s *Store) Snapshot() []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Instance, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.instances[id])
	}
	return out
}

// RunStatus folds the instance states into the run-level outcome: failed if
// any instance failed, otherwise succeeded. Skips without a failed upstream
// cannot occur, so they never decide the outcome on their own.
func (s *Store) RunStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inst := range s.instances {
		if inst.Status == Failed {
			return Failed
		}
	}
	return Succeeded
}

// Failed returns the ids of all failed instances in registration order.
func (s *Store) Failed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, id := range s.order {
		if s.instances[id].Status == Failed {
			out = append(out, id)
		}
	}
	return out
}
