package runstate

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/gridci/internal/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddAndGet(t *testing.T) {
	s := NewStore()
	id := s.Add("build", matrix.Assignment{})
	assert.Equal(t, "build", id)

	inst, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, Pending, inst.Status)
	assert.Equal(t, "build", inst.Job)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_RunIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewStore().RunID(), NewStore().RunID())
}

func TestStore_DuplicateAddPanics(t *testing.T) {
	s := NewStore()
	s.Add("build", matrix.Assignment{})
	assert.Panics(t, func() { s.Add("build", matrix.Assignment{}) })
}

func TestStore_TransitionLifecycle(t *testing.T) {
	s := NewStore()
	id := s.Add("build", matrix.Assignment{})

	require.True(t, s.Transition(id, Pending, Running))
	inst, _ := s.Get(id)
	assert.False(t, inst.StartedAt.IsZero())

	require.True(t, s.Transition(id, Running, Succeeded))
	inst, _ = s.Get(id)
	assert.Equal(t, Succeeded, inst.Status)
	assert.False(t, inst.FinishedAt.IsZero())
}

func TestStore_TransitionRejectsStaleState(t *testing.T) {
	s := NewStore()
	id := s.Add("build", matrix.Assignment{})

	require.True(t, s.Transition(id, Pending, Skipped))
	// The instance already left pending; a second writer must lose.
	assert.False(t, s.Transition(id, Pending, Running))
	assert.False(t, s.Transition(id, Pending, Skipped))

	inst, _ := s.Get(id)
	assert.Equal(t, Skipped, inst.Status)
}

func TestStore_IllegalTransitionPanics(t *testing.T) {
	s := NewStore()
	id := s.Add("build", matrix.Assignment{})

	assert.Panics(t, func() { s.Transition(id, Pending, Succeeded) })
	assert.Panics(t, func() { s.Transition(id, Succeeded, Running) })
	assert.Panics(t, func() { s.Transition(id, Running, Skipped) })
}

func TestStore_ExactlyOneWriterWins(t *testing.T) {
	s := NewStore()
	id := s.Add("build", matrix.Assignment{})

	const writers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			if s.Transition(id, Pending, Running) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestStore_SnapshotKeepsRegistrationOrder(t *testing.T) {
	s := NewStore()
	s.Add("c", matrix.Assignment{})
	s.Add("a", matrix.Assignment{})
	s.Add("b", matrix.Assignment{})

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "c", snapshot[0].ID)
	assert.Equal(t, "a", snapshot[1].ID)
	assert.Equal(t, "b", snapshot[2].ID)
}

func TestStore_RunStatus(t *testing.T) {
	t.Run("all succeeded", func(t *testing.T) {
		s := NewStore()
		id := s.Add("a", matrix.Assignment{})
		s.Transition(id, Pending, Running)
		s.Transition(id, Running, Succeeded)
		assert.Equal(t, Succeeded, s.RunStatus())
	})

	t.Run("any failure fails the run", func(t *testing.T) {
		s := NewStore()
		a := s.Add("a", matrix.Assignment{})
		b := s.Add("b", matrix.Assignment{})
		s.Transition(a, Pending, Running)
		s.Transition(a, Running, Failed)
		s.SetOutcome(a, errors.New("boom"), "")
		s.Transition(b, Pending, Skipped)

		assert.Equal(t, Failed, s.RunStatus())
		assert.Equal(t, []string{"a"}, s.Failed())
	})

	t.Run("skips alone do not fail the run", func(t *testing.T) {
		s := NewStore()
		id := s.Add("a", matrix.Assignment{})
		s.Transition(id, Pending, Skipped)
		assert.Equal(t, Succeeded, s.RunStatus())
	})
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, Pending.Terminal())
	assert.False(t, Running.Terminal())
	assert.True(t, Succeeded.Terminal())
	assert.True(t, Failed.Terminal())
	assert.True(t, Skipped.Terminal())
}
