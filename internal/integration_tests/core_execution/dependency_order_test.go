package integration_tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/specialistvlad/gridci/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// executionRecord captures when one instance's handler ran.
type executionRecord struct {
	Start time.Time
	End   time.Time
}

// stampModule records start and end timestamps per instance, keyed by the
// step's "id" input.
type stampModule struct {
	mu      sync.Mutex
	records map[string]*executionRecord
	sleep   time.Duration
}

func newStampModule(sleep time.Duration) *stampModule {
	return &stampModule{records: make(map[string]*executionRecord), sleep: sleep}
}

func (m *stampModule) Register(r *registry.Registry) {
	r.RegisterAction("test/stamp", &registry.RegisteredAction{
		Fn: func(ctx context.Context, inv *registry.Invocation) (cty.Value, error) {
			id, _ := inv.StringInput("id")
			rec := &executionRecord{Start: time.Now()}
			time.Sleep(m.sleep)
			rec.End = time.Now()

			m.mu.Lock()
			m.records[id] = rec
			m.mu.Unlock()
			return cty.NilVal, nil
		},
	})
}

func (m *stampModule) record(id string) *executionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// Test for: a job never starts before every job it needs has finished.
func TestCoreExecution_FanIn_WaitsForAllUpstreams(t *testing.T) {
	// --- Arrange ---
	mock := newStampModule(50 * time.Millisecond)

	pipelineHCL := `
		job "a" {
			step "s" {
				uses = "test/stamp"
				with { id = "a" }
			}
		}
		job "b" {
			step "s" {
				uses = "test/stamp"
				with { id = "b" }
			}
		}
		job "c" {
			step "s" {
				uses = "test/stamp"
				with { id = "c" }
			}
		}
		job "d" {
			needs = ["a", "b", "c"]
			step "s" {
				uses = "test/stamp"
				with { id = "d" }
			}
		}
	`

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"pipeline.hcl": pipelineHCL}, mock)

	// --- Assert ---
	require.NoError(t, result.Err)

	d := mock.record("d")
	require.NotNil(t, d)
	for _, upstream := range []string{"a", "b", "c"} {
		rec := mock.record(upstream)
		require.NotNil(t, rec, "upstream %q never ran", upstream)
		assert.False(t, d.Start.Before(rec.End),
			"job d started before upstream %q finished", upstream)
	}
}

// Test for: independent jobs overlap when workers allow it.
func TestCoreExecution_IndependentJobs_RunConcurrently(t *testing.T) {
	// --- Arrange ---
	mock := newStampModule(100 * time.Millisecond)

	pipelineHCL := `
		job "left" {
			step "s" {
				uses = "test/stamp"
				with { id = "left" }
			}
		}
		job "right" {
			step "s" {
				uses = "test/stamp"
				with { id = "right" }
			}
		}
	`

	// --- Act ---
	start := time.Now()
	result := testutil.RunPipelineTest(t, map[string]string{"pipeline.hcl": pipelineHCL}, mock)
	elapsed := time.Since(start)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.NotNil(t, mock.record("left"))
	require.NotNil(t, mock.record("right"))

	// Serial execution would take at least 200ms of handler time alone.
	assert.Less(t, elapsed, 190*time.Millisecond,
		"independent jobs appear to have run serially")
}

// Test for: pipelines split across files form one graph.
func TestCoreExecution_MultiFilePipeline_FormsOneGraph(t *testing.T) {
	// --- Arrange ---
	mock := newStampModule(0)

	files := map[string]string{
		"build.hcl": `
			job "build" {
				step "s" {
					uses = "test/stamp"
					with { id = "build" }
				}
			}
		`,
		"test.hcl": `
			job "test" {
				needs = ["build"]
				step "s" {
					uses = "test/stamp"
					with { id = "test" }
				}
			}
		`,
	}

	// --- Act ---
	result := testutil.RunPipelineTest(t, files, mock)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "succeeded", result.Summary.Status)
	assert.Equal(t, 2, result.Summary.Instances)

	build, test := mock.record("build"), mock.record("test")
	require.NotNil(t, build)
	require.NotNil(t, test)
	assert.False(t, test.Start.Before(build.End), "cross-file dependency was not honored")
}
