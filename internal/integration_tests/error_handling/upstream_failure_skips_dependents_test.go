package integration_tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/specialistvlad/gridci/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// Test for: a failed job skips its transitive dependents without running them.
func TestErrorHandling_UpstreamFailure_SkipsDependents(t *testing.T) {
	// --- Arrange ---
	var wasSpyExecuted atomic.Bool
	injectedErr := errors.New("handler failed as expected")

	mockModule := testutil.ModuleFunc(func(r *registry.Registry) {
		r.RegisterAction("test/failer", &registry.RegisteredAction{
			Fn: func(context.Context, *registry.Invocation) (cty.Value, error) {
				return cty.NilVal, injectedErr
			},
		})
		r.RegisterAction("test/spy", &registry.RegisteredAction{
			Fn: func(context.Context, *registry.Invocation) (cty.Value, error) {
				wasSpyExecuted.Store(true) // If this runs, the test has failed.
				return cty.NilVal, nil
			},
		})
	})

	pipelineHCL := `
		job "build" {
			step "compile" {
				uses = "test/failer"
			}
		}

		job "test" {
			needs = ["build"]
			step "unit" {
				uses = "test/spy"
			}
		}

		job "publish" {
			needs = ["test"]
			step "upload" {
				uses = "test/spy"
			}
		}
	`

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"pipeline.hcl": pipelineHCL}, mockModule)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, "build")
	assert.False(t, wasSpyExecuted.Load(), "a dependent of the failed job was executed")

	build := result.Event("build")
	require.NotNil(t, build)
	assert.Equal(t, "failed", build.Status)
	assert.Contains(t, build.Error, "handler failed as expected")

	for _, id := range []string{"test", "publish"} {
		ev := result.Event(id)
		require.NotNil(t, ev, "no stream event for %q", id)
		assert.Equal(t, "skipped", ev.Status)
		assert.Contains(t, ev.Cause, `"build"`, "skip must attribute the original failure")
	}

	require.NotNil(t, result.Summary)
	assert.Equal(t, "failed", result.Summary.Status)
	assert.Equal(t, 1, result.Summary.Failed)
	assert.Equal(t, 2, result.Summary.Skipped)
}

// Test for: a failure in one branch leaves unrelated branches running to completion.
func TestErrorHandling_UpstreamFailure_UnrelatedBranchCompletes(t *testing.T) {
	// --- Arrange ---
	mockModule := testutil.ModuleFunc(func(r *registry.Registry) {
		r.RegisterAction("test/failer", &registry.RegisteredAction{
			Fn: func(context.Context, *registry.Invocation) (cty.Value, error) {
				return cty.NilVal, errors.New("boom")
			},
		})
		r.RegisterAction("test/ok", &registry.RegisteredAction{
			Fn: func(context.Context, *registry.Invocation) (cty.Value, error) {
				return cty.NilVal, nil
			},
		})
	})

	pipelineHCL := `
		job "bad" {
			step "s" {
				uses = "test/failer"
			}
		}

		job "lint" {
			step "s" {
				uses = "test/ok"
			}
		}

		job "docs" {
			needs = ["lint"]
			step "s" {
				uses = "test/ok"
			}
		}
	`

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"pipeline.hcl": pipelineHCL}, mockModule)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.Equal(t, "failed", result.Event("bad").Status)
	assert.Equal(t, "succeeded", result.Event("lint").Status)
	assert.Equal(t, "succeeded", result.Event("docs").Status)
}
