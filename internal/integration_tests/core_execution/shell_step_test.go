package integration_tests

import (
	"testing"

	"github.com/specialistvlad/gridci/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: 'run' steps execute through the built-in shell action.
func TestCoreExecution_ShellStep_RunsCommand(t *testing.T) {
	// --- Arrange ---
	pipelineHCL := `
		job "build" {
			step "ok" {
				run = "true"
			}
		}
	`

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"pipeline.hcl": pipelineHCL})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "succeeded", result.Event("build").Status)
}

// Test for: a non-zero exit status fails the instance.
func TestCoreExecution_ShellStep_NonZeroExitFails(t *testing.T) {
	// --- Arrange ---
	pipelineHCL := `
		job "build" {
			step "compile" {
				run = "exit 3"
			}
		}
	`

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"pipeline.hcl": pipelineHCL})

	// --- Assert ---
	require.Error(t, result.Err)

	ev := result.Event("build")
	require.NotNil(t, ev)
	assert.Equal(t, "failed", ev.Status)
	assert.Contains(t, ev.Error, `step "compile"`)
}

// Test for: matrix parameters reach shell commands via the environment.
func TestCoreExecution_ShellStep_MatrixEnvironment(t *testing.T) {
	// --- Arrange ---
	pipelineHCL := `
		job "test" {
			matrix {
				version = ["3.12"]
			}
			step "check" {
				run = "test \"$MATRIX_VERSION\" = \"3.12\""
			}
		}
	`

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"pipeline.hcl": pipelineHCL})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "succeeded", result.Event("test[version=3.12]").Status)
}

// Test for: run expressions interpolate matrix parameters before execution.
func TestCoreExecution_ShellStep_InterpolatedCommand(t *testing.T) {
	// --- Arrange ---
	pipelineHCL := `
		job "test" {
			matrix {
				mode = ["fast"]
			}
			step "check" {
				run = "test ${matrix.mode} = fast"
			}
		}
	`

	// --- Act ---
	result := testutil.RunPipelineTest(t, map[string]string{"pipeline.hcl": pipelineHCL})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "succeeded", result.Event("test[mode=fast]").Status)
}
