// Package testutil provides the shared harness for integration tests: it
// writes pipeline files into a temp directory, runs the app against them
// with mock action modules, and hands back the captured outputs.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/gridci/internal/app"
	"github.com/specialistvlad/gridci/internal/hcl"
	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/specialistvlad/gridci/internal/report"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// ModuleFunc adapts a closure to the registry.Module interface so tests can
// register mock actions inline.
type ModuleFunc func(r *registry.Registry)

// Register implements registry.Module.
func (f ModuleFunc) Register(r *registry.Registry) { f(r) }

// Options tune a harness run.
type Options struct {
	// Workers for the executor pool; defaults to 4.
	Workers int
	// Event and Ref form the trigger descriptor; Event defaults to "push".
	Event string
	Ref   string
	// EventFile, when set, names a file from the files map whose YAML
	// descriptor replaces the inline Event/Ref pair.
	EventFile string
	// NoFailFast disables the default fail-fast policy.
	NoFailFast bool
	// StepTimeout limits each step's execution; zero means no limit.
	StepTimeout time.Duration
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Events    []report.Event
	Summary   *report.RunEvent
	Err       error
	App       *app.App
}

// Event returns the last stream event for the given instance id, or nil.
func (r *HarnessResult) Event(instance string) *report.Event {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Instance == instance {
			return &r.Events[i]
		}
	}
	return nil
}

// RunPipelineTest runs the app over the given pipeline files with default
// options.
func RunPipelineTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunPipelineTestOpts(t, files, Options{}, modules...)
}

// RunPipelineTestOpts is RunPipelineTest with explicit options.
func RunPipelineTestOpts(t *testing.T, files map[string]string, opts Options, modules ...registry.Module) *HarnessResult {
	t.Helper()

	if opts.Workers == 0 {
		opts.Workers = 4
	}
	if opts.Event == "" {
		opts.Event = "push"
	}

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	eventFile := ""
	if opts.EventFile != "" {
		eventFile = filepath.Join(tmpDir, opts.EventFile)
	}

	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: tmpDir,
		Event:        opts.Event,
		Ref:          opts.Ref,
		EventFile:    eventFile,
		LogFormat:    "text",
		LogLevel:     "debug",
		Workers:      opts.Workers,
		StepTimeout:  opts.StepTimeout,
		FailFast:     !opts.NoFailFast,
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	streamBuffer := &SafeBuffer{}

	result := &HarnessResult{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("startup panic: %v", r)
			}
		}()
		result.App = app.NewApp(logBuffer, streamBuffer, appConfig, hcl.NewLoader(), modules...)
		result.Err = result.App.Run(context.Background())
	}()

	result.LogOutput = logBuffer.String()
	result.Events, result.Summary = parseStream(t, streamBuffer.String())
	return result
}

// parseStream splits the status stream into instance events and the final
// run summary.
func parseStream(t *testing.T, stream string) ([]report.Event, *report.RunEvent) {
	t.Helper()

	var events []report.Event
	var summary *report.RunEvent
	for _, line := range strings.Split(stream, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var probe map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &probe), "stream line is not JSON: %s", line)

		if _, isInstance := probe["instance"]; isInstance {
			var ev report.Event
			require.NoError(t, json.Unmarshal([]byte(line), &ev))
			events = append(events, ev)
			continue
		}
		var run report.RunEvent
		require.NoError(t, json.Unmarshal([]byte(line), &run))
		summary = &run
	}
	return events, summary
}
