package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the complete, parsed pipeline definition for one run. Jobs keep
// their file declaration order; lookups go through Job.
type Model struct {
	Jobs []*JobDefinition

	index map[string]*JobDefinition
}

// NewModel builds a Model from an ordered job list and indexes it by name.
func NewModel(jobs []*JobDefinition) *Model {
	m := &Model{Jobs: jobs, index: make(map[string]*JobDefinition, len(jobs))}
	for _, j := range jobs {
		m.index[j.Name] = j
	}
	return m
}

// Job returns the definition with the given name, or nil.
func (m *Model) Job(name string) *JobDefinition {
	return m.index[name]
}

// JobDefinition is one named unit of work: an ordered step list, dependency
// edges, and optional matrix and trigger specifications. It is immutable
// after loading.
type JobDefinition struct {
	Name   string
	Needs  []string
	RunsOn string

	// FailFast is nil when the job does not override the run-level default.
	FailFast *bool

	Trigger *Trigger
	Matrix  *Matrix
	Steps   []*Step
}

// FailFastOr resolves the job's fail-fast policy against the run default.
func (j *JobDefinition) FailFastOr(def bool) bool {
	if j.FailFast != nil {
		return *j.FailFast
	}
	return def
}

// Trigger holds a job's admission filters. Empty Events or Branches means
// "match any".
type Trigger struct {
	Events   []string
	Branches []string
}

// Axis is one matrix dimension with its ordered value list.
type Axis struct {
	Name   string
	Values []string
}

// Matrix is a job's parameter space: axes in declaration order plus the
// combinations to omit. An exclude entry drops a combination when every one
// of its pairs matches.
type Matrix struct {
	Axes    []Axis
	Exclude []map[string]string
}

// Step is a single instruction inside a job. Run and With stay as HCL
// expressions so matrix parameters can be substituted at execution time.
type Step struct {
	Name string

	// Uses names a registered action handler; empty for shell steps.
	Uses string

	// Run is the shell command expression; nil for action steps.
	Run hcl.Expression

	// With holds the named action inputs, unevaluated.
	With map[string]hcl.Expression
}

// IsAction reports whether the step invokes a registered action rather than
// a shell command.
func (s *Step) IsAction() bool {
	return s.Uses != ""
}
