// Package schema defines the HCL block shapes of a pipeline document. These
// structs are decode targets only; the hcl loader translates them into the
// format-agnostic model in the config package.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// WithBlock holds the raw body of a step's 'with' block. Its attributes stay
// undecoded because they may reference matrix variables that are only bound
// at execution time.
type WithBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// MatrixBlock holds the raw body of a job's 'matrix' block. Every attribute
// except 'exclude' is an axis.
type MatrixBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// TriggerBlock represents the 'on' block of a job: which events and branches
// admit the job into a run's graph.
type TriggerBlock struct {
	Events   []string `hcl:"events,optional"`
	Branches []string `hcl:"branches,optional"`
}

// Step represents one 'step' block inside a job. Exactly one of Uses or Run
// must be set; the loader enforces this.
type Step struct {
	Name string         `hcl:"name,label"`
	Uses string         `hcl:"uses,optional"`
	Run  hcl.Expression `hcl:"run,optional"`
	With *WithBlock     `hcl:"with,block"`
}

// Job represents a 'job' block from a pipeline file.
type Job struct {
	Name     string        `hcl:"name,label"`
	Needs    []string      `hcl:"needs,optional"`
	RunsOn   string        `hcl:"runs_on,optional"`
	FailFast *bool         `hcl:"fail_fast,optional"`
	On       *TriggerBlock `hcl:"on,block"`
	Matrix   *MatrixBlock  `hcl:"matrix,block"`
	Steps    []*Step       `hcl:"step,block"`
}

// PipelineConfig represents the top-level structure of a pipeline file.
type PipelineConfig struct {
	Jobs []*Job   `hcl:"job,block"`
	Body hcl.Body `hcl:",remain"`
}
