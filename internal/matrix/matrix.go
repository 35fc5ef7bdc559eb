// Package matrix expands a job's parameter space into concrete assignments.
// Expansion is a pure function: the same definition always yields the same
// assignments in the same order.
package matrix

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/gridci/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// EmptyMatrixError reports a declared matrix whose expansion produced no
// combinations, which would leave the job with nothing to run.
type EmptyMatrixError struct {
	Job string
}

func (e *EmptyMatrixError) Error() string {
	return fmt.Sprintf("matrix of job %q expands to zero combinations", e.Job)
}

// Assignment binds one value per matrix axis, in axis declaration order. The
// zero value is the empty assignment used for matrix-less jobs.
type Assignment struct {
	axes   []string
	values map[string]string
}

// Get returns the bound value for an axis.
func (a Assignment) Get(axis string) (string, bool) {
	v, ok := a.values[axis]
	return v, ok
}

// Axes returns the axis names in declaration order.
func (a Assignment) Axes() []string {
	return a.axes
}

// Empty reports whether the assignment binds no axes.
func (a Assignment) Empty() bool {
	return len(a.axes) == 0
}

// Map returns a copy of the axis-to-value bindings.
func (a Assignment) Map() map[string]string {
	out := make(map[string]string, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// String renders the assignment as "os=linux,version=3.11" in axis order.
func (a Assignment) String() string {
	var sb strings.Builder
	for i, axis := range a.axes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(axis)
		sb.WriteByte('=')
		sb.WriteString(a.values[axis])
	}
	return sb.String()
}

// Object converts the assignment into a cty object for use in step
// expression evaluation. An empty assignment yields an empty object, so
// matrix references in matrix-less jobs fail cleanly at evaluation.
func (a Assignment) Object() cty.Value {
	if len(a.axes) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(a.axes))
	for axis, v := range a.values {
		vals[axis] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}

// Expand produces the assignment list for a job. A job without a matrix
// yields exactly one empty assignment. Combinations are generated in
// lexicographic order over the axes as declared, with excluded combinations
// dropped.
func Expand(job *config.JobDefinition) ([]Assignment, error) {
	if job.Matrix == nil {
		return []Assignment{{}}, nil
	}

	axes := make([]string, len(job.Matrix.Axes))
	for i, axis := range job.Matrix.Axes {
		axes[i] = axis.Name
	}

	var out []Assignment
	current := make(map[string]string, len(axes))

	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(job.Matrix.Axes) {
			if excluded(current, job.Matrix.Exclude) {
				return
			}
			values := make(map[string]string, len(current))
			for k, v := range current {
				values[k] = v
			}
			out = append(out, Assignment{axes: axes, values: values})
			return
		}
		axis := job.Matrix.Axes[depth]
		for _, value := range axis.Values {
			current[axis.Name] = value
			walk(depth + 1)
		}
		delete(current, axis.Name)
	}
	walk(0)

	if len(out) == 0 {
		return nil, &EmptyMatrixError{Job: job.Name}
	}
	return out, nil
}

// excluded reports whether a combination matches any exclude entry. An entry
// matches when every pair it names agrees with the combination.
func excluded(combo map[string]string, exclude []map[string]string) bool {
	for _, entry := range exclude {
		if len(entry) == 0 {
			continue
		}
		match := true
		for axis, value := range entry {
			if combo[axis] != value {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
