package dag

import "fmt"

// CycleError reports that the needs edges of the job set form a cycle. It is
// raised at graph construction, before any instance executes.
type CycleError struct {
	Job string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving job %q", e.Job)
}

// UnknownDependencyError reports a needs entry naming a job that does not
// exist anywhere in the pipeline definition.
type UnknownDependencyError struct {
	Job   string
	Needs string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("job %q needs unknown job %q", e.Job, e.Needs)
}
