package runstate

// Status is the lifecycle state of a job instance. Transitions are
// monotonic: pending → running → {succeeded, failed}, or pending → skipped.
type Status int32

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
	Skipped
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case Succeeded, Failed, Skipped:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// allowed is the transition table. Anything not listed is rejected by the
// store's compare-and-set accessor.
var allowed = map[Status][]Status{
	Pending: {Running, Skipped},
	Running: {Succeeded, Failed},
}

func transitionAllowed(from, to Status) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}
