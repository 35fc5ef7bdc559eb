package dag

import (
	"sync/atomic"

	"github.com/specialistvlad/gridci/internal/config"
	"github.com/specialistvlad/gridci/internal/matrix"
)

// Node is one schedulable job instance in the graph: a job definition bound
// to a single matrix assignment.
type Node struct {
	// ID matches the instance id in the run's status table.
	ID string

	// Job is the immutable definition this instance was expanded from.
	Job *config.JobDefinition

	// Assignment binds one value per matrix axis; empty for matrix-less jobs.
	Assignment matrix.Assignment

	// FailFast is the job's resolved fail-fast policy.
	FailFast bool

	// Deps and Dependents are the instance-level needs edges. Populated
	// during Build and read-only afterwards.
	Deps       map[string]*Node
	Dependents map[string]*Node

	// depCount gates admission: the node becomes ready when it reaches zero.
	depCount atomic.Int32
}

// SetInitialCounters primes the admission counter from the linked edges.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// DecrementDepCount records one satisfied dependency and returns the number
// still outstanding.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// DepCount returns the number of unsatisfied dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// Graph is the expanded, validated dependency graph of one pipeline run.
// Construction happens single-threaded in Build; afterwards the structure is
// immutable and safe for concurrent reads.
type Graph struct {
	Nodes map[string]*Node

	order []string
	byJob map[string][]*Node
}

func newGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]*Node),
		byJob: make(map[string][]*Node),
	}
}

func (g *Graph) addNode(n *Node) {
	g.Nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	g.byJob[n.Job.Name] = append(g.byJob[n.Job.Name], n)
}

// Ordered returns all nodes in creation order: job declaration order, then
// matrix expansion order within a job.
func (g *Graph) Ordered() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.Nodes[id])
	}
	return out
}

// Roots returns the nodes with no dependencies, in creation order. They are
// ready the moment the run starts.
func (g *Graph) Roots() []*Node {
	var out []*Node
	for _, n := range g.Ordered() {
		if len(n.Deps) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// JobInstances returns all instances expanded from the named job, in
// expansion order.
func (g *Graph) JobInstances(job string) []*Node {
	return g.byJob[job]
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.Nodes)
}
